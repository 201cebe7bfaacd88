package tracking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const testInterval = 10 * time.Second

type fakePermission struct {
	granted bool
	calls   atomic.Int32
}

func (f *fakePermission) RequestForeground(context.Context) (bool, error) {
	f.calls.Add(1)
	return f.granted, nil
}

type fakeSource struct {
	coord geo.Coordinate
	err   error
}

func (f *fakeSource) CurrentPosition(context.Context) (Position, error) {
	if f.err != nil {
		return Position{}, f.err
	}
	return Position{Coordinate: f.coord, AccuracyM: 12}, nil
}

type fakeStore struct {
	mu         sync.Mutex
	publishes  int
	fetches    int
	publishErr error
	failing    map[uuid.UUID]bool
	locations  map[uuid.UUID]PeerLocation
}

func (f *fakeStore) PublishOwn(context.Context, geo.Coordinate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes++
	return f.publishErr
}

func (f *fakeStore) PeerLocation(_ context.Context, id uuid.UUID) (PeerLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.failing[id] {
		return PeerLocation{}, errors.New("peer fetch failed")
	}
	return f.locations[id], nil
}

func (f *fakeStore) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.publishes, f.fetches
}

var worksite = geo.Coordinate{Latitude: 16.0544, Longitude: 108.2022}

func waitUpdate(t *testing.T, updates <-chan []TrackedPeer) []TrackedPeer {
	t.Helper()
	select {
	case peers := <-updates:
		return peers
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a committed cycle")
		return nil
	}
}

func newTestSession(store *fakeStore, perm *fakePermission, clock clockwork.Clock) (*Session, chan []TrackedPeer) {
	updates := make(chan []TrackedPeer, 16)
	s := NewSession(Deps{
		Permission: perm,
		Source:     &fakeSource{coord: worksite},
		Store:      store,
	}, clock, logger.Nop(), func(p []TrackedPeer) { updates <- p })
	return s, updates
}

func TestStopCancelsFurtherCycles(t *testing.T) {
	clock := clockwork.NewFakeClock()
	peer := uuid.New()
	store := &fakeStore{locations: map[uuid.UUID]PeerLocation{
		peer: {Coordinate: worksite, UpdatedAt: time.Unix(1_700_000_000, 0)},
	}}
	s, updates := newTestSession(store, &fakePermission{granted: true}, clock)

	if err := s.Start(context.Background(), []uuid.UUID{peer}, testInterval); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitUpdate(t, updates)

	clock.Advance(testInterval)
	waitUpdate(t, updates)

	s.Stop()
	publishes, fetches := store.counts()
	if publishes != 2 || fetches != 2 {
		t.Fatalf("expected 2 cycles before teardown, got publishes=%d fetches=%d", publishes, fetches)
	}

	for i := 0; i < 5; i++ {
		clock.Advance(testInterval)
	}
	time.Sleep(20 * time.Millisecond)

	publishesAfter, fetchesAfter := store.counts()
	if publishesAfter != publishes || fetchesAfter != fetches {
		t.Fatalf("cycles ran after teardown: publishes=%d fetches=%d", publishesAfter, fetchesAfter)
	}
	if len(s.Peers()) != 0 || s.Status() != StatusStopped {
		t.Fatalf("expected discarded peers after stop, got %d peers status=%s", len(s.Peers()), s.Status())
	}
}

func TestPartialPeerFailureKeepsSuccessfulPeers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	store := &fakeStore{
		failing: map[uuid.UUID]bool{b: true},
		locations: map[uuid.UUID]PeerLocation{
			a: {Coordinate: worksite, UpdatedAt: time.Unix(1_700_000_000, 0)},
			c: {},
		},
	}
	s, updates := newTestSession(store, &fakePermission{granted: true}, clock)
	defer s.Stop()

	if err := s.Start(context.Background(), []uuid.UUID{a, b, c}, testInterval); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	peers := waitUpdate(t, updates)

	if len(peers) != 2 {
		t.Fatalf("expected exactly 2 peers, got %d", len(peers))
	}
	if peers[0].UserID != a || peers[1].UserID != c {
		t.Fatalf("unexpected peers %+v", peers)
	}
	if peers[0].Coordinate == nil || peers[0].UpdatedAt == nil {
		t.Fatalf("expected located peer, got %+v", peers[0])
	}
	if peers[1].Coordinate != nil {
		t.Fatalf("peer without a shared location must have no coordinate, got %+v", peers[1].Coordinate)
	}
}

func TestPublishFailureDoesNotInterruptCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	peer := uuid.New()
	store := &fakeStore{
		publishErr: errors.New("store down"),
		locations:  map[uuid.UUID]PeerLocation{peer: {Coordinate: worksite}},
	}
	s, updates := newTestSession(store, &fakePermission{granted: true}, clock)
	defer s.Stop()

	if err := s.Start(context.Background(), []uuid.UUID{peer}, testInterval); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if peers := waitUpdate(t, updates); len(peers) != 1 {
		t.Fatalf("expected peer set despite publish failure, got %+v", peers)
	}
	if s.Err() != nil {
		t.Fatalf("publish failures must not surface, got %v", s.Err())
	}
}

func TestPermissionDeniedNeverStartsTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &fakeStore{}
	perm := &fakePermission{granted: false}
	s, _ := newTestSession(store, perm, clock)

	err := s.Start(context.Background(), []uuid.UUID{uuid.New()}, testInterval)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if s.Status() != StatusPermissionDenied || !errors.Is(s.Err(), ErrPermissionDenied) {
		t.Fatalf("expected denied status, got %s / %v", s.Status(), s.Err())
	}

	clock.Advance(3 * testInterval)
	time.Sleep(20 * time.Millisecond)

	if publishes, fetches := store.counts(); publishes != 0 || fetches != 0 {
		t.Fatalf("expected no cycles, got publishes=%d fetches=%d", publishes, fetches)
	}
	if perm.calls.Load() != 1 {
		t.Fatalf("expected one permission request, got %d", perm.calls.Load())
	}
}

func TestOlderCycleNeverOverwritesNewerCommit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s, updates := newTestSession(&fakeStore{}, &fakePermission{granted: true}, clock)
	s.status = StatusActive

	newer := []TrackedPeer{{UserID: uuid.New()}}
	older := []TrackedPeer{{UserID: uuid.New()}, {UserID: uuid.New()}}

	s.commit(context.Background(), 2, newer)
	s.commit(context.Background(), 1, older)

	if got := s.Peers(); len(got) != 1 || got[0].UserID != newer[0].UserID {
		t.Fatalf("expected the newer commit to survive, got %+v", got)
	}
	if len(updates) != 1 {
		t.Fatalf("expected a single notification, got %d", len(updates))
	}
}

func TestRemovedTargetIsDroppedNextCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, b := uuid.New(), uuid.New()
	store := &fakeStore{locations: map[uuid.UUID]PeerLocation{
		a: {Coordinate: worksite},
		b: {Coordinate: worksite},
	}}
	s, updates := newTestSession(store, &fakePermission{granted: true}, clock)
	defer s.Stop()

	if err := s.Start(context.Background(), []uuid.UUID{a, b}, testInterval); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if peers := waitUpdate(t, updates); len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}

	s.SetTargets([]uuid.UUID{a})
	clock.Advance(testInterval)
	peers := waitUpdate(t, updates)
	if len(peers) != 1 || peers[0].UserID != a {
		t.Fatalf("expected only the remaining target, got %+v", peers)
	}
}

func waitStatus(t *testing.T, s *Session, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Status() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected status %s, got %s", want, s.Status())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCancelledContextEndsSessionAndStartResumes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	peer := uuid.New()
	store := &fakeStore{locations: map[uuid.UUID]PeerLocation{peer: {Coordinate: worksite}}}
	s, updates := newTestSession(store, &fakePermission{granted: true}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx, []uuid.UUID{peer}, testInterval); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitUpdate(t, updates)

	cancel()
	waitStatus(t, s, StatusStopped)
	if len(s.Peers()) != 0 {
		t.Fatalf("expected peers discarded when the context ends")
	}

	if err := s.Start(context.Background(), []uuid.UUID{peer}, testInterval); err != nil {
		t.Fatalf("restart returned error: %v", err)
	}
	defer s.Stop()
	waitUpdate(t, updates)

	for i := 0; i < 3; i++ {
		clock.Advance(testInterval)
		waitUpdate(t, updates)
	}
	if _, fetches := store.counts(); fetches != 5 {
		t.Fatalf("expected 5 fetches across both runs, got %d", fetches)
	}
	if s.Status() != StatusActive {
		t.Fatalf("expected active session after restart, got %s", s.Status())
	}
}
