package tracking

import (
	"context"
	"errors"
	"testing"

	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func TestShouldTrack(t *testing.T) {
	cases := map[string]bool{
		"ACCEPTED":  true,
		"accepted":  true,
		" ACCEPTED": true,
		"PENDING":   false,
		"REJECTED":  false,
		"":          false,
	}
	for status, want := range cases {
		if got := ShouldTrack(status); got != want {
			t.Fatalf("ShouldTrack(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestControllerFollowsEligibility(t *testing.T) {
	clock := clockwork.NewFakeClock()
	perm := &fakePermission{granted: true}
	peer := uuid.New()
	store := &fakeStore{locations: map[uuid.UUID]PeerLocation{peer: {Coordinate: worksite}}}
	s, updates := newTestSession(store, perm, clock)
	c := NewController(s, testInterval)
	defer c.Close()
	ctx := context.Background()

	if err := c.Sync(ctx, "PENDING", []uuid.UUID{peer}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if c.Active() || perm.calls.Load() != 0 {
		t.Fatalf("pending applications must not start tracking")
	}

	if err := c.Sync(ctx, "ACCEPTED", []uuid.UUID{peer}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	waitUpdate(t, updates)
	if !c.Active() || s.Status() != StatusActive {
		t.Fatalf("accepted application must start tracking")
	}

	if err := c.Sync(ctx, "ACCEPTED", []uuid.UUID{peer}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if perm.calls.Load() != 1 {
		t.Fatalf("re-sync of an active session must not prompt again, got %d prompts", perm.calls.Load())
	}

	if err := c.Sync(ctx, "CANCELLED", []uuid.UUID{peer}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if c.Active() || s.Status() != StatusStopped {
		t.Fatalf("revoked eligibility must stop tracking, status=%s", s.Status())
	}
}

func TestControllerDoesNotRepromptAfterDenial(t *testing.T) {
	clock := clockwork.NewFakeClock()
	perm := &fakePermission{granted: false}
	s, _ := newTestSession(&fakeStore{}, perm, clock)
	c := NewController(s, testInterval)
	ctx := context.Background()
	peer := []uuid.UUID{uuid.New()}

	for i := 0; i < 3; i++ {
		if err := c.Sync(ctx, "ACCEPTED", peer); !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("expected permission denied, got %v", err)
		}
	}
	if perm.calls.Load() != 1 {
		t.Fatalf("expected a single prompt per enable cycle, got %d", perm.calls.Load())
	}

	_ = c.Sync(ctx, "PENDING", peer)
	_ = c.Sync(ctx, "ACCEPTED", peer)
	if perm.calls.Load() != 2 {
		t.Fatalf("expected a new prompt after eligibility was regained, got %d", perm.calls.Load())
	}
}

func TestLocator(t *testing.T) {
	ctx := context.Background()

	coord, err := NewLocator(&fakePermission{granted: true}, &fakeSource{coord: worksite}).Locate(ctx)
	if err != nil || coord != worksite {
		t.Fatalf("unexpected locate result %+v, %v", coord, err)
	}

	if _, err := NewLocator(&fakePermission{granted: false}, &fakeSource{coord: worksite}).Locate(ctx); !apperr.Is(err, apperr.KindPermissionDenied) {
		t.Fatalf("expected permission denied kind, got %v", err)
	}

	if _, err := NewLocator(&fakePermission{granted: true}, &fakeSource{coord: geo.Coordinate{}}).Locate(ctx); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable for a missing fix, got %v", err)
	}
}

func TestSessionRejectsNonPositiveInterval(t *testing.T) {
	s := NewSession(Deps{}, clockwork.NewFakeClock(), logger.Nop(), nil)
	if err := s.Start(context.Background(), nil, 0); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}

func TestControllerRestartsAfterContextEnds(t *testing.T) {
	clock := clockwork.NewFakeClock()
	peer := uuid.New()
	store := &fakeStore{locations: map[uuid.UUID]PeerLocation{peer: {Coordinate: worksite}}}
	s, updates := newTestSession(store, &fakePermission{granted: true}, clock)
	c := NewController(s, testInterval)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Sync(ctx, StatusAccepted, []uuid.UUID{peer}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	waitUpdate(t, updates)

	cancel()
	waitStatus(t, s, StatusStopped)
	if c.Active() {
		t.Fatalf("controller must not report an ended session as active")
	}

	if err := c.Sync(context.Background(), StatusAccepted, []uuid.UUID{peer}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	waitUpdate(t, updates)
	if !c.Active() {
		t.Fatalf("expected controller active after resync")
	}
}
