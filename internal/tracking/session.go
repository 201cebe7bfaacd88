package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gigwork_maps/platform/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const peerFetchLimit = 8

// Status describes the session lifecycle.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusActive           Status = "active"
	StatusPermissionDenied Status = "permission_denied"
	StatusStopped          Status = "stopped"
)

// Deps are the session's collaborators.
type Deps struct {
	Permission PermissionRequester
	Source     PositionSource
	Store      LocationStore
}

// Session runs publish/fetch cycles: once immediately on Start, then on
// every tick. Cycles are cadence driven, so a slow cycle does not delay the
// next one. Each commit replaces the peer set.
type Session struct {
	deps     Deps
	clock    clockwork.Clock
	log      *logger.Logger
	onUpdate func([]TrackedPeer)

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mu           sync.Mutex
	status       Status
	err          error
	runCtx       context.Context
	cancel       context.CancelFunc
	ticker       clockwork.Ticker
	targets      []uuid.UUID
	peers        []TrackedPeer
	launchedSeq  uint64
	committedSeq uint64
	lastCommit   time.Time

	notifyMu    sync.Mutex
	notifiedSeq uint64

	wg sync.WaitGroup
}

// NewSession creates an idle session. onUpdate, when set, receives every
// committed peer set.
func NewSession(deps Deps, clock clockwork.Clock, log *logger.Logger, onUpdate func([]TrackedPeer)) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Session{
		deps:     deps,
		clock:    clock,
		log:      log,
		onUpdate: onUpdate,
		status:   StatusIdle,
	}
}

// Start enables tracking of targets. Permission is requested once; when it
// is refused the session records ErrPermissionDenied and no timer starts.
// ctx bounds the whole session, not just the call; once it is done the
// session is stopped. Starting an active session only replaces its targets.
func (s *Session) Start(ctx context.Context, targets []uuid.UUID, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tracking interval must be positive, got %s", interval)
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.status == StatusActive {
		if s.runCtx.Err() == nil {
			s.targets = uniqueTargets(targets)
			s.mu.Unlock()
			return nil
		}
		s.endLocked()
	}
	s.mu.Unlock()

	granted, err := s.deps.Permission.RequestForeground(ctx)
	if err != nil || !granted {
		s.mu.Lock()
		s.status = StatusPermissionDenied
		s.err = ErrPermissionDenied
		s.peers = nil
		s.mu.Unlock()
		s.log.Warn("location permission denied", "error", err)
		return ErrPermissionDenied
	}

	runCtx, cancel := context.WithCancel(ctx)
	ticker := s.clock.NewTicker(interval)

	s.mu.Lock()
	s.status = StatusActive
	s.err = nil
	s.runCtx = runCtx
	s.cancel = cancel
	s.ticker = ticker
	s.targets = uniqueTargets(targets)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(runCtx, ticker)
	s.launchCycle(runCtx)

	s.log.Info("tracking started", "targets", len(targets), "interval", interval.String())
	return nil
}

// Stop cancels the ticker and waits for running cycles to return. No cycle
// starts after Stop returns and the peer set is discarded.
func (s *Session) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return
	}
	s.endLocked()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("tracking stopped")
}

// endLocked tears down the running session. Callers hold mu.
func (s *Session) endLocked() {
	s.cancel()
	s.ticker.Stop()
	s.status = StatusStopped
	s.peers = nil
	s.targets = nil
}

// SetTargets replaces the observed peers from the next cycle on.
func (s *Session) SetTargets(targets []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = uniqueTargets(targets)
}

// Peers returns the last committed peer set.
func (s *Session) Peers() []TrackedPeer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TrackedPeer, len(s.peers))
	copy(out, s.peers)
	return out
}

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns ErrPermissionDenied after a refused start, nil otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// LastCommit returns when the peer set was last replaced.
func (s *Session) LastCommit() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCommit
}

func (s *Session) loop(ctx context.Context, ticker clockwork.Ticker) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// The caller's context ended the session; a later Start begins afresh.
			s.mu.Lock()
			if s.status == StatusActive && s.ticker == ticker {
				s.endLocked()
			}
			s.mu.Unlock()
			return
		case <-ticker.Chan():
			if ctx.Err() != nil {
				continue
			}
			s.launchCycle(ctx)
		}
	}
}

func (s *Session) launchCycle(ctx context.Context) {
	s.mu.Lock()
	s.launchedSeq++
	seq := s.launchedSeq
	targets := append([]uuid.UUID(nil), s.targets...)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cycle(ctx, seq, targets)
	}()
}

func (s *Session) cycle(ctx context.Context, seq uint64, targets []uuid.UUID) {
	s.publishOwn(ctx)
	peers := s.fetchPeers(ctx, targets)
	s.commit(ctx, seq, peers)
}

// publishOwn is best effort; failures are logged and the cycle continues.
func (s *Session) publishOwn(ctx context.Context) {
	pos, err := s.deps.Source.CurrentPosition(ctx)
	if err != nil {
		s.log.Debug("position read failed", "error", err)
		return
	}
	if !pos.Coordinate.IsValid() {
		s.log.Debug("position read returned no fix")
		return
	}
	if err := s.deps.Store.PublishOwn(ctx, pos.Coordinate); err != nil {
		s.log.Debug("position publish failed", "error", err)
	}
}

// fetchPeers loads every target concurrently. A failed fetch drops only
// that peer.
func (s *Session) fetchPeers(ctx context.Context, targets []uuid.UUID) []TrackedPeer {
	results := make([]*TrackedPeer, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(peerFetchLimit)

	for i, id := range targets {
		g.Go(func() error {
			loc, err := s.deps.Store.PeerLocation(gctx, id)
			if err != nil {
				s.log.Debug("peer location fetch failed", "peer", id.String(), "error", err)
				return nil
			}
			peer := newTrackedPeer(id, loc)
			results[i] = &peer
			return nil
		})
	}
	_ = g.Wait()

	peers := make([]TrackedPeer, 0, len(targets))
	for _, p := range results {
		if p != nil {
			peers = append(peers, *p)
		}
	}
	return peers
}

func (s *Session) commit(ctx context.Context, seq uint64, peers []TrackedPeer) {
	s.mu.Lock()
	if ctx.Err() != nil || s.status != StatusActive || seq < s.committedSeq {
		s.mu.Unlock()
		return
	}
	s.peers = peers
	s.committedSeq = seq
	s.lastCommit = s.clock.Now()
	s.mu.Unlock()

	if s.onUpdate == nil {
		return
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if seq < s.notifiedSeq {
		return
	}
	s.notifiedSeq = seq
	out := make([]TrackedPeer, len(peers))
	copy(out, peers)
	s.onUpdate(out)
}

func uniqueTargets(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
