// Package device provides simulated device capabilities for the headless
// tracker: a random-walk GPS and a fixed permission answer.
package device

import (
	"context"
	"math/rand"
	"sync"

	"gigwork_maps/internal/tracking"
	"gigwork_maps/platform/geo"

	"github.com/jonboulle/clockwork"
	orbgeo "github.com/paulmach/orb/geo"
)

// DefaultMaxStepMeters bounds the distance walked between two readings.
const DefaultMaxStepMeters = 40.0

// StaticPermission answers every permission prompt the same way.
type StaticPermission struct {
	Granted bool
}

func (p StaticPermission) RequestForeground(context.Context) (bool, error) {
	return p.Granted, nil
}

// RandomWalk is a PositionSource that drifts from a start point by a
// bounded random step on every read.
type RandomWalk struct {
	mu       sync.Mutex
	rng      *rand.Rand
	clock    clockwork.Clock
	current  geo.Coordinate
	maxStep  float64
	accuracy float64
}

// NewRandomWalk starts a walk at start. seed makes the walk reproducible.
func NewRandomWalk(start geo.Coordinate, maxStepMeters float64, seed int64, clock clockwork.Clock) *RandomWalk {
	if maxStepMeters <= 0 {
		maxStepMeters = DefaultMaxStepMeters
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RandomWalk{
		rng:      rand.New(rand.NewSource(seed)),
		clock:    clock,
		current:  start,
		maxStep:  maxStepMeters,
		accuracy: 5,
	}
}

// CurrentPosition advances the walk and returns the new reading.
func (w *RandomWalk) CurrentPosition(ctx context.Context) (tracking.Position, error) {
	if err := ctx.Err(); err != nil {
		return tracking.Position{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	bearing := w.rng.Float64() * 360
	distance := w.rng.Float64() * w.maxStep
	next := geo.FromPoint(orbgeo.PointAtBearingAndDistance(w.current.Point(), bearing, distance))
	if next.IsValid() {
		w.current = next
	}

	return tracking.Position{
		Coordinate: w.current,
		AccuracyM:  w.accuracy,
		At:         w.clock.Now(),
	}, nil
}

var (
	_ tracking.PositionSource      = (*RandomWalk)(nil)
	_ tracking.PermissionRequester = StaticPermission{}
)

// Recorder remembers the last reading of a wrapped source so the map can
// draw the device next to its peers.
type Recorder struct {
	source tracking.PositionSource

	mu   sync.RWMutex
	last tracking.Position
	ok   bool
}

// NewRecorder wraps source.
func NewRecorder(source tracking.PositionSource) *Recorder {
	return &Recorder{source: source}
}

func (r *Recorder) CurrentPosition(ctx context.Context) (tracking.Position, error) {
	pos, err := r.source.CurrentPosition(ctx)
	if err != nil {
		return pos, err
	}
	r.mu.Lock()
	r.last, r.ok = pos, true
	r.mu.Unlock()
	return pos, nil
}

// Last returns the most recent successful reading.
func (r *Recorder) Last() (tracking.Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.ok
}
