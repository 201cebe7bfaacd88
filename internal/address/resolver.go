// Package address implements debounced address autocomplete with
// best-effort coordinate resolution for the selected suggestion.
package address

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"gigwork_maps/internal/geocode"
	"gigwork_maps/platform/config"
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"

	"github.com/jonboulle/clockwork"
)

// Options tunes the resolver timing.
type Options struct {
	Debounce time.Duration
	Cooldown time.Duration
	MinChars int
	Limit    int
}

// OptionsFromConfig reads the resolver timing from configuration.
func OptionsFromConfig(cfg config.TrackingConfig) Options {
	return Options{
		Debounce: cfg.GetAddressDebounce(),
		Cooldown: cfg.GetSelectionCooldown(),
		MinChars: cfg.GetAddressMinChars(),
	}
}

// Callbacks receive resolver output. Both run outside the resolver lock and
// may be nil. OnSuggestions calls are serialized and must not call back into
// Input, Clear or Select.
type Callbacks struct {
	OnSuggestions func(suggestions []geocode.AddressSuggestion)
	OnCoordinates func(selection Selection, coord geo.Coordinate)
}

// Selection is the synchronous result of choosing a suggestion.
type Selection struct {
	Suggestion geocode.AddressSuggestion `json:"suggestion"`
	Address    string                    `json:"address"`
}

// Resolver owns one autocomplete field. It is safe for concurrent use.
type Resolver struct {
	geocoder  geocode.Geocoder
	clock     clockwork.Clock
	log       *logger.Logger
	opts      Options
	callbacks Callbacks

	ctx    context.Context
	cancel context.CancelFunc

	// emitMu orders suggestion callbacks; stale generations are not delivered.
	emitMu sync.Mutex

	mu          sync.Mutex
	state       State
	text        string
	generation  uint64
	selection   uint64
	suggestions []geocode.AddressSuggestion
	debounce    clockwork.Timer
	cooldown    clockwork.Timer
	inflight    context.CancelFunc
	closed      bool

	// pending counts scheduled timers and running lookups.
	pending sync.WaitGroup
}

// New creates a resolver. A nil clock uses the real clock.
func New(geocoder geocode.Geocoder, opts Options, callbacks Callbacks, clock clockwork.Clock, log *logger.Logger) *Resolver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}
	if opts.MinChars < 1 {
		opts.MinChars = 3
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		geocoder:  geocoder,
		clock:     clock,
		log:       log,
		opts:      opts,
		callbacks: callbacks,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// State returns the current state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Text returns the latest input value.
func (r *Resolver) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// Suggestions returns the visible suggestions.
func (r *Resolver) Suggestions() []geocode.AddressSuggestion {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]geocode.AddressSuggestion, len(r.suggestions))
	copy(out, r.suggestions)
	return out
}

// Input records a keystroke. The previous debounce is discarded and a new
// one is scheduled; text shorter than MinChars clears the suggestions
// without any lookup. Input while a selection settles only records the text.
func (r *Resolver) Input(text string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	r.text = text
	r.generation++
	r.stopDebounceLocked()
	r.cancelInflightLocked()

	if utf8.RuneCountInString(strings.TrimSpace(text)) < r.opts.MinChars {
		hadSuggestions := len(r.suggestions) > 0
		r.suggestions = nil
		if r.state != Selecting {
			r.state = Idle
		}
		gen := r.generation
		r.mu.Unlock()
		if hadSuggestions {
			r.emitSuggestions(gen, nil)
		}
		return
	}

	if r.state == Selecting {
		// The field is settling on the chosen address; no lookup until the
		// cooldown returns the resolver to Idle.
		r.mu.Unlock()
		return
	}

	r.state = AwaitingSuggestions
	gen := r.generation
	r.pending.Add(1)
	r.debounce = r.clock.AfterFunc(r.opts.Debounce, func() {
		defer r.pending.Done()
		r.fire(gen)
	})
	r.mu.Unlock()
}

// Clear empties the field and hides suggestions.
func (r *Resolver) Clear() {
	r.Input("")
}

// fire runs the debounced lookup for generation gen.
func (r *Resolver) fire(gen uint64) {
	r.mu.Lock()
	if r.closed || gen != r.generation {
		r.mu.Unlock()
		return
	}
	if r.state != AwaitingSuggestions {
		r.mu.Unlock()
		return
	}

	text := strings.TrimSpace(r.text)
	ctx, cancel := context.WithCancel(r.ctx)
	r.inflight = cancel
	r.mu.Unlock()
	defer cancel()

	suggestions, err := r.geocoder.Autocomplete(ctx, text, r.opts.Limit)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Warn("address autocomplete failed", "error", err)
		}
		suggestions = nil
	}

	r.mu.Lock()
	if r.closed || gen != r.generation || r.state != AwaitingSuggestions {
		r.mu.Unlock()
		return
	}
	r.inflight = nil
	r.suggestions = suggestions
	if len(suggestions) > 0 {
		r.state = SuggestionsVisible
	} else {
		r.state = Idle
	}
	r.mu.Unlock()

	r.emitSuggestions(gen, suggestions)
}

// Select chooses a suggestion. The display address is returned at once and
// coordinates are resolved in the background; resolution failures only
// mean OnCoordinates is never called.
func (r *Resolver) Select(s geocode.AddressSuggestion) Selection {
	sel := Selection{Suggestion: s, Address: s.FullAddress}
	if sel.Address == "" {
		sel.Address = s.ShortAddress
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return sel
	}

	r.generation++
	r.selection++
	r.stopDebounceLocked()
	r.cancelInflightLocked()
	r.stopCooldownLocked()

	r.state = Selecting
	r.text = sel.Address
	r.suggestions = nil

	seq := r.selection
	gen := r.generation
	r.pending.Add(1)
	r.cooldown = r.clock.AfterFunc(r.opts.Cooldown, func() {
		defer r.pending.Done()
		r.settle(seq)
	})

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		r.resolveCoordinates(seq, sel)
	}()
	r.mu.Unlock()

	r.emitSuggestions(gen, nil)
	return sel
}

func (r *Resolver) settle(seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || seq != r.selection || r.state != Selecting {
		return
	}
	r.state = Idle
}

func (r *Resolver) resolveCoordinates(seq uint64, sel Selection) {
	coord, ok := r.lookupCoordinates(sel)
	if !ok {
		return
	}

	r.mu.Lock()
	current := !r.closed && seq == r.selection
	r.mu.Unlock()
	if !current || r.callbacks.OnCoordinates == nil {
		return
	}
	r.callbacks.OnCoordinates(sel, coord)
}

func (r *Resolver) lookupCoordinates(sel Selection) (geo.Coordinate, bool) {
	if sel.Suggestion.PlaceID != "" {
		coord, err := r.geocoder.PlaceDetails(r.ctx, sel.Suggestion.PlaceID)
		if err == nil && coord.IsValid() {
			return coord, true
		}
		r.log.Debug("place details failed, falling back to geocoding", "placeId", sel.Suggestion.PlaceID, "error", err)
	}

	if r.ctx.Err() != nil || strings.TrimSpace(sel.Address) == "" {
		return geo.Coordinate{}, false
	}

	coord, err := r.geocoder.Geocode(r.ctx, sel.Address)
	if err != nil || !coord.IsValid() {
		r.log.Debug("address geocoding failed", "error", err)
		return geo.Coordinate{}, false
	}
	return coord, true
}

// Close stops every timer and lookup. No callback runs after Close returns
// unless it had already started.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.stopDebounceLocked()
	r.stopCooldownLocked()
	r.cancelInflightLocked()
	r.suggestions = nil
	r.state = Idle
	r.mu.Unlock()

	r.cancel()
}

// wait blocks until scheduled timers have fired or been stopped and
// background lookups have returned.
func (r *Resolver) wait() {
	r.pending.Wait()
}

// emitSuggestions delivers s when gen is still the current generation.
func (r *Resolver) emitSuggestions(gen uint64, s []geocode.AddressSuggestion) {
	if r.callbacks.OnSuggestions == nil {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	current := !r.closed && gen == r.generation
	r.mu.Unlock()
	if current {
		r.callbacks.OnSuggestions(s)
	}
}

func (r *Resolver) stopDebounceLocked() {
	if r.debounce != nil && r.debounce.Stop() {
		r.pending.Done()
	}
	r.debounce = nil
}

func (r *Resolver) stopCooldownLocked() {
	if r.cooldown != nil && r.cooldown.Stop() {
		r.pending.Done()
	}
	r.cooldown = nil
}

func (r *Resolver) cancelInflightLocked() {
	if r.inflight != nil {
		r.inflight()
		r.inflight = nil
	}
}
