package events

import (
	"context"
	"errors"
	"sync"

	"gigwork_maps/platform/logger"
)

// InMemoryBus dispatches events to handlers inside the current process.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
	wg       sync.WaitGroup
}

var _ Bus = (*InMemoryBus)(nil)

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers handler for eventName.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

func (b *InMemoryBus) handlersFor(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, len(b.handlers[name]))
	copy(out, b.handlers[name])
	return out
}

// Publish runs every handler in its own goroutine. Handler errors are logged.
// The handlers receive a context detached from ctx's cancellation.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	detached := context.WithoutCancel(ctx)
	for _, h := range b.handlersFor(event.EventName()) {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			if err := h.Handle(detached, event); err != nil {
				b.log.Error("event handler failed", "event", event.EventName(), "error", err)
			}
		}(h)
	}
}

// PublishSync runs the handlers sequentially and joins their errors.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, h := range b.handlersFor(event.EventName()) {
		if err := h.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until every asynchronously published handler has returned.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}
