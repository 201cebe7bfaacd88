package mapsurface

import (
	"sync"

	"gigwork_maps/platform/logger"
)

const subscriberBuffer = 16

// subscriber represents a connected host.
type subscriber struct {
	messages chan Message
}

// Hub fans surface messages out to connected hosts. Late subscribers first
// receive the latest message so they draw the current state.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	latest      map[string]Message
	log         *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string][]*subscriber),
		latest:      make(map[string]Message),
		log:         log,
	}
}

// Subscribe registers a host for surfaceID. The returned function
// unsubscribes and closes the channel.
func (h *Hub) Subscribe(surfaceID string) (<-chan Message, func()) {
	sub := &subscriber{messages: make(chan Message, subscriberBuffer)}

	h.mu.Lock()
	if msg, ok := h.latest[surfaceID]; ok {
		sub.messages <- msg
	}
	h.subscribers[surfaceID] = append(h.subscribers[surfaceID], sub)
	h.mu.Unlock()

	var once sync.Once
	return sub.messages, func() {
		once.Do(func() { h.remove(surfaceID, sub) })
	}
}

func (h *Hub) remove(surfaceID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[surfaceID]
	for i, s := range subs {
		if s == sub {
			h.subscribers[surfaceID] = append(subs[:i], subs[i+1:]...)
			close(sub.messages)
			break
		}
	}
	if len(h.subscribers[surfaceID]) == 0 {
		delete(h.subscribers, surfaceID)
	}
}

// Publish stores msg as the latest state and delivers it without blocking.
// A message older than the latest revision is dropped. A subscriber whose
// buffer is full loses its oldest pending message, since only the newest
// marker set matters.
func (h *Hub) Publish(surfaceID string, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.latest[surfaceID]; ok && msg.Revision < prev.Revision {
		return
	}
	h.latest[surfaceID] = msg
	for _, sub := range h.subscribers[surfaceID] {
		select {
		case sub.messages <- msg:
			continue
		default:
		}
		select {
		case <-sub.messages:
		default:
		}
		select {
		case sub.messages <- msg:
		default:
			h.log.Warn("map surface subscriber buffer full", "surface", surfaceID)
		}
	}
}

// Subscribers returns the number of connected hosts for surfaceID.
func (h *Hub) Subscribers(surfaceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[surfaceID])
}

// Drop disconnects every host of surfaceID and forgets its state.
func (h *Hub) Drop(surfaceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subscribers[surfaceID] {
		close(sub.messages)
	}
	delete(h.subscribers, surfaceID)
	delete(h.latest, surfaceID)
}

// Close disconnects every host.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.subscribers {
		for _, sub := range subs {
			close(sub.messages)
		}
	}
	h.subscribers = make(map[string][]*subscriber)
	h.latest = make(map[string]Message)
}
