package mapsurface

import (
	"sync"

	"gigwork_maps/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// Registry holds the live surfaces served by this process.
type Registry struct {
	engine RouteEngine
	styles *StyleSheet
	hub    *Hub
	log    *logger.Logger

	mu       sync.RWMutex
	surfaces map[string]*Surface
}

// NewRegistry creates an empty registry.
func NewRegistry(engine RouteEngine, hub *Hub, styles *StyleSheet, log *logger.Logger) *Registry {
	if styles == nil {
		styles = DefaultStyles()
	}
	return &Registry{
		engine:   engine,
		styles:   styles,
		hub:      hub,
		log:      log,
		surfaces: make(map[string]*Surface),
	}
}

// Hub returns the registry's message hub.
func (r *Registry) Hub() *Hub { return r.hub }

// Create registers a new surface.
func (r *Registry) Create(owner uuid.UUID, initial []Marker, lang language.Tag) *Surface {
	id := uuid.NewString()
	s := NewSurface(id, owner, initial, r.engine, r.styles, r.hub, lang, r.log)

	r.mu.Lock()
	r.surfaces[id] = s
	r.mu.Unlock()

	r.log.Info("map surface created", "surface", id, "markers", len(s.Init().Markers))
	return s
}

// Get looks a surface up by id.
func (r *Registry) Get(id string) (*Surface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.surfaces[id]
	return s, ok
}

// Remove forgets a surface and disconnects its hosts.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.surfaces, id)
	r.mu.Unlock()
	r.hub.Drop(id)
}
