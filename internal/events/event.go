// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"gigwork_maps/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Location Domain Events
// =============================================================================

// LocationUpdated is published after a user's own position has been stored.
type LocationUpdated struct {
	BaseEvent
	UserID    uuid.UUID `json:"userId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	At        time.Time `json:"locationUpdatedAt"`
}

func (e LocationUpdated) EventName() string { return "location.updated" }

// =============================================================================
// Job Domain Events
// =============================================================================

// JobSiteGeocoded is published when a job address has been resolved to coordinates.
type JobSiteGeocoded struct {
	BaseEvent
	JobID     uuid.UUID `json:"jobId"`
	Address   string    `json:"address"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

func (e JobSiteGeocoded) EventName() string { return "jobs.site.geocoded" }

// =============================================================================
// Map Surface Events
// =============================================================================

// SurfaceUpdated is published after a marker update was pushed to a surface.
type SurfaceUpdated struct {
	BaseEvent
	SurfaceID   string `json:"surfaceId"`
	Revision    int64  `json:"revision"`
	MarkerCount int    `json:"markerCount"`
	Fallback    bool   `json:"fallback"`
}

func (e SurfaceUpdated) EventName() string { return "maps.surface.updated" }
