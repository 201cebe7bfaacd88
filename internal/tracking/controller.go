package tracking

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StatusAccepted is the application status that makes a relationship trackable.
const StatusAccepted = "ACCEPTED"

// ShouldTrack reports whether an application status allows location sharing.
func ShouldTrack(applicationStatus string) bool {
	return strings.EqualFold(strings.TrimSpace(applicationStatus), StatusAccepted)
}

// Controller starts and stops a session as the owning screen's eligibility
// changes. A refused permission is not re-requested until eligibility is
// lost and regained.
type Controller struct {
	session  *Session
	interval time.Duration

	mu      sync.Mutex
	active  bool
	denied  bool
	targets []uuid.UUID
}

// NewController wraps session.
func NewController(session *Session, interval time.Duration) *Controller {
	return &Controller{session: session, interval: interval}
}

// Sync applies the current application status and counterparty ids.
func (c *Controller) Sync(ctx context.Context, applicationStatus string, targets []uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	eligible := ShouldTrack(applicationStatus) && len(targets) > 0
	if !eligible {
		if c.active {
			c.session.Stop()
		}
		c.active = false
		c.denied = false
		c.targets = nil
		return nil
	}

	if c.denied {
		return ErrPermissionDenied
	}

	if c.active && c.session.Status() != StatusActive {
		c.active = false
		c.targets = nil
	}

	if c.active {
		if !slices.Equal(c.targets, targets) {
			c.session.SetTargets(targets)
			c.targets = slices.Clone(targets)
		}
		return nil
	}

	if err := c.session.Start(ctx, targets, c.interval); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			c.denied = true
		}
		return err
	}
	c.active = true
	c.targets = slices.Clone(targets)
	return nil
}

// Active reports whether the session is running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active && c.session.Status() == StatusActive
}

// Close tears the session down.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		c.session.Stop()
	}
	c.active = false
	c.targets = nil
}
