// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity represents the authenticated user's identity.
// This interface abstracts identity extraction from the web framework,
// allowing handlers to access user information without depending on Gin.
type Identity interface {
	// UserID returns the authenticated user's ID.
	UserID() uuid.UUID
	// Role returns the marketplace role ("employer" or "worker"), if present.
	Role() string
	// IsAuthenticated returns true if the user is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	role          string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID     { return i.userID }
func (i *identity) Role() string          { return i.role }
func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	userID, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{authenticated: false}
	}

	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	role, _ := c.Get(ContextRoleKey)
	roleName, _ := role.(string)

	return &identity{
		userID:        uid,
		role:          roleName,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the user is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
