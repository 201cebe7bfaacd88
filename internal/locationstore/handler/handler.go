package handler

import (
	"net/http"

	"gigwork_maps/internal/locationstore/service"
	"gigwork_maps/internal/locationstore/transport"
	"gigwork_maps/platform/httpkit"
	"gigwork_maps/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for user locations.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidUserID    = "invalid user ID"
)

// New creates a new location handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// UpdateOwn stores the caller's position.
// PUT /api/v1/users/me/location
func (h *Handler) UpdateOwn(c *gin.Context) {
	var req transport.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.UpdateOwn(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetOwn returns the caller's stored position.
// GET /api/v1/users/me/location
func (h *Handler) GetOwn(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get returns the latest position of another user.
// GET /api/v1/users/:id/location
func (h *Handler) Get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidUserID, nil)
		return
	}
	if httpkit.MustGetIdentity(c) == nil {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), userID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// History lists the caller's recent positions.
// GET /api/v1/users/me/location/history
func (h *Handler) History(c *gin.Context) {
	var req transport.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.History(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
