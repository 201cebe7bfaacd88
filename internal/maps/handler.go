package maps

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"

	"gigwork_maps/internal/mapsurface"
	"gigwork_maps/internal/routing"
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/httpkit"
	"gigwork_maps/platform/logger"
	"gigwork_maps/platform/validator"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler exposes the maps endpoints.
type Handler struct {
	svc *Service
	ws  *mapsurface.WebSocketTransport
	hub *mapsurface.Hub
	val *validator.Validator
	log *logger.Logger
}

func NewHandler(svc *Service, hub *mapsurface.Hub, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{
		svc: svc,
		ws:  mapsurface.NewWebSocketTransport(hub, log),
		hub: hub,
		val: val,
		log: log,
	}
}

// LookupAddress handles GET /api/v1/maps/address-lookup?q=...
func (h *Handler) LookupAddress(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "query 'q' is required (min 3 chars)", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	results, err := h.svc.SearchAddress(c.Request.Context(), req.Query, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, results)
}

// Geocode handles GET /api/v1/maps/geocode?address=...
func (h *Handler) Geocode(c *gin.Context) {
	var req GeocodeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "query 'address' is required", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Geocode(c.Request.Context(), req.Address)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PlaceDetails handles GET /api/v1/maps/places/:placeId
func (h *Handler) PlaceDetails(c *gin.Context) {
	result, err := h.svc.PlaceDetails(c.Request.Context(), c.Param("placeId"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Route handles GET /api/v1/maps/route. It answers 200 even when the
// routing service is down; the body then carries the straight-line fallback.
func (h *Handler) Route(c *gin.Context) {
	var q RouteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	from := geo.Coordinate{Latitude: q.FromLat, Longitude: q.FromLng}
	to := geo.Coordinate{Latitude: q.ToLat, Longitude: q.ToLng}
	httpkit.OK(c, h.svc.Route(c.Request.Context(), from, to, requestLanguage(c, q.Lang)))
}

// CreateSurface handles POST /api/v1/maps/surfaces
func (h *Handler) CreateSurface(c *gin.Context) {
	var req CreateSurfaceRequest
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

	result := h.svc.CreateSurface(identity.UserID(), req, requestLanguage(c, req.Lang))
	httpkit.JSON(c, http.StatusCreated, result)
}

// UpdateMarkers handles PUT /api/v1/maps/surfaces/:id/markers
func (h *Handler) UpdateMarkers(c *gin.Context) {
	var req UpdateMarkersRequest
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

	msg, err := h.svc.UpdateMarkers(c.Request.Context(), identity.UserID(), c.Param("id"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, msg)
}

// DeleteSurface handles DELETE /api/v1/maps/surfaces/:id
func (h *Handler) DeleteSurface(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteSurface(identity.UserID(), c.Param("id"))) {
		return
	}
	c.Status(http.StatusNoContent)
}

// Host handles GET /api/v1/maps/surfaces/:id and serves the rendering host page.
func (h *Handler) Host(c *gin.Context) {
	surface, err := h.svc.Surface(c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	var buf bytes.Buffer
	err = mapsurface.RenderHost(&buf, mapsurface.HostPage{
		Lang:      requestLanguage(c, c.Query("lang")).String(),
		Init:      surface.Init(),
		Endpoints: hostEndpoints(c),
	})
	if err != nil {
		h.log.Error("render map host failed", "surface", surface.ID(), "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "failed to render map", nil)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// WebSocket handles GET /api/v1/maps/surfaces/:id/ws
func (h *Handler) WebSocket(c *gin.Context) {
	surface, err := h.svc.Surface(c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	h.ws.Serve(c, surface.ID())
}

// Events handles GET /api/v1/maps/surfaces/:id/events (SSE)
func (h *Handler) Events(c *gin.Context) {
	surface, err := h.svc.Surface(c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	mapsurface.ServeSSE(c, h.hub, surface.ID(), h.log)
}

func requestLanguage(c *gin.Context, explicit string) language.Tag {
	if explicit != "" {
		return routing.MatchLanguage(explicit)
	}
	return routing.MatchLanguage(c.GetHeader("Accept-Language"))
}

// hostEndpoints derives the push endpoints of the host page from the
// request that loaded it. A token passed in the query is forwarded so the
// host can authenticate its stream.
func hostEndpoints(c *gin.Context) mapsurface.HostEndpoints {
	base := strings.TrimSuffix(c.Request.URL.Path, "/")

	query := ""
	if token := c.Query("token"); token != "" {
		query = "?" + url.Values{"token": {token}}.Encode()
	}

	scheme := "ws"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "wss"
	}

	return mapsurface.HostEndpoints{
		WS:     scheme + "://" + c.Request.Host + base + "/ws" + query,
		Events: base + "/events" + query,
	}
}
