package maps

import (
	"gigwork_maps/internal/events"
	"gigwork_maps/internal/geocode"
	apphttp "gigwork_maps/internal/http"
	"gigwork_maps/internal/mapsurface"
	"gigwork_maps/internal/routing"
	"gigwork_maps/platform/logger"
	"gigwork_maps/platform/validator"
)

// Deps are the collaborators of the maps module.
type Deps struct {
	Geocoder     geocode.Geocoder
	Engine       *routing.Engine
	Registry     *mapsurface.Registry
	Bus          events.Bus
	Validator    *validator.Validator
	DefaultLimit int
	Logger       *logger.Logger
}

// Module wires the geocoding, routing and map surface HTTP routes.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(deps Deps) *Module {
	svc := NewService(deps.Geocoder, deps.Engine, deps.Registry, deps.Bus, deps.DefaultLimit, deps.Logger)
	h := NewHandler(svc, deps.Registry.Hub(), deps.Validator, deps.Logger)
	return &Module{handler: h, service: svc}
}

func (m *Module) Name() string {
	return "maps"
}

// Service returns the service layer for external use.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/maps")

	upstream := group.Group("")
	if ctx.UpstreamLimiter != nil {
		upstream.Use(ctx.UpstreamLimiter.RateLimit())
	}
	upstream.GET("/address-lookup", m.handler.LookupAddress)
	upstream.GET("/geocode", m.handler.Geocode)
	upstream.GET("/places/:placeId", m.handler.PlaceDetails)
	upstream.GET("/route", m.handler.Route)

	surfaces := group.Group("/surfaces")
	surfaces.POST("", m.handler.CreateSurface)
	surfaces.GET("/:id", m.handler.Host)
	surfaces.DELETE("/:id", m.handler.DeleteSurface)
	surfaces.PUT("/:id/markers", m.handler.UpdateMarkers)
	surfaces.GET("/:id/ws", m.handler.WebSocket)
	surfaces.GET("/:id/events", m.handler.Events)
}

var _ apphttp.Module = (*Module)(nil)
