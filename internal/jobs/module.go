package jobs

import (
	"gigwork_maps/internal/events"
	"gigwork_maps/internal/geocode"
	apphttp "gigwork_maps/internal/http"
	"gigwork_maps/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the job-site HTTP routes.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(pool *pgxpool.Pool, geocoder geocode.Geocoder, bus events.Bus, log *logger.Logger) *Module {
	svc := NewService(NewRepository(pool), geocoder, bus, nil, log)
	return &Module{handler: NewHandler(svc), service: svc}
}

func (m *Module) Name() string {
	return "jobs"
}

// Service returns the service layer for external use.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/jobs")
	group.GET("/:id/site", m.handler.Site)
	group.POST("/:id/geocode", m.handler.Geocode)
}

var _ apphttp.Module = (*Module)(nil)
