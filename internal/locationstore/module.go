// Package locationstore provides the location store bounded context: devices
// publish their own position and read the last position of their peers.
package locationstore

import (
	"gigwork_maps/internal/events"
	apphttp "gigwork_maps/internal/http"
	"gigwork_maps/internal/locationstore/cache"
	"gigwork_maps/internal/locationstore/handler"
	"gigwork_maps/internal/locationstore/repository"
	"gigwork_maps/internal/locationstore/service"
	"gigwork_maps/platform/logger"
	"gigwork_maps/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module is the location store module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the module. redisClient may be nil, in which case every
// read goes to PostgreSQL.
func NewModule(pool *pgxpool.Pool, redisClient redis.UniversalClient, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)

	var latest service.LatestCache
	if redisClient != nil {
		latest = cache.New(redisClient, cache.DefaultTTL)
	}

	svc := service.New(repo, latest, bus, nil, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "locationstore"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the location routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	users := ctx.Protected.Group("/users")
	users.PUT("/me/location", m.handler.UpdateOwn)
	users.GET("/me/location", m.handler.GetOwn)
	users.GET("/me/location/history", m.handler.History)
	users.GET("/:id/location", m.handler.Get)
}

var _ apphttp.Module = (*Module)(nil)
