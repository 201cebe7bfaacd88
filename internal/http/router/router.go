// Package router assembles the gin engine from the application's modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "gigwork_maps/internal/http"
	"gigwork_maps/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const healthTimeout = 2 * time.Second

// New builds the engine: shared middleware, health endpoint, the v1 and
// protected groups, and every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := app.Health.Ping(ctx); err != nil {
				app.Logger.DatabaseError("ping", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := httpkit.AuthRequired(app.Config)
	v1 := engine.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(auth)

	rctx := &apphttp.RouterContext{
		Engine:          engine,
		V1:              v1,
		Protected:       protected,
		Config:          app.Config,
		AuthMiddleware:  auth,
		UpstreamLimiter: httpkit.NewIPRateLimiter(rate.Limit(5), 10, app.Logger),
	}

	for _, m := range app.Modules {
		m.RegisterRoutes(rctx)
		app.Logger.Info("module registered", "module", m.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() || len(cfg.GetCORSOrigins()) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = cfg.GetCORSOrigins()
	}
	return c
}
