// Command tracker runs a tracking session against the location API from a
// simulated device and serves a live map of the device and its peers.
package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gigwork_maps/internal/device"
	"gigwork_maps/internal/locationstore/client"
	"gigwork_maps/internal/mapsurface"
	"gigwork_maps/internal/routing"
	"gigwork_maps/internal/tracking"
	"gigwork_maps/platform/config"
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/httpkit"
	"gigwork_maps/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Ho Chi Minh City, District 1.
var defaultStart = geo.Coordinate{Latitude: 10.7769, Longitude: 106.7009}

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	peers := parsePeers(os.Getenv("TRACKER_PEERS"), log)
	userID, _ := uuid.Parse(strings.TrimSpace(os.Getenv("TRACKER_USER_ID")))
	status := getEnv("TRACKER_STATUS", tracking.StatusAccepted)
	addr := getEnv("TRACKER_ADDR", ":8090")
	start := parseCoordinate(os.Getenv("TRACKER_START"), defaultStart)
	seed := int64(getPositiveIntEnv("TRACKER_SEED", int(time.Now().UnixNano()%1_000_000)))

	log.Info("starting tracker", "peers", len(peers), "status", status, "addr", addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := accessToken(cfg, userID)
	if err != nil {
		log.Error("failed to issue access token", "error", err)
		panic("failed to issue access token: " + err.Error())
	}
	store := client.New(cfg).WithToken(token)

	hub := mapsurface.NewHub(log)
	defer hub.Close()
	surface := mapsurface.NewSurface("tracker", userID, []mapsurface.Marker{tracking.SelfMarker(start, "Bạn")},
		routing.NewEngine(routing.NewClient(cfg, log), log), nil, hub, routing.MatchLanguage("vi"), log)

	recorder := device.NewRecorder(device.NewRandomWalk(start, 0, seed, clockwork.NewRealClock()))
	session := tracking.NewSession(tracking.Deps{
		Permission: device.StaticPermission{Granted: true},
		Source:     recorder,
		Store:      store,
	}, clockwork.NewRealClock(), log, func(committed []tracking.TrackedPeer) {
		surface.ApplyUpdate(ctx, mapUpdate(recorder, committed))
	})

	controller := tracking.NewController(session, cfg.GetTrackingInterval())
	defer controller.Close()
	if err := controller.Sync(ctx, status, peers); err != nil {
		log.Error("tracking not started", "error", err)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           mapHost(surface, hub, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("map host listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("map host failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down tracker", "lastCommit", session.LastCommit())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub.Close()
	_ = server.Shutdown(shutdownCtx)
}

// mapUpdate draws the device, every located peer and a route from the
// device to the first located peer.
func mapUpdate(recorder *device.Recorder, peers []tracking.TrackedPeer) mapsurface.Update {
	markers := tracking.PeerMarkers(peers, mapsurface.ClassCounterparty, nil)

	var route *routing.RouteRequest
	if self, ok := recorder.Last(); ok {
		markers = append([]mapsurface.Marker{tracking.SelfMarker(self.Coordinate, "Bạn")}, markers...)
		for _, p := range peers {
			if p.Coordinate != nil {
				route = &routing.RouteRequest{From: self.Coordinate, To: *p.Coordinate}
				break
			}
		}
	}
	return mapsurface.Update{Markers: markers, Route: route, AutoFit: true}
}

func mapHost(surface *mapsurface.Surface, hub *mapsurface.Hub, log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	ws := mapsurface.NewWebSocketTransport(hub, log)
	engine.GET("/", func(c *gin.Context) {
		var buf bytes.Buffer
		err := mapsurface.RenderHost(&buf, mapsurface.HostPage{
			Title: "Tracker",
			Init:  surface.Init(),
			Endpoints: mapsurface.HostEndpoints{
				WS:     "ws://" + c.Request.Host + "/ws",
				Events: "/events",
			},
		})
		if err != nil {
			log.Error("render map host failed", "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	})
	engine.GET("/ws", func(c *gin.Context) { ws.Serve(c, surface.ID()) })
	engine.GET("/events", func(c *gin.Context) { mapsurface.ServeSSE(c, hub, surface.ID(), log) })
	return engine
}

// accessToken prefers a configured token and otherwise signs one for userID
// when the JWT secret is available locally.
func accessToken(cfg *config.Config, userID uuid.UUID) (string, error) {
	if token := cfg.GetLocationAPIToken(); token != "" {
		return token, nil
	}
	if cfg.GetJWTAccessSecret() == "" || userID == uuid.Nil {
		return "", nil
	}
	return httpkit.IssueAccessToken(cfg, userID, "worker", 24*time.Hour)
}

func parsePeers(raw string, log *logger.Logger) []uuid.UUID {
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			log.Warn("ignoring invalid peer id", "value", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseCoordinate(raw string, fallback geo.Coordinate) geo.Coordinate {
	lat, lng, ok := strings.Cut(raw, ",")
	if !ok {
		return fallback
	}
	latitude, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	longitude, err2 := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	c := geo.Coordinate{Latitude: latitude, Longitude: longitude}
	if err1 != nil || err2 != nil || !c.IsValid() {
		return fallback
	}
	return c
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getPositiveIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
