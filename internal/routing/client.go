package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/config"
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const serviceName = "osrm"

// Client talks to an OSRM-compatible routing service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	profile    string
	log        *logger.Logger
}

var _ Router = (*Client)(nil)

// NewClient creates a routing client.
func NewClient(cfg config.RoutingConfig, log *logger.Logger) *Client {
	profile := cfg.GetRoutingProfile()
	if profile == "" {
		profile = "driving"
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetUpstreamTimeout()},
		baseURL:    strings.TrimRight(cfg.GetRoutingBaseURL(), "/"),
		profile:    profile,
		log:        log,
	}
}

// Route requests the full route geometry between from and to.
func (c *Client) Route(ctx context.Context, from, to geo.Coordinate) (RouteResult, error) {
	if !from.IsValid() || !to.IsValid() {
		return RouteResult{}, apperr.Validation("route endpoints must be valid coordinates")
	}

	reqURL := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		c.baseURL, c.profile, from.Longitude, from.Latitude, to.Longitude, to.Latitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return RouteResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.UpstreamFailure(serviceName, "route", err)
		return RouteResult{}, apperr.Unavailable("routing service unavailable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// OSRM reports NoRoute and friends with a 400 and a JSON body.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		err := fmt.Errorf("upstream status %d", resp.StatusCode)
		c.log.UpstreamFailure(serviceName, "route", err)
		return RouteResult{}, apperr.Unavailable("routing service unavailable", err)
	}

	var payload osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.UpstreamFailure(serviceName, "route", err)
		return RouteResult{}, apperr.Malformed("unexpected routing payload", err)
	}

	if payload.Code != "Ok" {
		c.log.Debug("osrm returned no route", "code", payload.Code, "message", payload.Message)
		return RouteResult{}, ErrNoRoute
	}
	if len(payload.Routes) == 0 || payload.Routes[0].Geometry == nil {
		return RouteResult{}, apperr.Malformed("routing payload without routes", nil)
	}

	route := payload.Routes[0]
	line, ok := route.Geometry.Coordinates.(orb.LineString)
	if !ok || len(line) == 0 {
		return RouteResult{}, apperr.Malformed("routing geometry is not a line string", nil)
	}

	polyline := make([]geo.Coordinate, 0, len(line))
	for _, p := range line {
		polyline = append(polyline, geo.FromPoint(p))
	}

	return RouteResult{
		Polyline:        polyline,
		DistanceMeters:  route.Distance,
		DurationSeconds: route.Duration,
	}, nil
}

type osrmRoute struct {
	Geometry *geojson.Geometry `json:"geometry"`
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
}

type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}
