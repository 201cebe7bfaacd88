package routing

import (
	"context"

	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"
)

// endpointTolerance is the largest gap, in degrees, between a routed path's
// end and the requested endpoint before the endpoint is appended.
const endpointTolerance = 1e-6

// Engine resolves routes with a straight-line fallback. It never fails.
type Engine struct {
	router Router
	log    *logger.Logger
}

// NewEngine creates an engine. A nil router always yields the fallback.
func NewEngine(router Router, log *logger.Logger) *Engine {
	return &Engine{router: router, log: log}
}

// Route returns a drawable route whose first and last points are from and to.
func (e *Engine) Route(ctx context.Context, from, to geo.Coordinate) RouteResult {
	if e.router == nil || !from.IsValid() || !to.IsValid() {
		return Fallback(from, to)
	}

	result, err := e.router.Route(ctx, from, to)
	if err != nil || len(result.Polyline) == 0 {
		e.log.Warn("route unavailable, drawing straight line", "error", err)
		return Fallback(from, to)
	}

	result.Polyline = pinEndpoints(result.Polyline, from, to)
	result.Fallback = false
	return result
}

// pinEndpoints joins the snapped road path to the exact requested points.
func pinEndpoints(polyline []geo.Coordinate, from, to geo.Coordinate) []geo.Coordinate {
	out := make([]geo.Coordinate, 0, len(polyline)+2)
	if !geo.ApproxEqual(polyline[0], from, endpointTolerance) {
		out = append(out, from)
	}
	out = append(out, polyline...)
	if !geo.ApproxEqual(out[len(out)-1], to, endpointTolerance) {
		out = append(out, to)
	}
	return out
}
