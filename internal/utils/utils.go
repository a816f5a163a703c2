package utils

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetRoutePattern returns the chi route pattern that matched r (e.g.
// "/sep24/transaction"), used by MetricsRequestHandler to label request
// duration metrics by route rather than by raw path.
func GetRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if pattern := rctx.RoutePattern(); pattern != "" {
		// Pattern is already available
		return pattern
	}

	routePath := r.URL.Path

	if r.URL.RawPath != "" {
		routePath = r.URL.RawPath
	}

	tctx := chi.NewRouteContext()
	if !rctx.Routes.Match(tctx, r.Method, routePath) {
		return "undefined"
	}

	// tctx has the updated pattern, since Match mutates it
	return tctx.RoutePattern()
}
