package api

import (
	"net/http"
	"waste-route-service/internal/api/handlers"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/platform/metrics"
	"waste-route-service/internal/ports"
	"waste-route-service/internal/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the ports and services the HTTP layer is built from.
type Deps struct {
	Requests ports.RequestRepository
	Catalog  ports.DisposalSiteCatalog
	Planner  *services.CollectionPlanner
	Tracker  *services.RouteTracker

	Defaults     services.RouteOptions
	DefaultStart *domain.Coordinates
	MaxRequests  int

	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	reqHandler := &handlers.RequestHandler{Repo: d.Requests}
	siteHandler := &handlers.SiteHandler{Catalog: d.Catalog}
	routeHandler := &handlers.RouteHandler{
		Planner:      d.Planner,
		Tracker:      d.Tracker,
		Catalog:      d.Catalog,
		Defaults:     d.Defaults,
		DefaultStart: d.DefaultStart,
		MaxRequests:  d.MaxRequests,
	}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/requests", reqHandler.List)
	mux.HandleFunc("/disposal-sites", siteHandler.List)
	mux.HandleFunc("/disposal-sites/{id}/open", siteHandler.Open)
	mux.HandleFunc("/routes", routeHandler.Routes)
	mux.HandleFunc("/routes/optimize", routeHandler.Optimize)
	mux.HandleFunc("/routes/{id}", routeHandler.Get)
	mux.HandleFunc("/routes/{id}/status", routeHandler.UpdateStatus)
	mux.HandleFunc("/routes/{id}/stops/{request_id}/status", routeHandler.UpdateStopStatus)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	limited := rateLimitMiddleware(d.RateLimitRPS, d.RateLimitBurst)(mux)
	return requestIDMiddleware(loggingMiddleware(limited))
}
