package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, route pattern and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// RoutesPlanned counts computed routes by whether a disposal site was found.
	RoutesPlanned = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routes_planned_total", Help: "Routes computed, by disposal outcome."},
		[]string{"disposal"},
	)
	// OptimizeDuration is the wall time of the optimizer alone.
	OptimizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_optimize_duration_seconds", Help: "Route optimization time in seconds.", Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5}},
	)
	RouteStops = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_stops", Help: "Stops per computed route.", Buckets: []float64{1, 2, 5, 10, 20, 50, 100}},
	)
	RouteDistance = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_distance_km", Help: "Total distance per computed route in km.", Buckets: []float64{1, 5, 10, 25, 50, 100, 250}},
	)

	// CatalogCache counts disposal-site cache lookups by result (hit, miss, error).
	CatalogCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "disposal_catalog_cache_total", Help: "Disposal-site catalog cache lookups."},
		[]string{"result"},
	)
	// EventsPublished counts route events by type and outcome.
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_events_published_total", Help: "Route events published by type and status."},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers all collectors on Registry. Safe to call repeatedly.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(RoutesPlanned)
		Registry.MustRegister(OptimizeDuration)
		Registry.MustRegister(RouteStops)
		Registry.MustRegister(RouteDistance)
		Registry.MustRegister(CatalogCache)
		Registry.MustRegister(EventsPublished)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
