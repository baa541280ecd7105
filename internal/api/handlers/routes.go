package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"waste-route-service/internal/api/dto"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/ports"
	"waste-route-service/internal/services"
)

// RouteHandler serves route planning, preview and lifecycle endpoints.
type RouteHandler struct {
	Planner *services.CollectionPlanner
	Tracker *services.RouteTracker
	Catalog ports.DisposalSiteCatalog

	// Defaults applied when a request leaves a tunable unset.
	Defaults services.RouteOptions
	// Used when a plan request has no start location.
	DefaultStart *domain.Coordinates
	// Cap on requests per preview; 0 disables it.
	MaxRequests int
}

// Routes dispatches GET (list) and POST (plan) on the collection path.
func (h *RouteHandler) Routes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.plan(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *RouteHandler) list(w http.ResponseWriter, r *http.Request) {
	collectorID := strings.TrimSpace(r.URL.Query().Get("collector_id"))

	routes, err := h.Tracker.ListRoutes(r.Context(), collectorID)
	if err != nil {
		writeServiceError(w, r, "list routes", err)
		return
	}

	res := dto.ListRoutesResponse{Routes: make([]dto.RouteResponse, 0, len(routes))}
	for _, rt := range routes {
		res.Routes = append(res.Routes, dto.RouteFrom(rt))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *RouteHandler) plan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanRouteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start, ok := h.startFrom(w, r, req.Start)
	if !ok {
		return
	}

	opts, ok := h.options(w, r, req.RouteTuning)
	if !ok {
		return
	}
	opts.CollectorID = strings.TrimSpace(req.CollectorID)

	route, err := h.Planner.Plan(r.Context(), services.PlanCollectionRequest{
		RouteOptions: opts,
		RequestIDs:   req.RequestIDs,
		Start:        start,
	})
	if err != nil {
		writeServiceError(w, r, "plan route", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.RouteFrom(route))
}

// Optimize previews a route for an inline batch. Nothing is persisted.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.OptimizeRouteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if h.MaxRequests > 0 && len(req.Requests) > h.MaxRequests {
		writeError(w, r, http.StatusUnprocessableEntity,
			fmt.Sprintf("too many requests in batch: got %d, limit %d", len(req.Requests), h.MaxRequests))
		return
	}

	start, ok := h.startFrom(w, r, req.Start)
	if !ok {
		return
	}

	requests := make([]*domain.PickupRequest, 0, len(req.Requests))
	for _, p := range req.Requests {
		pr, err := p.ToDomain()
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		requests = append(requests, pr)
	}

	var sites []*domain.DisposalSite
	if req.DisposalSites != nil {
		sites = make([]*domain.DisposalSite, 0, len(*req.DisposalSites))
		for _, s := range *req.DisposalSites {
			ds, err := s.ToDomain()
			if err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			sites = append(sites, ds)
		}
	} else {
		var err error
		sites, err = h.Catalog.ListDisposalSites(r.Context())
		if err != nil {
			writeServiceError(w, r, "optimize route", err)
			return
		}
	}

	opts, ok := h.options(w, r, req.RouteTuning)
	if !ok {
		return
	}

	route, err := services.ComputeRoute(requests, start, sites, opts)
	if err != nil {
		writeServiceError(w, r, "optimize route", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.RouteFrom(route))
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	route, err := h.Tracker.GetRoute(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "get route", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.RouteFrom(route))
}

func (h *RouteHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPatch) {
		return
	}

	var req dto.UpdateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status, ok := domain.ParseRouteStatus(req.Status)
	if !ok {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown route status %q", req.Status))
		return
	}

	route, err := h.Tracker.UpdateRouteStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		writeServiceError(w, r, "update route status", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.RouteFrom(route))
}

func (h *RouteHandler) UpdateStopStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPatch) {
		return
	}

	var req dto.UpdateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status, ok := domain.ParseStopStatus(req.Status)
	if !ok {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown stop status %q", req.Status))
		return
	}

	route, err := h.Tracker.UpdateStopStatus(r.Context(), r.PathValue("id"), r.PathValue("request_id"), status)
	if err != nil {
		writeServiceError(w, r, "update stop status", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.RouteFrom(route))
}

func (h *RouteHandler) startFrom(w http.ResponseWriter, r *http.Request, c *dto.Coordinates) (domain.Coordinates, bool) {
	if c == nil {
		if h.DefaultStart == nil {
			writeError(w, r, http.StatusBadRequest, "start is required")
			return domain.Coordinates{}, false
		}
		return *h.DefaultStart, true
	}

	start, err := c.ToDomain()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "start: "+err.Error())
		return domain.Coordinates{}, false
	}
	return start, true
}

// options overlays request tunables on the handler defaults. A zero speed
// means "use the default" internally, so an explicit one from a client is
// rejected here rather than silently replaced.
func (h *RouteHandler) options(w http.ResponseWriter, r *http.Request, t dto.RouteTuning) (services.RouteOptions, bool) {
	opts := h.Defaults
	if t.DepartAt != nil {
		opts.DepartAt = *t.DepartAt
	}
	if t.AverageSpeedKmh != nil {
		if !(*t.AverageSpeedKmh > 0) {
			writeError(w, r, http.StatusBadRequest,
				fmt.Sprintf("average_speed_kmh must be positive, got %v", *t.AverageSpeedKmh))
			return services.RouteOptions{}, false
		}
		opts.AverageSpeedKmh = *t.AverageSpeedKmh
	}
	if t.ServiceMinutesPerStop != nil {
		opts.ServiceMinutesPerStop = *t.ServiceMinutesPerStop
	}
	if t.DisposalMinutes != nil {
		opts.DisposalMinutes = *t.DisposalMinutes
	}
	opts.Improve = opts.Improve || t.Improve
	return opts, true
}
