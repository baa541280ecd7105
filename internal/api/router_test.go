package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"waste-route-service/internal/adapters/events"
	"waste-route-service/internal/adapters/memory"
	"waste-route-service/internal/api/dto"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/platform/metrics"
	"waste-route-service/internal/services"
)

func weekdayHours() domain.OpeningHours {
	h := domain.OpeningHours{}
	for d := time.Monday; d <= time.Friday; d++ {
		h[d] = []domain.TimeRange{{Open: 8 * 60, Close: 17 * 60}}
	}
	return h
}

func newTestRouter(t *testing.T, mutate func(*Deps)) http.Handler {
	t.Helper()

	requests := memory.NewRequestStore(
		&domain.PickupRequest{ID: "A", Status: domain.RequestMatched, WasteTypes: domain.WasteTypes{domain.WasteFurniture}, Location: domain.Coordinates{Lat: 48.8566, Lng: 2.3522}},
		&domain.PickupRequest{ID: "B", Status: domain.RequestMatched, WasteTypes: domain.WasteTypes{domain.WasteElectronics}, Location: domain.Coordinates{Lat: 48.8606, Lng: 2.3376}},
		&domain.PickupRequest{ID: "C", Status: domain.RequestPending, WasteTypes: domain.WasteTypes{domain.WasteRubble}, Location: domain.Coordinates{Lat: 48.8738, Lng: 2.2950}},
	)
	catalog := memory.NewDisposalSiteStore(&domain.DisposalSite{
		ID:                 "D",
		Name:               "Depot D",
		Location:           domain.Coordinates{Lat: 48.8800, Lng: 2.3000},
		AcceptedWasteTypes: domain.WasteTypes{domain.WasteFurniture, domain.WasteElectronics, domain.WasteRubble},
		OpeningHours:       weekdayHours(),
	})
	routes := memory.NewRouteStore()
	recorder := &events.Recorder{}

	d := Deps{
		Requests: requests,
		Catalog:  catalog,
		Planner: &services.CollectionPlanner{
			Requests:    requests,
			Sites:       catalog,
			Routes:      routes,
			Publisher:   recorder,
			MaxRequests: 3,
			NewID:       func() string { return "route-1" },
		},
		Tracker: &services.RouteTracker{
			Routes:    routes,
			Requests:  requests,
			Publisher: recorder,
		},
		Defaults:    services.RouteOptions{AverageSpeedKmh: 30, ServiceMinutesPerStop: 10, DisposalMinutes: 15},
		MaxRequests: 3,
	}
	if mutate != nil {
		mutate(&d)
	}
	return NewRouter(d)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	h := newTestRouter(t, nil)

	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing X-Request-Id header")
	}

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Request-Id", "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	if got := rr.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Fatalf("X-Request-Id = %q, want abc-123", got)
	}

	if rr := do(t, h, http.MethodPost, "/health", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health status = %d, want 405", rr.Code)
	}
}

func TestListRequestsAndSites(t *testing.T) {
	h := newTestRouter(t, nil)

	rr := do(t, h, http.MethodGet, "/requests?status=matched", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	reqs := decode[dto.ListRequestsResponse](t, rr)
	if len(reqs.Requests) != 2 {
		t.Fatalf("matched requests = %d, want 2", len(reqs.Requests))
	}

	rr = do(t, h, http.MethodGet, "/disposal-sites", "")
	sites := decode[dto.ListDisposalSitesResponse](t, rr)
	if len(sites.DisposalSites) != 1 || sites.DisposalSites[0].ID != "D" {
		t.Fatalf("sites = %+v, want [D]", sites.DisposalSites)
	}
	if got := sites.DisposalSites[0].OpeningHours["monday"]; len(got) != 1 || got[0].Open != "08:00" {
		t.Fatalf("monday hours = %+v, want 08:00-17:00", got)
	}
}

func TestDisposalSiteOpen(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		target string
		status int
		open   bool
	}{
		{"/disposal-sites/D/open?at=2026-01-05T08:00:00Z", http.StatusOK, true},
		{"/disposal-sites/D/open?at=2026-01-05T17:01:00Z", http.StatusOK, false},
		{"/disposal-sites/D/open?at=2026-01-04T12:00:00Z", http.StatusOK, false},
		{"/disposal-sites/D/open?at=yesterday", http.StatusBadRequest, false},
		{"/disposal-sites/nope/open?at=2026-01-05T08:00:00Z", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		rr := do(t, h, http.MethodGet, tt.target, "")
		if rr.Code != tt.status {
			t.Fatalf("%s: status = %d, want %d (%s)", tt.target, rr.Code, tt.status, rr.Body.String())
		}
		if tt.status != http.StatusOK {
			continue
		}
		if got := decode[dto.SiteOpenResponse](t, rr); got.Open != tt.open {
			t.Fatalf("%s: open = %v, want %v", tt.target, got.Open, tt.open)
		}
	}
}

func TestOptimizePreview(t *testing.T) {
	h := newTestRouter(t, nil)

	body := `{
		"start": {"lat": 48.8566, "lng": 2.3522},
		"depart_at": "2026-01-05T08:00:00Z",
		"requests": [
			{"id": "C", "waste_types": ["rubble"], "volume": 1, "location": {"lat": 48.8738, "lng": 2.2950}},
			{"id": "A", "waste_types": ["furniture"], "volume": 1, "location": {"lat": 48.8566, "lng": 2.3522}},
			{"id": "B", "waste_types": ["electronics"], "volume": 1, "location": {"lat": 48.8606, "lng": 2.3376}}
		]
	}`

	rr := do(t, h, http.MethodPost, "/routes/optimize", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	route := decode[dto.RouteResponse](t, rr)

	var order []string
	for _, s := range route.Stops {
		order = append(order, s.RequestID)
	}
	if strings.Join(order, ",") != "A,B,C" {
		t.Fatalf("order = %v, want A,B,C", order)
	}
	if route.DisposalSiteID == nil || *route.DisposalSiteID != "D" {
		t.Fatalf("disposal site = %v, want D", route.DisposalSiteID)
	}
	if route.ID != "" {
		t.Fatalf("preview got an ID %q", route.ID)
	}
	if len(route.Warnings) != 0 {
		t.Fatalf("warnings = %v, want none", route.Warnings)
	}
}

func TestOptimizePreviewWithInlineSitesAndWarnings(t *testing.T) {
	h := newTestRouter(t, nil)

	body := `{
		"start": {"lat": 48.8566, "lng": 2.3522},
		"requests": [{"id": "H", "waste_types": ["hazardous"], "volume": 1, "location": {"lat": 48.86, "lng": 2.35}}],
		"disposal_sites": [{"id": "G", "name": "Green only", "location": {"lat": 48.87, "lng": 2.30}, "accepted_waste_types": ["green_waste"], "opening_hours": {}}]
	}`

	rr := do(t, h, http.MethodPost, "/routes/optimize", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	route := decode[dto.RouteResponse](t, rr)
	if route.DisposalSiteID != nil {
		t.Fatalf("disposal site = %s, want none", *route.DisposalSiteID)
	}
	if len(route.Warnings) != 1 || route.Warnings[0] != services.WarnNoCompatibleSite {
		t.Fatalf("warnings = %v, want [%s]", route.Warnings, services.WarnNoCompatibleSite)
	}
}

func TestOptimizeRejectsBadBodies(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"unknown field", `{"start": {"lat": 1, "lng": 1}, "requests": [], "bogus": 1}`, http.StatusBadRequest},
		{"two objects", `{"start": {"lat": 1, "lng": 1}, "requests": []} {}`, http.StatusBadRequest},
		{"bad waste type", `{"start": {"lat": 1, "lng": 1}, "requests": [{"id": "x", "waste_types": ["plutonium"], "location": {"lat": 1, "lng": 1}}]}`, http.StatusBadRequest},
		{"bad start", `{"start": {"lat": 99, "lng": 1}, "requests": []}`, http.StatusBadRequest},
		{"missing start", `{"requests": []}`, http.StatusBadRequest},
		{"zero speed", `{"start": {"lat": 1, "lng": 1}, "requests": [], "average_speed_kmh": 0}`, http.StatusBadRequest},
		{"negative speed", `{"start": {"lat": 1, "lng": 1}, "requests": [], "average_speed_kmh": -30}`, http.StatusBadRequest},
		{"negative service minutes", `{"start": {"lat": 1, "lng": 1}, "requests": [], "service_minutes_per_stop": -120}`, http.StatusBadRequest},
		{"huge service minutes", `{"start": {"lat": 1, "lng": 1}, "requests": [], "service_minutes_per_stop": 1e12}`, http.StatusBadRequest},
		{"negative disposal minutes", `{"start": {"lat": 1, "lng": 1}, "requests": [], "disposal_minutes": -1}`, http.StatusBadRequest},
		{"too many", `{"start": {"lat": 1, "lng": 1}, "requests": [
			{"id": "1", "waste_types": ["rubble"], "location": {"lat": 1, "lng": 1}},
			{"id": "2", "waste_types": ["rubble"], "location": {"lat": 1, "lng": 1}},
			{"id": "3", "waste_types": ["rubble"], "location": {"lat": 1, "lng": 1}},
			{"id": "4", "waste_types": ["rubble"], "location": {"lat": 1, "lng": 1}}]}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/routes/optimize", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
		})
	}
}

func TestPlanAndTrackRoute(t *testing.T) {
	h := newTestRouter(t, nil)

	plan := `{"collector_id": "collector-1", "request_ids": ["A", "B", "C"],
		"start": {"lat": 48.8566, "lng": 2.3522}, "depart_at": "2026-01-05T08:00:00Z"}`
	rr := do(t, h, http.MethodPost, "/routes", plan)
	if rr.Code != http.StatusCreated {
		t.Fatalf("plan status = %d, want 201 (%s)", rr.Code, rr.Body.String())
	}
	route := decode[dto.RouteResponse](t, rr)
	if route.ID != "route-1" || route.Status != "scheduled" || len(route.Stops) != 3 {
		t.Fatalf("route = %+v", route)
	}

	rr = do(t, h, http.MethodGet, "/routes/route-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/routes?collector_id=collector-1", "")
	if list := decode[dto.ListRoutesResponse](t, rr); len(list.Routes) != 1 {
		t.Fatalf("routes = %d, want 1", len(list.Routes))
	}

	rr = do(t, h, http.MethodGet, "/requests?status=scheduled", "")
	if reqs := decode[dto.ListRequestsResponse](t, rr); len(reqs.Requests) != 3 {
		t.Fatalf("scheduled requests = %d, want 3", len(reqs.Requests))
	}

	rr = do(t, h, http.MethodPatch, "/routes/route-1/status", `{"status": "in_progress"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("start status = %d, want 200 (%s)", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodPatch, "/routes/route-1/status", `{"status": "completed"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("premature complete status = %d, want 409", rr.Code)
	}

	for _, id := range []string{"A", "B", "C"} {
		rr = do(t, h, http.MethodPatch, "/routes/route-1/stops/"+id+"/status", `{"status": "completed"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("stop %s status = %d, want 200 (%s)", id, rr.Code, rr.Body.String())
		}
	}
	if final := decode[dto.RouteResponse](t, rr); final.Status != "completed" {
		t.Fatalf("route status = %s, want completed", final.Status)
	}
}

func TestPlanErrors(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"unknown request", http.MethodPost, "/routes", `{"collector_id": "c", "request_ids": ["A", "Z"], "start": {"lat": 48.85, "lng": 2.35}}`, http.StatusNotFound},
		{"too many", http.MethodPost, "/routes", `{"collector_id": "c", "request_ids": ["A", "B", "C", "D"], "start": {"lat": 48.85, "lng": 2.35}}`, http.StatusUnprocessableEntity},
		{"no collector", http.MethodPost, "/routes", `{"request_ids": ["A"], "start": {"lat": 48.85, "lng": 2.35}}`, http.StatusBadRequest},
		{"zero speed", http.MethodPost, "/routes", `{"collector_id": "c", "request_ids": ["A"], "start": {"lat": 48.85, "lng": 2.35}, "average_speed_kmh": 0}`, http.StatusBadRequest},
		{"negative service minutes", http.MethodPost, "/routes", `{"collector_id": "c", "request_ids": ["A"], "start": {"lat": 48.85, "lng": 2.35}, "service_minutes_per_stop": -120}`, http.StatusBadRequest},
		{"missing route", http.MethodGet, "/routes/nope", "", http.StatusNotFound},
		{"bad route status", http.MethodPatch, "/routes/nope/status", `{"status": "flying"}`, http.StatusBadRequest},
		{"bad stop status", http.MethodPatch, "/routes/nope/stops/A/status", `{"status": "flying"}`, http.StatusBadRequest},
		{"wrong method", http.MethodDelete, "/routes", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.target, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
		})
	}
}

func TestPlanAlreadyScheduledRequestIsRejected(t *testing.T) {
	h := newTestRouter(t, func(d *Deps) {
		n := 0
		d.Planner.NewID = func() string { n++; return fmt.Sprintf("route-%d", n) }
	})

	body := `{"collector_id": "c1", "request_ids": ["A"], "start": {"lat": 48.85, "lng": 2.35}}`
	if rr := do(t, h, http.MethodPost, "/routes", body); rr.Code != http.StatusCreated {
		t.Fatalf("first plan status = %d, want 201 (%s)", rr.Code, rr.Body.String())
	}
	body = `{"collector_id": "c2", "request_ids": ["A"], "start": {"lat": 48.85, "lng": 2.35}}`
	if rr := do(t, h, http.MethodPost, "/routes", body); rr.Code != http.StatusBadRequest {
		t.Fatalf("second plan status = %d, want 400 (%s)", rr.Code, rr.Body.String())
	}

	rr := do(t, h, http.MethodGet, "/routes", "")
	if got := decode[dto.ListRoutesResponse](t, rr); len(got.Routes) != 1 {
		t.Fatalf("routes = %d, want 1", len(got.Routes))
	}
}

func TestPlanUsesDefaultStart(t *testing.T) {
	depot := domain.Coordinates{Lat: 48.8566, Lng: 2.3522}
	h := newTestRouter(t, func(d *Deps) { d.DefaultStart = &depot })

	rr := do(t, h, http.MethodPost, "/routes", `{"collector_id": "c", "request_ids": ["A"]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rr.Code, rr.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestRouter(t, func(d *Deps) {
		d.RateLimitRPS = 0.001
		d.RateLimitBurst = 1
	})

	if rr := do(t, h, http.MethodGet, "/disposal-sites", ""); rr.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/disposal-sites", ""); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200 (exempt from limiting)", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.RegisterDefault()
	h := newTestRouter(t, nil)

	do(t, h, http.MethodGet, "/health", "")
	rr := do(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `http_requests_total{method="GET",path="/health",status="200"}`) {
		t.Fatalf("metrics output missing http_requests_total for /health")
	}
}
