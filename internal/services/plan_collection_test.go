package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"waste-route-service/internal/adapters/events"
	"waste-route-service/internal/adapters/memory"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/ports"
)

type plannerFixture struct {
	planner  *CollectionPlanner
	requests *memory.RequestStore
	routes   *memory.RouteStore
	recorder *events.Recorder
}

func newPlannerFixture(reqs ...*domain.PickupRequest) plannerFixture {
	_, _, sites := parisScenario()

	f := plannerFixture{
		requests: memory.NewRequestStore(reqs...),
		routes:   memory.NewRouteStore(),
		recorder: &events.Recorder{},
	}
	f.planner = &CollectionPlanner{
		Requests:    f.requests,
		Sites:       memory.NewDisposalSiteStore(sites...),
		Routes:      f.routes,
		Publisher:   f.recorder,
		MaxRequests: 3,
		NewID:       func() string { return "route-1" },
		Now:         func() time.Time { return time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC) },
	}
	return f
}

func TestCollectionPlannerPlan(t *testing.T) {
	requests, start, _ := parisScenario()
	f := newPlannerFixture(requests...)

	route, err := f.planner.Plan(context.Background(), PlanCollectionRequest{
		RouteOptions: RouteOptions{
			CollectorID: "collector-1",
			DepartAt:    time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
		},
		RequestIDs: []string{"C", "A", "B", "A", " "},
		Start:      start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if route.ID != "route-1" {
		t.Fatalf("ID = %q, want route-1", route.ID)
	}
	got := make([]string, 0, len(route.Stops))
	for _, s := range route.Stops {
		got = append(got, s.RequestID)
	}
	if !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Fatalf("stops = %v, want [A B C]", got)
	}
	if len(route.Warnings) != 0 {
		t.Fatalf("Warnings = %v, want none", route.Warnings)
	}

	saved, err := f.routes.GetRoute(context.Background(), "route-1")
	if err != nil {
		t.Fatalf("route not persisted: %v", err)
	}
	if saved.CollectorID != "collector-1" {
		t.Fatalf("saved CollectorID = %q, want collector-1", saved.CollectorID)
	}

	scheduled, _ := f.requests.ListRequests(context.Background(), domain.RequestScheduled)
	if len(scheduled) != 3 {
		t.Fatalf("scheduled requests = %d, want 3", len(scheduled))
	}

	evts := f.recorder.Events()
	if len(evts) != 1 || evts[0].Type != ports.EventRoutePlanned || evts[0].RouteID != "route-1" {
		t.Fatalf("events = %+v, want one route.planned", evts)
	}
}

func TestCollectionPlannerPlanRejectsBadInput(t *testing.T) {
	requests, start, _ := parisScenario()
	done := newRequest("done", 48.86, 2.35, domain.WasteFurniture)
	done.Status = domain.RequestCompleted
	extra := newRequest("extra", 48.87, 2.35, domain.WasteFurniture)

	tests := []struct {
		name      string
		collector string
		ids       []string
		start     domain.Coordinates
		want      error
	}{
		{"no collector", "", []string{"A"}, start, ErrInvalidRequest},
		{"no ids", "c", nil, start, ErrInvalidRequest},
		{"blank ids", "c", []string{" ", ""}, start, ErrInvalidRequest},
		{"bad start", "c", []string{"A"}, domain.Coordinates{Lat: 91}, ErrInvalidRequest},
		{"unknown id", "c", []string{"A", "nope"}, start, ErrRequestNotFound},
		{"completed request", "c", []string{"done"}, start, ErrInvalidRequest},
		{"over limit", "c", []string{"A", "B", "C", "extra"}, start, ErrTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPlannerFixture(append(requests, done, extra)...)

			_, err := f.planner.Plan(context.Background(), PlanCollectionRequest{
				RouteOptions: RouteOptions{CollectorID: tt.collector},
				RequestIDs:   tt.ids,
				Start:        tt.start,
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}

			if routes, _ := f.routes.ListRoutes(context.Background(), ""); len(routes) != 0 {
				t.Fatalf("route persisted on failure")
			}
			if evts := f.recorder.Events(); len(evts) != 0 {
				t.Fatalf("events published on failure: %+v", evts)
			}
		})
	}
}

func TestComputeRouteWarnsWhenNoSiteAccepts(t *testing.T) {
	r := newRequest("haz", 48.8566, 2.3522, domain.WasteHazardous)
	_, start, sites := parisScenario()

	route, err := ComputeRoute([]*domain.PickupRequest{r}, start, sites, RouteOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(route.Warnings, []string{WarnNoCompatibleSite}) {
		t.Fatalf("Warnings = %v, want [%s]", route.Warnings, WarnNoCompatibleSite)
	}
	if route.DisposalSiteID != nil {
		t.Fatalf("DisposalSiteID = %v, want nil", *route.DisposalSiteID)
	}
}

func TestComputeRouteWarnsWhenSiteClosedAtArrival(t *testing.T) {
	requests, start, _ := parisScenario()
	site := newSite("weekday", 48.8800, 2.3000, weekdayHours(),
		domain.WasteFurniture, domain.WasteElectronics, domain.WasteRubble)

	// Sunday departure: the only compatible site is closed, but it is kept.
	sunday := time.Date(2026, 1, 4, 9, 0, 0, 0, time.UTC)
	route, err := ComputeRoute(requests, start, []*domain.DisposalSite{site}, RouteOptions{DepartAt: sunday})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.DisposalSiteID == nil || *route.DisposalSiteID != "weekday" {
		t.Fatalf("DisposalSiteID = %v, want weekday", route.DisposalSiteID)
	}
	if !slices.Equal(route.Warnings, []string{WarnSiteClosedAtArrival}) {
		t.Fatalf("Warnings = %v, want [%s]", route.Warnings, WarnSiteClosedAtArrival)
	}

	monday := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	route, err = ComputeRoute(requests, start, []*domain.DisposalSite{site}, RouteOptions{DepartAt: monday})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route.Warnings) != 0 {
		t.Fatalf("Warnings = %v, want none on a Monday morning", route.Warnings)
	}
}

func TestComputeRouteValidatesInput(t *testing.T) {
	_, start, sites := parisScenario()

	dup := []*domain.PickupRequest{
		newRequest("x", 48.86, 2.35, domain.WasteFurniture),
		newRequest("x", 48.87, 2.35, domain.WasteFurniture),
	}
	if _, err := ComputeRoute(dup, start, sites, RouteOptions{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("duplicate ids: err = %v, want ErrInvalidRequest", err)
	}

	bad := []*domain.PickupRequest{newRequest("y", 120, 2.35, domain.WasteFurniture)}
	if _, err := ComputeRoute(bad, start, sites, RouteOptions{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("bad coordinates: err = %v, want ErrInvalidRequest", err)
	}
}

func TestComputeRouteEmptyBatch(t *testing.T) {
	_, start, sites := parisScenario()

	route, err := ComputeRoute(nil, start, sites, RouteOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route.Stops) != 0 || route.DistanceKm != 0 || route.DisposalSiteID != nil {
		t.Fatalf("route = %+v, want empty", route)
	}
	if len(route.Warnings) != 0 {
		t.Fatalf("Warnings = %v, want none for an empty batch", route.Warnings)
	}
}

func TestComputeRouteImproveNeverLonger(t *testing.T) {
	requests := []*domain.PickupRequest{
		newRequest("r1", 48.80, 2.30, domain.WasteHousehold),
		newRequest("r2", 48.90, 2.40, domain.WasteHousehold),
		newRequest("r3", 48.85, 2.20, domain.WasteHousehold),
		newRequest("r4", 48.81, 2.31, domain.WasteHousehold),
		newRequest("r5", 48.95, 2.35, domain.WasteHousehold),
		newRequest("r6", 48.83, 2.45, domain.WasteHousehold),
	}
	start := domain.Coordinates{Lat: 48.85, Lng: 2.35}

	greedy, err := ComputeRoute(requests, start, nil, RouteOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	improved, err := ComputeRoute(requests, start, nil, RouteOptions{Improve: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if improved.DistanceKm > greedy.DistanceKm+minImprovementKm {
		t.Fatalf("improved distance %v > greedy %v", improved.DistanceKm, greedy.DistanceKm)
	}
}

// barrierRequests holds every GetRequests call until all expected callers
// have loaded their requests.
type barrierRequests struct {
	*memory.RequestStore
	gate *sync.WaitGroup
}

func (b barrierRequests) GetRequests(ctx context.Context, ids []string) (map[string]*domain.PickupRequest, error) {
	found, err := b.RequestStore.GetRequests(ctx, ids)
	b.gate.Done()
	b.gate.Wait()
	return found, err
}

func TestCollectionPlannerConcurrentPlansClaimOnce(t *testing.T) {
	requests, start, _ := parisScenario()
	f := newPlannerFixture(requests...)

	var gate sync.WaitGroup
	gate.Add(2)
	f.planner.Requests = barrierRequests{RequestStore: f.requests, gate: &gate}
	var seq atomic.Int64
	f.planner.NewID = func() string { return fmt.Sprintf("route-%d", seq.Add(1)) }

	collectors := []string{"c1", "c2"}
	errs := make([]error, len(collectors))
	var wg sync.WaitGroup
	for i, c := range collectors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.planner.Plan(context.Background(), PlanCollectionRequest{
				RouteOptions: RouteOptions{CollectorID: c},
				RequestIDs:   []string{"A"},
				Start:        start,
			})
		}()
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInvalidTransition):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("successes = %d, conflicts = %d; want 1 and 1", ok, conflicts)
	}

	routes, _ := f.routes.ListRoutes(context.Background(), "")
	if len(routes) != 1 {
		t.Fatalf("routes = %d, want 1", len(routes))
	}
	if evts := f.recorder.Events(); len(evts) != 1 {
		t.Fatalf("events = %d, want 1", len(evts))
	}
}

// failingRoutes rejects every save.
type failingRoutes struct {
	*memory.RouteStore
}

func (failingRoutes) SaveRoute(context.Context, *domain.Route) error {
	return errors.New("disk full")
}

func TestCollectionPlannerReleasesRequestsWhenSaveFails(t *testing.T) {
	requests, start, _ := parisScenario()
	requests[0].Status = domain.RequestPending
	f := newPlannerFixture(requests...)
	f.planner.Routes = failingRoutes{RouteStore: f.routes}

	_, err := f.planner.Plan(context.Background(), PlanCollectionRequest{
		RouteOptions: RouteOptions{CollectorID: "c1"},
		RequestIDs:   []string{"A", "B", "C"},
		Start:        start,
	})
	if err == nil {
		t.Fatalf("expected save error")
	}

	got, _ := f.requests.GetRequests(context.Background(), []string{"A", "B", "C"})
	for _, r := range requests {
		if got[r.ID].Status != r.Status {
			t.Fatalf("request %s = %s, want %s restored", r.ID, got[r.ID].Status, r.Status)
		}
	}
	if evts := f.recorder.Events(); len(evts) != 0 {
		t.Fatalf("events published on failure: %+v", evts)
	}
}

func TestComputeRouteRejectsBadTunables(t *testing.T) {
	requests, start, sites := parisScenario()

	tests := []struct {
		name string
		opts RouteOptions
	}{
		{"negative service minutes", RouteOptions{ServiceMinutesPerStop: -120}},
		{"huge service minutes", RouteOptions{ServiceMinutesPerStop: 1e12}},
		{"NaN service minutes", RouteOptions{ServiceMinutesPerStop: math.NaN()}},
		{"negative disposal minutes", RouteOptions{DisposalMinutes: -1}},
		{"infinite disposal minutes", RouteOptions{DisposalMinutes: math.Inf(1)}},
		{"negative speed", RouteOptions{AverageSpeedKmh: -30}},
		{"crawling speed", RouteOptions{AverageSpeedKmh: 1e-9}},
		{"supersonic speed", RouteOptions{AverageSpeedKmh: 5000}},
		{"NaN speed", RouteOptions{AverageSpeedKmh: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeRoute(requests, start, sites, tt.opts)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestComputeRouteAcceptsTunableBounds(t *testing.T) {
	requests, start, sites := parisScenario()
	depart := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	for _, m := range []float64{0, MaxHandlingMinutes} {
		route, err := ComputeRoute(requests, start, sites, RouteOptions{
			DepartAt:              depart,
			AverageSpeedKmh:       MinAverageSpeedKmh,
			ServiceMinutesPerStop: m,
			DisposalMinutes:       m,
		})
		if err != nil {
			t.Fatalf("minutes=%v: unexpected error: %v", m, err)
		}
		prev := depart
		for _, s := range route.Stops {
			if s.EstimatedArrival.Before(prev) {
				t.Fatalf("minutes=%v: stop %s arrives %v before %v", m, s.RequestID, s.EstimatedArrival, prev)
			}
			prev = s.EstimatedArrival
		}
		if route.EndTime.Before(prev) {
			t.Fatalf("minutes=%v: EndTime %v before last stop %v", m, route.EndTime, prev)
		}
	}
}

func TestCollectionPlannerPlanRejectsBadTunables(t *testing.T) {
	requests, start, _ := parisScenario()
	f := newPlannerFixture(requests...)

	_, err := f.planner.Plan(context.Background(), PlanCollectionRequest{
		RouteOptions: RouteOptions{CollectorID: "c1", DisposalMinutes: -5},
		RequestIDs:   []string{"A"},
		Start:        start,
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	if got, _ := f.requests.ListRequests(context.Background(), domain.RequestScheduled); len(got) != 0 {
		t.Fatalf("scheduled requests = %d, want 0", len(got))
	}
}
