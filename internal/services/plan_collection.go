package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
	"strings"
	"time"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/platform/metrics"
	"waste-route-service/internal/platform/obs"
	"waste-route-service/internal/ports"

	"github.com/google/uuid"
)

// 2-opt sweeps used when a caller asks for refinement.
const improvePasses = 50

// Request statuses a planner may schedule.
var plannable = []domain.RequestStatus{domain.RequestPending, domain.RequestMatched}

// RouteOptions tune how an ordered batch is turned into a schedule.
type RouteOptions struct {
	CollectorID           string
	DepartAt              time.Time
	AverageSpeedKmh       float64
	ServiceMinutesPerStop float64
	DisposalMinutes       float64
	Improve               bool
}

// Bounds on route tunables. Estimated times stay monotone and within the
// range of time.Duration.
const (
	MinAverageSpeedKmh = 1.0
	MaxAverageSpeedKmh = 300.0
	// Upper bound for per-stop service and disposal handling times.
	MaxHandlingMinutes = 24 * 60.0
)

// Validate checks the tunables. A zero AverageSpeedKmh selects
// DefaultAverageSpeedKmh; any other value must lie within the speed bounds.
// Handling times must be finite and within [0, MaxHandlingMinutes].
func (o RouteOptions) Validate() error {
	if o.AverageSpeedKmh != 0 && !inRange(o.AverageSpeedKmh, MinAverageSpeedKmh, MaxAverageSpeedKmh) {
		return fmt.Errorf("%w: average_speed_kmh must be between %v and %v, got %v",
			ErrInvalidRequest, MinAverageSpeedKmh, MaxAverageSpeedKmh, o.AverageSpeedKmh)
	}
	if !inRange(o.ServiceMinutesPerStop, 0, MaxHandlingMinutes) {
		return fmt.Errorf("%w: service_minutes_per_stop must be between 0 and %v, got %v",
			ErrInvalidRequest, MaxHandlingMinutes, o.ServiceMinutesPerStop)
	}
	if !inRange(o.DisposalMinutes, 0, MaxHandlingMinutes) {
		return fmt.Errorf("%w: disposal_minutes must be between 0 and %v, got %v",
			ErrInvalidRequest, MaxHandlingMinutes, o.DisposalMinutes)
	}
	return nil
}

// inRange is false for NaN and infinities.
func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

type PlanCollectionRequest struct {
	RouteOptions
	RequestIDs []string
	Start      domain.Coordinates
}

// CollectionPlanner loads a collector's accepted requests and the disposal
// catalog, computes a route and persists it.
type CollectionPlanner struct {
	Requests  ports.RequestRepository
	Sites     ports.DisposalSiteCatalog
	Routes    ports.RouteRepository
	Publisher ports.RoutePublisher
	// Upper bound on stops per route; 0 disables the check.
	MaxRequests int

	NewID func() string
	Now   func() time.Time
}

// Plan orchestrates request lookup, validation, optimization and persistence.
// Requests must be pending or matched; they are marked scheduled on success.
func (p *CollectionPlanner) Plan(ctx context.Context, req PlanCollectionRequest) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "plan.collection")(&err)

	if strings.TrimSpace(req.CollectorID) == "" {
		return nil, fmt.Errorf("plan collection: %w: collector id must not be empty", ErrInvalidRequest)
	}
	if err := req.Start.Validate(); err != nil {
		return nil, fmt.Errorf("plan collection: %w: start location: %v", ErrInvalidRequest, err)
	}

	ids := dedupeIDs(req.RequestIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("plan collection: %w: request ids must not be empty", ErrInvalidRequest)
	}
	if p.MaxRequests > 0 && len(ids) > p.MaxRequests {
		return nil, fmt.Errorf("plan collection: %w: got %d, limit %d", ErrTooManyRequests, len(ids), p.MaxRequests)
	}
	if err := req.RouteOptions.Validate(); err != nil {
		return nil, fmt.Errorf("plan collection: %w", err)
	}

	found, err := p.Requests.GetRequests(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("plan collection: get requests: %w", err)
	}

	requests := make([]*domain.PickupRequest, 0, len(ids))
	for _, id := range ids {
		r, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("plan collection: %w: %q", ErrRequestNotFound, id)
		}
		if !slices.Contains(plannable, r.Status) {
			return nil, fmt.Errorf("plan collection: %w: request %s is %s", ErrInvalidRequest, id, r.Status)
		}
		requests = append(requests, r)
	}

	sites, err := p.Sites.ListDisposalSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan collection: list disposal sites: %w", err)
	}

	route, err := ComputeRoute(requests, req.Start, sites, req.RouteOptions)
	if err != nil {
		return nil, fmt.Errorf("plan collection: %w", err)
	}

	route.ID = p.newID()
	route.CreatedAt = p.now()

	// Claim the requests before the route exists: of two planners racing for
	// the same request, exactly one wins and the other saves nothing.
	if err := p.Requests.TransitionRequestStatus(ctx, ids, plannable, domain.RequestScheduled); err != nil {
		switch {
		case errors.Is(err, ports.ErrConflict):
			return nil, fmt.Errorf("plan collection: %w: requests were scheduled concurrently: %v", ErrInvalidTransition, err)
		case isNotFound(err):
			return nil, fmt.Errorf("plan collection: %w: %v", ErrRequestNotFound, err)
		default:
			return nil, fmt.Errorf("plan collection: mark requests scheduled: %w", err)
		}
	}

	if err := p.Routes.SaveRoute(ctx, route); err != nil {
		p.releaseRequests(ctx, requests)
		return nil, fmt.Errorf("plan collection: save route: %w", err)
	}

	publish(ctx, p.Publisher, ports.RouteEvent{
		Type:        ports.EventRoutePlanned,
		RouteID:     route.ID,
		CollectorID: route.CollectorID,
		Status:      string(route.Status),
		OccurredAt:  p.now(),
	})

	return route, nil
}

// ComputeRoute validates a batch at the ingestion boundary, runs the optimizer
// and builds the schedule. It touches no storage. An empty batch yields an
// empty route.
//
// When a disposal site is chosen but is closed at the estimated arrival, the
// route keeps that site and carries WarnSiteClosedAtArrival instead.
func ComputeRoute(
	requests []*domain.PickupRequest,
	start domain.Coordinates,
	sites []*domain.DisposalSite,
	opts RouteOptions,
) (*domain.Route, error) {
	if err := start.Validate(); err != nil {
		return nil, fmt.Errorf("compute route: %w: start location: %v", ErrInvalidRequest, err)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("compute route: %w", err)
	}

	seen := make(map[string]struct{}, len(requests))
	for _, r := range requests {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("compute route: %w: %v", ErrInvalidRequest, err)
		}
		if _, ok := seen[r.ID]; ok {
			return nil, fmt.Errorf("compute route: %w: duplicate request %q", ErrInvalidRequest, r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	usable := make([]*domain.DisposalSite, 0, len(sites))
	for _, s := range sites {
		if s == nil {
			continue
		}
		if err := s.Location.Validate(); err != nil {
			log.Printf("skipping disposal site id=%s: %v", s.ID, err)
			continue
		}
		usable = append(usable, s)
	}

	optimizer := NewOptimizer(opts.AverageSpeedKmh)

	began := time.Now()
	opt := optimizer.Optimize(requests, start, usable)
	if opts.Improve {
		opt = optimizer.Refine(opt, start, usable, improvePasses)
	}
	metrics.OptimizeDuration.Observe(time.Since(began).Seconds())

	departAt := opts.DepartAt
	if departAt.IsZero() {
		departAt = time.Now()
	}

	route := optimizer.BuildRoute(opt, start, BuildOptions{
		CollectorID:           opts.CollectorID,
		DepartAt:              departAt,
		ServiceMinutesPerStop: opts.ServiceMinutesPerStop,
		DisposalMinutes:       opts.DisposalMinutes,
	})

	if len(requests) > 0 {
		switch {
		case opt.DisposalSite == nil:
			route.Warnings = append(route.Warnings, WarnNoCompatibleSite)
			metrics.RoutesPlanned.WithLabelValues("none").Inc()
		case !IsDisposalSiteOpen(opt.DisposalSite, *route.DisposalArrival):
			route.Warnings = append(route.Warnings, WarnSiteClosedAtArrival)
			metrics.RoutesPlanned.WithLabelValues("closed_at_arrival").Inc()
		default:
			metrics.RoutesPlanned.WithLabelValues("selected").Inc()
		}
		metrics.RouteStops.Observe(float64(len(route.Stops)))
		metrics.RouteDistance.Observe(route.DistanceKm)
	}

	return route, nil
}

// releaseRequests puts claimed requests back to the status they were loaded
// with. Failures are logged; the caller already reports the original error.
func (p *CollectionPlanner) releaseRequests(ctx context.Context, requests []*domain.PickupRequest) {
	byStatus := make(map[domain.RequestStatus][]string)
	for _, r := range requests {
		byStatus[r.Status] = append(byStatus[r.Status], r.ID)
	}
	for status, ids := range byStatus {
		err := p.Requests.TransitionRequestStatus(ctx, ids, []domain.RequestStatus{domain.RequestScheduled}, status)
		if err != nil {
			log.Printf("release requests failed: status=%s ids=%v err=%v", status, ids, err)
		}
	}
}

func (p *CollectionPlanner) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.New().String()
}

func (p *CollectionPlanner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

// dedupeIDs trims ids and drops blanks and repeats, keeping first-seen order.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// publish is best-effort: a broker outage must not fail a persisted route.
func publish(ctx context.Context, pub ports.RoutePublisher, evt ports.RouteEvent) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, evt); err != nil {
		metrics.EventsPublished.WithLabelValues(evt.Type, "error").Inc()
		log.Printf("publish route event failed: type=%s route_id=%s err=%v", evt.Type, evt.RouteID, err)
		return
	}
	metrics.EventsPublished.WithLabelValues(evt.Type, "ok").Inc()
}

// isNotFound maps repository misses onto a service sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, ports.ErrNotFound)
}
