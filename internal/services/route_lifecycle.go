package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/platform/obs"
	"waste-route-service/internal/ports"
)

// RouteTracker applies lifecycle changes to persisted routes and keeps the
// underlying pickup requests in step.
type RouteTracker struct {
	Routes    ports.RouteRepository
	Requests  ports.RequestRepository
	Publisher ports.RoutePublisher
	Now       func() time.Time
}

func (t *RouteTracker) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	route, err := t.Routes.GetRoute(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("get route %q: %w", id, ErrRouteNotFound)
		}
		return nil, fmt.Errorf("get route %q: %w", id, err)
	}
	return route, nil
}

func (t *RouteTracker) ListRoutes(ctx context.Context, collectorID string) ([]*domain.Route, error) {
	routes, err := t.Routes.ListRoutes(ctx, collectorID)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

// UpdateRouteStatus moves a route along scheduled -> in_progress -> completed,
// or to cancelled from either non-terminal state.
// A route cannot complete while any stop is still pending.
func (t *RouteTracker) UpdateRouteStatus(
	ctx context.Context,
	id string,
	status domain.RouteStatus,
) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "route.UpdateRouteStatus")(&err)

	// The pending set is captured inside the modification so that it matches
	// the state the transition was applied to.
	var pending []string
	route, err := t.Routes.ModifyRoute(ctx, id, func(route *domain.Route) error {
		if !route.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, route.Status, status)
		}
		pending = pendingRequestIDs(route)
		if status == domain.RouteCompleted && len(pending) > 0 {
			return fmt.Errorf("%w: %d stops still pending", ErrInvalidTransition, len(pending))
		}
		route.Status = status
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update route status: %w", t.routeError(id, err))
	}

	// Pending pickups follow the route: they start with it, and go back to
	// the collector's queue when it is cancelled.
	if len(pending) > 0 {
		var reqStatus domain.RequestStatus
		switch status {
		case domain.RouteInProgress:
			reqStatus = domain.RequestInProgress
		case domain.RouteCancelled:
			reqStatus = domain.RequestMatched
		}
		if reqStatus != "" {
			if err := t.Requests.UpdateRequestStatus(ctx, pending, reqStatus); err != nil {
				return nil, fmt.Errorf("update route status: update requests: %w", err)
			}
		}
	}

	publish(ctx, t.Publisher, ports.RouteEvent{
		Type:        ports.EventRouteStatusChanged,
		RouteID:     route.ID,
		CollectorID: route.CollectorID,
		Status:      string(route.Status),
		OccurredAt:  t.now(),
	})

	return route, nil
}

// UpdateStopStatus resolves one stop. When the last pending stop of an
// in-progress route is resolved, the route completes automatically.
// Only one caller can resolve a given stop; a second one gets
// ErrInvalidTransition.
func (t *RouteTracker) UpdateStopStatus(
	ctx context.Context,
	routeID string,
	requestID string,
	status domain.StopStatus,
) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "route.UpdateStopStatus")(&err)

	autoCompleted := false
	route, err := t.Routes.ModifyRoute(ctx, routeID, func(route *domain.Route) error {
		if route.Status == domain.RouteCompleted || route.Status == domain.RouteCancelled {
			return fmt.Errorf("%w: route is %s", ErrInvalidTransition, route.Status)
		}

		idx := route.StopIndex(requestID)
		if idx < 0 {
			return fmt.Errorf("%w: route %s request %s", ErrStopNotFound, routeID, requestID)
		}

		stop := &route.Stops[idx]
		if !stop.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, stop.Status, status)
		}
		stop.Status = status

		if route.Status == domain.RouteInProgress && len(pendingRequestIDs(route)) == 0 {
			route.Status = domain.RouteCompleted
			autoCompleted = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update stop status: %w", t.routeError(routeID, err))
	}

	reqStatus := domain.RequestCompleted
	if status == domain.StopSkipped {
		reqStatus = domain.RequestMatched
	}
	if err := t.Requests.UpdateRequestStatus(ctx, []string{requestID}, reqStatus); err != nil {
		return nil, fmt.Errorf("update stop status: update request: %w", err)
	}

	publish(ctx, t.Publisher, ports.RouteEvent{
		Type:        ports.EventStopStatusChanged,
		RouteID:     route.ID,
		CollectorID: route.CollectorID,
		Status:      string(status),
		RequestID:   requestID,
		OccurredAt:  t.now(),
	})
	if autoCompleted {
		publish(ctx, t.Publisher, ports.RouteEvent{
			Type:        ports.EventRouteStatusChanged,
			RouteID:     route.ID,
			CollectorID: route.CollectorID,
			Status:      string(route.Status),
			OccurredAt:  t.now(),
		})
	}

	return route, nil
}

// routeError maps repository failures of ModifyRoute onto service sentinels.
// Errors returned by the modification itself pass through.
func (t *RouteTracker) routeError(id string, err error) error {
	switch {
	case isNotFound(err):
		return fmt.Errorf("route %q: %w", id, ErrRouteNotFound)
	case errors.Is(err, ports.ErrConflict):
		return fmt.Errorf("route %q: %w: %v", id, ErrInvalidTransition, err)
	default:
		return err
	}
}

func (t *RouteTracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now().UTC()
}

func pendingRequestIDs(route *domain.Route) []string {
	ids := make([]string, 0, len(route.Stops))
	for _, s := range route.Stops {
		if s.Status == domain.StopPending {
			ids = append(ids, s.RequestID)
		}
	}
	return ids
}
