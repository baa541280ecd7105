package ports

import (
	"context"
	"errors"
	"waste-route-service/internal/domain"
)

var (
	// ErrNotFound is returned by repositories when a lookup by id misses.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional update finds a row in an
	// unexpected state, usually because a concurrent writer got there first.
	ErrConflict = errors.New("conflicting update")
)

// Port: persistence for planned routes.
type RouteRepository interface {
	SaveRoute(ctx context.Context, route *domain.Route) error
	// Return the route or ErrNotFound.
	GetRoute(ctx context.Context, id string) (*domain.Route, error)
	// Return routes for one collector, or all routes when collectorID is empty.
	ListRoutes(ctx context.Context, collectorID string) ([]*domain.Route, error)
	// ModifyRoute loads the route, applies fn and persists the status changes
	// fn made to the route and its stops, as one atomic step. Concurrent
	// modifications of the same route are serialized. If fn returns an error
	// nothing is written and that error is returned unchanged.
	// ErrNotFound if absent.
	ModifyRoute(ctx context.Context, id string, fn func(*domain.Route) error) (*domain.Route, error)
}
