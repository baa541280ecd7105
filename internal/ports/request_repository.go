package ports

import (
	"context"
	"waste-route-service/internal/domain"
)

// Port: a boundary for reading and updating PickupRequest entities.
type RequestRepository interface {
	// Return all requests, optionally filtered by status (empty = all).
	ListRequests(ctx context.Context, status domain.RequestStatus) ([]*domain.PickupRequest, error)
	// Return the requests with the given ids. Unknown ids are absent from the map.
	GetRequests(ctx context.Context, ids []string) (map[string]*domain.PickupRequest, error)
	// Set the status of every listed request.
	UpdateRequestStatus(ctx context.Context, ids []string, status domain.RequestStatus) error
	// Move every listed request to status `to`, but only if each one is
	// currently in one of the `from` statuses. All or nothing: ErrConflict
	// when any request is in another status, ErrNotFound when one is missing.
	TransitionRequestStatus(ctx context.Context, ids []string, from []domain.RequestStatus, to domain.RequestStatus) error
}
