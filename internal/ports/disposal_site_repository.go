package ports

import (
	"context"
	"waste-route-service/internal/domain"
)

// Port: read access to the disposal-site catalog.
// Implemented by storage adapters and by the catalog cache in front of them.
type DisposalSiteCatalog interface {
	// Return every disposal site in a stable order.
	ListDisposalSites(ctx context.Context) ([]*domain.DisposalSite, error)
	// Return one site or ErrNotFound.
	GetDisposalSite(ctx context.Context, id string) (*domain.DisposalSite, error)
}
