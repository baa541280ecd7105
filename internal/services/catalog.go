package services

import (
	"context"
	"fmt"
	"time"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/ports"
)

// CheckDisposalSiteOpen looks a site up in the catalog and evaluates its
// opening hours at the given time.
func CheckDisposalSiteOpen(
	ctx context.Context,
	catalog ports.DisposalSiteCatalog,
	siteID string,
	at time.Time,
) (*domain.DisposalSite, bool, error) {
	site, err := catalog.GetDisposalSite(ctx, siteID)
	if err != nil {
		if isNotFound(err) {
			return nil, false, fmt.Errorf("check disposal site open: %w: %q", ErrSiteNotFound, siteID)
		}
		return nil, false, fmt.Errorf("check disposal site open: %w", err)
	}
	return site, IsDisposalSiteOpen(site, at), nil
}
