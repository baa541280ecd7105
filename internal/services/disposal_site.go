package services

import (
	"time"
	"waste-route-service/internal/domain"
)

// FindBestDisposalSite returns the site closest to from among those accepting
// every tag in wasteTypes, or nil when none qualifies.
// Ties go to the site listed first in the catalog.
func FindBestDisposalSite(
	wasteTypes domain.WasteTypes,
	sites []*domain.DisposalSite,
	from domain.Coordinates,
) *domain.DisposalSite {
	var best *domain.DisposalSite
	minDistance := 0.0

	for _, site := range sites {
		if site == nil || !site.Accepts(wasteTypes) {
			continue
		}

		d := Distance(from, site.Location)
		if best == nil || d < minDistance {
			best = site
			minDistance = d
		}
	}

	return best
}

// IsDisposalSiteOpen reports whether site is open at the wall-clock time of at.
// The weekday and time of day are read in at's own location, at minute
// granularity; interval bounds are inclusive.
func IsDisposalSiteOpen(site *domain.DisposalSite, at time.Time) bool {
	if site == nil {
		return false
	}

	ranges := site.OpeningHours[at.Weekday()]
	if len(ranges) == 0 {
		return false
	}

	now := domain.ClockOf(at)
	for _, r := range ranges {
		if r.Contains(now) {
			return true
		}
	}
	return false
}
