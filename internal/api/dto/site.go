package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"waste-route-service/internal/domain"
)

type DisposalSite struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Address            string            `json:"address,omitempty"`
	Location           Coordinates       `json:"location"`
	AcceptedWasteTypes []string          `json:"accepted_waste_types"`
	OpeningHours       domain.HoursTable `json:"opening_hours"`
}

type ListDisposalSitesResponse struct {
	DisposalSites []DisposalSite `json:"disposal_sites"`
}

type SiteOpenResponse struct {
	SiteID string    `json:"site_id"`
	At     time.Time `json:"at"`
	Open   bool      `json:"open"`
}

func (s DisposalSite) ToDomain() (*domain.DisposalSite, error) {
	id := strings.TrimSpace(s.ID)
	if id == "" {
		return nil, errors.New("disposal site: id must not be empty")
	}

	loc, err := s.Location.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("disposal site %q: %w", id, err)
	}

	types, err := ParseWasteTypes(s.AcceptedWasteTypes)
	if err != nil {
		return nil, fmt.Errorf("disposal site %q: %w", id, err)
	}

	hours, err := domain.ParseHoursTable(s.OpeningHours)
	if err != nil {
		return nil, fmt.Errorf("disposal site %q: %w", id, err)
	}

	return &domain.DisposalSite{
		ID:                 id,
		Name:               s.Name,
		Address:            s.Address,
		Location:           loc,
		AcceptedWasteTypes: types,
		OpeningHours:       hours,
	}, nil
}

func DisposalSiteFrom(s *domain.DisposalSite) DisposalSite {
	return DisposalSite{
		ID:                 s.ID,
		Name:               s.Name,
		Address:            s.Address,
		Location:           CoordinatesFrom(s.Location),
		AcceptedWasteTypes: WasteTypeStrings(s.AcceptedWasteTypes),
		OpeningHours:       s.OpeningHours.Table(),
	}
}
