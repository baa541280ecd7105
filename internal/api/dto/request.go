package dto

import (
	"fmt"
	"strings"
	"time"
	"waste-route-service/internal/domain"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) ToDomain() (domain.Coordinates, error) {
	out := domain.Coordinates{Lat: c.Lat, Lng: c.Lng}
	if err := out.Validate(); err != nil {
		return domain.Coordinates{}, err
	}
	return out, nil
}

func CoordinatesFrom(c domain.Coordinates) Coordinates {
	return Coordinates{Lat: c.Lat, Lng: c.Lng}
}

type PickupRequest struct {
	ID          string      `json:"id"`
	ClientID    string      `json:"client_id,omitempty"`
	Status      string      `json:"status,omitempty"`
	WasteTypes  []string    `json:"waste_types"`
	Volume      float64     `json:"volume"`
	Weight      *float64    `json:"weight,omitempty"`
	Address     string      `json:"address,omitempty"`
	Location    Coordinates `json:"location"`
	Description string      `json:"description,omitempty"`
	CreatedAt   *time.Time  `json:"created_at,omitempty"`
}

type ListRequestsResponse struct {
	Requests []PickupRequest `json:"requests"`
}

// ToDomain converts and validates a request received over the wire.
func (p PickupRequest) ToDomain() (*domain.PickupRequest, error) {
	types, err := ParseWasteTypes(p.WasteTypes)
	if err != nil {
		return nil, fmt.Errorf("request %q: %w", p.ID, err)
	}

	status := domain.RequestStatus(strings.TrimSpace(p.Status))
	if status == "" {
		status = domain.RequestPending
	}

	r := &domain.PickupRequest{
		ID:          strings.TrimSpace(p.ID),
		ClientID:    p.ClientID,
		Status:      status,
		WasteTypes:  types,
		Volume:      p.Volume,
		Weight:      p.Weight,
		Address:     p.Address,
		Location:    domain.Coordinates{Lat: p.Location.Lat, Lng: p.Location.Lng},
		Description: p.Description,
	}
	if p.CreatedAt != nil {
		r.CreatedAt = *p.CreatedAt
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func PickupRequestFrom(r *domain.PickupRequest) PickupRequest {
	out := PickupRequest{
		ID:          r.ID,
		ClientID:    r.ClientID,
		Status:      string(r.Status),
		WasteTypes:  WasteTypeStrings(r.WasteTypes),
		Volume:      r.Volume,
		Weight:      r.Weight,
		Address:     r.Address,
		Location:    CoordinatesFrom(r.Location),
		Description: r.Description,
	}
	if !r.CreatedAt.IsZero() {
		t := r.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

func ParseWasteTypes(raw []string) (domain.WasteTypes, error) {
	out := make(domain.WasteTypes, 0, len(raw))
	for _, s := range raw {
		w, err := domain.ParseWasteType(s)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return domain.UnionWasteTypes(out), nil
}

func WasteTypeStrings(ws domain.WasteTypes) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, string(w))
	}
	return out
}
