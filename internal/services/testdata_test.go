package services

import (
	"time"
	"waste-route-service/internal/domain"
)

func newRequest(id string, lat, lng float64, types ...domain.WasteType) *domain.PickupRequest {
	return &domain.PickupRequest{
		ID:         id,
		Status:     domain.RequestMatched,
		WasteTypes: domain.WasteTypes(types),
		Volume:     1,
		Location:   domain.Coordinates{Lat: lat, Lng: lng},
	}
}

func newSite(id string, lat, lng float64, hours domain.OpeningHours, types ...domain.WasteType) *domain.DisposalSite {
	return &domain.DisposalSite{
		ID:                 id,
		Name:               id,
		Location:           domain.Coordinates{Lat: lat, Lng: lng},
		AcceptedWasteTypes: domain.WasteTypes(types),
		OpeningHours:       hours,
	}
}

// alwaysOpen covers every minute of every day.
func alwaysOpen() domain.OpeningHours {
	h := domain.OpeningHours{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		h[d] = []domain.TimeRange{{Open: 0, Close: 24 * 60}}
	}
	return h
}

// weekdayHours is Monday to Friday, 08:00 to 17:00; weekends closed.
func weekdayHours() domain.OpeningHours {
	h := domain.OpeningHours{}
	for d := time.Monday; d <= time.Friday; d++ {
		h[d] = []domain.TimeRange{{Open: 8 * 60, Close: 17 * 60}}
	}
	return h
}

func ids(route []*domain.PickupRequest) []string {
	out := make([]string, 0, len(route))
	for _, r := range route {
		out = append(out, r.ID)
	}
	return out
}

func almostEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}
