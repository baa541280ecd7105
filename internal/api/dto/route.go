package dto

import (
	"time"
	"waste-route-service/internal/domain"
)

// Optional tunables shared by planning and preview requests.
// Nil fields fall back to server defaults.
type RouteTuning struct {
	DepartAt              *time.Time `json:"depart_at"`
	AverageSpeedKmh       *float64   `json:"average_speed_kmh"`
	ServiceMinutesPerStop *float64   `json:"service_minutes_per_stop"`
	DisposalMinutes       *float64   `json:"disposal_minutes"`
	Improve               bool       `json:"improve"`
}

type PlanRouteRequest struct {
	RouteTuning
	CollectorID string       `json:"collector_id"`
	RequestIDs  []string     `json:"request_ids"`
	Start       *Coordinates `json:"start"`
}

// OptimizeRouteRequest previews a route without touching storage.
// When DisposalSites is omitted the server catalog is used.
type OptimizeRouteRequest struct {
	RouteTuning
	Requests      []PickupRequest `json:"requests"`
	Start         *Coordinates    `json:"start"`
	DisposalSites *[]DisposalSite `json:"disposal_sites"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type RouteStopResponse struct {
	RequestID          string    `json:"request_id"`
	Order              int       `json:"order"`
	EstimatedArrival   time.Time `json:"estimated_arrival"`
	LegDistanceKm      float64   `json:"leg_distance_km"`
	LegDurationMinutes float64   `json:"leg_duration_minutes"`
	Status             string    `json:"status"`
}

type RouteResponse struct {
	ID              string              `json:"id,omitempty"`
	CollectorID     string              `json:"collector_id,omitempty"`
	Status          string              `json:"status"`
	DisposalSiteID  *string             `json:"disposal_site_id"`
	DistanceKm      float64             `json:"distance_km"`
	DurationMinutes float64             `json:"duration_minutes"`
	StartTime       time.Time           `json:"start_time"`
	DisposalArrival *time.Time          `json:"disposal_arrival"`
	EndTime         time.Time           `json:"end_time"`
	Warnings        []string            `json:"warnings"`
	Stops           []RouteStopResponse `json:"stops"`
	CreatedAt       *time.Time          `json:"created_at,omitempty"`
}

type ListRoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
}

func RouteFrom(r *domain.Route) RouteResponse {
	stops := make([]RouteStopResponse, 0, len(r.Stops))
	for _, s := range r.Stops {
		stops = append(stops, RouteStopResponse{
			RequestID:          s.RequestID,
			Order:              s.Order,
			EstimatedArrival:   s.EstimatedArrival,
			LegDistanceKm:      s.LegDistanceKm,
			LegDurationMinutes: s.LegDurationMinutes,
			Status:             string(s.Status),
		})
	}

	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	out := RouteResponse{
		ID:              r.ID,
		CollectorID:     r.CollectorID,
		Status:          string(r.Status),
		DisposalSiteID:  r.DisposalSiteID,
		DistanceKm:      r.DistanceKm,
		DurationMinutes: r.DurationMinutes,
		StartTime:       r.StartTime,
		DisposalArrival: r.DisposalArrival,
		EndTime:         r.EndTime,
		Warnings:        warnings,
		Stops:           stops,
	}
	if !r.CreatedAt.IsZero() {
		t := r.CreatedAt
		out.CreatedAt = &t
	}
	return out
}
