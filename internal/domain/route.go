package domain

import "time"

type RouteStatus string

const (
	RouteScheduled  RouteStatus = "scheduled"
	RouteInProgress RouteStatus = "in_progress"
	RouteCompleted  RouteStatus = "completed"
	RouteCancelled  RouteStatus = "cancelled"
)

type StopStatus string

const (
	StopPending   StopStatus = "pending"
	StopCompleted StopStatus = "completed"
	StopSkipped   StopStatus = "skipped"
)

// Represents a single pickup within a collection route.
// Order is 1-based; leg metrics cover travel from the previous stop
// (or the start location for the first stop).
type RouteStop struct {
	RequestID          string
	Order              int
	EstimatedArrival   time.Time
	LegDistanceKm      float64
	LegDurationMinutes float64
	Status             StopStatus
}

// Represents the planned collection route for one collector.
// Distance and duration cover every stop plus the final leg to the
// disposal site, when one was selected.
type Route struct {
	ID              string
	CollectorID     string
	Stops           []RouteStop
	DisposalSiteID  *string
	DistanceKm      float64
	DurationMinutes float64
	StartTime       time.Time
	DisposalArrival *time.Time
	EndTime         time.Time
	Status          RouteStatus
	Warnings        []string
	CreatedAt       time.Time
}

// StopIndex returns the position of the stop for requestID, or -1.
func (r *Route) StopIndex(requestID string) int {
	for i := range r.Stops {
		if r.Stops[i].RequestID == requestID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so stores can hand out values safely.
func (r *Route) Clone() *Route {
	if r == nil {
		return nil
	}
	c := *r
	c.Stops = append([]RouteStop(nil), r.Stops...)
	c.Warnings = append([]string(nil), r.Warnings...)
	if r.DisposalSiteID != nil {
		id := *r.DisposalSiteID
		c.DisposalSiteID = &id
	}
	if r.DisposalArrival != nil {
		t := *r.DisposalArrival
		c.DisposalArrival = &t
	}
	return &c
}

var routeTransitions = map[RouteStatus][]RouteStatus{
	RouteScheduled:  {RouteInProgress, RouteCancelled},
	RouteInProgress: {RouteCompleted, RouteCancelled},
}

func ParseRouteStatus(s string) (RouteStatus, bool) {
	switch st := RouteStatus(s); st {
	case RouteScheduled, RouteInProgress, RouteCompleted, RouteCancelled:
		return st, true
	}
	return "", false
}

// CanTransitionTo reports whether a route may move from s to next.
// Completed and cancelled routes are terminal.
func (s RouteStatus) CanTransitionTo(next RouteStatus) bool {
	for _, allowed := range routeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseStopStatus(s string) (StopStatus, bool) {
	switch st := StopStatus(s); st {
	case StopPending, StopCompleted, StopSkipped:
		return st, true
	}
	return "", false
}

// A stop is resolved once; only pending stops can change.
func (s StopStatus) CanTransitionTo(next StopStatus) bool {
	return s == StopPending && (next == StopCompleted || next == StopSkipped)
}
