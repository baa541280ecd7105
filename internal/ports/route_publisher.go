package ports

import (
	"context"
	"time"
)

const (
	EventRoutePlanned       = "route.planned"
	EventRouteStatusChanged = "route.status_changed"
	EventStopStatusChanged  = "route.stop_status_changed"
)

// Notification emitted after a route is persisted or changes state.
type RouteEvent struct {
	Type        string    `json:"type"`
	RouteID     string    `json:"route_id"`
	CollectorID string    `json:"collector_id"`
	Status      string    `json:"status"`
	RequestID   string    `json:"request_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Contract for fanning route events out to other services.
type RoutePublisher interface {
	Publish(ctx context.Context, evt RouteEvent) error
}
