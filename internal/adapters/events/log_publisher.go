package events

import (
	"context"
	"log"
	"sync"
	"waste-route-service/internal/ports"
)

// LogPublisher writes events to the process log. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, evt ports.RouteEvent) error {
	log.Printf("event=%s route_id=%s collector_id=%s status=%s request_id=%s",
		evt.Type, evt.RouteID, evt.CollectorID, evt.Status, evt.RequestID)
	return nil
}

// Recorder keeps published events in memory; handy for tests and local runs.
type Recorder struct {
	mu     sync.Mutex
	events []ports.RouteEvent
}

func (r *Recorder) Publish(_ context.Context, evt ports.RouteEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Events() []ports.RouteEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.RouteEvent(nil), r.events...)
}
