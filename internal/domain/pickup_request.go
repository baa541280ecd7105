package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestMatched    RequestStatus = "matched"
	RequestScheduled  RequestStatus = "scheduled"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
	RequestCancelled  RequestStatus = "cancelled"
)

// Represents a client's pickup request as seen by the routing core.
// Volume and Weight are carried through untouched; routing only reads
// Location and WasteTypes.
type PickupRequest struct {
	ID          string
	ClientID    string
	Status      RequestStatus
	WasteTypes  WasteTypes
	Volume      float64
	Weight      *float64
	Address     string
	Location    Coordinates
	Description string
	CreatedAt   time.Time
}

// Validate enforces the shape the optimizer relies on.
func (r *PickupRequest) Validate() error {
	if r == nil {
		return errors.New("pickup request is nil")
	}
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("pickup request: id must not be empty")
	}
	if len(r.WasteTypes) == 0 {
		return fmt.Errorf("pickup request %s: waste types must not be empty", r.ID)
	}
	if err := r.Location.Validate(); err != nil {
		return fmt.Errorf("pickup request %s: %w", r.ID, err)
	}
	return nil
}
