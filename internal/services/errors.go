package services

import "errors"

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrRequestNotFound   = errors.New("pickup request not found")
	ErrTooManyRequests   = errors.New("too many pickup requests for one route")
	ErrRouteNotFound     = errors.New("route not found")
	ErrStopNotFound      = errors.New("stop not found in route")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSiteNotFound      = errors.New("disposal site not found")
)

// Route warnings surfaced to callers; they never change the computed route.
const (
	WarnNoCompatibleSite    = "no_compatible_disposal_site"
	WarnSiteClosedAtArrival = "disposal_site_closed_at_arrival"
)
