package services

import (
	"time"
	"waste-route-service/internal/domain"
)

type BuildOptions struct {
	CollectorID string
	DepartAt    time.Time
	// Time spent loading at each pickup before driving on.
	ServiceMinutesPerStop float64
	// Time spent unloading at the disposal site.
	DisposalMinutes float64
}

// BuildRoute turns an optimization into a schedulable Route: stops are
// numbered from 1 and stamped with estimated arrivals. The route has no ID yet.
func (o Optimizer) BuildRoute(
	opt Optimization,
	startLocation domain.Coordinates,
	opts BuildOptions,
) *domain.Route {
	route := &domain.Route{
		CollectorID:     opts.CollectorID,
		Stops:           make([]domain.RouteStop, 0, len(opt.OrderedRoute)),
		DistanceKm:      opt.TotalDistanceKm,
		DurationMinutes: opt.TotalDurationMinutes,
		StartTime:       opts.DepartAt,
		EndTime:         opts.DepartAt,
		Status:          domain.RouteScheduled,
		Warnings:        []string{},
	}

	if len(opt.OrderedRoute) == 0 {
		return route
	}

	cursor := opts.DepartAt
	prev := startLocation
	for i, r := range opt.OrderedRoute {
		leg := Distance(prev, r.Location)
		legMinutes := EstimatedDuration(leg, o.AverageSpeedKmh)
		cursor = cursor.Add(minutes(legMinutes))

		route.Stops = append(route.Stops, domain.RouteStop{
			RequestID:          r.ID,
			Order:              i + 1,
			EstimatedArrival:   cursor,
			LegDistanceKm:      leg,
			LegDurationMinutes: legMinutes,
			Status:             domain.StopPending,
		})

		cursor = cursor.Add(minutes(opts.ServiceMinutesPerStop))
		prev = r.Location
	}

	if opt.DisposalSite != nil {
		id := opt.DisposalSite.ID
		route.DisposalSiteID = &id

		leg := Distance(prev, opt.DisposalSite.Location)
		arrival := cursor.Add(minutes(EstimatedDuration(leg, o.AverageSpeedKmh)))
		route.DisposalArrival = &arrival
		cursor = arrival.Add(minutes(opts.DisposalMinutes))
	}

	route.EndTime = cursor
	return route
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
