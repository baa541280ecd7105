package services

import "waste-route-service/internal/domain"

// Optimization is the one-shot result of ordering a batch of pickups.
// DisposalSite is nil when no site accepts the combined waste types; the
// totals then stop at the last pickup.
type Optimization struct {
	OrderedRoute         []*domain.PickupRequest
	TotalDistanceKm      float64
	TotalDurationMinutes float64
	DisposalSite         *domain.DisposalSite
}

// Optimizer holds the tunables of the nearest-neighbor planner.
// The zero value is not usable; see NewOptimizer.
type Optimizer struct {
	AverageSpeedKmh float64
}

// NewOptimizer treats a zero speed as DefaultAverageSpeedKmh. Callers taking
// speeds from outside check them with RouteOptions.Validate first.
func NewOptimizer(averageSpeedKmh float64) Optimizer {
	if averageSpeedKmh <= 0 {
		averageSpeedKmh = DefaultAverageSpeedKmh
	}
	return Optimizer{AverageSpeedKmh: averageSpeedKmh}
}

// OptimizeRoute orders requests with the default average speed.
func OptimizeRoute(
	requests []*domain.PickupRequest,
	startLocation domain.Coordinates,
	disposalSites []*domain.DisposalSite,
) Optimization {
	return NewOptimizer(DefaultAverageSpeedKmh).Optimize(requests, startLocation, disposalSites)
}

// Optimize builds a visiting order using a greedy nearest-neighbor walk,
// then appends the closest disposal site that accepts every waste type on board.
//
// The walk minimizes great-circle distance at each step; it does not attempt
// global optimization. Ties go to the candidate that comes first in input
// order, so the result is deterministic for a given input.
// Every request appears exactly once in OrderedRoute. Inputs are not mutated.
func (o Optimizer) Optimize(
	requests []*domain.PickupRequest,
	startLocation domain.Coordinates,
	disposalSites []*domain.DisposalSite,
) Optimization {
	if len(requests) == 0 {
		return Optimization{OrderedRoute: []*domain.PickupRequest{}}
	}

	unvisited := make([]*domain.PickupRequest, len(requests))
	copy(unvisited, requests)

	ordered := make([]*domain.PickupRequest, 0, len(requests))
	currentLocation := startLocation
	totalDistance := 0.0
	totalDuration := 0.0

	for len(unvisited) > 0 {
		nearestIdx := 0
		minDistance := Distance(currentLocation, unvisited[0].Location)

		// Strict comparison keeps the earliest candidate on ties.
		for i := 1; i < len(unvisited); i++ {
			d := Distance(currentLocation, unvisited[i].Location)
			if d < minDistance {
				minDistance = d
				nearestIdx = i
			}
		}

		next := unvisited[nearestIdx]
		ordered = append(ordered, next)
		unvisited = append(unvisited[:nearestIdx], unvisited[nearestIdx+1:]...)

		totalDistance += minDistance
		totalDuration += EstimatedDuration(minDistance, o.AverageSpeedKmh)
		currentLocation = next.Location
	}

	wasteTypes := make([]domain.WasteTypes, 0, len(ordered))
	for _, r := range ordered {
		wasteTypes = append(wasteTypes, r.WasteTypes)
	}
	union := domain.UnionWasteTypes(wasteTypes...)

	// Opening hours are deliberately not consulted here; callers check the
	// chosen site against the arrival time afterwards.
	site := FindBestDisposalSite(union, disposalSites, currentLocation)
	if site != nil {
		d := Distance(currentLocation, site.Location)
		totalDistance += d
		totalDuration += EstimatedDuration(d, o.AverageSpeedKmh)
	}

	return Optimization{
		OrderedRoute:         ordered,
		TotalDistanceKm:      totalDistance,
		TotalDurationMinutes: totalDuration,
		DisposalSite:         site,
	}
}
