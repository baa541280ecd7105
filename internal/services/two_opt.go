package services

import "waste-route-service/internal/domain"

// Smallest gain (in km) that counts as an improvement; guards against
// float noise cycling between equivalent orders.
const minImprovementKm = 1e-6

// ImproveOrder2Opt shortens an open path starting at start by reversing
// segments while that reduces its length. The start point stays fixed and the
// path end is free. At most maxPasses full sweeps are made.
// The result is always a permutation of route; route itself is not modified.
func ImproveOrder2Opt(start domain.Coordinates, route []*domain.PickupRequest, maxPasses int) []*domain.PickupRequest {
	best := append([]*domain.PickupRequest(nil), route...)
	n := len(best)
	if n < 2 {
		return best
	}
	if maxPasses <= 0 {
		maxPasses = 1
	}

	bestDist := pathDistance(start, best)
	for pass := 0; pass < maxPasses; pass++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				candidate := twoOptSwap(best, i, k)
				d := pathDistance(start, candidate)
				if d+minImprovementKm < bestDist {
					best = candidate
					bestDist = d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(order []*domain.PickupRequest, i, k int) []*domain.PickupRequest {
	out := make([]*domain.PickupRequest, len(order))
	copy(out, order[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = order[j]
		pos++
	}
	copy(out[pos:], order[k+1:])
	return out
}

func pathDistance(start domain.Coordinates, order []*domain.PickupRequest) float64 {
	total := 0.0
	prev := start
	for _, r := range order {
		total += Distance(prev, r.Location)
		prev = r.Location
	}
	return total
}

// Refine applies 2-opt to an existing optimization and re-selects the
// disposal site from the new last stop. Totals are recomputed.
func (o Optimizer) Refine(
	opt Optimization,
	startLocation domain.Coordinates,
	disposalSites []*domain.DisposalSite,
	maxPasses int,
) Optimization {
	if len(opt.OrderedRoute) < 2 {
		return opt
	}

	ordered := ImproveOrder2Opt(startLocation, opt.OrderedRoute, maxPasses)

	out := Optimization{OrderedRoute: ordered}
	prev := startLocation
	wasteTypes := make([]domain.WasteTypes, 0, len(ordered))
	for _, r := range ordered {
		d := Distance(prev, r.Location)
		out.TotalDistanceKm += d
		out.TotalDurationMinutes += EstimatedDuration(d, o.AverageSpeedKmh)
		wasteTypes = append(wasteTypes, r.WasteTypes)
		prev = r.Location
	}

	out.DisposalSite = FindBestDisposalSite(domain.UnionWasteTypes(wasteTypes...), disposalSites, prev)
	if out.DisposalSite != nil {
		d := Distance(prev, out.DisposalSite.Location)
		out.TotalDistanceKm += d
		out.TotalDurationMinutes += EstimatedDuration(d, o.AverageSpeedKmh)
	}

	return out
}
