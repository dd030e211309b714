package planner

import (
	"github.com/ssongk/daytrip/internal/types"
)

// OrderByNearestNeighbor permutes slots by greedy nearest-neighbor
// chaining from the anchor: repeatedly pick the unvisited place closest to
// the current position and advance to it. Ties are broken by input order,
// so the result is deterministic and re-running on its own output yields
// the same sequence.
//
// This is a heuristic, not an optimal tour; O(n²) is fine at n ≤ 5 places
// per day. Slots without a resolved place keep their relative order at the
// end of the day.
func OrderByNearestNeighbor(slots []types.ItinerarySlot, anchor types.Coordinate) []types.ItinerarySlot {
	resolved := make([]types.ItinerarySlot, 0, len(slots))
	pending := make([]types.ItinerarySlot, 0)
	for _, s := range slots {
		if s.Place != nil {
			resolved = append(resolved, s)
		} else {
			pending = append(pending, s)
		}
	}

	ordered := make([]types.ItinerarySlot, 0, len(slots))
	current := anchor
	for len(resolved) > 0 {
		best := 0
		bestDist := HaversineMeters(current, resolved[0].Place.Coordinate)
		for i := 1; i < len(resolved); i++ {
			if d := HaversineMeters(current, resolved[i].Place.Coordinate); d < bestDist {
				best = i
				bestDist = d
			}
		}
		next := resolved[best]
		ordered = append(ordered, next)
		current = next.Place.Coordinate
		resolved = append(resolved[:best], resolved[best+1:]...)
	}
	return append(ordered, pending...)
}

// orderDay orders a day's slots for visiting. A day-opening slot (one with
// a start hint) is pinned first and becomes the chain anchor; otherwise
// chaining starts from the day anchor.
func orderDay(slots []types.ItinerarySlot, anchor types.Coordinate) []types.ItinerarySlot {
	for i, s := range slots {
		if s.Spec.StartHint == nil || s.Place == nil {
			continue
		}
		rest := make([]types.ItinerarySlot, 0, len(slots)-1)
		rest = append(rest, slots[:i]...)
		rest = append(rest, slots[i+1:]...)
		ordered := OrderByNearestNeighbor(rest, s.Place.Coordinate)
		return append([]types.ItinerarySlot{s}, ordered...)
	}
	return OrderByNearestNeighbor(slots, anchor)
}
