package types

import "time"

// ItinerarySlot binds one SlotSpec to a resolved place plus computed
// timing. Place is nil while the slot is pending.
type ItinerarySlot struct {
	Spec       SlotSpec      `json:"spec"`
	Place      *Place        `json:"place,omitempty"`
	ArriveAt   time.Time     `json:"arrive_at"`
	DepartAt   time.Time     `json:"depart_at"`
	TravelTime time.Duration `json:"travel_time"`
}

// Itinerary is the full multi-day schedule. Days[d] holds day d+1's slots
// in visit order after route optimization.
type Itinerary struct {
	Days [][]ItinerarySlot `json:"days"`
}

// Clone deep-copies the itinerary so edits can be staged and committed
// only on success.
func (it Itinerary) Clone() Itinerary {
	out := Itinerary{Days: make([][]ItinerarySlot, len(it.Days))}
	for d, day := range it.Days {
		out.Days[d] = make([]ItinerarySlot, len(day))
		for i, slot := range day {
			out.Days[d][i] = slot
			if slot.Place != nil {
				p := *slot.Place
				out.Days[d][i].Place = &p
			}
		}
	}
	return out
}

// UsedPlaceIDs returns the ids of every resolved place, keyed for O(1)
// exclusion checks. Slots in skip are left out.
func (it Itinerary) UsedPlaceIDs(skip ...SlotRef) map[string]struct{} {
	skipSet := make(map[SlotRef]struct{}, len(skip))
	for _, ref := range skip {
		skipSet[ref] = struct{}{}
	}
	used := make(map[string]struct{})
	for d, day := range it.Days {
		for i, slot := range day {
			if slot.Place == nil {
				continue
			}
			if _, ok := skipSet[SlotRef{Day: d + 1, Position: i}]; ok {
				continue
			}
			used[slot.Place.ID.String()] = struct{}{}
		}
	}
	return used
}

// LastPlaceOfDay returns the final resolved place of day (1-based), or nil
// when the day has no resolved slots. Used to seed the next day's anchor.
func (it Itinerary) LastPlaceOfDay(day int) *Place {
	if day < 1 || day > len(it.Days) {
		return nil
	}
	slots := it.Days[day-1]
	for i := len(slots) - 1; i >= 0; i-- {
		if slots[i].Place != nil {
			return slots[i].Place
		}
	}
	return nil
}
