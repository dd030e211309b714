package planner

import (
	"fmt"
	"time"

	"github.com/ssongk/daytrip/internal/types"
)

// DefaultDayOpeningStart is the suggested start time carried by day-opening
// attraction slots, as an offset from midnight.
const DefaultDayOpeningStart = 10 * time.Hour

// SlotTemplateGenerator produces the fixed slot template for a trip.
// Generation is a pure function of the day count.
type SlotTemplateGenerator struct {
	// DayOpeningStart overrides the start-time hint on day-opening
	// attraction slots. Zero means DefaultDayOpeningStart.
	DayOpeningStart time.Duration
}

// Generate returns the ordered slot specs for a trip of dayCount days,
// grouped per day:
//
//	day 1:        lunch, cafe, attraction, dinner
//	days 2..N-1:  attraction (day-start), lunch, cafe, attraction, dinner
//	day N:        attraction
//
// A single-day trip uses the day-1 shape. Fails with ErrInvalidTripLength
// when dayCount < 1.
func (g SlotTemplateGenerator) Generate(dayCount int) ([][]types.SlotSpec, error) {
	if dayCount < 1 {
		return nil, fmt.Errorf("generate slot template: day count %d: %w", dayCount, types.ErrInvalidTripLength)
	}

	opening := g.DayOpeningStart
	if opening == 0 {
		opening = DefaultDayOpeningStart
	}

	days := make([][]types.SlotSpec, dayCount)
	for day := 1; day <= dayCount; day++ {
		var kinds []types.SlotKind
		switch {
		case day == 1:
			kinds = []types.SlotKind{
				types.SlotRestaurantLunch,
				types.SlotCafe,
				types.SlotAttraction,
				types.SlotRestaurantDinner,
			}
		case day == dayCount:
			kinds = []types.SlotKind{types.SlotAttraction}
		default:
			kinds = []types.SlotKind{
				types.SlotAttraction,
				types.SlotRestaurantLunch,
				types.SlotCafe,
				types.SlotAttraction,
				types.SlotRestaurantDinner,
			}
		}

		specs := make([]types.SlotSpec, len(kinds))
		for pos, kind := range kinds {
			specs[pos] = types.SlotSpec{Day: day, Kind: kind, Position: pos}
		}
		// The slot that opens a day (middle-day and last-day attractions)
		// carries a fixed start hint instead of a computed arrival.
		if day > 1 {
			hint := opening
			specs[0].StartHint = &hint
		}
		days[day-1] = specs
	}
	return days, nil
}
