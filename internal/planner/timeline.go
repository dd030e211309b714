package planner

import (
	"fmt"
	"time"

	"github.com/ssongk/daytrip/internal/types"
)

// Default dwell durations per slot kind, following the review corpus the
// knowledge store was built from (meals 90m, cafes 60m, attractions 120m).
var defaultDwell = map[types.SlotKind]time.Duration{
	types.SlotRestaurantLunch:  90 * time.Minute,
	types.SlotRestaurantDinner: 90 * time.Minute,
	types.SlotCafe:             60 * time.Minute,
	types.SlotAttraction:       120 * time.Minute,
}

// Default straight-line speeds in km/h per travel mode.
var defaultSpeeds = map[types.TravelMode]float64{
	types.TravelModeWalking: 4.5,
	types.TravelModeDriving: 24,
}

// TimelineCalculator annotates an ordered day of slots with arrival and
// departure times. Travel time is estimated from geodesic distance and a
// per-mode speed; dwell time is a fixed duration per slot kind. The
// computation is pure and is re-run in full whenever any upstream place in
// the day changes.
type TimelineCalculator struct {
	speeds   map[types.TravelMode]float64
	dwell    map[types.SlotKind]time.Duration
	dayStart time.Duration
}

// NewTimelineCalculator builds a calculator; nil maps and a zero dayStart
// select the defaults (10:00 day start).
func NewTimelineCalculator(speeds map[types.TravelMode]float64, dwell map[types.SlotKind]time.Duration, dayStart time.Duration) *TimelineCalculator {
	if speeds == nil {
		speeds = defaultSpeeds
	}
	if dwell == nil {
		dwell = defaultDwell
	}
	if dayStart == 0 {
		dayStart = DefaultDayOpeningStart
	}
	return &TimelineCalculator{speeds: speeds, dwell: dwell, dayStart: dayStart}
}

// validDayShapes are the per-day slot-kind multisets the template can
// produce. A sequence outside these shapes is an InvalidOrdering.
func validDayShape(slots []types.ItinerarySlot) bool {
	counts := map[types.SlotKind]int{}
	for _, s := range slots {
		counts[s.Spec.Kind]++
	}
	switch len(slots) {
	case 1:
		return counts[types.SlotAttraction] == 1
	case 4:
		return counts[types.SlotRestaurantLunch] == 1 && counts[types.SlotCafe] == 1 &&
			counts[types.SlotAttraction] == 1 && counts[types.SlotRestaurantDinner] == 1
	case 5:
		return counts[types.SlotRestaurantLunch] == 1 && counts[types.SlotCafe] == 1 &&
			counts[types.SlotAttraction] == 2 && counts[types.SlotRestaurantDinner] == 1
	default:
		return false
	}
}

// ComputeDay timestamps one day's slots in visit order. The first slot
// starts at the day start time, or at its own start hint when it is a
// day-opening slot; each later slot arrives after the travel leg from the
// previous place and departs after its dwell time.
func (c *TimelineCalculator) ComputeDay(slots []types.ItinerarySlot, date time.Time, mode types.TravelMode) ([]types.ItinerarySlot, error) {
	if !validDayShape(slots) {
		return nil, fmt.Errorf("compute timeline: day of %d slots does not match the slot template: %w", len(slots), types.ErrInvalidOrdering)
	}
	for _, s := range slots {
		if s.Place == nil {
			return nil, fmt.Errorf("compute timeline: day %d position %d has no resolved place: %w", s.Spec.Day, s.Spec.Position, types.ErrInvalidOrdering)
		}
	}

	speed, ok := c.speeds[mode]
	if !ok || speed <= 0 {
		speed = c.speeds[types.TravelModeWalking]
	}

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	out := make([]types.ItinerarySlot, len(slots))
	var cursor time.Time
	for i, s := range slots {
		if i == 0 {
			start := midnight.Add(c.dayStart)
			if s.Spec.StartHint != nil {
				start = midnight.Add(*s.Spec.StartHint)
			}
			s.TravelTime = 0
			s.ArriveAt = start
		} else {
			prev := out[i-1]
			meters := HaversineMeters(prev.Place.Coordinate, s.Place.Coordinate)
			s.TravelTime = travelDuration(meters, speed)
			s.ArriveAt = cursor.Add(s.TravelTime)
		}
		dwell, ok := c.dwell[s.Spec.Kind]
		if !ok {
			dwell = 90 * time.Minute
		}
		s.DepartAt = s.ArriveAt.Add(dwell)
		cursor = s.DepartAt
		out[i] = s
	}
	return out, nil
}

func travelDuration(meters, speedKmh float64) time.Duration {
	seconds := meters / (speedKmh * 1000 / 3600)
	return time.Duration(seconds * float64(time.Second)).Round(time.Second)
}
