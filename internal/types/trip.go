package types

import "time"

// TravelMode selects the speed model used for travel-time estimates.
type TravelMode string

const (
	TravelModeWalking TravelMode = "walking"
	TravelModeDriving TravelMode = "driving"
)

// SlotKind is the fixed category of an itinerary slot.
type SlotKind string

const (
	SlotRestaurantLunch  SlotKind = "restaurant-lunch"
	SlotRestaurantDinner SlotKind = "restaurant-dinner"
	SlotCafe             SlotKind = "cafe"
	SlotAttraction       SlotKind = "attraction"
)

// TripRequest is the immutable input to one planning session.
// Region is the administrative region resolved from Destination before
// planning starts; it is used verbatim as the search region filter.
type TripRequest struct {
	Destination string     `json:"destination"`
	Region      string     `json:"region"`
	Centroid    Coordinate `json:"centroid"`
	Days        int        `json:"days"`
	PartySize   int        `json:"party_size"`
	Preferences []string   `json:"preferences,omitempty"`
	TravelMode  TravelMode `json:"travel_mode"`
	StartDate   time.Time  `json:"start_date"`
}

// SlotSpec is one position of the per-trip slot template. StartHint, when
// set, is an offset from midnight consumed by the timeline calculator as
// the day's opening time instead of a computed arrival (day-start
// attraction slots on middle days).
type SlotSpec struct {
	Day       int            `json:"day"`
	Kind      SlotKind       `json:"kind"`
	Position  int            `json:"position"`
	StartHint *time.Duration `json:"start_hint,omitempty"`
}

// SlotRef addresses one slot of an itinerary for edit operations.
// Position indexes the day's slots in visit order.
type SlotRef struct {
	Day      int `json:"day"`
	Position int `json:"position"`
}
