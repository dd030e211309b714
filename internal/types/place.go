package types

import "github.com/google/uuid"

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Place is a concrete candidate returned by the place lookup client.
// Once resolved into a slot it is copied by value and never mutated.
type Place struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Coordinate Coordinate `json:"coordinate"`
	Address    string     `json:"address"`
	Rating     float64    `json:"rating"`
	Summary    string     `json:"summary,omitempty"`
}
