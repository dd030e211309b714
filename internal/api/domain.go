package api

import "time"

// HealthResponse is the payload of the liveness endpoint.
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Version   string    `json:"version,omitempty" example:"0.3.1"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse is the generic acknowledgement body for operations that
// return no domain payload.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
