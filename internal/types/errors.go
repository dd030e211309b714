package types

import "errors"

// Error taxonomy of the planning engine. The first four are usage errors
// and are surfaced immediately; ErrNoPlaceAvailable is a data-availability
// error raised after the two-stage search fallback is exhausted.
var (
	ErrInvalidTripLength      = errors.New("invalid trip length")
	ErrInvalidOrdering        = errors.New("invalid slot ordering")
	ErrSlotNotFound           = errors.New("slot not found")
	ErrIllegalStateTransition = errors.New("illegal state transition")
	ErrNoPlaceAvailable       = errors.New("no place available")
	ErrSessionNotFound        = errors.New("planning session not found")
)
