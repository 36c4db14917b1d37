package sim

import "errors"

// Buffer-level errors. The engine never issues a call that should trigger
// these, so seeing one means the run is broken and must stop.
var (
	ErrBufferFull   = errors.New("buffer full")
	ErrBufferEmpty  = errors.New("buffer empty")
	ErrKindMismatch = errors.New("component kind mismatch")
)

// Engine-level errors.
var (
	// ErrUnknownID is returned when an event or topology references an
	// inspector or workstation that does not exist.
	ErrUnknownID = errors.New("unknown id")
	// ErrInvalidEventTime is returned by ScheduleEvent for NaN, negative or past times.
	ErrInvalidEventTime = errors.New("invalid event time")
	// ErrInvalidTopology wraps every topology validation failure.
	ErrInvalidTopology = errors.New("invalid topology")
)
