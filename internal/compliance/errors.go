package compliance

import (
	"errors"
	"fmt"
)

// Error kinds exposed by the engine. All of them are recoverable at the call
// boundary; callers match with errors.Is.
var (
	ErrInvalidInterval     = errors.New("invalid interval")
	ErrConflictingInterval = errors.New("conflicting interval")
	ErrUnknownZone         = errors.New("unknown zone")
)

// InvalidIntervalError describes why an interval or date range was rejected.
type InvalidIntervalError struct {
	Interval Interval
	Reason   string
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval %s: %s", e.Interval, e.Reason)
}

func (e *InvalidIntervalError) Unwrap() error { return ErrInvalidInterval }

// ConflictError is returned when a candidate shares a calendar day with an
// existing interval of the same person. Existing is the first such interval
// in entry-date order.
type ConflictError struct {
	Candidate Interval
	Existing  Interval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("interval %s overlaps existing interval %s", e.Candidate, e.Existing)
}

func (e *ConflictError) Unwrap() error { return ErrConflictingInterval }
