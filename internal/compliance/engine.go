// Package compliance implements the 90/180 rolling-window rule: how many
// days of a 180-day lookback a person spent in the regulated zone, how many
// remain, and how risky their position is.
//
// Everything here is pure domain logic - no I/O, no clock, no shared state.
// Callers pass an immutable snapshot of a person's intervals and an explicit
// reference date on every call.
package compliance

import (
	id "sojourn/pkg/domain"
)

// RiskTier classifies a status by the days still available in the window.
type RiskTier string

const (
	TierSafe    RiskTier = "SAFE"
	TierCaution RiskTier = "CAUTION"
	TierAtRisk  RiskTier = "AT_RISK"
)

const (
	safeRemainingFloor    = 30
	cautionRemainingFloor = 10
)

// Status is the derived compliance position of one person on one date.
// It is never the source of truth and must be recomputed whenever the
// person's intervals or the reference date change.
type Status struct {
	ReferenceDate id.Date  `json:"reference_date"`
	WindowStart   id.Date  `json:"window_start"`
	WindowEnd     id.Date  `json:"window_end"`
	DaysUsed      int      `json:"days_used"`
	DaysRemaining int      `json:"days_remaining"`
	RiskTier      RiskTier `json:"risk_tier"`
	IsViolation   bool     `json:"is_violation"`
}

// Evaluate computes the status of a person at ref from their intervals.
//
// Errors: ErrInvalidInterval when an interval has entry after exit, a date
// precedes domain.MinDate, or ref precedes domain.MinDate.
func Evaluate(intervals []Interval, ref id.Date) (Status, error) {
	used, err := Occupancy(intervals, ref)
	if err != nil {
		return Status{}, err
	}
	return newStatus(ref, used), nil
}

// Classify maps a days-used count to a risk tier.
// Tier rules:
//  1. more than MaxDays used (violation) -> AT_RISK
//  2. fewer than 10 days remaining     -> AT_RISK
//  3. fewer than 30 days remaining     -> CAUTION
//  4. otherwise                        -> SAFE
func Classify(daysUsed int) RiskTier {
	remaining := remainingDays(daysUsed)
	switch {
	case daysUsed > MaxDays, remaining < cautionRemainingFloor:
		return TierAtRisk
	case remaining < safeRemainingFloor:
		return TierCaution
	default:
		return TierSafe
	}
}

func remainingDays(daysUsed int) int {
	return max(0, MaxDays-daysUsed)
}

func newStatus(ref id.Date, daysUsed int) Status {
	return Status{
		ReferenceDate: ref,
		WindowStart:   WindowStart(ref),
		WindowEnd:     ref,
		DaysUsed:      daysUsed,
		DaysRemaining: remainingDays(daysUsed),
		RiskTier:      Classify(daysUsed),
		IsViolation:   daysUsed > MaxDays,
	}
}
