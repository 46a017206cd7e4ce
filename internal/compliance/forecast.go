package compliance

import (
	id "sojourn/pkg/domain"
)

// WhatIf evaluates the status at ref as if hypothetical had already been
// recorded. The hypothetical interval is checked for overlaps first and a
// conflict is returned as *ConflictError rather than merged. A hypothetical
// carrying the ID of an existing interval stands in for it, which models an
// edit. existing is never modified.
func WhatIf(existing []Interval, hypothetical Interval, ref id.Date) (Status, error) {
	if err := CheckCandidate(existing, hypothetical); err != nil {
		return Status{}, err
	}
	combined := make([]Interval, 0, len(existing)+1)
	for _, iv := range existing {
		if !hypothetical.ID.IsNil() && iv.ID == hypothetical.ID {
			continue
		}
		combined = append(combined, iv)
	}
	combined = append(combined, hypothetical)
	return Evaluate(combined, ref)
}

// ScanForRisk walks every day of [start, end] as a reference date and returns
// the statuses that are not SAFE, in ascending date order. Past, present and
// future reference dates are treated identically, so trips scheduled ahead
// of today are part of the scan.
func ScanForRisk(existing []Interval, start, end id.Date) ([]Status, error) {
	tl, err := NewTimeline(existing, start, end)
	if err != nil {
		return nil, err
	}
	var risky []Status
	for d := start; !d.After(end); d = d.AddDays(1) {
		st := tl.Status(d)
		if st.RiskTier != TierSafe {
			risky = append(risky, st)
		}
	}
	return risky, nil
}

// NextAtRisk returns the first non-SAFE status in the horizonDays days
// starting at from. ok is false when every day in the horizon is SAFE.
func NextAtRisk(existing []Interval, from id.Date, horizonDays int) (status Status, ok bool, err error) {
	if horizonDays < 1 {
		return Status{}, false, &InvalidIntervalError{
			Interval: Interval{Entry: from, Exit: from},
			Reason:   "horizon must be at least one day",
		}
	}
	end := from.AddDays(horizonDays - 1)
	tl, err := NewTimeline(existing, from, end)
	if err != nil {
		return Status{}, false, err
	}
	for d := from; !d.After(end); d = d.AddDays(1) {
		if st := tl.Status(d); st.RiskTier != TierSafe {
			return st, true, nil
		}
	}
	return Status{}, false, nil
}

// MaxStay returns the longest trip, in days, that could start on entry in a
// counting zone without any day of the trip being a violation. The trip also
// stops short of the next existing interval; 0 means entry itself is already
// occupied or already at the limit.
//
// Only the days of the trip are checked; later existing trips may still be
// pushed into violation and should be checked with ScanForRisk.
func MaxStay(existing []Interval, entry id.Date) (int, error) {
	if err := validateReference(entry); err != nil {
		return 0, err
	}
	if err := validateAll(existing); err != nil {
		return 0, err
	}

	blocked := entry.AddDays(MaxDays)
	for _, iv := range existing {
		if iv.Contains(entry) {
			return 0, nil
		}
		if iv.Entry.After(entry) && iv.Entry.Before(blocked) {
			blocked = iv.Entry
		}
	}

	tl, err := NewTimeline(existing, entry, entry.AddDays(MaxDays-1))
	if err != nil {
		return 0, err
	}

	stay := 0
	for d := entry; d.Before(blocked); d = d.AddDays(1) {
		tripDays := d.DaysSince(entry) + 1
		if tl.DaysUsed(d)+tripDays > MaxDays {
			break
		}
		stay = tripDays
	}
	return stay, nil
}
