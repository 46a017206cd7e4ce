package compliance

// CheckCandidate validates a new or edited interval against a person's
// existing intervals. It returns nil when the candidate fits, or a
// *ConflictError naming the first existing interval (by entry date) that
// shares a calendar day with it.
//
// Zones do not matter: a person cannot be in two places on one day, so a
// shared boundary day is a conflict while back-to-back trips are not.
// Intervals of other persons and the candidate's own prior version (same ID)
// are ignored.
func CheckCandidate(existing []Interval, candidate Interval) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	if conflict, ok := findConflict(existing, candidate); ok {
		return &ConflictError{Candidate: candidate, Existing: conflict}
	}
	return nil
}

func findConflict(existing []Interval, candidate Interval) (Interval, bool) {
	for _, iv := range sortedCopy(existing) {
		if iv.PersonID != candidate.PersonID {
			continue
		}
		if !candidate.ID.IsNil() && iv.ID == candidate.ID {
			continue
		}
		if iv.Overlaps(candidate) {
			return iv, true
		}
	}
	return Interval{}, false
}

// Conflict is a pair of intervals of one person that share at least one day.
// First has the earlier (or equal) entry date.
type Conflict struct {
	First  Interval
	Second Interval
}

// FindConflicts re-validates a whole interval set and returns every
// overlapping pair of the same person, ordered by the first interval's entry.
// Write-time validation only checks the edited interval; this is the
// separate, exhaustive check.
func FindConflicts(intervals []Interval) []Conflict {
	sorted := sortedCopy(intervals)
	var conflicts []Conflict
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Entry.After(sorted[i].Exit) {
				break
			}
			if sorted[i].PersonID != sorted[j].PersonID {
				continue
			}
			conflicts = append(conflicts, Conflict{First: sorted[i], Second: sorted[j]})
		}
	}
	return conflicts
}
