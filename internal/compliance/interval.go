package compliance

import (
	"fmt"
	"sort"

	id "sojourn/pkg/domain"
)

// Source records how an interval entered the system. Informational only.
type Source string

const (
	SourceManual Source = "manual"
	SourceBulk   Source = "bulk"
	SourceImport Source = "import"
	SourceDrag   Source = "drag"
)

var validSources = map[Source]bool{
	SourceManual: true,
	SourceBulk:   true,
	SourceImport: true,
	SourceDrag:   true,
}

// ParseSource validates a provenance tag; empty defaults to manual.
func ParseSource(s string) (Source, error) {
	if s == "" {
		return SourceManual, nil
	}
	src := Source(s)
	if !validSources[src] {
		return "", fmt.Errorf("%w: unknown source %q", ErrInvalidInterval, s)
	}
	return src, nil
}

// Interval is one stay of a person in one zone. Entry and Exit are both
// inclusive, so an interval that enters and exits on the same day covers one day.
type Interval struct {
	ID                id.TripID
	PersonID          id.PersonID
	ZoneCode          string
	CountsTowardLimit bool
	Entry             id.Date
	Exit              id.Date
	Source            Source
}

// Days returns the inclusive length of the interval.
func (iv Interval) Days() int {
	return iv.Exit.DaysSince(iv.Entry) + 1
}

// Contains reports whether d falls inside the interval.
func (iv Interval) Contains(d id.Date) bool {
	return !d.Before(iv.Entry) && !d.After(iv.Exit)
}

// Overlaps reports whether the two inclusive ranges share at least one day.
// A shared boundary day counts as an overlap.
func (iv Interval) Overlaps(o Interval) bool {
	return !iv.Exit.Before(o.Entry) && !o.Exit.Before(iv.Entry)
}

// Validate checks the interval's own invariants.
func (iv Interval) Validate() error {
	if iv.Entry.Before(id.MinDate) || iv.Exit.Before(id.MinDate) {
		return &InvalidIntervalError{Interval: iv, Reason: "date precedes " + id.MinDate.String()}
	}
	if iv.Entry.After(iv.Exit) {
		return &InvalidIntervalError{Interval: iv, Reason: "entry date is after exit date"}
	}
	return nil
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s %s..%s", iv.ZoneCode, iv.Entry, iv.Exit)
}

func validateAll(intervals []Interval) error {
	for _, iv := range intervals {
		if err := iv.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// sortedCopy returns the intervals ordered by entry date, then exit date.
// The input slice is never reordered.
func sortedCopy(intervals []Interval) []Interval {
	out := make([]Interval, len(intervals))
	copy(out, intervals)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Entry != out[j].Entry {
			return out[i].Entry < out[j].Entry
		}
		return out[i].Exit < out[j].Exit
	})
	return out
}
