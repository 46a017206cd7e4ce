package compliance

import (
	"fmt"
	"sort"

	id "sojourn/pkg/domain"
)

const (
	// WindowDays is the length of the rolling lookback window, reference date included.
	WindowDays = 180
	// MaxDays is the number of counting days allowed inside one window.
	MaxDays = 90

	// maxTimelineDays caps a single sweep so API input cannot force huge allocations.
	maxTimelineDays = 100 * 366
)

// WindowStart returns the first day of the window ending on ref.
func WindowStart(ref id.Date) id.Date {
	return ref.AddDays(-(WindowDays - 1))
}

// Occupancy returns the number of distinct counting days inside
// [ref-179, ref]. Intervals are clipped to the window and merged as a union,
// so overlapping input never double counts a day.
func Occupancy(intervals []Interval, ref id.Date) (int, error) {
	if err := validateReference(ref); err != nil {
		return 0, err
	}
	if err := validateAll(intervals); err != nil {
		return 0, err
	}
	return occupancy(intervals, ref), nil
}

func occupancy(intervals []Interval, ref id.Date) int {
	lo, hi := WindowStart(ref), ref

	type span struct{ start, end id.Date }
	clipped := make([]span, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.CountsTowardLimit {
			continue
		}
		s, e := max(iv.Entry, lo), min(iv.Exit, hi)
		if s > e {
			continue
		}
		clipped = append(clipped, span{s, e})
	}
	if len(clipped) == 0 {
		return 0
	}
	sort.Slice(clipped, func(i, j int) bool { return clipped[i].start < clipped[j].start })

	total := 0
	cur := clipped[0]
	for _, sp := range clipped[1:] {
		if sp.start <= cur.end+1 {
			cur.end = max(cur.end, sp.end)
			continue
		}
		total += cur.end.DaysSince(cur.start) + 1
		cur = sp
	}
	total += cur.end.DaysSince(cur.start) + 1
	return total
}

// Timeline answers occupancy for every reference date in [From, To] in O(1)
// after an O(N + M) build, where M is the length of the range plus one window.
//
// The build lays +1/-1 deltas at each counting interval's entry and exit+1,
// turns the running count into a per-day occupied flag (count > 0, so overlap
// never double counts) and keeps a prefix sum of those flags. The 180-day
// sliding sum is then the difference of two prefix entries.
type Timeline struct {
	from, to id.Date
	base     id.Date
	prefix   []int32
}

// NewTimeline builds the sweep structure for reference dates in [from, to].
func NewTimeline(intervals []Interval, from, to id.Date) (*Timeline, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	if err := validateAll(intervals); err != nil {
		return nil, err
	}

	base := WindowStart(from)
	span := to.DaysSince(base) + 1

	delta := make([]int32, span+1)
	for _, iv := range intervals {
		if !iv.CountsTowardLimit {
			continue
		}
		s, e := max(iv.Entry, base), min(iv.Exit, to)
		if s > e {
			continue
		}
		delta[s.DaysSince(base)]++
		delta[e.DaysSince(base)+1]--
	}

	prefix := make([]int32, span+1)
	var running int32
	for i := 0; i < span; i++ {
		running += delta[i]
		prefix[i+1] = prefix[i]
		if running > 0 {
			prefix[i+1]++
		}
	}

	return &Timeline{from: from, to: to, base: base, prefix: prefix}, nil
}

// From returns the first reference date the timeline answers for.
func (t *Timeline) From() id.Date { return t.from }

// To returns the last reference date the timeline answers for.
func (t *Timeline) To() id.Date { return t.to }

// Covers reports whether d is inside [From, To].
func (t *Timeline) Covers(d id.Date) bool {
	return !d.Before(t.from) && !d.After(t.to)
}

// DaysUsed returns the occupancy of the window ending on d.
// d must be inside [From, To]; callers outside that range get a panic.
func (t *Timeline) DaysUsed(d id.Date) int {
	if !t.Covers(d) {
		panic(fmt.Sprintf("compliance: timeline for %s..%s asked about %s", t.from, t.to, d))
	}
	end := d.DaysSince(t.base) + 1
	return int(t.prefix[end] - t.prefix[end-WindowDays])
}

// Status returns the classified status for reference date d.
func (t *Timeline) Status(d id.Date) Status {
	return newStatus(d, t.DaysUsed(d))
}

func validateReference(ref id.Date) error {
	if ref.Before(id.MinDate) {
		return &InvalidIntervalError{
			Interval: Interval{Entry: ref, Exit: ref},
			Reason:   "reference date precedes " + id.MinDate.String(),
		}
	}
	return nil
}

func validateRange(from, to id.Date) error {
	if err := validateReference(from); err != nil {
		return err
	}
	if to.Before(from) {
		return &InvalidIntervalError{
			Interval: Interval{Entry: from, Exit: to},
			Reason:   "range end is before range start",
		}
	}
	if to.DaysSince(from) >= maxTimelineDays {
		return &InvalidIntervalError{
			Interval: Interval{Entry: from, Exit: to},
			Reason:   "range is too long",
		}
	}
	return nil
}
