package compliance

import (
	id "sojourn/pkg/domain"
)

var testPerson = id.NewPersonID()

func d(s string) id.Date { return id.MustParseDate(s) }

func stay(entry, exit string) Interval {
	return Interval{
		ID:                id.NewTripID(),
		PersonID:          testPerson,
		ZoneCode:          "FR",
		CountsTowardLimit: true,
		Entry:             d(entry),
		Exit:              d(exit),
		Source:            SourceManual,
	}
}

func excluded(entry, exit string) Interval {
	iv := stay(entry, exit)
	iv.ZoneCode = "IE"
	iv.CountsTowardLimit = false
	return iv
}

// bruteForceDaysUsed is the reference oracle: check every day of the window
// against every interval.
func bruteForceDaysUsed(intervals []Interval, ref id.Date) int {
	used := 0
	for day := WindowStart(ref); !day.After(ref); day = day.AddDays(1) {
		for _, iv := range intervals {
			if iv.CountsTowardLimit && iv.Contains(day) {
				used++
				break
			}
		}
	}
	return used
}
