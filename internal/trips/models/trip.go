package models

import (
	"strings"
	"time"

	"sojourn/internal/compliance"
	id "sojourn/pkg/domain"
	dErrors "sojourn/pkg/domain-errors"
)

const (
	maxZoneCodeLength = 8
	maxNotesLength    = 500
)

// Trip is the persisted record of one stay. The compliance engine never sees
// a Trip directly: it sees the Interval produced by ToInterval once the zone
// code has been resolved against the zone table.
//
// Invariants:
//   - ZoneCode is non-empty, upper-case and at most 8 characters
//   - EntryDate <= ExitDate, both inclusive, neither before domain.MinDate
//   - ID and CreatedAt never change; an edit replaces every other field
type Trip struct {
	ID        id.TripID         `json:"id"`
	PersonID  id.PersonID       `json:"person_id"`
	ZoneCode  string            `json:"zone_code"`
	EntryDate id.Date           `json:"entry_date"`
	ExitDate  id.Date           `json:"exit_date"`
	Source    compliance.Source `json:"source"`
	Notes     string            `json:"notes,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewTrip constructs a Trip and enforces its invariants.
func NewTrip(tripID id.TripID, personID id.PersonID, zoneCode string, entry, exit id.Date, source compliance.Source, notes string, now time.Time) (*Trip, error) {
	if personID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "person_id is required")
	}
	zoneCode = strings.ToUpper(strings.TrimSpace(zoneCode))
	if zoneCode == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "zone_code is required")
	}
	if len(zoneCode) > maxZoneCodeLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "zone_code must be at most 8 characters")
	}
	if len(notes) > maxNotesLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notes must be at most 500 characters")
	}
	if source == "" {
		source = compliance.SourceManual
	}
	t := &Trip{
		ID:        tripID,
		PersonID:  personID,
		ZoneCode:  zoneCode,
		EntryDate: entry,
		ExitDate:  exit,
		Source:    source,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.ToInterval(false).Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "invalid trip dates")
	}
	return t, nil
}

// ToInterval projects the trip onto the engine's input type.
func (t *Trip) ToInterval(countsTowardLimit bool) compliance.Interval {
	return compliance.Interval{
		ID:                t.ID,
		PersonID:          t.PersonID,
		ZoneCode:          t.ZoneCode,
		CountsTowardLimit: countsTowardLimit,
		Entry:             t.EntryDate,
		Exit:              t.ExitDate,
		Source:            t.Source,
	}
}

// Days returns the inclusive length of the trip.
func (t *Trip) Days() int {
	return t.ExitDate.DaysSince(t.EntryDate) + 1
}
