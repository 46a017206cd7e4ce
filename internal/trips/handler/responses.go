package handler

import (
	"sojourn/internal/compliance"
	"sojourn/internal/trips/models"
	id "sojourn/pkg/domain"
)

// TripListResponse is returned by GET /persons/{personID}/trips.
type TripListResponse struct {
	PersonID id.PersonID    `json:"person_id"`
	Trips    []*models.Trip `json:"trips"`
	Count    int            `json:"count"`
}

// IntervalResponse is the wire form of one engine interval.
type IntervalResponse struct {
	TripID            id.TripID `json:"trip_id"`
	ZoneCode          string    `json:"zone_code"`
	EntryDate         id.Date   `json:"entry_date"`
	ExitDate          id.Date   `json:"exit_date"`
	CountsTowardLimit bool      `json:"counts_toward_limit"`
}

// ConflictResponse is the 409 body: the error plus the existing trip the
// candidate collides with, so a form can point at it.
type ConflictResponse struct {
	Error       string           `json:"error"`
	Description string           `json:"error_description"`
	Conflict    IntervalResponse `json:"conflict"`
}

// ConflictPair is one overlapping pair found by a full re-validation.
type ConflictPair struct {
	First  IntervalResponse `json:"first"`
	Second IntervalResponse `json:"second"`
}

// ConflictsResponse is returned by GET /persons/{personID}/trips/conflicts.
type ConflictsResponse struct {
	PersonID  id.PersonID    `json:"person_id"`
	Valid     bool           `json:"valid"`
	Conflicts []ConflictPair `json:"conflicts"`
}

func fromInterval(iv compliance.Interval) IntervalResponse {
	return IntervalResponse{
		TripID:            iv.ID,
		ZoneCode:          iv.ZoneCode,
		EntryDate:         iv.Entry,
		ExitDate:          iv.Exit,
		CountsTowardLimit: iv.CountsTowardLimit,
	}
}

func fromConflicts(personID id.PersonID, conflicts []compliance.Conflict) ConflictsResponse {
	pairs := make([]ConflictPair, 0, len(conflicts))
	for _, c := range conflicts {
		pairs = append(pairs, ConflictPair{First: fromInterval(c.First), Second: fromInterval(c.Second)})
	}
	return ConflictsResponse{PersonID: personID, Valid: len(pairs) == 0, Conflicts: pairs}
}
