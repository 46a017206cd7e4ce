package handler

import (
	"sojourn/internal/compliance"
	"sojourn/internal/compliance/service"
	"sojourn/internal/zone"
	id "sojourn/pkg/domain"
	dErrors "sojourn/pkg/domain-errors"
)

// StatusResponse is a person's status on one date.
type StatusResponse struct {
	PersonID id.PersonID `json:"person_id"`
	compliance.Status
}

// RiskScanResponse lists the non-SAFE days of a range.
type RiskScanResponse struct {
	PersonID id.PersonID         `json:"person_id"`
	From     id.Date             `json:"from"`
	To       id.Date             `json:"to"`
	Days     []compliance.Status `json:"days"`
	Count    int                 `json:"count"`
}

// NextRiskResponse reports the first non-SAFE day of a horizon, if any.
type NextRiskResponse struct {
	PersonID    id.PersonID        `json:"person_id"`
	From        id.Date            `json:"from"`
	HorizonDays int                `json:"horizon_days"`
	Found       bool               `json:"found"`
	Status      *compliance.Status `json:"status,omitempty"`
}

// MaxStayResponse is the longest compliant trip from an entry date.
type MaxStayResponse struct {
	PersonID id.PersonID `json:"person_id"`
	Entry    id.Date     `json:"entry"`
	MaxDays  int         `json:"max_days"`
	LastDay  *id.Date    `json:"last_day,omitempty"`
}

// ConflictResponse is the 409 body of a what-if that overlaps a stored trip.
type ConflictResponse struct {
	Error       string          `json:"error"`
	Description string          `json:"error_description"`
	Conflict    ConflictingTrip `json:"conflict"`
}

// ConflictingTrip is the stored trip a hypothetical collided with.
type ConflictingTrip struct {
	TripID    id.TripID `json:"trip_id"`
	ZoneCode  string    `json:"zone_code"`
	EntryDate id.Date   `json:"entry_date"`
	ExitDate  id.Date   `json:"exit_date"`
}

// DashboardRow is one person on the dashboard. Error is set instead of the
// status when that person could not be evaluated.
type DashboardRow struct {
	PersonID id.PersonID        `json:"person_id"`
	Status   *compliance.Status `json:"status,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// DashboardResponse is the status of every tracked person.
type DashboardResponse struct {
	ReferenceDate id.Date                     `json:"reference_date"`
	Persons       []DashboardRow              `json:"persons"`
	Tiers         map[compliance.RiskTier]int `json:"tiers"`
	Violations    int                         `json:"violations"`
	Failures      int                         `json:"failures"`
}

// ZoneListResponse is the zone reference table.
type ZoneListResponse struct {
	Zones         []zone.Zone `json:"zones"`
	UnknownPolicy string      `json:"unknown_policy"`
}

func fromDashboard(d *service.Dashboard) DashboardResponse {
	rows := make([]DashboardRow, 0, len(d.Persons))
	for _, p := range d.Persons {
		row := DashboardRow{PersonID: p.PersonID, Status: p.Status}
		if p.Err != nil {
			// Internal causes stay in the logs.
			row.Error = string(dErrors.CodeOf(p.Err))
		}
		rows = append(rows, row)
	}
	return DashboardResponse{
		ReferenceDate: d.ReferenceDate,
		Persons:       rows,
		Tiers:         d.Tiers,
		Violations:    d.Violations,
		Failures:      d.Failures,
	}
}

func fromConflict(c *compliance.ConflictError) ConflictResponse {
	return ConflictResponse{
		Error:       string(dErrors.CodeConflict),
		Description: "hypothetical trip overlaps an existing trip",
		Conflict: ConflictingTrip{
			TripID:    c.Existing.ID,
			ZoneCode:  c.Existing.ZoneCode,
			EntryDate: c.Existing.Entry,
			ExitDate:  c.Existing.Exit,
		},
	}
}
