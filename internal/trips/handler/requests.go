package handler

import (
	"strings"

	"sojourn/internal/compliance"
	"sojourn/internal/trips/service"
	id "sojourn/pkg/domain"
	dErrors "sojourn/pkg/domain-errors"
)

// TripRequest is the HTTP body for POST /persons/{personID}/trips and
// PUT /persons/{personID}/trips/{tripID}.
type TripRequest struct {
	ZoneCode  string `json:"zone_code"`
	EntryDate string `json:"entry_date"`
	ExitDate  string `json:"exit_date"`
	Source    string `json:"source,omitempty"`
	Notes     string `json:"notes,omitempty"`

	// Parsed values (populated by Validate)
	entry  id.Date
	exit   id.Date
	source compliance.Source
}

// Normalize trims free-text fields.
func (r *TripRequest) Normalize() {
	r.ZoneCode = strings.TrimSpace(r.ZoneCode)
	r.EntryDate = strings.TrimSpace(r.EntryDate)
	r.ExitDate = strings.TrimSpace(r.ExitDate)
	r.Source = strings.TrimSpace(r.Source)
	r.Notes = strings.TrimSpace(r.Notes)
}

// Validate validates and parses the request.
func (r *TripRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if len(r.ZoneCode) > 8 {
		return dErrors.New(dErrors.CodeValidation, "zone_code must be at most 8 characters")
	}
	if len(r.Notes) > 500 {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 500 characters")
	}

	// Required fields
	if r.ZoneCode == "" {
		return dErrors.New(dErrors.CodeValidation, "zone_code is required")
	}
	if r.EntryDate == "" || r.ExitDate == "" {
		return dErrors.New(dErrors.CodeValidation, "entry_date and exit_date are required")
	}

	entry, err := id.ParseDate(r.EntryDate)
	if err != nil {
		return err
	}
	exit, err := id.ParseDate(r.ExitDate)
	if err != nil {
		return err
	}
	if exit.Before(entry) {
		return dErrors.New(dErrors.CodeValidation, "exit_date must not be before entry_date")
	}
	source, err := compliance.ParseSource(r.Source)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "source must be one of manual, bulk, import, drag")
	}

	r.entry, r.exit, r.source = entry, exit, source
	return nil
}

// ToInput converts the validated request into service input.
func (r *TripRequest) ToInput() service.TripInput {
	return service.TripInput{
		ZoneCode:  r.ZoneCode,
		EntryDate: r.entry,
		ExitDate:  r.exit,
		Source:    r.source,
		Notes:     r.Notes,
	}
}
