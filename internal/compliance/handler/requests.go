package handler

import (
	"net/http"
	"strconv"
	"strings"

	"sojourn/internal/compliance/service"
	id "sojourn/pkg/domain"
	dErrors "sojourn/pkg/domain-errors"
)

const (
	defaultHorizonDays = 180
	maxHorizonDays     = 3660
)

// WhatIfRequest is the HTTP body for POST /persons/{personID}/what-if.
type WhatIfRequest struct {
	TripID        string `json:"trip_id,omitempty"`
	ZoneCode      string `json:"zone_code"`
	EntryDate     string `json:"entry_date"`
	ExitDate      string `json:"exit_date"`
	ReferenceDate string `json:"reference_date,omitempty"`

	// Parsed values (populated by Validate)
	tripID id.TripID
	entry  id.Date
	exit   id.Date
	ref    id.Date
	hasRef bool
}

// Normalize trims every field.
func (r *WhatIfRequest) Normalize() {
	r.TripID = strings.TrimSpace(r.TripID)
	r.ZoneCode = strings.TrimSpace(r.ZoneCode)
	r.EntryDate = strings.TrimSpace(r.EntryDate)
	r.ExitDate = strings.TrimSpace(r.ExitDate)
	r.ReferenceDate = strings.TrimSpace(r.ReferenceDate)
}

// Validate validates and parses the request.
func (r *WhatIfRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
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
	if r.TripID != "" {
		tripID, err := id.ParseTripID(r.TripID)
		if err != nil {
			return err
		}
		r.tripID = tripID
	}
	if r.ReferenceDate != "" {
		ref, err := id.ParseDate(r.ReferenceDate)
		if err != nil {
			return err
		}
		r.ref, r.hasRef = ref, true
	}

	r.entry, r.exit = entry, exit
	return nil
}

// Hypothetical converts the validated request into service input.
func (r *WhatIfRequest) Hypothetical() service.Hypothetical {
	return service.Hypothetical{
		TripID:   r.tripID,
		ZoneCode: r.ZoneCode,
		Entry:    r.entry,
		Exit:     r.exit,
	}
}

// Reference returns the requested reference date, or the exit date of the
// hypothetical trip when none was given.
func (r *WhatIfRequest) Reference() id.Date {
	if r.hasRef {
		return r.ref
	}
	return r.exit
}

// dateQuery parses a YYYY-MM-DD query parameter, returning fallback when absent.
func dateQuery(r *http.Request, name string, fallback id.Date) (id.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	d, err := id.ParseDate(raw)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, name+": "+err.Error())
	}
	return d, nil
}

// requiredDateQuery is dateQuery for parameters without a default.
func requiredDateQuery(r *http.Request, name string) (id.Date, error) {
	if strings.TrimSpace(r.URL.Query().Get(name)) == "" {
		return 0, dErrors.New(dErrors.CodeValidation, name+" is required")
	}
	return dateQuery(r, name, 0)
}

func horizonQuery(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("horizon_days"))
	if raw == "" {
		return defaultHorizonDays, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "horizon_days must be an integer")
	}
	if n < 1 || n > maxHorizonDays {
		return 0, dErrors.New(dErrors.CodeValidation, "horizon_days must be between 1 and "+strconv.Itoa(maxHorizonDays))
	}
	return n, nil
}
