package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"sojourn/internal/compliance"
	id "sojourn/pkg/domain"
)

// Alert warns that a person's position turns non-SAFE within the scan horizon.
type Alert struct {
	ID            uuid.UUID           `json:"id"`
	PersonID      id.PersonID         `json:"person_id"`
	ScannedOn     id.Date             `json:"scanned_on"`
	HorizonDays   int                 `json:"horizon_days"`
	AtRiskOn      id.Date             `json:"at_risk_on"`
	RiskTier      compliance.RiskTier `json:"risk_tier"`
	DaysUsed      int                 `json:"days_used"`
	DaysRemaining int                 `json:"days_remaining"`
	IsViolation   bool                `json:"is_violation"`
	CreatedAt     time.Time           `json:"created_at"`
}

// NewAlert builds an alert from the first non-SAFE status found by a scan.
func NewAlert(personID id.PersonID, scannedOn id.Date, horizonDays int, st compliance.Status, now time.Time) Alert {
	return Alert{
		ID:            uuid.New(),
		PersonID:      personID,
		ScannedOn:     scannedOn,
		HorizonDays:   horizonDays,
		AtRiskOn:      st.ReferenceDate,
		RiskTier:      st.RiskTier,
		DaysUsed:      st.DaysUsed,
		DaysRemaining: st.DaysRemaining,
		IsViolation:   st.IsViolation,
		CreatedAt:     now,
	}
}

// DedupKey identifies the condition an alert reports: the tier reached and
// whether it is a violation. AtRiskOn is left out because it advances with
// every daily scan while a person stays at risk. A person whose condition is
// unchanged between scans is not alerted again.
func (a Alert) DedupKey() string {
	return string(a.RiskTier) + "/" + strconv.FormatBool(a.IsViolation)
}
