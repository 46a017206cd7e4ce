// Package zone resolves territory codes against the regulated-zone table.
//
// Which territories count toward the 90-day limit is reference data, not
// engine logic: the table can be extended from configuration without touching
// the compliance package.
package zone

import (
	"fmt"
	"sort"
	"strings"

	"sojourn/internal/compliance"
	platformstrings "sojourn/pkg/platform/strings"
)

// UnknownPolicy decides what happens to a code missing from the table.
type UnknownPolicy string

const (
	// PolicyReject fails resolution with compliance.ErrUnknownZone.
	PolicyReject UnknownPolicy = "reject"
	// PolicyNonCounting records the trip but never counts its days.
	PolicyNonCounting UnknownPolicy = "non_counting"
)

// ParseUnknownPolicy validates a configured policy; empty means reject.
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch UnknownPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyNonCounting:
		return PolicyNonCounting, nil
	default:
		return "", fmt.Errorf("unknown zone policy %q", s)
	}
}

// Zone is one row of the reference table.
type Zone struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Counts bool   `json:"counts_toward_limit"`
}

// Table is an immutable zone lookup. Safe for concurrent use.
type Table struct {
	zones  map[string]Zone
	policy UnknownPolicy
}

// Option configures a Table.
type Option func(*Table)

// WithUnknownPolicy sets the policy applied to codes missing from the table.
func WithUnknownPolicy(p UnknownPolicy) Option {
	return func(t *Table) {
		t.policy = p
	}
}

// WithZones adds or overrides rows.
func WithZones(zones ...Zone) Option {
	return func(t *Table) {
		for _, z := range zones {
			z.Code = Normalize(z.Code)
			t.zones[z.Code] = z
		}
	}
}

// NewTable builds a table from the default rows plus options.
func NewTable(opts ...Option) *Table {
	t := &Table{zones: make(map[string]Zone, len(defaultZones)), policy: PolicyReject}
	for _, z := range defaultZones {
		t.zones[z.Code] = z
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Normalize canonicalizes a zone code for lookup and storage.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup returns the row for code, if any.
func (t *Table) Lookup(code string) (Zone, bool) {
	z, ok := t.zones[Normalize(code)]
	return z, ok
}

// CountsTowardLimit resolves code under the table's unknown-zone policy.
//
// Errors: wraps compliance.ErrUnknownZone when the code is unknown and the
// policy is PolicyReject.
func (t *Table) CountsTowardLimit(code string) (bool, error) {
	if z, ok := t.Lookup(code); ok {
		return z.Counts, nil
	}
	if t.policy == PolicyNonCounting {
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", compliance.ErrUnknownZone, code)
}

// Policy returns the unknown-zone policy.
func (t *Table) Policy() UnknownPolicy { return t.policy }

// All returns every row ordered by code.
func (t *Table) All() []Zone {
	out := make([]Zone, 0, len(t.zones))
	for _, z := range t.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ParseCodes splits a comma-separated list of codes from configuration into rows.
func ParseCodes(list string, counts bool) []Zone {
	var zones []Zone
	for _, code := range platformstrings.DedupeAndTrimUpper(strings.Split(list, ",")) {
		zones = append(zones, Zone{Code: code, Name: code, Counts: counts})
	}
	return zones
}

// defaultZones lists the Schengen states (counting) and the EU members outside
// Schengen that are commonly recorded but never counted.
var defaultZones = []Zone{
	{Code: "AT", Name: "Austria", Counts: true},
	{Code: "BE", Name: "Belgium", Counts: true},
	{Code: "BG", Name: "Bulgaria", Counts: true},
	{Code: "CH", Name: "Switzerland", Counts: true},
	{Code: "CZ", Name: "Czechia", Counts: true},
	{Code: "DE", Name: "Germany", Counts: true},
	{Code: "DK", Name: "Denmark", Counts: true},
	{Code: "EE", Name: "Estonia", Counts: true},
	{Code: "ES", Name: "Spain", Counts: true},
	{Code: "FI", Name: "Finland", Counts: true},
	{Code: "FR", Name: "France", Counts: true},
	{Code: "GR", Name: "Greece", Counts: true},
	{Code: "HR", Name: "Croatia", Counts: true},
	{Code: "HU", Name: "Hungary", Counts: true},
	{Code: "IS", Name: "Iceland", Counts: true},
	{Code: "IT", Name: "Italy", Counts: true},
	{Code: "LI", Name: "Liechtenstein", Counts: true},
	{Code: "LT", Name: "Lithuania", Counts: true},
	{Code: "LU", Name: "Luxembourg", Counts: true},
	{Code: "LV", Name: "Latvia", Counts: true},
	{Code: "MT", Name: "Malta", Counts: true},
	{Code: "NL", Name: "Netherlands", Counts: true},
	{Code: "NO", Name: "Norway", Counts: true},
	{Code: "PL", Name: "Poland", Counts: true},
	{Code: "PT", Name: "Portugal", Counts: true},
	{Code: "RO", Name: "Romania", Counts: true},
	{Code: "SE", Name: "Sweden", Counts: true},
	{Code: "SI", Name: "Slovenia", Counts: true},
	{Code: "SK", Name: "Slovakia", Counts: true},
	{Code: "IE", Name: "Ireland", Counts: false},
	{Code: "CY", Name: "Cyprus", Counts: false},
}
