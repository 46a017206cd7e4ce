package domain

import (
	"github.com/google/uuid"

	dErrors "sojourn/pkg/domain-errors"
)

// PersonID identifies a tracked person. Opaque to the compliance engine.
type PersonID uuid.UUID

// TripID identifies one recorded trip; edits keep the same TripID.
type TripID uuid.UUID

// maxIDLength bounds input before it reaches uuid.Parse (URN form is 45 chars).
const maxIDLength = 45

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

// NewPersonID returns a fresh random PersonID.
func NewPersonID() PersonID { return PersonID(uuid.New()) }

// ParsePersonID parses external input at trust boundaries.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed or the nil UUID.
func ParsePersonID(s string) (PersonID, error) {
	u, err := parseUUID("person_id", s)
	return PersonID(u), err
}

func (id PersonID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero value.
func (id PersonID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id PersonID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *PersonID) UnmarshalText(b []byte) error {
	parsed, err := ParsePersonID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewTripID returns a fresh random TripID.
func NewTripID() TripID { return TripID(uuid.New()) }

// ParseTripID parses external input at trust boundaries.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed or the nil UUID.
func ParseTripID(s string) (TripID, error) {
	u, err := parseUUID("trip_id", s)
	return TripID(u), err
}

func (id TripID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero value.
func (id TripID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id TripID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *TripID) UnmarshalText(b []byte) error {
	parsed, err := ParseTripID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
