package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sojourn/internal/compliance"
	"sojourn/internal/trips/models"
	id "sojourn/pkg/domain"
	"sojourn/pkg/platform/sentinel"
	txcontext "sojourn/pkg/platform/tx"
)

// Schema creates the trips table. The exclusion constraint is the
// database-side form of the no-overlap invariant: two trips of one person
// may not share a calendar day, whatever their zones.
const Schema = `
CREATE EXTENSION IF NOT EXISTS btree_gist;

CREATE TABLE IF NOT EXISTS trips (
	id          UUID PRIMARY KEY,
	person_id   UUID NOT NULL,
	zone_code   TEXT NOT NULL,
	entry_date  DATE NOT NULL,
	exit_date   DATE NOT NULL,
	source      TEXT NOT NULL,
	notes       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	CONSTRAINT trips_dates_ordered CHECK (entry_date <= exit_date),
	CONSTRAINT trips_no_overlap EXCLUDE USING gist (
		person_id WITH =,
		daterange(entry_date, exit_date, '[]') WITH &&
	)
);

CREATE INDEX IF NOT EXISTS trips_person_entry_idx ON trips (person_id, entry_date);
`

const (
	pqUniqueViolation      = "23505"
	pqExclusionViolation   = "23P01"
	pqSerializationFailure = "40001"
	pqLockNotAvailable     = "55P03"
	pqConnectionException  = "08"
)

const tripColumns = `id, person_id, zone_code, entry_date, exit_date, source, notes, created_at, updated_at`

// PostgresStore persists trips in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed trip store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies Schema. Safe to run on every start.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate trips schema: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) execer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// LockPerson takes a transaction-scoped advisory lock on personID so writes
// for one person serialize across service instances. It requires a
// transaction in ctx; the lock is released on commit or rollback.
func (s *PostgresStore) LockPerson(ctx context.Context, personID id.PersonID) error {
	tx, ok := txcontext.From(ctx)
	if !ok {
		return fmt.Errorf("lock person %s: no transaction in context", personID)
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, personID.String()); err != nil {
		return mapWriteError("lock person "+personID.String(), err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, trip *models.Trip) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO trips (`+tripColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(trip.ID), uuid.UUID(trip.PersonID), trip.ZoneCode,
		trip.EntryDate.Time(), trip.ExitDate.Time(), string(trip.Source), trip.Notes,
		trip.CreatedAt, trip.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("create trip", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, trip *models.Trip) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE trips
		SET zone_code = $3, entry_date = $4, exit_date = $5, source = $6, notes = $7, updated_at = $8
		WHERE id = $1 AND person_id = $2`,
		uuid.UUID(trip.ID), uuid.UUID(trip.PersonID), trip.ZoneCode,
		trip.EntryDate.Time(), trip.ExitDate.Time(), string(trip.Source), trip.Notes,
		trip.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("update trip", err)
	}
	return requireAffected(res, "update trip")
}

func (s *PostgresStore) Delete(ctx context.Context, personID id.PersonID, tripID id.TripID) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM trips WHERE id = $1 AND person_id = $2`,
		uuid.UUID(tripID), uuid.UUID(personID),
	)
	if err != nil {
		return mapWriteError("delete trip", err)
	}
	return requireAffected(res, "delete trip")
}

func (s *PostgresStore) FindByID(ctx context.Context, tripID id.TripID) (*models.Trip, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id = $1`,
		uuid.UUID(tripID),
	)
	trip, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find trip: %w", err)
	}
	return trip, nil
}

func (s *PostgresStore) ListByPerson(ctx context.Context, personID id.PersonID) ([]*models.Trip, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE person_id = $1 ORDER BY entry_date, id`,
		uuid.UUID(personID),
	)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return trips, nil
}

func (s *PostgresStore) ListPersons(ctx context.Context) ([]id.PersonID, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT DISTINCT person_id FROM trips ORDER BY person_id`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []id.PersonID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, id.PersonID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	return persons, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(row scanner) (*models.Trip, error) {
	var (
		tripID, personID uuid.UUID
		entry, exit      time.Time
		source           string
		trip             models.Trip
	)
	if err := row.Scan(&tripID, &personID, &trip.ZoneCode, &entry, &exit, &source, &trip.Notes, &trip.CreatedAt, &trip.UpdatedAt); err != nil {
		return nil, err
	}
	trip.ID = id.TripID(tripID)
	trip.PersonID = id.PersonID(personID)
	trip.EntryDate = id.DateOf(entry)
	trip.ExitDate = id.DateOf(exit)
	trip.Source = compliance.Source(source)
	return &trip, nil
}

func mapWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqExclusionViolation, pqUniqueViolation:
			return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
		case pqSerializationFailure, pqLockNotAvailable:
			return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
		}
		if string(pqErr.Code.Class()) == pqConnectionException {
			return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
