//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sojourn/internal/compliance"
	"sojourn/internal/trips/models"
	"sojourn/internal/trips/store"
	id "sojourn/pkg/domain"
	"sojourn/pkg/platform/sentinel"
	"sojourn/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "trips"))
}

func newTestTrip(person id.PersonID, entry, exit string) *models.Trip {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Trip{
		ID:        id.NewTripID(),
		PersonID:  person,
		ZoneCode:  "ES",
		EntryDate: id.MustParseDate(entry),
		ExitDate:  id.MustParseDate(exit),
		Source:    compliance.SourceImport,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	person := id.NewPersonID()
	trip := newTestTrip(person, "2024-12-30", "2025-01-02")
	s.Require().NoError(s.store.Create(ctx, trip))

	found, err := s.store.FindByID(ctx, trip.ID)
	s.Require().NoError(err)
	s.Equal(trip.EntryDate, found.EntryDate)
	s.Equal(trip.ExitDate, found.ExitDate)
	s.Equal(compliance.SourceImport, found.Source)
	s.Equal(4, found.Days())
}

// TestExclusionConstraint verifies the database rejects overlapping stays of
// one person, including a shared boundary day.
func (s *PostgresStoreSuite) TestExclusionConstraint() {
	ctx := context.Background()
	person := id.NewPersonID()
	s.Require().NoError(s.store.Create(ctx, newTestTrip(person, "2025-01-01", "2025-01-10")))

	err := s.store.Create(ctx, newTestTrip(person, "2025-01-10", "2025-01-15"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	s.Require().NoError(s.store.Create(ctx, newTestTrip(person, "2025-01-11", "2025-01-15")))
	s.Require().NoError(s.store.Create(ctx, newTestTrip(id.NewPersonID(), "2025-01-05", "2025-01-06")))
}

func (s *PostgresStoreSuite) TestConcurrentOverlappingCreates() {
	ctx := context.Background()
	person := id.NewPersonID()
	const goroutines = 20

	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newTestTrip(person, "2025-03-01", "2025-03-20"))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestUpdateAndDelete() {
	ctx := context.Background()
	person := id.NewPersonID()
	trip := newTestTrip(person, "2025-02-01", "2025-02-05")
	s.Require().NoError(s.store.Create(ctx, trip))

	edited := *trip
	edited.ExitDate = id.MustParseDate("2025-02-08")
	edited.ZoneCode = "PT"
	s.Require().NoError(s.store.Update(ctx, &edited))

	trips, err := s.store.ListByPerson(ctx, person)
	s.Require().NoError(err)
	s.Require().Len(trips, 1)
	s.Equal("PT", trips[0].ZoneCode)
	s.Equal(8, trips[0].Days())

	s.Require().ErrorIs(s.store.Delete(ctx, id.NewPersonID(), trip.ID), sentinel.ErrNotFound)
	s.Require().NoError(s.store.Delete(ctx, person, trip.ID))

	persons, err := s.store.ListPersons(ctx)
	s.Require().NoError(err)
	s.NotContains(persons, person)
}
