package store

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
	id "sojourn/pkg/domain"
	"sojourn/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store  *InMemory
	ctx    context.Context
	person id.PersonID
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.person = id.NewPersonID()
}

func (s *InMemoryStoreSuite) newTrip(person id.PersonID, entry, exit string) *models.Trip {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.Trip{
		ID:        id.NewTripID(),
		PersonID:  person,
		ZoneCode:  "FR",
		EntryDate: id.MustParseDate(entry),
		ExitDate:  id.MustParseDate(exit),
		Source:    compliance.SourceManual,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	s.Run("creates and finds trip by ID", func() {
		trip := s.newTrip(s.person, "2025-01-01", "2025-01-10")
		s.Require().NoError(s.store.Create(s.ctx, trip))

		found, err := s.store.FindByID(s.ctx, trip.ID)
		s.Require().NoError(err)
		s.Equal(trip.EntryDate, found.EntryDate)
		s.Equal(trip.ExitDate, found.ExitDate)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewTripID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned trip is a copy", func() {
		trip := s.newTrip(s.person, "2025-03-01", "2025-03-02")
		s.Require().NoError(s.store.Create(s.ctx, trip))

		found, err := s.store.FindByID(s.ctx, trip.ID)
		s.Require().NoError(err)
		found.ZoneCode = "XX"

		again, err := s.store.FindByID(s.ctx, trip.ID)
		s.Require().NoError(err)
		s.Equal("FR", again.ZoneCode)
	})
}

func (s *InMemoryStoreSuite) TestOverlapRejected() {
	existing := s.newTrip(s.person, "2025-01-01", "2025-01-10")
	s.Require().NoError(s.store.Create(s.ctx, existing))

	s.Run("shared boundary day conflicts", func() {
		err := s.store.Create(s.ctx, s.newTrip(s.person, "2025-01-10", "2025-01-12"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("adjacent trip is accepted", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newTrip(s.person, "2025-01-11", "2025-01-12")))
	})

	s.Run("other person is unaffected", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newTrip(id.NewPersonID(), "2025-01-05", "2025-01-06")))
	})

	s.Run("update may keep its own dates", func() {
		edited := *existing
		edited.ZoneCode = "DE"
		s.Require().NoError(s.store.Update(s.ctx, &edited))
	})

	s.Run("update into a neighbour conflicts", func() {
		edited := *existing
		edited.ExitDate = id.MustParseDate("2025-01-11")
		s.Require().ErrorIs(s.store.Update(s.ctx, &edited), sentinel.ErrConflict)
	})
}

func (s *InMemoryStoreSuite) TestUpdatePreservesCreatedAt() {
	trip := s.newTrip(s.person, "2025-01-01", "2025-01-10")
	s.Require().NoError(s.store.Create(s.ctx, trip))

	edited := *trip
	edited.CreatedAt = time.Time{}
	edited.UpdatedAt = trip.UpdatedAt.Add(time.Hour)
	edited.ExitDate = id.MustParseDate("2025-01-05")
	s.Require().NoError(s.store.Update(s.ctx, &edited))

	found, err := s.store.FindByID(s.ctx, trip.ID)
	s.Require().NoError(err)
	s.Equal(trip.CreatedAt, found.CreatedAt)
	s.Equal(edited.UpdatedAt, found.UpdatedAt)
	s.Equal(id.MustParseDate("2025-01-05"), found.ExitDate)
}

func (s *InMemoryStoreSuite) TestDelete() {
	trip := s.newTrip(s.person, "2025-01-01", "2025-01-10")
	s.Require().NoError(s.store.Create(s.ctx, trip))

	s.Run("other person's trip is not found", func() {
		s.Require().ErrorIs(s.store.Delete(s.ctx, id.NewPersonID(), trip.ID), sentinel.ErrNotFound)
	})

	s.Run("removes trip and empties person", func() {
		s.Require().NoError(s.store.Delete(s.ctx, s.person, trip.ID))
		trips, err := s.store.ListByPerson(s.ctx, s.person)
		s.Require().NoError(err)
		s.Empty(trips)

		persons, err := s.store.ListPersons(s.ctx)
		s.Require().NoError(err)
		s.NotContains(persons, s.person)
	})

	s.Run("second delete is not found", func() {
		s.Require().ErrorIs(s.store.Delete(s.ctx, s.person, trip.ID), sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestListByPersonOrdered() {
	for _, r := range [][2]string{
		{"2025-05-01", "2025-05-03"},
		{"2025-01-01", "2025-01-03"},
		{"2025-03-01", "2025-03-03"},
	} {
		s.Require().NoError(s.store.Create(s.ctx, s.newTrip(s.person, r[0], r[1])))
	}

	trips, err := s.store.ListByPerson(s.ctx, s.person)
	s.Require().NoError(err)
	s.Require().Len(trips, 3)
	for i := 1; i < len(trips); i++ {
		s.True(trips[i-1].EntryDate.Before(trips[i].EntryDate))
	}
}

// TestConcurrentOverlappingCreates verifies exactly one of many colliding
// writes for the same person succeeds.
func (s *InMemoryStoreSuite) TestConcurrentOverlappingCreates() {
	const goroutines = 50
	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(s.ctx, s.newTrip(s.person, "2025-06-01", "2025-06-10"))
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
