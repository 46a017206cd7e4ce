package store

import (
	"context"
	"sort"
	"sync"

	"sojourn/internal/trips/models"
	id "sojourn/pkg/domain"
	"sojourn/pkg/platform/sentinel"
)

// InMemory keeps trips in process memory. It enforces the same no-overlap
// rule the Postgres exclusion constraint does, so both stores reject a
// colliding write even when two requests race past the service check.
type InMemory struct {
	mu       sync.RWMutex
	trips    map[id.TripID]models.Trip
	byPerson map[id.PersonID]map[id.TripID]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{
		trips:    make(map[id.TripID]models.Trip),
		byPerson: make(map[id.PersonID]map[id.TripID]struct{}),
	}
}

func (s *InMemory) Create(_ context.Context, trip *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.trips[trip.ID]; exists {
		return sentinel.ErrConflict
	}
	if s.overlapsLocked(trip) {
		return sentinel.ErrConflict
	}
	s.trips[trip.ID] = *trip
	if s.byPerson[trip.PersonID] == nil {
		s.byPerson[trip.PersonID] = make(map[id.TripID]struct{})
	}
	s.byPerson[trip.PersonID][trip.ID] = struct{}{}
	return nil
}

func (s *InMemory) Update(_ context.Context, trip *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.trips[trip.ID]
	if !ok || current.PersonID != trip.PersonID {
		return sentinel.ErrNotFound
	}
	if s.overlapsLocked(trip) {
		return sentinel.ErrConflict
	}
	updated := *trip
	updated.CreatedAt = current.CreatedAt
	s.trips[trip.ID] = updated
	return nil
}

func (s *InMemory) Delete(_ context.Context, personID id.PersonID, tripID id.TripID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.trips[tripID]
	if !ok || current.PersonID != personID {
		return sentinel.ErrNotFound
	}
	delete(s.trips, tripID)
	delete(s.byPerson[personID], tripID)
	if len(s.byPerson[personID]) == 0 {
		delete(s.byPerson, personID)
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tripID id.TripID) (*models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trip, ok := s.trips[tripID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &trip, nil
}

// ListByPerson returns copies ordered by entry date.
func (s *InMemory) ListByPerson(_ context.Context, personID id.PersonID) ([]*models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Trip, 0, len(s.byPerson[personID]))
	for tripID := range s.byPerson[personID] {
		trip := s.trips[tripID]
		out = append(out, &trip)
	}
	sortTrips(out)
	return out, nil
}

// ListPersons returns every person with at least one trip, ordered by ID.
func (s *InMemory) ListPersons(_ context.Context) ([]id.PersonID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.PersonID, 0, len(s.byPerson))
	for personID := range s.byPerson {
		out = append(out, personID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (s *InMemory) overlapsLocked(trip *models.Trip) bool {
	for tripID := range s.byPerson[trip.PersonID] {
		if tripID == trip.ID {
			continue
		}
		other := s.trips[tripID]
		if !other.ExitDate.Before(trip.EntryDate) && !trip.ExitDate.Before(other.EntryDate) {
			return true
		}
	}
	return false
}

func sortTrips(trips []*models.Trip) {
	sort.Slice(trips, func(i, j int) bool {
		if trips[i].EntryDate != trips[j].EntryDate {
			return trips[i].EntryDate < trips[j].EntryDate
		}
		return trips[i].ID.String() < trips[j].ID.String()
	})
}
