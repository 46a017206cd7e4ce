package service

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"sojourn/internal/compliance"
	"sojourn/internal/trips/metrics"
	"sojourn/internal/trips/models"
	id "sojourn/pkg/domain"
	dErrors "sojourn/pkg/domain-errors"
	"sojourn/pkg/platform/sentinel"
	"sojourn/pkg/requestcontext"
)

// Store persists trips. Implementations must reject a write that would give
// one person two trips sharing a calendar day with sentinel.ErrConflict.
type Store interface {
	Create(ctx context.Context, trip *models.Trip) error
	Update(ctx context.Context, trip *models.Trip) error
	Delete(ctx context.Context, personID id.PersonID, tripID id.TripID) error
	FindByID(ctx context.Context, tripID id.TripID) (*models.Trip, error)
	ListByPerson(ctx context.Context, personID id.PersonID) ([]*models.Trip, error)
	ListPersons(ctx context.Context) ([]id.PersonID, error)
}

// ZoneResolver decides whether a zone code counts toward the limit.
type ZoneResolver interface {
	CountsTowardLimit(code string) (bool, error)
}

// CacheInvalidator drops every cached status of a person.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, personID id.PersonID) error
}

// TxRunner runs fn inside a transaction carried by the context it passes.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PersonLocker is implemented by stores that can serialize one person's
// writes across processes. It is only called inside RunInTx.
type PersonLocker interface {
	LockPerson(ctx context.Context, personID id.PersonID) error
}

// TripInput is the caller-supplied part of a trip.
type TripInput struct {
	ZoneCode  string
	EntryDate id.Date
	ExitDate  id.Date
	Source    compliance.Source
	Notes     string
}

// Service owns trip writes. Writes for one person are serialized so the
// overlap check and the store write see the same trip set.
type Service struct {
	store   Store
	zones   ZoneResolver
	cache   CacheInvalidator
	tx      TxRunner
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Persons hash onto a fixed set of stripes, so lock memory does not grow
	// with the number of persons ever written.
	locks [lockStripes]sync.Mutex
}

const lockStripes = 64

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCacheInvalidator(c CacheInvalidator) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithTxRunner runs each write's overlap check and store write in one
// transaction.
func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// New constructs a Service.
func New(store Store, zones ZoneResolver, opts ...Option) *Service {
	s := &Service{
		store:  store,
		zones:  zones,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTrip validates and stores a new trip.
func (s *Service) AddTrip(ctx context.Context, personID id.PersonID, in TripInput) (*models.Trip, error) {
	start := time.Now()
	defer s.observeWrite(start)

	trip, counts, err := s.buildTrip(id.NewTripID(), personID, in, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	unlock := s.lockPerson(personID)
	defer unlock()

	err = s.inTx(ctx, personID, func(ctx context.Context) error {
		if err := s.checkOverlap(ctx, trip.ToInterval(counts)); err != nil {
			return err
		}
		return s.store.Create(ctx, trip)
	})
	if err != nil {
		return nil, s.translateWriteError(err, "failed to create trip")
	}

	s.invalidate(ctx, personID)
	s.incrementWritten("add")
	s.logger.InfoContext(ctx, "trip added",
		"request_id", requestcontext.RequestID(ctx),
		"person_id", personID,
		"trip_id", trip.ID,
		"zone_code", trip.ZoneCode,
		"days", trip.Days(),
	)
	return trip, nil
}

// UpdateTrip replaces every mutable field of an existing trip. The trip's
// own prior version is excluded from the overlap check.
func (s *Service) UpdateTrip(ctx context.Context, personID id.PersonID, tripID id.TripID, in TripInput) (*models.Trip, error) {
	start := time.Now()
	defer s.observeWrite(start)

	unlock := s.lockPerson(personID)
	defer unlock()

	trip, counts, err := s.buildTrip(tripID, personID, in, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, personID, func(ctx context.Context) error {
		current, err := s.findOwned(ctx, personID, tripID)
		if err != nil {
			return err
		}
		trip.CreatedAt = current.CreatedAt
		if err := s.checkOverlap(ctx, trip.ToInterval(counts)); err != nil {
			return err
		}
		return s.store.Update(ctx, trip)
	})
	if err != nil {
		return nil, s.translateWriteError(err, "failed to update trip")
	}

	s.invalidate(ctx, personID)
	s.incrementWritten("edit")
	s.logger.InfoContext(ctx, "trip updated",
		"request_id", requestcontext.RequestID(ctx),
		"person_id", personID,
		"trip_id", tripID,
	)
	return trip, nil
}

// DeleteTrip removes a trip owned by personID.
func (s *Service) DeleteTrip(ctx context.Context, personID id.PersonID, tripID id.TripID) error {
	start := time.Now()
	defer s.observeWrite(start)

	unlock := s.lockPerson(personID)
	defer unlock()

	err := s.inTx(ctx, personID, func(ctx context.Context) error {
		return s.store.Delete(ctx, personID, tripID)
	})
	if err != nil {
		return s.translateWriteError(err, "failed to delete trip")
	}

	s.invalidate(ctx, personID)
	s.incrementWritten("delete")
	s.logger.InfoContext(ctx, "trip deleted",
		"request_id", requestcontext.RequestID(ctx),
		"person_id", personID,
		"trip_id", tripID,
	)
	return nil
}

// ListTrips returns a person's trips ordered by entry date.
func (s *Service) ListTrips(ctx context.Context, personID id.PersonID) ([]*models.Trip, error) {
	trips, err := s.store.ListByPerson(ctx, personID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list trips")
	}
	return trips, nil
}

// ListPersons returns every person with at least one trip.
func (s *Service) ListPersons(ctx context.Context) ([]id.PersonID, error) {
	persons, err := s.store.ListPersons(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list persons")
	}
	return persons, nil
}

// Intervals returns one consistent snapshot of a person's trips as engine
// input, with every zone resolved against the zone table.
func (s *Service) Intervals(ctx context.Context, personID id.PersonID) ([]compliance.Interval, error) {
	trips, err := s.ListTrips(ctx, personID)
	if err != nil {
		return nil, err
	}
	intervals := make([]compliance.Interval, 0, len(trips))
	for _, t := range trips {
		counts, err := s.zones.CountsTowardLimit(t.ZoneCode)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "stored trip has an unknown zone code")
		}
		intervals = append(intervals, t.ToInterval(counts))
	}
	return intervals, nil
}

// Conflicts re-validates every trip of a person against every other and
// returns all overlapping pairs. Write-time checks only ever compare the
// candidate, so this is the explicit full re-validation.
func (s *Service) Conflicts(ctx context.Context, personID id.PersonID) ([]compliance.Conflict, error) {
	trips, err := s.ListTrips(ctx, personID)
	if err != nil {
		return nil, err
	}
	intervals := make([]compliance.Interval, 0, len(trips))
	for _, t := range trips {
		intervals = append(intervals, t.ToInterval(false))
	}
	conflicts := compliance.FindConflicts(intervals)
	if s.metrics != nil {
		s.metrics.ObserveConflictScan(len(conflicts))
	}
	if len(conflicts) > 0 {
		s.logger.WarnContext(ctx, "overlapping trips found",
			"request_id", requestcontext.RequestID(ctx),
			"person_id", personID,
			"pairs", len(conflicts),
		)
	}
	return conflicts, nil
}

func (s *Service) buildTrip(tripID id.TripID, personID id.PersonID, in TripInput, now time.Time) (*models.Trip, bool, error) {
	trip, err := models.NewTrip(tripID, personID, in.ZoneCode, in.EntryDate, in.ExitDate, in.Source, in.Notes, now)
	if err != nil {
		s.incrementRejected("invalid")
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, false, dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
		}
		return nil, false, err
	}
	counts, err := s.zones.CountsTowardLimit(trip.ZoneCode)
	if err != nil {
		s.incrementRejected("unknown_zone")
		return nil, false, dErrors.Wrap(err, dErrors.CodeInvalidInput, "unknown zone code "+trip.ZoneCode)
	}
	return trip, counts, nil
}

func (s *Service) checkOverlap(ctx context.Context, candidate compliance.Interval) error {
	trips, err := s.store.ListByPerson(ctx, candidate.PersonID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trips")
	}
	existing := make([]compliance.Interval, 0, len(trips))
	for _, t := range trips {
		existing = append(existing, t.ToInterval(false))
	}
	if err := compliance.CheckCandidate(existing, candidate); err != nil {
		var conflict *compliance.ConflictError
		if errors.As(err, &conflict) {
			s.incrementConflict()
			return dErrors.Wrap(conflict, dErrors.CodeConflict, "trip overlaps an existing trip")
		}
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid trip dates")
	}
	return nil
}

func (s *Service) findOwned(ctx context.Context, personID id.PersonID, tripID id.TripID) (*models.Trip, error) {
	trip, err := s.store.FindByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "trip not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trip")
	}
	if trip.PersonID != personID {
		return nil, dErrors.New(dErrors.CodeNotFound, "trip not found")
	}
	return trip, nil
}

// inTx runs fn in a transaction when a runner is configured, taking the
// store's cross-process person lock first.
func (s *Service) inTx(ctx context.Context, personID id.PersonID, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if locker, ok := s.store.(PersonLocker); ok {
			if err := locker.LockPerson(ctx, personID); err != nil {
				return s.translateWriteError(err, "failed to lock person")
			}
		}
		return fn(ctx)
	})
}

// translateWriteError maps store errors onto domain codes. Errors that
// already carry a code pass through.
func (s *Service) translateWriteError(err error, msg string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "trip not found")
	case errors.Is(err, sentinel.ErrConflict):
		s.incrementConflict()
		return dErrors.New(dErrors.CodeConflict, "trip overlaps an existing trip")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "trip store busy, retry")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// invalidate drops cached statuses after a committed write. A failure is
// logged, not returned: the write already happened and the cache TTL bounds
// how long a stale status can be served.
func (s *Service) invalidate(ctx context.Context, personID id.PersonID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, personID); err != nil {
		s.logger.ErrorContext(ctx, "failed to invalidate status cache",
			"request_id", requestcontext.RequestID(ctx),
			"person_id", personID,
			"error", err,
		)
	}
}

func (s *Service) lockPerson(personID id.PersonID) func() {
	l := &s.locks[lockStripe(personID)]
	l.Lock()
	return l.Unlock
}

func lockStripe(personID id.PersonID) int {
	h := fnv.New32a()
	_, _ = h.Write(personID[:])
	return int(h.Sum32() % lockStripes)
}

func (s *Service) incrementWritten(op string) {
	if s.metrics != nil {
		s.metrics.IncrementWritten(op)
	}
}

func (s *Service) incrementConflict() {
	if s.metrics != nil {
		s.metrics.IncrementConflict()
	}
}

func (s *Service) incrementRejected(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementRejected(reason)
	}
}

func (s *Service) observeWrite(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveWrite(start)
	}
}
