package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sojourn/internal/alerts/models"
	"sojourn/internal/compliance"
	id "sojourn/pkg/domain"
)

type stubLister struct {
	persons []id.PersonID
	err     error
}

func (l *stubLister) ListPersons(context.Context) ([]id.PersonID, error) {
	return l.persons, l.err
}

type forecast struct {
	status compliance.Status
	found  bool
	err    error
}

type stubForecaster struct {
	mu       sync.Mutex
	byPerson map[id.PersonID]forecast
	calls    []int
}

func (f *stubForecaster) NextAtRisk(_ context.Context, personID id.PersonID, _ id.Date, horizonDays int) (compliance.Status, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, horizonDays)
	fc := f.byPerson[personID]
	return fc.status, fc.found, fc.err
}

func (f *stubForecaster) set(personID id.PersonID, fc forecast) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byPerson[personID] = fc
}

// intervalForecaster runs the real lookahead over a fixed trip set.
type intervalForecaster struct {
	intervals []compliance.Interval
}

func (f intervalForecaster) NextAtRisk(_ context.Context, _ id.PersonID, from id.Date, horizonDays int) (compliance.Status, bool, error) {
	return compliance.NextAtRisk(f.intervals, from, horizonDays)
}

type recordingPublisher struct {
	mu     sync.Mutex
	alerts []models.Alert
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, alert models.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.alerts = append(p.alerts, alert)
	return nil
}

func (p *recordingPublisher) published() []models.Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Alert(nil), p.alerts...)
}

func atRisk(ref string, used int) compliance.Status {
	st, err := compliance.Evaluate(nil, id.MustParseDate(ref))
	if err != nil {
		panic(err)
	}
	st.DaysUsed = used
	st.DaysRemaining = max(0, compliance.MaxDays-used)
	st.RiskTier = compliance.Classify(used)
	st.IsViolation = used > compliance.MaxDays
	return st
}

type ScannerSuite struct {
	suite.Suite
	lister    *stubLister
	forecast  *stubForecaster
	publisher *recordingPublisher
	scanner   *Scanner
	ctx       context.Context
	now       time.Time
}

func TestScannerSuite(t *testing.T) {
	suite.Run(t, new(ScannerSuite))
}

func (s *ScannerSuite) SetupTest() {
	s.lister = &stubLister{}
	s.forecast = &stubForecaster{byPerson: make(map[id.PersonID]forecast)}
	s.publisher = &recordingPublisher{}
	s.now = time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	s.scanner = New(s.lister, s.forecast, s.publisher,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithHorizonDays(45),
		WithClock(func() time.Time { return s.now }),
	)
	s.ctx = context.Background()
}

func (s *ScannerSuite) TestPublishesOnlyForRiskyPersons() {
	safe, risky := id.NewPersonID(), id.NewPersonID()
	s.lister.persons = []id.PersonID{safe, risky}
	s.forecast.set(risky, forecast{status: atRisk("2025-03-20", 83), found: true})

	summary, err := s.scanner.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, summary.Persons)
	s.Equal(1, summary.Published)
	s.Equal(id.MustParseDate("2025-03-01"), summary.ScannedOn)

	alerts := s.publisher.published()
	s.Require().Len(alerts, 1)
	s.Equal(risky, alerts[0].PersonID)
	s.Equal(id.MustParseDate("2025-03-20"), alerts[0].AtRiskOn)
	s.Equal(compliance.TierAtRisk, alerts[0].RiskTier)
	s.Equal(45, alerts[0].HorizonDays)
	s.Equal([]int{45, 45}, s.forecast.calls)
}

func (s *ScannerSuite) TestUnchangedConditionIsNotRepublished() {
	person := id.NewPersonID()
	s.lister.persons = []id.PersonID{person}
	s.forecast.set(person, forecast{status: atRisk("2025-03-20", 65), found: true})

	_, err := s.scanner.RunOnce(s.ctx)
	s.Require().NoError(err)
	summary, err := s.scanner.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, summary.Skipped)
	s.Len(s.publisher.published(), 1)

	s.Run("a worse tier is published again", func() {
		s.forecast.set(person, forecast{status: atRisk("2025-03-20", 85), found: true})
		_, err := s.scanner.RunOnce(s.ctx)
		s.Require().NoError(err)
		s.Len(s.publisher.published(), 2)
	})

	s.Run("returning to safe resets the memory", func() {
		s.forecast.set(person, forecast{})
		_, err := s.scanner.RunOnce(s.ctx)
		s.Require().NoError(err)

		s.forecast.set(person, forecast{status: atRisk("2025-03-20", 85), found: true})
		_, err = s.scanner.RunOnce(s.ctx)
		s.Require().NoError(err)
		s.Len(s.publisher.published(), 3)
	})
}

func (s *ScannerSuite) TestOngoingStayIsAlertedOnce() {
	person := id.NewPersonID()
	s.lister.persons = []id.PersonID{person}
	forecaster := intervalForecaster{intervals: []compliance.Interval{{
		ID:                id.NewTripID(),
		PersonID:          person,
		ZoneCode:          "FR",
		CountsTowardLimit: true,
		Entry:             id.MustParseDate("2025-01-01"),
		Exit:              id.MustParseDate("2025-03-31"),
	}}}
	scanner := New(s.lister, forecaster, s.publisher,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithHorizonDays(45),
		WithClock(func() time.Time { return s.now }),
	)

	var atRiskDays []id.Date
	skipped := 0
	for day := 0; day < 5; day++ {
		s.now = time.Date(2025, 3, 2+day, 6, 0, 0, 0, time.UTC)
		st, found, err := forecaster.NextAtRisk(s.ctx, person, id.DateOf(s.now), 45)
		s.Require().NoError(err)
		s.Require().True(found)
		atRiskDays = append(atRiskDays, st.ReferenceDate)

		summary, err := scanner.RunOnce(s.ctx)
		s.Require().NoError(err)
		skipped += summary.Skipped
	}

	s.NotEqual(atRiskDays[0], atRiskDays[4], "the first non-safe day moves with the scan date")
	alerts := s.publisher.published()
	s.Require().Len(alerts, 1)
	s.Equal(compliance.TierCaution, alerts[0].RiskTier)
	s.Equal(4, skipped)
}

func (s *ScannerSuite) TestPersonFailuresAreIsolated() {
	broken, risky := id.NewPersonID(), id.NewPersonID()
	s.lister.persons = []id.PersonID{broken, risky}
	s.forecast.set(broken, forecast{err: errors.New("stored trip has unknown zone")})
	s.forecast.set(risky, forecast{status: atRisk("2025-03-05", 88), found: true})

	summary, err := s.scanner.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, summary.Failures)
	s.Equal(1, summary.Published)
}

func (s *ScannerSuite) TestPublishFailureIsRetriedNextScan() {
	person := id.NewPersonID()
	s.lister.persons = []id.PersonID{person}
	s.forecast.set(person, forecast{status: atRisk("2025-03-05", 88), found: true})
	s.publisher.err = errors.New("broker unavailable")

	summary, err := s.scanner.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, summary.Failures)

	s.publisher.err = nil
	summary, err = s.scanner.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, summary.Published)
}

func (s *ScannerSuite) TestListFailureAbortsScan() {
	s.lister.err = errors.New("db down")
	_, err := s.scanner.RunOnce(s.ctx)
	s.Error(err)
}

func (s *ScannerSuite) TestRunStopsOnCancel() {
	person := id.NewPersonID()
	s.lister.persons = []id.PersonID{person}
	s.forecast.set(person, forecast{status: atRisk("2025-03-05", 88), found: true})

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.scanner.Run(ctx, time.Hour) }()

	s.Eventually(func() bool { return len(s.publisher.published()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("scanner did not stop")
	}
}
