// Package scanner periodically looks ahead for every tracked person and
// publishes an alert when their position turns non-SAFE within the horizon.
// Scheduled future trips are part of the lookahead. A person is alerted once
// per condition: again only after a tier or violation change, or after a scan
// finds them SAFE for the whole horizon.
package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sojourn/internal/alerts/metrics"
	"sojourn/internal/alerts/models"
	"sojourn/internal/compliance"
	id "sojourn/pkg/domain"
)

const defaultHorizonDays = 30

// PersonLister lists every person with at least one stored trip.
type PersonLister interface {
	ListPersons(ctx context.Context) ([]id.PersonID, error)
}

// Forecaster finds the first non-SAFE day in a horizon.
type Forecaster interface {
	NextAtRisk(ctx context.Context, personID id.PersonID, from id.Date, horizonDays int) (compliance.Status, bool, error)
}

// Publisher delivers alerts.
type Publisher interface {
	Publish(ctx context.Context, alert models.Alert) error
}

// Summary describes one scan.
type Summary struct {
	ScannedOn id.Date
	Persons   int
	Published int
	Skipped   int
	Failures  int
}

// Scanner runs the lookahead.
type Scanner struct {
	persons   PersonLister
	forecast  Forecaster
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	horizon   int
	now       func() time.Time

	mu   sync.Mutex
	sent map[id.PersonID]string
}

type Option func(*Scanner)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) {
		s.metrics = m
	}
}

// WithHorizonDays sets how many days from today each scan covers.
func WithHorizonDays(days int) Option {
	return func(s *Scanner) {
		if days > 0 {
			s.horizon = days
		}
	}
}

// WithClock overrides the wall clock used to pick the scan date.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// New constructs a Scanner.
func New(persons PersonLister, forecast Forecaster, publisher Publisher, opts ...Option) *Scanner {
	s := &Scanner{
		persons:   persons,
		forecast:  forecast,
		publisher: publisher,
		logger:    slog.Default(),
		horizon:   defaultHorizonDays,
		now:       time.Now,
		sent:      make(map[id.PersonID]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans once immediately and then every interval until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.ErrorContext(ctx, "alert scan failed", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce scans every person from today. Per-person failures are logged and
// counted; only a failure to list persons aborts the scan.
func (s *Scanner) RunOnce(ctx context.Context) (Summary, error) {
	start := time.Now()
	today := id.DateOf(s.now())
	summary := Summary{ScannedOn: today}

	persons, err := s.persons.ListPersons(ctx)
	if err != nil {
		return summary, err
	}
	summary.Persons = len(persons)

	for _, personID := range persons {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		s.scanPerson(ctx, personID, today, &summary)
	}

	if s.metrics != nil {
		s.metrics.ObserveScan(start, len(persons))
	}
	s.logger.InfoContext(ctx, "alert scan completed",
		"scanned_on", today,
		"persons", summary.Persons,
		"published", summary.Published,
		"skipped", summary.Skipped,
		"failures", summary.Failures,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return summary, nil
}

func (s *Scanner) scanPerson(ctx context.Context, personID id.PersonID, today id.Date, summary *Summary) {
	st, found, err := s.forecast.NextAtRisk(ctx, personID, today, s.horizon)
	if err != nil {
		summary.Failures++
		s.personFailed(ctx, personID, "forecast failed", err)
		return
	}
	if !found {
		s.forget(personID)
		return
	}

	alert := models.NewAlert(personID, today, s.horizon, st, s.now())
	if s.alreadySent(personID, alert.DedupKey()) {
		summary.Skipped++
		return
	}
	if err := s.publisher.Publish(ctx, alert); err != nil {
		summary.Failures++
		if s.metrics != nil {
			s.metrics.IncrementPublishFailure()
		}
		s.personFailed(ctx, personID, "alert publish failed", err)
		return
	}
	s.remember(personID, alert.DedupKey())
	summary.Published++
	if s.metrics != nil {
		s.metrics.IncrementPublished(string(alert.RiskTier))
	}
}

func (s *Scanner) personFailed(ctx context.Context, personID id.PersonID, msg string, err error) {
	if s.metrics != nil {
		s.metrics.IncrementPersonFailure()
	}
	s.logger.WarnContext(ctx, msg, "person_id", personID, "error", err)
}

func (s *Scanner) alreadySent(personID id.PersonID, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[personID] == key
}

func (s *Scanner) remember(personID id.PersonID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[personID] = key
}

func (s *Scanner) forget(personID id.PersonID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sent, personID)
}
