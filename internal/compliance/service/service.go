// Package service answers compliance questions for stored persons: current
// status, dashboards, what-if evaluation and forecasts. It loads one snapshot
// of a person's intervals per call and hands it to the pure engine.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sojourn/internal/compliance"
	"sojourn/internal/compliance/metrics"
	id "sojourn/pkg/domain"
	dErrors "sojourn/pkg/domain-errors"
	"sojourn/pkg/requestcontext"
)

const (
	defaultDashboardConcurrency = 8
	tracerName                  = "sojourn/compliance"
)

// IntervalSource provides stable snapshots of stored trips as intervals.
type IntervalSource interface {
	Intervals(ctx context.Context, personID id.PersonID) ([]compliance.Interval, error)
	ListPersons(ctx context.Context) ([]id.PersonID, error)
}

// ZoneResolver decides whether a zone code counts toward the limit.
type ZoneResolver interface {
	CountsTowardLimit(code string) (bool, error)
}

// StatusCache stores computed statuses by (person, reference date). Set only
// stores when the person's generation still equals the one read before the
// status was computed; every trip write advances it.
type StatusCache interface {
	Get(ctx context.Context, personID id.PersonID, ref id.Date) (compliance.Status, bool, error)
	Generation(ctx context.Context, personID id.PersonID) (uint64, error)
	Set(ctx context.Context, personID id.PersonID, generation uint64, status compliance.Status) (bool, error)
}

// Hypothetical is a trip that has not been recorded. A non-nil TripID makes
// it stand in for that stored trip, which previews an edit.
type Hypothetical struct {
	TripID   id.TripID
	ZoneCode string
	Entry    id.Date
	Exit     id.Date
}

// Service evaluates stored persons against the 90/180 rule.
type Service struct {
	source      IntervalSource
	zones       ZoneResolver
	cache       StatusCache
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	concurrency int
}

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

func WithCache(c StatusCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithDashboardConcurrency bounds how many persons a dashboard evaluates at once.
func WithDashboardConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New constructs a Service.
func New(source IntervalSource, zones ZoneResolver, opts ...Option) *Service {
	s := &Service{
		source:      source,
		zones:       zones,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
		concurrency: defaultDashboardConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status returns a person's status at ref, served from cache when possible.
func (s *Service) Status(ctx context.Context, personID id.PersonID, ref id.Date) (compliance.Status, error) {
	ctx, span := s.startSpan(ctx, "compliance.Status", personID, attribute.String("reference_date", ref.String()))
	defer span.End()
	start := time.Now()
	defer s.observe("status", start)

	if st, ok := s.cachedStatus(ctx, personID, ref); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return st, nil
	}

	// The generation must be read before the trips so a write racing this
	// load is detected by Set.
	gen, cacheable := s.cacheGeneration(ctx, personID)
	intervals, err := s.source.Intervals(ctx, personID)
	if err != nil {
		return compliance.Status{}, s.fail(span, err)
	}
	st, err := compliance.Evaluate(intervals, ref)
	if err != nil {
		return compliance.Status{}, s.fail(span, translate(err))
	}
	if cacheable {
		s.storeStatus(ctx, personID, gen, st)
	}
	s.recordTier(st.RiskTier)
	return st, nil
}

// WhatIf evaluates a person's status at ref as if h were already recorded.
func (s *Service) WhatIf(ctx context.Context, personID id.PersonID, h Hypothetical, ref id.Date) (compliance.Status, error) {
	ctx, span := s.startSpan(ctx, "compliance.WhatIf", personID, attribute.String("reference_date", ref.String()))
	defer span.End()
	start := time.Now()
	defer s.observe("what_if", start)

	counts, err := s.zones.CountsTowardLimit(h.ZoneCode)
	if err != nil {
		return compliance.Status{}, s.fail(span, dErrors.Wrap(err, dErrors.CodeInvalidInput, "unknown zone code "+h.ZoneCode))
	}
	intervals, err := s.source.Intervals(ctx, personID)
	if err != nil {
		return compliance.Status{}, s.fail(span, err)
	}
	candidate := compliance.Interval{
		ID:                h.TripID,
		PersonID:          personID,
		ZoneCode:          h.ZoneCode,
		CountsTowardLimit: counts,
		Entry:             h.Entry,
		Exit:              h.Exit,
	}
	st, err := compliance.WhatIf(intervals, candidate, ref)
	if err != nil {
		return compliance.Status{}, s.fail(span, translate(err))
	}
	return st, nil
}

// ScanRisk returns every non-SAFE day in [from, to].
func (s *Service) ScanRisk(ctx context.Context, personID id.PersonID, from, to id.Date) ([]compliance.Status, error) {
	ctx, span := s.startSpan(ctx, "compliance.ScanRisk", personID,
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	)
	defer span.End()
	start := time.Now()
	defer s.observe("scan_risk", start)

	intervals, err := s.source.Intervals(ctx, personID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	risky, err := compliance.ScanForRisk(intervals, from, to)
	if err != nil {
		return nil, s.fail(span, translate(err))
	}
	span.SetAttributes(attribute.Int("risky_days", len(risky)))
	return risky, nil
}

// NextAtRisk returns the first non-SAFE day within horizonDays of from.
func (s *Service) NextAtRisk(ctx context.Context, personID id.PersonID, from id.Date, horizonDays int) (compliance.Status, bool, error) {
	ctx, span := s.startSpan(ctx, "compliance.NextAtRisk", personID,
		attribute.String("from", from.String()),
		attribute.Int("horizon_days", horizonDays),
	)
	defer span.End()
	start := time.Now()
	defer s.observe("next_at_risk", start)

	intervals, err := s.source.Intervals(ctx, personID)
	if err != nil {
		return compliance.Status{}, false, s.fail(span, err)
	}
	st, ok, err := compliance.NextAtRisk(intervals, from, horizonDays)
	if err != nil {
		return compliance.Status{}, false, s.fail(span, translate(err))
	}
	return st, ok, nil
}

// MaxStay returns the longest compliant trip starting on entry.
func (s *Service) MaxStay(ctx context.Context, personID id.PersonID, entry id.Date) (int, error) {
	ctx, span := s.startSpan(ctx, "compliance.MaxStay", personID, attribute.String("entry", entry.String()))
	defer span.End()
	start := time.Now()
	defer s.observe("max_stay", start)

	intervals, err := s.source.Intervals(ctx, personID)
	if err != nil {
		return 0, s.fail(span, err)
	}
	days, err := compliance.MaxStay(intervals, entry)
	if err != nil {
		return 0, s.fail(span, translate(err))
	}
	return days, nil
}

// translate maps engine errors onto domain error codes. Errors that already
// carry a code pass through.
func translate(err error) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, compliance.ErrConflictingInterval):
		return dErrors.Wrap(err, dErrors.CodeConflict, "hypothetical trip overlaps an existing trip")
	case errors.Is(err, compliance.ErrUnknownZone):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, err.Error())
	case errors.Is(err, compliance.ErrInvalidInterval):
		return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "compliance evaluation failed")
	}
}

func (s *Service) startSpan(ctx context.Context, name string, personID id.PersonID, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("person_id", personID.String()))
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

func (s *Service) cachedStatus(ctx context.Context, personID id.PersonID, ref id.Date) (compliance.Status, bool) {
	if s.cache == nil {
		return compliance.Status{}, false
	}
	st, ok, err := s.cache.Get(ctx, personID, ref)
	if err != nil {
		s.logger.WarnContext(ctx, "status cache read failed",
			"request_id", requestcontext.RequestID(ctx),
			"person_id", personID,
			"error", err,
		)
		s.cacheLookup("error")
		return compliance.Status{}, false
	}
	if ok {
		s.cacheLookup("hit")
	} else {
		s.cacheLookup("miss")
	}
	return st, ok
}

func (s *Service) cacheGeneration(ctx context.Context, personID id.PersonID) (uint64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx, personID)
	if err != nil {
		s.logger.WarnContext(ctx, "status cache generation read failed",
			"request_id", requestcontext.RequestID(ctx),
			"person_id", personID,
			"error", err,
		)
		return 0, false
	}
	return gen, true
}

func (s *Service) storeStatus(ctx context.Context, personID id.PersonID, gen uint64, st compliance.Status) {
	stored, err := s.cache.Set(ctx, personID, gen, st)
	if err != nil {
		s.logger.WarnContext(ctx, "status cache write failed",
			"request_id", requestcontext.RequestID(ctx),
			"person_id", personID,
			"error", err,
		)
		return
	}
	if !stored {
		s.logger.DebugContext(ctx, "status cache write skipped, trips changed during evaluation",
			"request_id", requestcontext.RequestID(ctx),
			"person_id", personID,
		)
	}
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, start)
	}
}

func (s *Service) cacheLookup(result string) {
	if s.metrics != nil {
		s.metrics.IncrementCacheLookup(result)
	}
}

func (s *Service) recordTier(tier compliance.RiskTier) {
	if s.metrics != nil {
		s.metrics.IncrementRiskTier(string(tier))
	}
}
