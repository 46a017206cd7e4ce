package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"sojourn/internal/compliance"
	id "sojourn/pkg/domain"
	dErrors "sojourn/pkg/domain-errors"
	"sojourn/pkg/requestcontext"
)

// PersonStatus is one dashboard row. Exactly one of Status and Error is set.
type PersonStatus struct {
	PersonID id.PersonID
	Status   *compliance.Status
	Err      error
}

// Dashboard is the status of every tracked person on one date.
type Dashboard struct {
	ReferenceDate id.Date
	Persons       []PersonStatus
	Tiers         map[compliance.RiskTier]int
	Violations    int
	Failures      int
}

// Dashboard evaluates every tracked person at ref. A person whose status
// cannot be computed gets an error row; the others are unaffected.
func (s *Service) Dashboard(ctx context.Context, ref id.Date) (*Dashboard, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.Dashboard")
	defer span.End()
	span.SetAttributes(attribute.String("reference_date", ref.String()))
	start := time.Now()
	defer s.observe("dashboard", start)

	persons, err := s.source.ListPersons(ctx)
	if err != nil {
		return nil, s.fail(span, err)
	}

	rows := make([]PersonStatus, len(persons))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, personID := range persons {
		g.Go(func() error {
			rows[i] = s.dashboardRow(ctx, personID, ref)
			return nil
		})
	}
	// Rows carry their own errors, so Wait never fails.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeUnavailable, "dashboard cancelled"))
	}

	d := &Dashboard{
		ReferenceDate: ref,
		Persons:       rows,
		Tiers: map[compliance.RiskTier]int{
			compliance.TierSafe:    0,
			compliance.TierCaution: 0,
			compliance.TierAtRisk:  0,
		},
	}
	for _, row := range rows {
		if row.Err != nil {
			d.Failures++
			continue
		}
		d.Tiers[row.Status.RiskTier]++
		if row.Status.IsViolation {
			d.Violations++
		}
	}

	span.SetAttributes(
		attribute.Int("persons", len(rows)),
		attribute.Int("failures", d.Failures),
	)
	if s.metrics != nil {
		s.metrics.ObserveDashboardSize(len(rows))
	}
	s.logger.InfoContext(ctx, "dashboard built",
		"request_id", requestcontext.RequestID(ctx),
		"reference_date", ref,
		"persons", len(rows),
		"failures", d.Failures,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return d, nil
}

func (s *Service) dashboardRow(ctx context.Context, personID id.PersonID, ref id.Date) PersonStatus {
	if err := ctx.Err(); err != nil {
		return PersonStatus{PersonID: personID, Err: err}
	}
	st, err := s.Status(ctx, personID, ref)
	if err != nil {
		s.logger.WarnContext(ctx, "dashboard status failed",
			"request_id", requestcontext.RequestID(ctx),
			"person_id", personID,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementDashboardFailure()
		}
		return PersonStatus{PersonID: personID, Err: err}
	}
	return PersonStatus{PersonID: personID, Status: &st}
}
