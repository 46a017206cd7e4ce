// Package publisher delivers future-risk alerts.
//
// Kafka is the primary sink. Log writes alerts as structured log lines and
// serves as the fallback while Kafka is failing, and as the only sink when
// no brokers are configured.
package publisher

import (
	"context"
	"log/slog"

	"sojourn/internal/alerts/metrics"
	"sojourn/internal/alerts/models"
	"sojourn/pkg/platform/circuit"
)

// Publisher delivers alerts.
type Publisher interface {
	Publish(ctx context.Context, alert models.Alert) error
	Close()
}

// Log publishes alerts as log lines.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log publisher.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (p *Log) Publish(ctx context.Context, alert models.Alert) error {
	p.logger.WarnContext(ctx, "compliance alert",
		"alert_id", alert.ID,
		"person_id", alert.PersonID,
		"at_risk_on", alert.AtRiskOn,
		"risk_tier", alert.RiskTier,
		"days_used", alert.DaysUsed,
		"days_remaining", alert.DaysRemaining,
		"is_violation", alert.IsViolation,
	)
	return nil
}

func (p *Log) Close() {}

// Fallback publishes to primary and switches to fallback once the breaker
// opens. The primary is still attempted on every publish so it can recover.
type Fallback struct {
	primary  Publisher
	fallback Publisher
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// FallbackOption configures a Fallback publisher.
type FallbackOption func(*Fallback)

func WithLogger(logger *slog.Logger) FallbackOption {
	return func(f *Fallback) {
		f.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) FallbackOption {
	return func(f *Fallback) {
		f.metrics = m
	}
}

// NewFallback wraps primary with fallback behind breaker.
func NewFallback(primary, fallback Publisher, breaker *circuit.Breaker, opts ...FallbackOption) *Fallback {
	f := &Fallback{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Publish returns the primary error until the breaker opens; after that the
// alert goes to the fallback and only a fallback error is returned.
func (f *Fallback) Publish(ctx context.Context, alert models.Alert) error {
	err := f.primary.Publish(ctx, alert)
	if err == nil {
		if _, change := f.breaker.RecordSuccess(); change.Closed {
			f.logger.InfoContext(ctx, "alert publisher recovered", "breaker", f.breaker.Name())
			f.setFallbackActive(false)
		}
		return nil
	}

	useFallback, change := f.breaker.RecordFailure()
	if change.Opened {
		f.logger.WarnContext(ctx, "alert publisher failing, switching to fallback",
			"breaker", f.breaker.Name(),
			"error", err,
		)
		f.setFallbackActive(true)
	}
	if !useFallback {
		return err
	}
	return f.fallback.Publish(ctx, alert)
}

func (f *Fallback) Close() {
	f.primary.Close()
	f.fallback.Close()
}

func (f *Fallback) setFallbackActive(active bool) {
	if f.metrics != nil {
		f.metrics.SetFallbackActive(active)
	}
}
