package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for status evaluation and forecasting.
type Metrics struct {
	Evaluations       *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	DashboardFailures prometheus.Counter
	DashboardPersons  prometheus.Histogram
	RiskTierEvaluated *prometheus.CounterVec
}

// New creates a Metrics instance with all compliance metrics registered.
func New() *Metrics {
	return &Metrics{
		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sojourn_compliance_evaluations_total",
			Help: "Total number of compliance operations, by operation",
		}, []string{"op"}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sojourn_status_cache_lookups_total",
			Help: "Status cache lookups, by result (hit, miss, error)",
		}, []string{"result"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sojourn_compliance_operation_duration_seconds",
			Help:    "Duration of compliance operations including snapshot loading",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
		DashboardFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sojourn_dashboard_person_failures_total",
			Help: "Persons whose status could not be computed while building a dashboard",
		}),
		DashboardPersons: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sojourn_dashboard_persons",
			Help:    "Number of persons evaluated per dashboard request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		RiskTierEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sojourn_status_risk_tier_total",
			Help: "Statuses computed, by risk tier",
		}, []string{"tier"}),
	}
}

// ObserveOperation records one operation and its duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(op string, start time.Time) {
	m.Evaluations.WithLabelValues(op).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// IncrementCacheLookup records a cache hit, miss or error.
func (m *Metrics) IncrementCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

// IncrementDashboardFailure records one isolated per-person failure.
func (m *Metrics) IncrementDashboardFailure() {
	m.DashboardFailures.Inc()
}

// ObserveDashboardSize records how many persons a dashboard covered.
func (m *Metrics) ObserveDashboardSize(n int) {
	m.DashboardPersons.Observe(float64(n))
}

// IncrementRiskTier records a computed status's tier.
func (m *Metrics) IncrementRiskTier(tier string) {
	m.RiskTierEvaluated.WithLabelValues(tier).Inc()
}
