package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the future-risk alert scanner.
type Metrics struct {
	ScansCompleted   prometheus.Counter
	ScanDuration     prometheus.Histogram
	PersonsScanned   prometheus.Counter
	PersonFailures   prometheus.Counter
	AlertsPublished  *prometheus.CounterVec
	PublishFailures  prometheus.Counter
	PublisherBreaker prometheus.Gauge
}

// New creates a Metrics instance with all alert metrics registered.
func New() *Metrics {
	return &Metrics{
		ScansCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sojourn_alert_scans_total",
			Help: "Total number of completed alert scans",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sojourn_alert_scan_duration_seconds",
			Help:    "Duration of one alert scan over every tracked person",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		PersonsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sojourn_alert_persons_scanned_total",
			Help: "Persons evaluated by the alert scanner",
		}),
		PersonFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sojourn_alert_person_failures_total",
			Help: "Persons the alert scanner could not evaluate",
		}),
		AlertsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sojourn_alerts_published_total",
			Help: "Alerts published, by risk tier",
		}, []string{"tier"}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sojourn_alert_publish_failures_total",
			Help: "Alerts that could not be published",
		}),
		PublisherBreaker: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sojourn_alert_publisher_fallback_active",
			Help: "1 while alerts are routed to the fallback publisher",
		}),
	}
}

// ObserveScan records one finished scan.
func (m *Metrics) ObserveScan(start time.Time, persons int) {
	m.ScansCompleted.Inc()
	m.ScanDuration.Observe(time.Since(start).Seconds())
	m.PersonsScanned.Add(float64(persons))
}

func (m *Metrics) IncrementPersonFailure() {
	m.PersonFailures.Inc()
}

func (m *Metrics) IncrementPublished(tier string) {
	m.AlertsPublished.WithLabelValues(tier).Inc()
}

func (m *Metrics) IncrementPublishFailure() {
	m.PublishFailures.Inc()
}

// SetFallbackActive flags whether the fallback publisher is in use.
func (m *Metrics) SetFallbackActive(active bool) {
	if active {
		m.PublisherBreaker.Set(1)
		return
	}
	m.PublisherBreaker.Set(0)
}
