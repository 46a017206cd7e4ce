package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for trip ingestion.
// Tracks accepted writes, rejected conflicts and write latency.
type Metrics struct {
	TripsWritten      *prometheus.CounterVec
	TripConflicts     prometheus.Counter
	TripsRejected     *prometheus.CounterVec
	WriteDuration     prometheus.Histogram
	ConflictScanPairs prometheus.Histogram
}

// New creates a Metrics instance with all trip metrics registered.
func New() *Metrics {
	return &Metrics{
		TripsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sojourn_trips_written_total",
			Help: "Total number of trip writes accepted, by operation",
		}, []string{"op"}),
		TripConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sojourn_trip_conflicts_total",
			Help: "Total number of trip writes rejected because they overlap an existing trip",
		}),
		TripsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sojourn_trips_rejected_total",
			Help: "Total number of trip writes rejected before reaching the store, by reason",
		}, []string{"reason"}),
		WriteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sojourn_trip_write_duration_seconds",
			Help:    "Duration of trip add, edit and delete operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ConflictScanPairs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sojourn_trip_conflict_scan_pairs",
			Help:    "Number of overlapping pairs found by a full conflict scan",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		}),
	}
}

// IncrementWritten records an accepted write ("add", "edit" or "delete").
func (m *Metrics) IncrementWritten(op string) {
	m.TripsWritten.WithLabelValues(op).Inc()
}

// IncrementConflict records a write rejected as overlapping.
func (m *Metrics) IncrementConflict() {
	m.TripConflicts.Inc()
}

// IncrementRejected records a write rejected for reason.
func (m *Metrics) IncrementRejected(reason string) {
	m.TripsRejected.WithLabelValues(reason).Inc()
}

// ObserveWrite records the duration of a write.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveWrite(start time.Time) {
	m.WriteDuration.Observe(time.Since(start).Seconds())
}

// ObserveConflictScan records how many overlapping pairs a scan found.
func (m *Metrics) ObserveConflictScan(pairs int) {
	m.ConflictScanPairs.Observe(float64(pairs))
}
