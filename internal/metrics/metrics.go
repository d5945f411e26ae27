package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the inscription workflow.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PeopleCreated          prometheus.Counter
	InscriptionsRegistered prometheus.Counter
	WinnersPromoted        prometheus.Counter
	Rejections             *prometheus.CounterVec
	StorageDuration        *prometheus.HistogramVec
	GeoCacheLookups        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PeopleCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "sorteio_people_created_total",
			Help: "Total number of person records created",
		}),
		InscriptionsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "sorteio_inscriptions_registered_total",
			Help: "Total number of inscriptions recorded",
		}),
		WinnersPromoted: f.NewCounter(prometheus.CounterOpts{
			Name: "sorteio_winners_promoted_total",
			Help: "Total number of inscriptions promoted to winner",
		}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sorteio_rejections_total",
			Help: "Operations rejected, by operation and failure kind",
		}, []string{"operation", "kind"}),
		StorageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sorteio_storage_call_duration_seconds",
			Help:    "Duration of storage calls by operation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}, []string{"operation"}),
		GeoCacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sorteio_geo_cache_lookups_total",
			Help: "Municipality cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncPeopleCreated() {
	if m == nil {
		return
	}
	m.PeopleCreated.Inc()
}

func (m *Metrics) IncInscriptionsRegistered() {
	if m == nil {
		return
	}
	m.InscriptionsRegistered.Inc()
}

func (m *Metrics) IncWinnersPromoted() {
	if m == nil {
		return
	}
	m.WinnersPromoted.Inc()
}

// IncRejection records a failed operation.
func (m *Metrics) IncRejection(operation, kind string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(operation, kind).Inc()
}

// ObserveStorage records the duration of a storage call.
// Call with time.Now() at the start of the call.
func (m *Metrics) ObserveStorage(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.StorageDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncGeoCache records a municipality cache lookup result.
func (m *Metrics) IncGeoCache(result string) {
	if m == nil {
		return
	}
	m.GeoCacheLookups.WithLabelValues(result).Inc()
}
