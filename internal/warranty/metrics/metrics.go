package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the warranty registry.
// Tracks certificate creation, transfers, validity answers, cache and outbox
// behaviour.
type Metrics struct {
	CertificatesCreated   prometheus.Counter
	CreationRejected      *prometheus.CounterVec
	Transfers             *prometheus.CounterVec
	ValidityChecks        *prometheus.CounterVec
	CacheRequests         *prometheus.CounterVec
	OutboxPublished       prometheus.Counter
	OutboxPublishFailures prometheus.Counter
	CreateDuration        prometheus.Histogram
	TransferDuration      prometheus.Histogram
}

// New registers the registry metrics with reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration against the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CertificatesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "warranty_certificates_created_total",
			Help: "Total number of warranty certificates created",
		}),
		CreationRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warranty_creation_rejected_total",
			Help: "Certificate creations rejected before any write, by reason",
		}, []string{"reason"}),
		Transfers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warranty_transfers_total",
			Help: "Certificate transfers by result",
		}, []string{"result"}),
		ValidityChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warranty_validity_checks_total",
			Help: "Validity answers by result",
		}, []string{"result"}),
		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warranty_cache_requests_total",
			Help: "Certificate cache lookups by result (hit, miss, error, bypass)",
		}, []string{"result"}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "warranty_outbox_published_total",
			Help: "Events delivered from the outbox to the sink",
		}),
		OutboxPublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "warranty_outbox_publish_failures_total",
			Help: "Outbox deliveries that failed and will be retried",
		}),
		CreateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "warranty_create_duration_seconds",
			Help:    "Duration of certificate creation",
			Buckets: durationBuckets,
		}),
		TransferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "warranty_transfer_duration_seconds",
			Help:    "Duration of certificate transfers",
			Buckets: durationBuckets,
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.CertificatesCreated.Inc()
}

// IncrementRejected records a creation rejected for reason.
func (m *Metrics) IncrementRejected(reason string) {
	m.CreationRejected.WithLabelValues(reason).Inc()
}

// IncrementTransfer records a transfer outcome: "ok", "forbidden", "invalid",
// "not_found" or "error".
func (m *Metrics) IncrementTransfer(result string) {
	m.Transfers.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementValidityCheck(valid bool) {
	result := "expired"
	if valid {
		result = "valid"
	}
	m.ValidityChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementCache(result string) {
	m.CacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementOutboxPublished(n int) {
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncrementOutboxFailure() {
	m.OutboxPublishFailures.Inc()
}

// ObserveCreate records the duration of a creation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}

// ObserveTransfer records the duration of a transfer.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTransfer(start time.Time) {
	m.TransferDuration.Observe(time.Since(start).Seconds())
}
