package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TransactionMetrics records sale and payment volume.
type TransactionMetrics struct {
	salesRecorded    *prometheus.CounterVec
	paymentsAttached *prometheus.CounterVec
	duplicateReplays prometheus.Counter
}

// NewTransactionMetrics registers the transaction metrics on the provided
// registerer.
func NewTransactionMetrics(reg prometheus.Registerer) *TransactionMetrics {
	if reg == nil {
		return &TransactionMetrics{}
	}
	salesRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_recorded_total",
		Help: "Sales recorded, by resulting status.",
	}, []string{"status"})
	paymentsAttached := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_attached_total",
		Help: "Payments attached to sales, by method.",
	}, []string{"method"})
	duplicateReplays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sale_duplicate_replays_total",
		Help: "Sale submissions resolved to an existing sale by idempotency key.",
	})
	reg.MustRegister(salesRecorded, paymentsAttached, duplicateReplays)
	return &TransactionMetrics{
		salesRecorded:    salesRecorded,
		paymentsAttached: paymentsAttached,
		duplicateReplays: duplicateReplays,
	}
}

// IncSaleRecorded increments the sale counter for the given status.
func (t *TransactionMetrics) IncSaleRecorded(status string) {
	if t == nil || t.salesRecorded == nil {
		return
	}
	t.salesRecorded.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncPaymentAttached increments the payment counter for the given method.
func (t *TransactionMetrics) IncPaymentAttached(method string) {
	if t == nil || t.paymentsAttached == nil {
		return
	}
	t.paymentsAttached.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncDuplicateReplay counts an idempotent sale replay.
func (t *TransactionMetrics) IncDuplicateReplay() {
	if t == nil || t.duplicateReplays == nil {
		return
	}
	t.duplicateReplays.Inc()
}

// DrainMetrics records offline queue drain outcomes.
type DrainMetrics struct {
	entries  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewDrainMetrics registers the drain metrics on the provided registerer.
func NewDrainMetrics(reg prometheus.Registerer) *DrainMetrics {
	if reg == nil {
		return &DrainMetrics{}
	}
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_entries_total",
		Help: "Drained offline entries, by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_drain_duration_seconds",
		Help:    "Duration of full drain passes in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(entries, duration)
	return &DrainMetrics{entries: entries, duration: duration}
}

// IncEntry counts one drained entry with the given outcome.
func (d *DrainMetrics) IncEntry(outcome string) {
	if d == nil || d.entries == nil {
		return
	}
	d.entries.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDrain records the duration of a drain pass.
func (d *DrainMetrics) ObserveDrain(duration time.Duration) {
	if d == nil || d.duration == nil {
		return
	}
	d.duration.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
