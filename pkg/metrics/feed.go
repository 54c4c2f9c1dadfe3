package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FeedMetrics records audit feed publisher activity.
type FeedMetrics struct {
	published prometheus.Counter
	failures  prometheus.Counter
	duration  prometheus.Histogram
}

// NewFeedMetrics registers the feed metrics on the provided registerer.
func NewFeedMetrics(reg prometheus.Registerer) *FeedMetrics {
	if reg == nil {
		return &FeedMetrics{}
	}
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_feed_published_total",
		Help: "Audit entries published to the feed topic.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_feed_failures_total",
		Help: "Audit entries that failed to publish.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "audit_feed_batch_duration_seconds",
		Help:    "Duration of feed publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(published, failures, duration)
	return &FeedMetrics{published: published, failures: failures, duration: duration}
}

// IncPublished counts a successfully published entry.
func (f *FeedMetrics) IncPublished() {
	if f == nil || f.published == nil {
		return
	}
	f.published.Inc()
}

// IncFailure counts a publish failure.
func (f *FeedMetrics) IncFailure() {
	if f == nil || f.failures == nil {
		return
	}
	f.failures.Inc()
}

// ObserveBatch records the duration of a publish batch.
func (f *FeedMetrics) ObserveBatch(duration time.Duration) {
	if f == nil || f.duration == nil {
		return
	}
	f.duration.Observe(duration.Seconds())
}
