package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() == name {
			return fam
		}
	}
	return nil
}

func TestTransactionMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTransactionMetrics(reg)

	m.IncSaleRecorded("completed")
	m.IncSaleRecorded("completed")
	m.IncSaleRecorded("")
	m.IncPaymentAttached("cash")
	m.IncDuplicateReplay()

	sales := gather(t, reg, "sales_recorded_total")
	require.NotNil(t, sales)
	byLabel := map[string]float64{}
	for _, metric := range sales.GetMetric() {
		byLabel[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
	}
	require.Equal(t, float64(2), byLabel["completed"])
	require.Equal(t, float64(1), byLabel["unknown"])

	payments := gather(t, reg, "payments_attached_total")
	require.NotNil(t, payments)
	require.Equal(t, float64(1), payments.GetMetric()[0].GetCounter().GetValue())

	replays := gather(t, reg, "sale_duplicate_replays_total")
	require.NotNil(t, replays)
	require.Equal(t, float64(1), replays.GetMetric()[0].GetCounter().GetValue())
}

func TestDrainMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDrainMetrics(reg)

	m.IncEntry("applied")
	m.IncEntry("rejected")
	m.ObserveDrain(120 * time.Millisecond)

	entries := gather(t, reg, "sync_entries_total")
	require.NotNil(t, entries)
	require.Len(t, entries.GetMetric(), 2)

	duration := gather(t, reg, "sync_drain_duration_seconds")
	require.NotNil(t, duration)
	require.Equal(t, uint64(1), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewTransactionMetrics(nil)
	require.NotPanics(t, func() {
		m.IncSaleRecorded("completed")
		m.IncPaymentAttached("cash")
		m.IncDuplicateReplay()
	})

	var absent *DrainMetrics
	require.NotPanics(t, func() { absent.IncEntry("applied") })
}
