package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { reg.MustRegister(m.collectors()...) })

	m.StationsByPriority.WithLabelValues("ALTA").Set(4)
	m.RowsDefaulted.WithLabelValues("data_expected").Inc()

	assert.InDelta(t, 4, testutil.ToFloat64(m.StationsByPriority.WithLabelValues("ALTA")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RowsDefaulted.WithLabelValues("data_expected")), 0)
}
