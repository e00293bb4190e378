package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Counters(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.CounterEntriesAdded.Inc()
	m.CounterImportedRows.Add(3)
	m.CounterDroppedRows.Inc()
	m.CounterRequests.WithLabelValues("GET", "200").Inc()
	m.GaugeLifeSignal.Set(1)

	assert.InDelta(t, 1, testutil.ToFloat64(m.CounterEntriesAdded), 0.0001)
	assert.InDelta(t, 3, testutil.ToFloat64(m.CounterImportedRows), 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GaugeLifeSignal), 0.0001)

	var metric dto.Metric
	require.NoError(t, m.CounterDroppedRows.Write(&metric))
	assert.InDelta(t, 1, metric.GetCounter().GetValue(), 0.0001)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, count)
}
