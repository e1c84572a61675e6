package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNewCollectorsUsable(t *testing.T) {
	c := NewCollectors()
	c.BloomSaves.Inc()
	c.HashSetSaves.Inc()
	c.FalsePositives.Inc()
	c.BlockMatches.Inc()
	c.ExceptionMatches.Inc()

	assert.Equal(t, float64(1), counterValue(t, c.BloomSaves))
	assert.Equal(t, float64(1), counterValue(t, c.HashSetSaves))
	assert.Equal(t, float64(1), counterValue(t, c.FalsePositives))
	assert.Equal(t, float64(1), counterValue(t, c.BlockMatches))
	assert.Equal(t, float64(1), counterValue(t, c.ExceptionMatches))
}

func TestCollectRegistersAllCounters(t *testing.T) {
	c := NewCollectors()
	reg := prometheus.NewRegistry()
	require.NoError(t, c.Collect(reg))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 5)
}

func TestCollectDuplicateRegistrationFails(t *testing.T) {
	c := NewCollectors()
	reg := prometheus.NewRegistry()
	require.NoError(t, c.Collect(reg))
	assert.Error(t, c.Collect(reg))
}
