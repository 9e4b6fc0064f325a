package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleCount returns how many observations h has recorded. CollectAndCount
// counts series, which stays at one for an unlabeled histogram.
func sampleCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestTimer_DurationIsMonotonic(t *testing.T) {
	timer := NewTimer()
	assert.False(t, timer.start.IsZero())

	first := timer.Duration()
	time.Sleep(5 * time.Millisecond)
	second := timer.Duration()
	assert.Greater(t, second, first)
}

func TestTimer_ObserveDurationRecordsAgainstClaimLatency(t *testing.T) {
	before := sampleCount(t, ClaimLatency)

	timer := NewTimer()
	time.Sleep(time.Millisecond)
	timer.ObserveDuration(ClaimLatency)

	assert.Equal(t, before+1, sampleCount(t, ClaimLatency))
}

func TestTimer_ObserveDurationVecRecordsAgainstAPIRequestDuration(t *testing.T) {
	before := testutil.CollectAndCount(APIRequestDuration)

	timer := NewTimer()
	time.Sleep(time.Millisecond)
	timer.ObserveDurationVec(APIRequestDuration, "/batches")

	assert.Equal(t, before+1, testutil.CollectAndCount(APIRequestDuration))
}

func TestAnalyzerTimer_ObserveDurationRecordsAgainstAnalyzerLatency(t *testing.T) {
	before := sampleCount(t, AnalyzerLatency)

	timer := NewAnalyzerTimer()
	time.Sleep(time.Millisecond)
	timer.ObserveDuration()

	assert.Equal(t, before+1, sampleCount(t, AnalyzerLatency))
}

func TestMultipleTimers_RunIndependently(t *testing.T) {
	first := NewTimer()
	time.Sleep(10 * time.Millisecond)
	second := NewTimer()
	time.Sleep(10 * time.Millisecond)

	assert.Greater(t, first.Duration(), second.Duration())
}
