package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordStep(t *testing.T) {
	RecordStep("lte-apj", "probe", "ok", 1, 20*time.Millisecond)
	RecordStep("lte-apj", "probe", "ok", 3, 40*time.Millisecond)
	RecordStep("lte-apj", "probe", "timeout", 2, time.Second)

	require.Equal(t, 2.0, testutil.ToFloat64(stepOutcomes.WithLabelValues("lte-apj", "probe", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(stepOutcomes.WithLabelValues("lte-apj", "probe", "timeout")))
	require.Equal(t, 6.0, testutil.ToFloat64(stepAttempts.WithLabelValues("lte-apj", "probe")))
}

func TestRecordHalt(t *testing.T) {
	RecordHalt("gnss12")
	require.Equal(t, 1.0, testutil.ToFloat64(sequenceHalts.WithLabelValues("gnss12")))
}

func TestRecordHTTPRequest(t *testing.T) {
	RecordHTTPRequest("POST", "/command", 200)
	require.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues("POST", "/command", "200")))

	// Registration happens once no matter how often metrics are recorded.
	require.NotPanics(t, RegisterMetrics)
}
