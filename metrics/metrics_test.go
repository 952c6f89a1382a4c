package metrics

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()

	m.FrameReceived("text")
	m.FrameReceived("text")
	m.FrameReceived("binary")
	m.FrameSent("text")
	m.FrameForwarded()
	m.FrameDropped("loop")
	m.ParseFailed()
	m.SignatureFailed(DirectionInbound)
	m.RequestSent()
	m.RequestReceived()
	m.RequestCompleted(OutcomeTimeout, 50*time.Millisecond)
	m.SetPendingRequests(3)
	m.SetConnections(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("binary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesForwarded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestOutcomes.WithLabelValues(OutcomeTimeout)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.pendingRequests))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.connections))

	fams, err := m.Registry.Gather()
	require.NoError(t, err)

	got := make(map[string]bool)
	for _, f := range fams {
		got[f.GetName()] = true
	}

	for _, name := range []string{
		"ocppnet_frames_received_total",
		"ocppnet_frames_forwarded_total",
		"ocppnet_parse_failures_total",
		"ocppnet_signature_failures_total",
		"ocppnet_request_duration_seconds",
		"ocppnet_pending_requests",
	} {
		assert.True(t, got[name], name)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := New()
	m.RequestSent()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "ocppnet_requests_sent_total 1")
}

func TestPrinterSnapshot(t *testing.T) {
	m := New()

	m.FrameReceived("text")
	m.FrameReceived("binary")
	m.SetPendingRequests(4)

	conf := NewConfig()
	printer := NewPrinter(m, &conf, slog.New(slog.NewTextHandler(io.Discard, nil)))

	snapshot, err := printer.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, 2.0, snapshot["frames_received_total"])
	assert.Equal(t, 4.0, snapshot["pending_requests"])
	assert.NotContains(t, snapshot, "go_goroutines")

	conf.LogFilter = []string{"pending_requests"}
	printer = NewPrinter(m, &conf, slog.New(slog.NewTextHandler(io.Discard, nil)))

	snapshot, err = printer.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"pending_requests": 4}, snapshot)

	printer.Print()
}
