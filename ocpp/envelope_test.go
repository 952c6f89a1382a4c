package ocpp

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ocppnet/ocppnet/addressing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_Transforms(t *testing.T) {
	path := addressing.NewNetworkPath("CS1", "NN1")
	req := NewRequest("r1", "Heartbeat", json.RawMessage(`{}`), WithNetworkPath(path))

	t.Run("networking mode", func(t *testing.T) {
		overlay := req.WithNetworkingMode(ModeOverlay)

		assert.Equal(t, ModeOverlay, overlay.NetworkingMode)
		assert.Equal(t, ModeUnknown, req.NetworkingMode)
	})

	t.Run("destination", func(t *testing.T) {
		routed := req.WithDestination(addressing.To("CSMS"))

		assert.Equal(t, addressing.To("CSMS"), routed.Destination)
		assert.True(t, req.Destination.IsZero())
	})

	t.Run("append hop does not alias", func(t *testing.T) {
		a := req.AppendHop("NN2")
		b := req.AppendHop("NN3")

		assert.Equal(t, "CS1 -> NN1 -> NN2", a.NetworkPath.String())
		assert.Equal(t, "CS1 -> NN1 -> NN3", b.NetworkPath.String())
		assert.Equal(t, 2, req.NetworkPath.Len())
	})

	t.Run("transport error", func(t *testing.T) {
		failed := req.WithTransportError("connection closed")

		assert.Equal(t, "connection closed", failed.ErrorMessage)
		assert.Empty(t, req.ErrorMessage)
		assert.Contains(t, failed.LogValues(), "transport_error")
		assert.NotContains(t, req.LogValues(), "transport_error")
	})
}

func TestEnvelope_Kinds(t *testing.T) {
	req := NewRequest("r1", "Heartbeat", json.RawMessage(`{}`))
	send := NewSend("s1", "NotifyEvent", json.RawMessage(`{}`))
	res := NewResponse("r1", json.RawMessage(`{}`))
	rerr := NewRequestError("r1", CodeInternalError, "boom", nil)

	assert.True(t, req.ExpectsReply())
	assert.False(t, send.ExpectsReply())

	assert.True(t, res.IsReply())
	assert.True(t, rerr.IsReply())
	assert.False(t, req.IsReply())

	assert.False(t, req.IsBinary())
	assert.True(t, NewBinaryRequest("b1", "Upload", []byte{}).IsBinary())
}

func TestEnvelope_Reply(t *testing.T) {
	req := NewRequest(
		"r1", "Heartbeat", json.RawMessage(`{}`),
		WithMode(ModeOverlay),
		WithNetworkPath(addressing.NewNetworkPath("CS1", "NN1")),
		WithDestination(addressing.To("CSMS")),
	)

	res := req.Reply(json.RawMessage(`{"currentTime":"2024-01-01T00:00:00Z"}`))

	assert.Equal(t, KindResponse, res.Kind)
	assert.Equal(t, req.RequestID, res.RequestID)
	assert.Equal(t, req.EventTrackingID, res.EventTrackingID)
	assert.Equal(t, ModeOverlay, res.NetworkingMode)
	assert.Equal(t, addressing.To("CS1"), res.Destination)
	assert.True(t, res.NetworkPath.IsEmpty())

	bin := req.BinaryReply([]byte{1, 2})

	assert.Equal(t, []byte{1, 2}, bin.BinaryPayload)
	assert.Equal(t, addressing.To("CS1"), bin.Destination)
}

func TestEnvelope_Remaining(t *testing.T) {
	now := time.Now()
	req := NewRequest("r1", "Heartbeat", json.RawMessage(`{}`), WithTimestamp(now), WithRequestTimeout(10*time.Second))

	require.Equal(t, now.Add(10*time.Second), req.RequestTimeout)

	assert.Equal(t, 4*time.Second, req.Remaining(now.Add(6*time.Second)))
	assert.Equal(t, time.Duration(0), NewSend("s1", "X", nil).Remaining(now))
}

func TestWithRequestTimeout_OptionOrder(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	req := NewRequest("r1", "Heartbeat", json.RawMessage(`{}`), WithRequestTimeout(10*time.Second), WithTimestamp(ts))

	assert.Equal(t, ts.Add(10*time.Second), req.RequestTimeout)
}
