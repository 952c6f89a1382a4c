package node

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ocppnet/ocppnet/addressing"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	n := newTestNode(t, "CSMS", "overlay", nil)

	n.HandleFunc("Heartbeat", func(ctx context.Context, req ocpp.Envelope) (json.RawMessage, error) {
		return json.RawMessage(`{"currentTime":"2024-01-01T00:00:00Z"}`), nil
	})

	n.HandleFunc("FirmwareChunk", func(ctx context.Context, req ocpp.Envelope) (json.RawMessage, error) {
		return append([]byte("ack:"), req.BinaryPayload...), nil
	})

	n.HandleFunc("Fail", func(ctx context.Context, req ocpp.Envelope) (json.RawMessage, error) {
		return nil, errors.New("failed")
	})

	path := ocpp.WithNetworkPath(addressing.NewNetworkPath("CS1", "NN1"))
	ctx := context.Background()

	t.Run("response is addressed to the source", func(t *testing.T) {
		req := ocpp.NewRequest("1", "Heartbeat", json.RawMessage(`{}`), ocpp.WithMode(ocpp.ModeOverlay), path)

		reply, ok := n.execute(ctx, req)

		require.True(t, ok)
		assert.Equal(t, ocpp.KindResponse, reply.Kind)
		assert.Equal(t, req.EventTrackingID, reply.EventTrackingID)
		assert.Equal(t, ocpp.ModeOverlay, reply.NetworkingMode)
		assert.True(t, reply.Destination.Equal(addressing.To("CS1")))
	})

	t.Run("binary request", func(t *testing.T) {
		req := ocpp.NewBinaryRequest("2", "FirmwareChunk", []byte{1, 2}, path)

		reply, ok := n.execute(ctx, req)

		require.True(t, ok)
		assert.True(t, reply.IsBinary())
		assert.Equal(t, []byte{'a', 'c', 'k', ':', 1, 2}, reply.BinaryPayload)
	})

	t.Run("send results are discarded", func(t *testing.T) {
		_, ok := n.execute(ctx, ocpp.NewSend("3", "Fail", json.RawMessage(`{}`)))
		assert.False(t, ok)

		_, ok = n.execute(ctx, ocpp.NewSend("4", "Unknown", json.RawMessage(`{}`)))
		assert.False(t, ok)
	})

	t.Run("handler error", func(t *testing.T) {
		reply, ok := n.execute(ctx, ocpp.NewRequest("5", "Fail", json.RawMessage(`{}`), path))

		require.True(t, ok)
		assert.Equal(t, ocpp.CodeInternalError, reply.ErrorCode)
		assert.Equal(t, ocpp.RequestID("5"), reply.RequestID)
	})
}
