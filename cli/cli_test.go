package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ocppnet/ocppnet/config"
	"github.com/ocppnet/ocppnet/node"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunner(t *testing.T) {
	c := config.NewConfig()

	t.Run("options", func(t *testing.T) {
		r, err := NewRunner(&c, []Option{WithName("test-node")})
		require.NoError(t, err)

		assert.Equal(t, "test-node", r.name)
		assert.NotNil(t, r.log)
		assert.NotNil(t, r.metrics)
	})

	t.Run("duplicate handler", func(t *testing.T) {
		h := node.HandlerFunc(func(context.Context, ocpp.Envelope) (json.RawMessage, error) {
			return json.RawMessage(`{}`), nil
		})

		_, err := NewRunner(&c, []Option{WithHandler("Heartbeat", h), WithHandler("Heartbeat", h)})
		assert.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		bad := config.NewConfig()
		bad.Log.LogLevel = "loud"

		_, err := NewRunner(&bad, nil)
		assert.Error(t, err)
	})
}

func TestEmbed(t *testing.T) {
	c := config.NewConfig()
	c.Node.ID = "CSMS"

	setupCalled := false

	r, err := NewRunner(&c, []Option{
		WithNodeSetup(func(n *node.Node) error {
			setupCalled = true
			return nil
		}),
	})
	require.NoError(t, err)

	embed, err := r.Embed()
	require.NoError(t, err)

	assert.True(t, setupCalled)
	assert.Equal(t, "CSMS", string(embed.Node().ID()))

	t.Run("metrics handler", func(t *testing.T) {
		srv := httptest.NewServer(embed.MetricsHandler())
		defer srv.Close()

		res, err := http.Get(srv.URL)
		require.NoError(t, err)
		defer res.Body.Close()

		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Contains(t, string(body), "ocppnet_")
	})

	t.Run("websocket handler rejects plain requests", func(t *testing.T) {
		srv := httptest.NewServer(embed.WebSocketHandler())
		defer srv.Close()

		res, err := http.Get(srv.URL + "/ocpp/CS1")
		require.NoError(t, err)
		defer res.Body.Close()

		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	require.NoError(t, embed.Shutdown(context.Background()))
}

func TestEmbed_InvalidNodeID(t *testing.T) {
	c := config.NewConfig()
	c.Node.ID = ""

	r, err := NewRunner(&c, nil)
	require.NoError(t, err)

	_, err = r.Embed()
	assert.Error(t, err)
}
