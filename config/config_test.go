package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	config := NewConfig()

	assert.Equal(t, "ocppnet", config.Node.ID)
	assert.Equal(t, "standard", config.Protocol.Mode)
	assert.False(t, config.Server.SSL.Available())
	assert.NoError(t, config.Validate())
}

func TestConfig_ToToml(t *testing.T) {
	conf := NewConfig()
	conf.Node.ID = "NN1"
	conf.Node.Routes = map[string]string{"CS1": "NN2"}
	conf.Protocol.Mode = "overlay"
	conf.Signing.Policy = "hmac"
	conf.Signing.Secret = "s3Krit"
	conf.Signing.TrustedKeys = map[string]string{"csms": "AAAA"}
	conf.WS.UpstreamURL = "ws://csms.local/ocpp"
	conf.WS.UpstreamID = "CSMS"
	conf.NATS.Neighbours = []string{"NN3"}
	conf.Metrics.LogFilter = []string{"frames_received_total"}

	tomlStr := conf.ToToml()

	assert.Contains(t, tomlStr, "[node]\n")
	assert.Contains(t, tomlStr, "[embedded_nats]\n")
	assert.Contains(t, tomlStr, "shutdown_timeout = 30")

	// Round-trip test
	conf2 := NewConfig()

	_, err := toml.Decode(tomlStr, &conf2)
	require.NoError(t, err)

	assert.Equal(t, conf, conf2)
}

func TestConfig_LoadFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "ocppnet.toml")

		require.NoError(t, os.WriteFile(path, []byte(`
shutdown_timeout = 5

[node]
id = "CSMS"
routes = { "CS42" = "NN1" }

[protocol]
mode = "overlay"

[correlation]
default_timeout = 60
`), 0o600))

		conf := NewConfig()
		require.NoError(t, conf.LoadFromFile(path))

		assert.Equal(t, path, conf.ConfigFilePath)
		assert.Equal(t, 5, conf.ShutdownTimeout)
		assert.Equal(t, "CSMS", conf.Node.ID)
		assert.Equal(t, map[string]string{"CS42": "NN1"}, conf.Node.Routes)
		assert.Equal(t, "overlay", conf.Protocol.Mode)
		assert.Equal(t, 60, conf.Correlation.DefaultTimeout)
		// defaults are kept
		assert.Equal(t, 64, conf.Node.HandlerPoolSize)
	})

	t.Run("unknown keys", func(t *testing.T) {
		path := filepath.Join(dir, "unknown.toml")

		require.NoError(t, os.WriteFile(path, []byte("[node]\nname = \"x\"\n"), 0o600))

		conf := NewConfig()
		err := conf.LoadFromFile(path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "node.name")
	})

	t.Run("missing file", func(t *testing.T) {
		conf := NewConfig()

		assert.Error(t, conf.LoadFromFile(filepath.Join(dir, "missing.toml")))
	})
}

func TestConfig_Validate(t *testing.T) {
	conf := NewConfig()
	conf.Protocol.Mode = "mesh"
	assert.Error(t, conf.Validate())

	conf = NewConfig()
	conf.WS.UpstreamURL = "ws://csms.local/ocpp"
	assert.Error(t, conf.Validate())

	conf = NewConfig()
	conf.Signing.RequireSignatures = true
	assert.Error(t, conf.Validate())
}
