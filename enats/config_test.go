package enats

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ToToml(t *testing.T) {
	conf := Config{
		Enabled:     true,
		Debug:       false,
		Trace:       true,
		ServiceAddr: "nats://localhost:4222",
		ClusterAddr: "nats://localhost:6222",
		ClusterName: "test-cluster",
		Routes:      []string{"nats://route1:6222", "nats://route2:6222"},
	}

	tomlStr := conf.ToToml()

	assert.Contains(t, tomlStr, "enabled = true")
	assert.Contains(t, tomlStr, "trace = true")
	assert.Contains(t, tomlStr, "service_addr = \"nats://localhost:4222\"")
	assert.Contains(t, tomlStr, "cluster_addr = \"nats://localhost:6222\"")
	assert.Contains(t, tomlStr, "routes = [\"nats://route1:6222\", \"nats://route2:6222\"]")

	// Round-trip test
	conf2 := Config{}

	_, err := toml.Decode(tomlStr, &conf2)
	require.NoError(t, err)

	assert.Equal(t, conf, conf2)
}

func TestConfig_ToToml_Defaults(t *testing.T) {
	conf := NewConfig()

	tomlStr := conf.ToToml()

	assert.Contains(t, tomlStr, "# cluster_addr =")
	assert.Contains(t, tomlStr, "# routes =")

	conf2 := NewConfig()

	_, err := toml.Decode(tomlStr, &conf2)
	require.NoError(t, err)

	assert.Equal(t, conf, conf2)
}
