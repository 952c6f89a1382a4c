package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Level(t *testing.T) {
	conf := NewConfig()
	assert.Equal(t, "info", conf.Level())

	conf.Debug = true
	assert.Equal(t, "debug", conf.Level())
}

func TestConfig_ToToml(t *testing.T) {
	conf := NewConfig()
	conf.LogLevel = "warn"
	conf.LogFormat = "json"

	tomlStr := conf.ToToml()

	assert.Contains(t, tomlStr, "level = \"warn\"")
	assert.Contains(t, tomlStr, "format = \"json\"")
	assert.Contains(t, tomlStr, "# debug = true")

	conf2 := NewConfig()

	_, err := toml.Decode(tomlStr, &conf2)
	require.NoError(t, err)

	assert.Equal(t, conf, conf2)
}

func TestNewHandler(t *testing.T) {
	buf := bytes.Buffer{}

	handler, err := NewHandler(&buf, "json", "warn", true)
	require.NoError(t, err)

	logger := slog.New(handler)
	logger.Info("hidden")
	logger.Warn("shown", "node", "CS1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"node":"CS1"`)

	buf.Reset()

	handler, err = NewHandler(&buf, "text", "debug", true)
	require.NoError(t, err)

	slog.New(handler).Debug("request sent", "id", "42")
	assert.Contains(t, buf.String(), "request sent")
	assert.Contains(t, buf.String(), "id=42")

	_, err = NewHandler(&buf, "xml", "info", true)
	assert.Error(t, err)

	_, err = NewHandler(&buf, "text", "verbose", true)
	assert.Error(t, err)
}
