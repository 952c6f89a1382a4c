package ws

import (
	"fmt"
	"strings"
)

// Config contains WebSocket transport configuration.
type Config struct {
	// Path is the endpoint prefix; neighbours connect to <path>/<node id>
	Path              string `toml:"path"`
	ReadBufferSize    int    `toml:"read_buffer_size"`
	WriteBufferSize   int    `toml:"write_buffer_size"`
	MaxMessageSize    int64  `toml:"max_message_size"`
	EnableCompression bool   `toml:"enable_compression"`
	AllowedOrigins    string `toml:"allowed_origins"`
	// PingInterval is the keepalive interval (seconds, 0 disables pings)
	PingInterval int `toml:"ping_interval"`
	// UpstreamURL is the endpoint of the upstream node to dial (without the node id)
	UpstreamURL string `toml:"upstream_url"`
	// UpstreamID is the node id of the upstream node
	UpstreamID string `toml:"upstream_id"`
	// MaxReconnectInterval caps the upstream redial backoff (seconds)
	MaxReconnectInterval int `toml:"max_reconnect_interval"`
}

// NewConfig build a new Config struct
func NewConfig() Config {
	return Config{
		Path:                 "/ocpp",
		ReadBufferSize:       1024,
		WriteBufferSize:      1024,
		MaxMessageSize:       65536,
		PingInterval:         30,
		MaxReconnectInterval: 60,
	}
}

func (c Config) UpstreamEnabled() bool {
	return c.UpstreamURL != "" && c.UpstreamID != ""
}

func (c Config) ToToml() string {
	var result strings.Builder

	result.WriteString("# WebSocket endpoint path (neighbours connect to <path>/<node id>)\n")
	result.WriteString(fmt.Sprintf("path = %q\n", c.Path))

	result.WriteString("# Read buffer size\n")
	result.WriteString(fmt.Sprintf("read_buffer_size = %d\n", c.ReadBufferSize))

	result.WriteString("# Write buffer size\n")
	result.WriteString(fmt.Sprintf("write_buffer_size = %d\n", c.WriteBufferSize))

	result.WriteString("# Maximum message size\n")
	result.WriteString(fmt.Sprintf("max_message_size = %d\n", c.MaxMessageSize))

	result.WriteString("# Enable compression (per-message deflate)\n")
	if c.EnableCompression {
		result.WriteString("enable_compression = true\n")
	} else {
		result.WriteString("# enable_compression = true\n")
	}

	result.WriteString("# Allowed origins (a comma-separated list)\n")
	result.WriteString(fmt.Sprintf("allowed_origins = %q\n", c.AllowedOrigins))

	result.WriteString("# Ping interval (seconds)\n")
	result.WriteString(fmt.Sprintf("ping_interval = %d\n", c.PingInterval))

	result.WriteString("# Upstream node to connect to\n")
	if c.UpstreamEnabled() {
		result.WriteString(fmt.Sprintf("upstream_url = %q\n", c.UpstreamURL))
		result.WriteString(fmt.Sprintf("upstream_id = %q\n", c.UpstreamID))
	} else {
		result.WriteString("# upstream_url = \"ws://csms.local:8080/ocpp\"\n")
		result.WriteString("# upstream_id = \"CSMS\"\n")
	}

	result.WriteString("# Max upstream reconnect interval (seconds)\n")
	result.WriteString(fmt.Sprintf("max_reconnect_interval = %d\n", c.MaxReconnectInterval))

	result.WriteString("\n")

	return result.String()
}
