package ocpp

import (
	"fmt"
	"strings"
)

type Config struct {
	// Networking mode used for locally originated messages (standard or overlay)
	Mode string `toml:"mode"`
	// MaxBinaryPayloadSize limits binary frame payloads (in bytes)
	MaxBinaryPayloadSize uint64 `toml:"max_binary_payload_size"`
	// Subprotocols accepted during the WebSocket handshake (in the order of preference)
	Subprotocols []string `toml:"subprotocols"`
}

func NewConfig() Config {
	return Config{
		Mode:                 "standard",
		MaxBinaryPayloadSize: 16 * 1024 * 1024,
		Subprotocols:         Subprotocols(),
	}
}

func (c Config) NetworkingMode() (NetworkingMode, error) {
	return ParseNetworkingMode(c.Mode)
}

func (c Config) ToToml() string {
	var result strings.Builder

	result.WriteString("# Networking mode for locally originated messages (standard, overlay)\n")
	result.WriteString(fmt.Sprintf("mode = %q\n", c.Mode))

	result.WriteString("# Maximum binary payload size (bytes)\n")
	result.WriteString(fmt.Sprintf("max_binary_payload_size = %d\n", c.MaxBinaryPayloadSize))

	result.WriteString("# Accepted WebSocket subprotocols\n")
	result.WriteString(fmt.Sprintf("subprotocols = [ \"%s\" ]\n", strings.Join(c.Subprotocols, "\", \"")))

	result.WriteString("\n")

	return result.String()
}
