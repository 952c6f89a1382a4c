package natslink

import (
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// Config contains NATS link settings
type Config struct {
	// Enabled turns on the NATS transport
	Enabled bool `toml:"enabled"`
	// Servers is a comma-separated list of NATS server URLs
	Servers string `toml:"servers"`
	// Prefix is the subject prefix; a node listens on <prefix>.<node id>
	Prefix               string `toml:"prefix"`
	DontRandomizeServers bool   `toml:"dont_randomize_servers"`
	MaxReconnectAttempts int    `toml:"max_reconnect_attempts"`
	// Neighbours are the node ids reachable over NATS
	Neighbours []string `toml:"neighbours"`
}

func NewConfig() Config {
	return Config{
		Servers:              nats.DefaultURL,
		Prefix:               "ocppnet",
		MaxReconnectAttempts: 5,
	}
}

func (c Config) ToToml() string {
	var result strings.Builder

	result.WriteString("# Enable NATS links\n")
	result.WriteString(fmt.Sprintf("enabled = %t\n", c.Enabled))

	result.WriteString("# NATS servers (a comma-separated list)\n")
	result.WriteString(fmt.Sprintf("servers = %q\n", c.Servers))

	result.WriteString("# Subject prefix\n")
	result.WriteString(fmt.Sprintf("prefix = %q\n", c.Prefix))

	result.WriteString("# Don't randomize servers during connection\n")
	if c.DontRandomizeServers {
		result.WriteString("dont_randomize_servers = true\n")
	} else {
		result.WriteString("# dont_randomize_servers = true\n")
	}

	result.WriteString("# Max number of reconnect attempts\n")
	result.WriteString(fmt.Sprintf("max_reconnect_attempts = %d\n", c.MaxReconnectAttempts))

	result.WriteString("# Neighbour node ids reachable over NATS\n")
	if len(c.Neighbours) > 0 {
		result.WriteString(fmt.Sprintf("neighbours = [\"%s\"]\n", strings.Join(c.Neighbours, "\", \"")))
	} else {
		result.WriteString("# neighbours = [\"NN2\"]\n")
	}

	result.WriteString("\n")

	return result.String()
}
