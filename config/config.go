// Package config aggregates the settings of all the components of a networking node.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/correlation"
	"github.com/ocppnet/ocppnet/enats"
	"github.com/ocppnet/ocppnet/logger"
	"github.com/ocppnet/ocppnet/metrics"
	"github.com/ocppnet/ocppnet/natslink"
	"github.com/ocppnet/ocppnet/node"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/ocppnet/ocppnet/server"
	"github.com/ocppnet/ocppnet/signing"
	"github.com/ocppnet/ocppnet/ws"
)

// Config contains main application configuration
type Config struct {
	Node         node.Config        `toml:"node"`
	Protocol     ocpp.Config        `toml:"protocol"`
	Signing      signing.Config     `toml:"signing"`
	Correlation  correlation.Config `toml:"correlation"`
	Server       server.Config      `toml:"server"`
	WS           ws.Config          `toml:"ws"`
	NATS         natslink.Config    `toml:"nats"`
	EmbeddedNats enats.Config       `toml:"embedded_nats"`
	Log          logger.Config      `toml:"logging"`
	Metrics      metrics.Config     `toml:"metrics"`

	// ShutdownTimeout limits graceful shutdown (seconds)
	ShutdownTimeout int `toml:"shutdown_timeout"`

	ConfigFilePath string `toml:"-"`
}

// NewConfig returns a new config with defaults
func NewConfig() Config {
	return Config{
		Node:            node.NewConfig(),
		Protocol:        ocpp.NewConfig(),
		Signing:         signing.NewConfig(),
		Correlation:     correlation.NewConfig(),
		Server:          server.NewConfig(),
		WS:              ws.NewConfig(),
		NATS:            natslink.NewConfig(),
		EmbeddedNats:    enats.NewConfig(),
		Log:             logger.NewConfig(),
		Metrics:         metrics.NewConfig(),
		ShutdownTimeout: 30,
	}
}

// LoadFromFile reads the TOML file on top of the current values
func (c *Config) LoadFromFile(path string) error {
	meta, err := toml.DecodeFile(path, c)

	if err != nil {
		return errorx.Decorate(err, "failed to read config file %s", path)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}

		return errorx.IllegalArgument.New("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	c.ConfigFilePath = path

	return nil
}

// Validate checks settings which cannot be validated by the components on their own
func (c *Config) Validate() error {
	if _, err := c.Protocol.NetworkingMode(); err != nil {
		return errorx.IllegalArgument.Wrap(err, "invalid protocol config")
	}

	if c.WS.UpstreamURL != "" && c.WS.UpstreamID == "" {
		return errorx.IllegalArgument.New("upstream id is required when the upstream url is set")
	}

	if c.Signing.RequireSignatures && c.Signing.Policy == signing.PolicyNone {
		return errorx.IllegalArgument.New("signatures cannot be required without a signing policy")
	}

	return nil
}

func (c Config) ToToml() string {
	var result strings.Builder

	result.WriteString("# OCPPNet configuration.\n")
	result.WriteString("# Read more about the available options in the documentation.\n\n")

	result.WriteString("# Graceful shutdown timeout (seconds)\n")
	result.WriteString(fmt.Sprintf("shutdown_timeout = %d\n\n", c.ShutdownTimeout))

	sections := []struct {
		name string
		toml string
	}{
		{"node", c.Node.ToToml()},
		{"protocol", c.Protocol.ToToml()},
		{"signing", c.Signing.ToToml()},
		{"correlation", c.Correlation.ToToml()},
		{"server", c.Server.ToToml()},
		{"ws", c.WS.ToToml()},
		{"nats", c.NATS.ToToml()},
		{"embedded_nats", c.EmbeddedNats.ToToml()},
		{"logging", c.Log.ToToml()},
		{"metrics", c.Metrics.ToToml()},
	}

	for _, section := range sections {
		result.WriteString(fmt.Sprintf("[%s]\n", section.name))
		result.WriteString(section.toml)
	}

	return result.String()
}
