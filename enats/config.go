package enats

import (
	"fmt"
	"strings"
)

// Config represents embedded NATS server configuration
type Config struct {
	Enabled     bool     `toml:"enabled"`
	Debug       bool     `toml:"debug"`
	Trace       bool     `toml:"trace"`
	ServiceAddr string   `toml:"service_addr"`
	ClusterAddr string   `toml:"cluster_addr"`
	ClusterName string   `toml:"cluster_name"`
	Routes      []string `toml:"routes"`
}

func (c Config) ToToml() string {
	var result strings.Builder

	result.WriteString("# Run an embedded NATS server (for NATS links between nodes)\n")
	result.WriteString(fmt.Sprintf("enabled = %t\n", c.Enabled))

	result.WriteString("# Client listen address\n")
	result.WriteString(fmt.Sprintf("service_addr = %q\n", c.ServiceAddr))

	result.WriteString("# Cluster listen address\n")
	if c.ClusterAddr != "" {
		result.WriteString(fmt.Sprintf("cluster_addr = %q\n", c.ClusterAddr))
	} else {
		result.WriteString("# cluster_addr = \"nats://0.0.0.0:6222\"\n")
	}

	result.WriteString("# Cluster name\n")
	result.WriteString(fmt.Sprintf("cluster_name = %q\n", c.ClusterName))

	result.WriteString("# Cluster routes\n")
	if len(c.Routes) > 0 {
		result.WriteString(fmt.Sprintf("routes = [\"%s\"]\n", strings.Join(c.Routes, "\", \"")))
	} else {
		result.WriteString("# routes = [\"nats://node-2:6222\"]\n")
	}

	result.WriteString("# Verbose server logging\n")
	result.WriteString(fmt.Sprintf("debug = %t\n", c.Debug))
	result.WriteString(fmt.Sprintf("trace = %t\n", c.Trace))

	result.WriteString("\n")

	return result.String()
}
