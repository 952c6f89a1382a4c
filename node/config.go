package node

import (
	"fmt"
	"sort"
	"strings"
)

// Config contains networking node settings
type Config struct {
	// ID is the networking node identifier of this process
	ID string `toml:"id"`
	// HandlerPoolSize is the max number of concurrently running action handlers
	HandlerPoolSize int `toml:"handler_pool_size"`
	// WriteTimeout limits a single frame write (seconds)
	WriteTimeout int `toml:"write_timeout"`
	// DefaultRoute is the neighbour used for destinations without a route (usually the upstream node)
	DefaultRoute string `toml:"default_route"`
	// Routes maps destinations to the neighbours to reach them through
	Routes map[string]string `toml:"routes"`
	// LearnRoutes records the neighbour each message source was seen behind
	LearnRoutes bool `toml:"learn_routes"`
}

// NewConfig builds a new config
func NewConfig() Config {
	return Config{
		ID:              "ocppnet",
		HandlerPoolSize: 64,
		WriteTimeout:    10,
		Routes:          map[string]string{},
		LearnRoutes:     true,
	}
}

func (c Config) ToToml() string {
	var result strings.Builder

	result.WriteString("# Networking node identifier\n")
	result.WriteString(fmt.Sprintf("id = \"%s\"\n", c.ID))

	result.WriteString("# Max number of concurrently executed action handlers\n")
	result.WriteString(fmt.Sprintf("handler_pool_size = %d\n", c.HandlerPoolSize))

	result.WriteString("# Frame write timeout (seconds)\n")
	result.WriteString(fmt.Sprintf("write_timeout = %d\n", c.WriteTimeout))

	result.WriteString("# Neighbour to send messages with unknown destinations to\n")
	if c.DefaultRoute != "" {
		result.WriteString(fmt.Sprintf("default_route = \"%s\"\n", c.DefaultRoute))
	} else {
		result.WriteString("# default_route = \"CSMS\"\n")
	}

	result.WriteString("# Learn routes from the paths of incoming messages\n")
	result.WriteString(fmt.Sprintf("learn_routes = %t\n", c.LearnRoutes))

	result.WriteString("# Static routes (destination = neighbour)\n")
	if len(c.Routes) > 0 {
		dests := make([]string, 0, len(c.Routes))
		for dest := range c.Routes {
			dests = append(dests, dest)
		}
		sort.Strings(dests)

		pairs := make([]string, 0, len(dests))
		for _, dest := range dests {
			pairs = append(pairs, fmt.Sprintf("%q = %q", dest, c.Routes[dest]))
		}

		result.WriteString(fmt.Sprintf("routes = { %s }\n", strings.Join(pairs, ", ")))
	} else {
		result.WriteString("# routes = { \"CS42\" = \"NN1\" }\n")
	}

	result.WriteString("\n")

	return result.String()
}
