package correlation

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout is used for requests that carry no deadline of their own
const DefaultTimeout = 333 * time.Second

type Config struct {
	// DefaultTimeout is the request timeout in seconds
	DefaultTimeout int `toml:"default_timeout"`
	// MaxPending limits the number of outstanding requests (0 means unlimited)
	MaxPending int `toml:"max_pending"`
}

func NewConfig() Config {
	return Config{
		DefaultTimeout: int(DefaultTimeout / time.Second),
	}
}

func (c Config) Timeout() time.Duration {
	if c.DefaultTimeout <= 0 {
		return DefaultTimeout
	}

	return time.Duration(c.DefaultTimeout) * time.Second
}

func (c Config) ToToml() string {
	var result strings.Builder

	result.WriteString("# Default request timeout (seconds)\n")
	result.WriteString(fmt.Sprintf("default_timeout = %d\n", c.DefaultTimeout))

	result.WriteString("# Maximum number of pending requests (0 means unlimited)\n")
	result.WriteString(fmt.Sprintf("max_pending = %d\n", c.MaxPending))

	result.WriteString("\n")

	return result.String()
}
