package logger

import (
	"fmt"
	"strings"
)

type Config struct {
	LogLevel  string `toml:"level"`
	LogFormat string `toml:"format"`
	// Debug enables debug level regardless of LogLevel
	Debug bool `toml:"debug"`
}

func NewConfig() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Level returns the effective log level
func (c Config) Level() string {
	if c.Debug {
		return "debug"
	}

	return c.LogLevel
}

func (c Config) ToToml() string {
	var result strings.Builder

	result.WriteString("# Logging level (debug, info, warn, error)\n")
	result.WriteString(fmt.Sprintf("level = \"%s\"\n", c.LogLevel))

	result.WriteString("# Logs format (text, json)\n")
	result.WriteString(fmt.Sprintf("format = \"%s\"\n", c.LogFormat))

	result.WriteString("# Enable debug mode (more verbose logging)\n")
	if c.Debug {
		result.WriteString("debug = true\n")
	} else {
		result.WriteString("# debug = true\n")
	}

	result.WriteString("\n")

	return result.String()
}
