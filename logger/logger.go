// Package logger configures the process-wide slog handler.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/ocppnet/ocppnet/utils"
)

// InitLogger builds a handler writing to stdout and makes it the default
func InitLogger(c *Config) (slog.Handler, error) {
	handler, err := NewHandler(os.Stdout, c.LogFormat, c.Level(), !utils.IsTTY())

	if err != nil {
		return nil, err
	}

	slog.SetDefault(slog.New(handler))

	return handler, nil
}

// NewHandler returns a tint handler for the text format and a JSON handler for the json one
func NewHandler(w io.Writer, format string, level string, noColor bool) (slog.Handler, error) {
	logLevel, err := parseLevel(level)

	if err != nil {
		return nil, err
	}

	switch format {
	case "text":
		opts := &tint.Options{
			Level:      logLevel,
			NoColor:    noColor,
			TimeFormat: "2006-01-02 15:04:05.000",
		}
		return tint.NewHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s.\nAvailable formats are: text, json", format)
	}
}

var LevelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func parseLevel(level string) (slog.Level, error) {
	lvl, ok := LevelNames[level]
	if !ok {
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s.\nAvailable levels are: debug, info, warn, error", level)
	}

	return lvl, nil
}
