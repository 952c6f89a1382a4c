package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactValue_string(t *testing.T) {
	shortvalue := "log-no-long"
	assert.Equal(t, shortvalue, CompactValue(shortvalue).LogValue().String())

	longvalue := strings.Repeat("log-long", 50)

	truncated := CompactValue(longvalue).LogValue().String()
	assert.Equal(t, "log-longlog-l", truncated[:13])
	assert.Len(t, truncated, maxValueLength+8)
}

func TestCompactValue_bytes(t *testing.T) {
	shortvalue := []byte(`[2,"1","Heartbeat",{}]`)
	assert.Equal(t, `[2,"1","Heartbeat",{}]`, CompactValue(shortvalue).LogValue().String())

	longvalue := []byte(strings.Repeat("log-long", 50))

	truncated := CompactValue(longvalue).LogValue().String()
	assert.Equal(t, "log-longlog-l", truncated[:13])
	assert.Len(t, truncated, maxValueLength+8)
}

func TestCompactValueInJSONHandler(t *testing.T) {
	buf := bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Debug("frame received", "raw", CompactValue(strings.Repeat("x", 150)))

	assert.Contains(t, buf.String(), `"raw":"`+strings.Repeat("x", 100)+`...(50)"`)
}
