package utils

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGracefulSignals_Shutdown(t *testing.T) {
	s := NewGracefulSignals(time.Second, slog.Default())

	var calls []string

	s.Handle("first", func(ctx context.Context) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})

	s.Handle("second", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)

		calls = append(calls, "second")
		return nil
	})

	s.Shutdown()
	s.Shutdown()

	assert.Equal(t, []string{"first", "second"}, calls)
}
