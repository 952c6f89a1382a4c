package logger

import (
	"fmt"
	"log/slog"
)

const (
	maxValueLength = 100
)

type compactValue[T string | []byte] struct {
	val T
}

func (c *compactValue[T]) LogValue() slog.Value {
	return slog.StringValue(c.String())
}

func (c *compactValue[T]) String() string {
	val := string(c.val)

	if len(val) > maxValueLength {
		return fmt.Sprintf("%s...(%d)", val[:maxValueLength], len(val)-maxValueLength)
	}

	return val
}

// CompactValue wraps a raw frame or a string to show it in log truncated
func CompactValue[T string | []byte](v T) *compactValue[T] {
	return &compactValue[T]{val: v}
}
