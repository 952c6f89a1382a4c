package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToJSON(t *testing.T) {
	assert.Equal(t, `{"reason":"bad"}`, string(ToJSON(map[string]string{"reason": "bad"})))

	assert.Panics(t, func() {
		ToJSON(make(chan int))
	})
}

func TestNextRetry(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, NextRetry(0, 0))

	delay := NextRetry(2, 0)

	assert.GreaterOrEqual(t, delay, 4*time.Second)
	assert.Less(t, delay, 8*time.Second)

	assert.Equal(t, 5*time.Second, NextRetry(10, 5*time.Second))
}
