package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// IsTTY returns true if program is running with TTY
func IsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// ToJSON marshals a value known to be serializable
func ToJSON[T any](val T) []byte {
	jsonStr, err := json.Marshal(&val)
	if err != nil {
		panic(fmt.Sprintf("Failed to build JSON for %v: %v", val, err))
	}
	return jsonStr
}

// NextRetry returns a cooldown duration before next attempt using
// a simple exponential backoff capped at max
func NextRetry(step int, max time.Duration) time.Duration {
	if step == 0 {
		return 250 * time.Millisecond
	}

	left := math.Pow(2, float64(step))
	right := 2 * left

	secs := left + (right-left)*rand.Float64() // nolint:gosec
	delay := time.Duration(secs * float64(time.Second))

	if max > 0 && delay > max {
		return max
	}

	return delay
}
