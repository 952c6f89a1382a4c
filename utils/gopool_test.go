package utils

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoPool(t *testing.T) {
	pool := NewGoPool("test", 10)

	assert.Equal(t, "test", pool.Name())
	assert.Equal(t, 10, pool.Size())

	var wg sync.WaitGroup
	var mu sync.Mutex

	results := make([]int, 0, 100)

	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)

		pool.Schedule(func() {
			defer wg.Done()

			mu.Lock()
			results = append(results, i)
			mu.Unlock()
		})
	}

	wg.Wait()

	assert.Len(t, results, 100)
}

func TestWorkerRespawn(t *testing.T) {
	pool := NewGoPool("respawn", 1)

	resChan := make(chan uint64, 2)

	pool.Schedule(func() {
		resChan <- getGID()
	})

	for i := 0; i < workerRespawnThreshold; i++ {
		pool.Schedule(func() {})
	}

	pool.Schedule(func() {
		resChan <- getGID()
	})

	initial := <-resChan
	current := <-resChan

	assert.NotEqual(t, initial, current)
}

func TestScheduleTimeout(t *testing.T) {
	pool := NewGoPool("busy", 1)

	block := make(chan struct{})
	defer close(block)

	// occupy the only worker and the queue
	pool.Schedule(func() { <-block })
	pool.Schedule(func() { <-block })

	err := pool.ScheduleTimeout(10*time.Millisecond, func() {})

	assert.ErrorIs(t, err, ErrScheduleTimeout)
}

func TestScheduleContext(t *testing.T) {
	pool := NewGoPool("busy", 1)

	block := make(chan struct{})
	defer close(block)

	pool.Schedule(func() { <-block })
	pool.Schedule(func() { <-block })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pool.ScheduleContext(ctx, func() {})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// Get current goroutine ID
// Source: https://blog.sgmansfield.com/2015/12/goroutine-ids/
func getGID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}
