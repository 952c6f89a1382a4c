package utils

import (
	"context"
	"errors"
	"time"
)

// ErrScheduleTimeout returned by Pool to indicate that there no free
// goroutines during some period of time.
var ErrScheduleTimeout = errors.New("schedule error: timed out")

// A worker goroutine exits after this many tasks so that grown stacks are released
const workerRespawnThreshold = 1000

// GoPool contains logic of goroutine reuse.
// Based on https://github.com/gobwas/ws-examples/blob/master/src/gopool/pool.go
type GoPool struct {
	name string
	size int
	sem  chan struct{}
	work chan func()
}

// NewGoPool creates new goroutine pool with given size.
// Start size defaults to 20% of the max size.
// Queue size defaults to 10% of the max size.
func NewGoPool(name string, size int) *GoPool {
	if size <= 0 {
		size = 1
	}

	spawn := size / 5
	queue := size / 10

	if spawn <= 0 {
		spawn = 1
	}

	if queue <= 0 {
		queue = 1
	}

	p := &GoPool{
		name: name,
		size: size,
		sem:  make(chan struct{}, size),
		work: make(chan func(), queue),
	}

	for i := 0; i < spawn; i++ {
		p.sem <- struct{}{}
		go p.worker(func() {})
	}

	return p
}

func (p *GoPool) Name() string {
	return p.name
}

func (p *GoPool) Size() int {
	return p.size
}

// Schedule schedules task to be executed over pool's workers.
func (p *GoPool) Schedule(task func()) {
	p.schedule(context.Background(), task, nil) // nolint:errcheck
}

// ScheduleTimeout schedules task to be executed over pool's workers.
// It returns ErrScheduleTimeout when no free workers met during given timeout.
func (p *GoPool) ScheduleTimeout(timeout time.Duration, task func()) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	return p.schedule(context.Background(), task, timer.C)
}

// ScheduleContext schedules task unless the context is done before a worker is available
func (p *GoPool) ScheduleContext(ctx context.Context, task func()) error {
	return p.schedule(ctx, task, nil)
}

func (p *GoPool) schedule(ctx context.Context, task func(), timeout <-chan time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return ErrScheduleTimeout
	case p.work <- task:
		return nil
	case p.sem <- struct{}{}:
		go p.worker(task)
		return nil
	}
}

func (p *GoPool) worker(task func()) {
	task()

	for i := 0; i < workerRespawnThreshold; i++ {
		(<-p.work)()
	}

	// The replacement inherits the semaphore slot
	go p.worker(func() {})
}
