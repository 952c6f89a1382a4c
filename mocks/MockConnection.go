package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ocppnet/ocppnet/addressing"
	"github.com/ocppnet/ocppnet/ocpp"
)

// MockConnection is an in-memory neighbour link that records the frames sent to it
type MockConnection struct {
	id   addressing.NodeID
	send chan ocpp.Frame

	mu     sync.Mutex
	err    error
	closed bool
	onSend func(ocpp.Frame)
}

func NewMockConnection(id addressing.NodeID) *MockConnection {
	return &MockConnection{id: id, send: make(chan ocpp.Frame, 64)}
}

func (conn *MockConnection) ID() addressing.NodeID {
	return conn.id
}

func (conn *MockConnection) Send(ctx context.Context, frame ocpp.Frame) error {
	conn.mu.Lock()
	err, closed, hook := conn.err, conn.closed, conn.onSend
	conn.mu.Unlock()

	if err != nil {
		return err
	}

	if closed {
		return errors.New("connection is closed")
	}

	if hook != nil {
		hook(frame)
		return nil
	}

	select {
	case conn.send <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FailWith makes every subsequent Send return err
func (conn *MockConnection) FailWith(err error) {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	conn.err = err
}

// OnSend passes sent frames to fn instead of buffering them
func (conn *MockConnection) OnSend(fn func(ocpp.Frame)) {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	conn.onSend = fn
}

// Read returns the next sent frame or fails if nothing is sent within 100ms
func (conn *MockConnection) Read() (ocpp.Frame, error) {
	timer := time.NewTimer(100 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
		return ocpp.Frame{}, errors.New("connection hasn't received any messages")
	case frame := <-conn.send:
		return frame, nil
	}
}

func (conn *MockConnection) Close() {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	conn.closed = true
}

func (conn *MockConnection) Closed() bool {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	return conn.closed
}
