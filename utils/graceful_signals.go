package utils

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

type shutdownHandler struct {
	name string
	fn   func(ctx context.Context) error
}

// GracefulSignals runs registered shutdown handlers on SIGINT/SIGTERM.
// A second signal cancels the handlers' context and terminates the process.
type GracefulSignals struct {
	handlers              []shutdownHandler
	forceTerminateHandler func()
	timeout               time.Duration
	executed              bool

	log *slog.Logger
	ch  chan os.Signal
	mu  sync.Mutex
}

func NewGracefulSignals(timeout time.Duration, l *slog.Logger) *GracefulSignals {
	return &GracefulSignals{
		timeout:               timeout,
		forceTerminateHandler: func() { os.Exit(0) },
		log:                   l.With("context", "signals"),
		ch:                    make(chan os.Signal, 1),
	}
}

// Handle registers a shutdown handler; handlers run in the order of registration
func (s *GracefulSignals) Handle(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers = append(s.handlers, shutdownHandler{name: name, fn: fn})
}

func (s *GracefulSignals) HandleForceTerminate(handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.forceTerminateHandler = handler
}

func (s *GracefulSignals) Listen() {
	signal.Notify(s.ch, syscall.SIGINT, syscall.SIGTERM)
	go s.listen()
}

func (s *GracefulSignals) listen() {
	for sig := range s.ch {
		s.log.Info("shutting down", "signal", sig.String())
		s.Shutdown()
	}
}

// Shutdown runs the handlers once; subsequent calls are no-ops
func (s *GracefulSignals) Shutdown() {
	s.mu.Lock()

	if s.executed {
		s.mu.Unlock()
		return
	}

	shutdown := make(chan struct{})
	s.executed = true

	terminateCtx, terminateImmediately := context.WithCancel(context.Background())
	defer terminateImmediately()

	timeoutCtx, cancelTimeout := context.WithTimeout(terminateCtx, s.timeout)
	defer cancelTimeout()

	go func() {
		termSig := make(chan os.Signal, 1)
		signal.Notify(termSig, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(termSig)

		select {
		case <-termSig:
		case <-shutdown:
			return
		}

		s.log.Warn("forced termination")
		terminateImmediately()

		// Handlers must react on the context cancellation
		<-shutdown

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.forceTerminateHandler != nil {
			s.forceTerminateHandler()
		}
	}()

	handlers := make([]shutdownHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		if err := h.fn(timeoutCtx); err != nil {
			s.log.Error("shutdown handler failed", "handler", h.name, "error", err)
		} else {
			s.log.Debug("shutdown handler completed", "handler", h.name)
		}
	}

	close(shutdown)
}
