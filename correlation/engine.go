// Package correlation matches replies to outstanding requests.
//
// Every registered request resolves exactly once: with the first response or
// request error carrying its id, with a locally synthesized failure, or with a
// timeout. Later deliveries for the same id are ignored.
package correlation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ocppnet/ocppnet/metrics"
	"github.com/ocppnet/ocppnet/ocpp"
)

var (
	ErrDuplicateRequest = errors.New("request with the same id is already pending")
	ErrTooManyPending   = errors.New("too many pending requests")
	ErrEngineClosed     = errors.New("correlation engine is closed")
	ErrNotARequest      = errors.New("only requests expect a reply")
)

const (
	statePending int32 = iota
	stateResolved
)

// SendFunc writes a request to the network
type SendFunc func(ctx context.Context, req ocpp.Envelope) error

// Pending is an outstanding request
type Pending struct {
	request ocpp.Envelope
	started time.Time
	state   atomic.Int32
	done    chan struct{}
	outcome Outcome
	timer   *time.Timer
}

func (p *Pending) Request() ocpp.Envelope {
	return p.request
}

// Done is closed once the request is resolved
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Outcome returns the result; it must only be called after Done is closed
func (p *Pending) Outcome() Outcome {
	return p.outcome
}

type Engine struct {
	conf Config

	mu      sync.Mutex
	pending map[ocpp.RequestID]*Pending
	closed  bool

	clock   func() time.Time
	metrics metrics.Instrumenter
	log     *slog.Logger
}

type Option func(*Engine)

func WithInstrumenter(i metrics.Instrumenter) Option {
	return func(e *Engine) {
		e.metrics = i
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l.With("context", "correlation")
	}
}

// WithClock overrides the clock used to compute deadlines and elapsed time
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

func NewEngine(c Config, opts ...Option) *Engine {
	e := &Engine{
		conf:    c,
		pending: make(map[ocpp.RequestID]*Pending),
		clock:   time.Now,
		metrics: metrics.NoopInstrumenter{},
		log:     slog.With("context", "correlation"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Pending returns the number of outstanding requests
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.pending)
}

// deadlineFor picks the explicit timeout, then the request's own deadline, then the default
func (e *Engine) deadlineFor(req ocpp.Envelope, timeout time.Duration, now time.Time) time.Time {
	if timeout > 0 {
		return now.Add(timeout)
	}

	if !req.RequestTimeout.IsZero() {
		return req.RequestTimeout
	}

	return now.Add(e.conf.Timeout())
}

// Register adds a request to the pending table and arms its timer.
// A zero timeout falls back to the request's deadline or the configured default.
// The resulting deadline is stamped on the stored request (see Pending.Request).
func (e *Engine) Register(req ocpp.Envelope, timeout time.Duration) (*Pending, error) {
	if req.Kind != ocpp.KindRequest {
		return nil, ErrNotARequest
	}

	now := e.clock()
	deadline := e.deadlineFor(req, timeout, now)

	req.RequestTimeout = deadline

	p := &Pending{
		request: req,
		started: now,
		done:    make(chan struct{}),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}

	if _, ok := e.pending[req.RequestID]; ok {
		return nil, ErrDuplicateRequest
	}

	if e.conf.MaxPending > 0 && len(e.pending) >= e.conf.MaxPending {
		return nil, ErrTooManyPending
	}

	e.pending[req.RequestID] = p

	wait := deadline.Sub(now)

	if wait < 0 {
		wait = 0
	}

	// resolve acquires e.mu before touching the timer, so the assignment below is always visible to it
	p.timer = time.AfterFunc(wait, func() { e.expire(p) })

	e.metrics.SetPendingRequests(len(e.pending))

	return p, nil
}

// Resolve completes the pending request matching a response or request error.
// It returns false when no request with that id is pending.
func (e *Engine) Resolve(env ocpp.Envelope) bool {
	var kind OutcomeKind

	switch env.Kind {
	case ocpp.KindResponse:
		kind = OutcomeResponse
	case ocpp.KindRequestError:
		kind = OutcomeRequestError
	default:
		return false
	}

	p := e.lookup(env.RequestID)

	if p == nil {
		return false
	}

	return e.resolve(p, kind, env)
}

// Fail completes a pending request with a locally synthesized request error
func (e *Engine) Fail(id ocpp.RequestID, code ocpp.ResultCode, description string) bool {
	p := e.lookup(id)

	if p == nil {
		return false
	}

	return e.resolve(p, OutcomeRequestError, synthesize(p.request, code, description))
}

// SendAndWait registers the request, sends it and waits for its outcome.
// Local failures (including send errors) are reported as outcomes; an error is
// returned only when the request cannot be registered or ctx is done first.
func (e *Engine) SendAndWait(ctx context.Context, req ocpp.Envelope, timeout time.Duration, send SendFunc) (Outcome, error) {
	p, err := e.Register(req, timeout)

	if err != nil {
		return Outcome{}, err
	}

	// the request goes out with the deadline the pending table uses
	req = p.request

	e.metrics.RequestSent()

	if err := send(ctx, req); err != nil {
		e.log.Debug("failed to send request", append(req.LogValues(), "error", err)...)
		e.resolve(p, OutcomeRequestError, synthesize(req, ocpp.CodeNetworkError, err.Error()))
	}

	select {
	case <-p.done:
		return p.outcome, nil
	case <-ctx.Done():
		if e.resolve(p, OutcomeRequestError, synthesize(req, ocpp.CodeGenericError, "request cancelled")) {
			return Outcome{}, ctx.Err()
		}

		// resolved concurrently
		<-p.done
		return p.outcome, nil
	}
}

// Close resolves every outstanding request with a network error and rejects new ones
func (e *Engine) Close() {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return
	}

	e.closed = true

	pending := make([]*Pending, 0, len(e.pending))

	for _, p := range e.pending {
		pending = append(pending, p)
	}

	e.mu.Unlock()

	for _, p := range pending {
		e.resolve(p, OutcomeRequestError, synthesize(p.request, ocpp.CodeNetworkError, "engine closed"))
	}
}

func (e *Engine) lookup(id ocpp.RequestID) *Pending {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pending[id]
}

func (e *Engine) expire(p *Pending) {
	if e.resolve(p, OutcomeTimeout, synthesize(p.request, ocpp.CodeTimeout, "request timed out")) {
		e.log.Debug("request timed out", p.request.LogValues()...)
	}
}

func (e *Engine) resolve(p *Pending, kind OutcomeKind, env ocpp.Envelope) bool {
	if !p.state.CompareAndSwap(statePending, stateResolved) {
		return false
	}

	e.mu.Lock()

	if e.pending[p.request.RequestID] == p {
		delete(e.pending, p.request.RequestID)
	}

	p.timer.Stop()

	e.metrics.SetPendingRequests(len(e.pending))
	e.mu.Unlock()

	p.outcome = Outcome{
		Kind:     kind,
		Request:  p.request,
		Envelope: env,
		Elapsed:  e.clock().Sub(p.started),
	}

	close(p.done)

	e.metrics.RequestCompleted(kind.String(), p.outcome.Elapsed)

	return true
}

func synthesize(req ocpp.Envelope, code ocpp.ResultCode, description string) ocpp.Envelope {
	return ocpp.NewRequestError(
		req.RequestID, code, description, nil,
		ocpp.WithEventTrackingID(req.EventTrackingID),
		ocpp.WithMode(req.NetworkingMode),
	)
}
