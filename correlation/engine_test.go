package correlation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(id string) ocpp.Envelope {
	return ocpp.NewRequest(ocpp.RequestID(id), "Heartbeat", json.RawMessage(`{}`))
}

func noopSend(context.Context, ocpp.Envelope) error {
	return nil
}

func TestSendAndWait_Response(t *testing.T) {
	engine := NewEngine(NewConfig())
	req := newRequest("1")

	send := func(ctx context.Context, env ocpp.Envelope) error {
		go func() {
			assert.True(t, engine.Resolve(env.Reply(json.RawMessage(`{"currentTime":"2024-01-01T00:00:00Z"}`))))
		}()
		return nil
	}

	outcome, err := engine.SendAndWait(context.Background(), req, time.Second, send)

	require.NoError(t, err)
	assert.Equal(t, OutcomeResponse, outcome.Kind)
	assert.True(t, outcome.IsResponse())
	assert.Equal(t, ocpp.CodeOK, outcome.Code())
	assert.Equal(t, req.RequestID, outcome.Request.RequestID)
	assert.False(t, outcome.Request.RequestTimeout.IsZero())
	assert.JSONEq(t, `{"currentTime":"2024-01-01T00:00:00Z"}`, string(outcome.Envelope.Payload))
	assert.Equal(t, 0, engine.Pending())
}

func TestSendAndWait_RequestError(t *testing.T) {
	engine := NewEngine(NewConfig())

	send := func(ctx context.Context, env ocpp.Envelope) error {
		go engine.Resolve(ocpp.Reject(env, ocpp.CodeNotSupported, "nope", nil))
		return nil
	}

	outcome, err := engine.SendAndWait(context.Background(), newRequest("2"), time.Second, send)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRequestError, outcome.Kind)
	assert.Equal(t, ocpp.CodeNotSupported, outcome.Code())
}

func TestSendAndWait_Timeout(t *testing.T) {
	engine := NewEngine(NewConfig())

	before := engine.Pending()
	start := time.Now()

	outcome, err := engine.SendAndWait(context.Background(), newRequest("slow"), 50*time.Millisecond, noopSend)

	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, OutcomeTimeout, outcome.Kind)
	assert.Equal(t, ocpp.CodeTimeout, outcome.Code())
	assert.Equal(t, ocpp.RequestID("slow"), outcome.Envelope.RequestID)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.GreaterOrEqual(t, outcome.Elapsed, 50*time.Millisecond)
	assert.Equal(t, before, engine.Pending())
}

func TestSendAndWait_RequestDeadline(t *testing.T) {
	engine := NewEngine(NewConfig())

	req := ocpp.NewRequest("dl", "Heartbeat", nil, ocpp.WithRequestTimeout(30*time.Millisecond))

	outcome, err := engine.SendAndWait(context.Background(), req, 0, noopSend)

	require.NoError(t, err)
	assert.Equal(t, OutcomeTimeout, outcome.Kind)
	assert.Less(t, outcome.Elapsed, time.Second)
}

func TestSendAndWait_SendFailure(t *testing.T) {
	engine := NewEngine(NewConfig())

	send := func(context.Context, ocpp.Envelope) error {
		return errors.New("connection reset")
	}

	outcome, err := engine.SendAndWait(context.Background(), newRequest("3"), time.Second, send)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRequestError, outcome.Kind)
	assert.Equal(t, ocpp.CodeNetworkError, outcome.Code())
	assert.Equal(t, "connection reset", outcome.Envelope.ErrorDescription)
	assert.Equal(t, 0, engine.Pending())
}

func TestSendAndWait_Cancel(t *testing.T) {
	engine := NewEngine(NewConfig())

	ctx, cancel := context.WithCancel(context.Background())

	send := func(context.Context, ocpp.Envelope) error {
		cancel()
		return nil
	}

	_, err := engine.SendAndWait(ctx, newRequest("4"), time.Second, send)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, engine.Pending())
}

func TestRegister(t *testing.T) {
	engine := NewEngine(Config{MaxPending: 2})

	_, err := engine.Register(newRequest("a"), time.Minute)
	require.NoError(t, err)

	_, err = engine.Register(newRequest("a"), time.Minute)
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	_, err = engine.Register(newRequest("b"), time.Minute)
	require.NoError(t, err)

	_, err = engine.Register(newRequest("c"), time.Minute)
	assert.ErrorIs(t, err, ErrTooManyPending)

	_, err = engine.Register(ocpp.NewResponse("d", nil), time.Minute)
	assert.ErrorIs(t, err, ErrNotARequest)

	assert.Equal(t, 2, engine.Pending())

	engine.Close()

	assert.Equal(t, 0, engine.Pending())
}

func TestResolve_Idempotent(t *testing.T) {
	engine := NewEngine(NewConfig())
	req := newRequest("once")

	p, err := engine.Register(req, time.Second)
	require.NoError(t, err)

	assert.True(t, engine.Resolve(req.Reply(json.RawMessage(`{"n":1}`))))
	assert.False(t, engine.Resolve(req.Reply(json.RawMessage(`{"n":2}`))))
	assert.False(t, engine.Resolve(ocpp.Reject(req, ocpp.CodeInternalError, "late", nil)))
	assert.False(t, engine.Fail(req.RequestID, ocpp.CodeNetworkError, "late"))

	<-p.Done()

	assert.Equal(t, OutcomeResponse, p.Outcome().Kind)
	assert.JSONEq(t, `{"n":1}`, string(p.Outcome().Envelope.Payload))

	// the timer must not override the first outcome
	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, OutcomeResponse, p.Outcome().Kind)
}

func TestResolve_Concurrent(t *testing.T) {
	engine := NewEngine(NewConfig())
	req := newRequest("race")

	p, err := engine.Register(req, 5*time.Millisecond)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if engine.Resolve(req.Reply(nil)) {
				wins.Add(1)
			}
		}()
	}

	wg.Wait()
	<-p.Done()

	if p.Outcome().Kind == OutcomeTimeout {
		assert.Equal(t, int32(0), wins.Load())
	} else {
		assert.Equal(t, int32(1), wins.Load())
	}
}

func TestResolve_JustBeforeDeadline(t *testing.T) {
	engine := NewEngine(NewConfig())
	req := newRequest("edge")

	p, err := engine.Register(req, 50*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(45 * time.Millisecond)

	require.True(t, engine.Resolve(req.Reply(json.RawMessage(`{}`))))

	<-p.Done()

	assert.Equal(t, OutcomeResponse, p.Outcome().Kind)
	assert.Equal(t, 0, engine.Pending())

	// the timer was stopped and cannot replace the outcome
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, OutcomeResponse, p.Outcome().Kind)
}

func TestRegister_Deadline(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	engine := NewEngine(NewConfig(), WithClock(clock))

	resolving := func(ctx context.Context, env ocpp.Envelope) error {
		engine.Resolve(env.Reply(json.RawMessage(`{}`)))
		return nil
	}

	t.Run("default timeout", func(t *testing.T) {
		var sent ocpp.Envelope

		outcome, err := engine.SendAndWait(context.Background(), newRequest("d1"), 0, func(ctx context.Context, env ocpp.Envelope) error {
			sent = env
			return resolving(ctx, env)
		})
		require.NoError(t, err)

		assert.Equal(t, now.Add(DefaultTimeout), outcome.Request.RequestTimeout)
		assert.Equal(t, outcome.Request.RequestTimeout, sent.RequestTimeout)
	})

	t.Run("explicit timeout", func(t *testing.T) {
		outcome, err := engine.SendAndWait(context.Background(), newRequest("d2"), 10*time.Second, resolving)
		require.NoError(t, err)

		assert.Equal(t, now.Add(10*time.Second), outcome.Request.RequestTimeout)
	})

	t.Run("envelope deadline", func(t *testing.T) {
		req := ocpp.NewRequest(
			"d3", "Heartbeat", json.RawMessage(`{}`),
			ocpp.WithTimestamp(now), ocpp.WithRequestTimeout(30*time.Second),
		)

		p, err := engine.Register(req, 0)
		require.NoError(t, err)

		assert.Equal(t, now.Add(30*time.Second), p.Request().RequestTimeout)

		engine.Resolve(req.Reply(nil))
		<-p.Done()
	})
}

func TestResolve_Unknown(t *testing.T) {
	engine := NewEngine(NewConfig())

	assert.False(t, engine.Resolve(ocpp.NewResponse("ghost", nil)))
	assert.False(t, engine.Resolve(newRequest("ghost")))
	assert.False(t, engine.Fail("ghost", ocpp.CodeNetworkError, ""))
}

func TestClose(t *testing.T) {
	engine := NewEngine(NewConfig())

	p, err := engine.Register(newRequest("x"), time.Minute)
	require.NoError(t, err)

	engine.Close()

	<-p.Done()

	assert.Equal(t, OutcomeRequestError, p.Outcome().Kind)
	assert.Equal(t, ocpp.CodeNetworkError, p.Outcome().Code())

	_, err = engine.Register(newRequest("y"), time.Minute)
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestWithClock(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var calls atomic.Int32

	clock := func() time.Time {
		return now.Add(time.Duration(calls.Add(1)) * time.Second)
	}

	engine := NewEngine(NewConfig(), WithClock(clock))
	req := newRequest("clock")

	p, err := engine.Register(req, time.Minute)
	require.NoError(t, err)

	engine.Resolve(req.Reply(nil))
	<-p.Done()

	assert.Equal(t, time.Second, p.Outcome().Elapsed)
}
