package node

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ocppnet/ocppnet/ocpp"
)

// Observer is notified about message events. Observers cannot change the flow:
// errors and panics are logged and the remaining observers still run.
type Observer func(ctx context.Context, env ocpp.Envelope) error

// ObserverList is an ordered list of observers invoked sequentially
type ObserverList struct {
	name string

	mu        sync.RWMutex
	observers []Observer

	log *slog.Logger
}

func newObserverList(name string, l *slog.Logger) *ObserverList {
	return &ObserverList{name: name, log: l}
}

func (l *ObserverList) Add(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.observers = append(l.observers, o)
}

func (l *ObserverList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.observers)
}

func (l *ObserverList) Notify(ctx context.Context, env ocpp.Envelope) {
	l.mu.RLock()
	observers := l.observers
	l.mu.RUnlock()

	for _, o := range observers {
		if err := l.invoke(ctx, o, env); err != nil {
			l.log.Warn("observer failed", "hook", l.name, "id", env.RequestID, "error", err)
		}
	}
}

func (l *ObserverList) invoke(ctx context.Context, o Observer, env ocpp.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return o(ctx, env)
}

// Hooks are the message events a node reports
type Hooks struct {
	RequestSent          *ObserverList
	ResponseReceived     *ObserverList
	RequestErrorReceived *ObserverList
	// ResponseErrorReceived reports replies that failed verification or matched no pending request
	ResponseErrorReceived *ObserverList
	RequestReceived       *ObserverList
	Forwarded             *ObserverList
}

func newHooks(l *slog.Logger) *Hooks {
	return &Hooks{
		RequestSent:           newObserverList("request_sent", l),
		ResponseReceived:      newObserverList("response_received", l),
		RequestErrorReceived:  newObserverList("request_error_received", l),
		ResponseErrorReceived: newObserverList("response_error_received", l),
		RequestReceived:       newObserverList("request_received", l),
		Forwarded:             newObserverList("forwarded", l),
	}
}
