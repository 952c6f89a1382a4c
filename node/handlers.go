package node

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/ocppnet/ocppnet/ocpp"
)

// Handler processes requests (and sends) for an action.
//
// The returned payload becomes the CALLRESULT payload. For binary requests it is
// used as the raw binary payload of the response. Returning an *ocpp.CallError
// rejects the request with that code; any other error is reported as InternalError.
// Results of SEND messages are discarded.
type Handler interface {
	ServeOCPP(ctx context.Context, req ocpp.Envelope) (json.RawMessage, error)
}

type HandlerFunc func(ctx context.Context, req ocpp.Envelope) (json.RawMessage, error)

func (f HandlerFunc) ServeOCPP(ctx context.Context, req ocpp.Envelope) (json.RawMessage, error) {
	return f(ctx, req)
}

// Registry maps actions to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Handle registers the handler for the action, replacing the previous one
func (r *Registry) Handle(action string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[action] = h
}

func (r *Registry) HandleFunc(action string, fn func(ctx context.Context, req ocpp.Envelope) (json.RawMessage, error)) {
	r.Handle(action, HandlerFunc(fn))
}

func (r *Registry) Lookup(action string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[action]
	return h, ok
}

// Actions returns the registered actions in alphabetical order
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]string, 0, len(r.handlers))

	for action := range r.handlers {
		actions = append(actions, action)
	}

	sort.Strings(actions)

	return actions
}
