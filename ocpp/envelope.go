package ocpp

import (
	"encoding/json"
	"time"

	"github.com/ocppnet/ocppnet/addressing"
)

// Envelope is a single OCPP message of any kind.
//
// Routing fields (destination, path) and correlation fields (request and event tracking ids)
// are shared by all kinds. Action is set for requests and sends; Payload for JSON requests,
// responses and sends; BinaryPayload for the binary variants; Error* fields for request errors.
type Envelope struct {
	Kind            Kind
	Timestamp       time.Time
	EventTrackingID EventTrackingID
	NetworkingMode  NetworkingMode
	Destination     addressing.SourceRouting
	NetworkPath     addressing.NetworkPath
	RequestID       RequestID

	Action        string
	Payload       json.RawMessage
	BinaryPayload []byte

	// RequestTimeout is the absolute deadline of a request
	RequestTimeout time.Time
	// ErrorMessage is a transport-local error attached to a request or send (never serialized)
	ErrorMessage string

	// relative request timeout, resolved against Timestamp once all options are applied
	ttl time.Duration

	ErrorCode        ResultCode
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

type Option func(*Envelope)

func WithTimestamp(ts time.Time) Option {
	return func(e *Envelope) {
		e.Timestamp = ts
	}
}

func WithEventTrackingID(id EventTrackingID) Option {
	return func(e *Envelope) {
		e.EventTrackingID = id
	}
}

func WithMode(mode NetworkingMode) Option {
	return func(e *Envelope) {
		e.NetworkingMode = mode
	}
}

func WithDestination(dest addressing.SourceRouting) Option {
	return func(e *Envelope) {
		e.Destination = dest
	}
}

func WithNetworkPath(path addressing.NetworkPath) Option {
	return func(e *Envelope) {
		e.NetworkPath = path
	}
}

// WithRequestTimeout sets the request deadline relative to the envelope timestamp
// (regardless of the order in which WithTimestamp is applied)
func WithRequestTimeout(timeout time.Duration) Option {
	return func(e *Envelope) {
		e.ttl = timeout
	}
}

func newEnvelope(kind Kind, id RequestID, opts []Option) Envelope {
	env := Envelope{
		Kind:            kind,
		Timestamp:       time.Now(),
		EventTrackingID: NewEventTrackingID(),
		NetworkingMode:  ModeUnknown,
		RequestID:       id,
	}

	for _, opt := range opts {
		opt(&env)
	}

	if env.ttl > 0 {
		env.RequestTimeout = env.Timestamp.Add(env.ttl)
		env.ttl = 0
	}

	return env
}

// NewRequest builds a CALL envelope
func NewRequest(id RequestID, action string, payload json.RawMessage, opts ...Option) Envelope {
	env := newEnvelope(KindRequest, id, opts)
	env.Action = action
	env.Payload = payload
	return env
}

// NewBinaryRequest builds a CALL envelope carrying a raw binary payload
func NewBinaryRequest(id RequestID, action string, payload []byte, opts ...Option) Envelope {
	env := newEnvelope(KindRequest, id, opts)
	env.Action = action
	env.BinaryPayload = payload
	return env
}

// NewResponse builds a CALLRESULT envelope
func NewResponse(id RequestID, payload json.RawMessage, opts ...Option) Envelope {
	env := newEnvelope(KindResponse, id, opts)
	env.Payload = payload
	return env
}

// NewBinaryResponse builds a CALLRESULT envelope carrying a raw binary payload
func NewBinaryResponse(id RequestID, payload []byte, opts ...Option) Envelope {
	env := newEnvelope(KindResponse, id, opts)
	env.BinaryPayload = payload
	return env
}

// NewRequestError builds a CALLERROR envelope
func NewRequestError(id RequestID, code ResultCode, description string, details json.RawMessage, opts ...Option) Envelope {
	env := newEnvelope(KindRequestError, id, opts)
	env.ErrorCode = code
	env.ErrorDescription = description
	env.ErrorDetails = details
	return env
}

// NewSend builds a SEND (fire-and-forget) envelope
func NewSend(id RequestID, action string, payload json.RawMessage, opts ...Option) Envelope {
	env := newEnvelope(KindSend, id, opts)
	env.Action = action
	env.Payload = payload
	return env
}

// IsBinary returns true when the envelope must be serialized with the binary framing
func (e Envelope) IsBinary() bool {
	return e.BinaryPayload != nil
}

// ExpectsReply returns true for kinds that create a pending request
func (e Envelope) ExpectsReply() bool {
	return e.Kind == KindRequest
}

// IsReply returns true for kinds that resolve a pending request
func (e Envelope) IsReply() bool {
	return e.Kind == KindResponse || e.Kind == KindRequestError
}

// WithNetworkingMode returns a copy of the envelope with the given mode
func (e Envelope) WithNetworkingMode(mode NetworkingMode) Envelope {
	e.NetworkingMode = mode
	return e
}

// WithDestination returns a copy of the envelope with the given destination
func (e Envelope) WithDestination(dest addressing.SourceRouting) Envelope {
	e.Destination = dest
	return e
}

// WithPayload returns a copy of the envelope with the given JSON payload
func (e Envelope) WithPayload(payload json.RawMessage) Envelope {
	e.Payload = payload
	return e
}

// WithTransportError returns a copy carrying a local transport failure description
func (e Envelope) WithTransportError(msg string) Envelope {
	e.ErrorMessage = msg
	return e
}

// AppendHop returns a copy of the envelope with the id recorded in its network path
func (e Envelope) AppendHop(id addressing.NodeID) Envelope {
	e.NetworkPath = e.NetworkPath.Append(id)
	return e
}

// Reply builds a CALLRESULT addressed back to the origin of the request
func (e Envelope) Reply(payload json.RawMessage) Envelope {
	return NewResponse(e.RequestID, payload, e.replyOptions()...)
}

// BinaryReply builds a binary CALLRESULT addressed back to the origin of the request
func (e Envelope) BinaryReply(payload []byte) Envelope {
	return NewBinaryResponse(e.RequestID, payload, e.replyOptions()...)
}

func (e Envelope) replyOptions() []Option {
	return []Option{
		WithEventTrackingID(e.EventTrackingID),
		WithMode(e.NetworkingMode),
		WithDestination(addressing.ReplyDestination(e.NetworkPath)),
	}
}

// Remaining returns the time left until the request deadline
func (e Envelope) Remaining(now time.Time) time.Duration {
	if e.RequestTimeout.IsZero() {
		return 0
	}

	return e.RequestTimeout.Sub(now)
}

// LogValues returns the attributes used to identify the envelope in logs
func (e Envelope) LogValues() []interface{} {
	attrs := []interface{}{"kind", e.Kind.String(), "id", string(e.RequestID)}

	if e.Action != "" {
		attrs = append(attrs, "action", e.Action)
	}

	if !e.Destination.IsZero() {
		attrs = append(attrs, "destination", e.Destination.String())
	}

	if !e.NetworkPath.IsEmpty() {
		attrs = append(attrs, "path", e.NetworkPath.String())
	}

	if e.ErrorMessage != "" {
		attrs = append(attrs, "transport_error", e.ErrorMessage)
	}

	return attrs
}
