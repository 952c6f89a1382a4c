// Package metrics records node activity: frames, requests and their outcomes.
package metrics

import "time"

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	OutcomeResponse     = "response"
	OutcomeRequestError = "request_error"
	OutcomeTimeout      = "timeout"
)

// Instrumenter is implemented by metrics backends
type Instrumenter interface {
	FrameReceived(frameType string)
	FrameSent(frameType string)
	FrameForwarded()
	FrameDropped(reason string)
	ParseFailed()
	SignatureFailed(direction string)
	RequestSent()
	RequestCompleted(outcome string, elapsed time.Duration)
	RequestReceived()
	SetPendingRequests(n int)
	SetConnections(n int)
}

// NoopInstrumenter discards everything
type NoopInstrumenter struct{}

var _ Instrumenter = NoopInstrumenter{}

func (NoopInstrumenter) FrameReceived(string) {}
func (NoopInstrumenter) FrameSent(string) {}
func (NoopInstrumenter) FrameForwarded() {}
func (NoopInstrumenter) FrameDropped(string) {}
func (NoopInstrumenter) ParseFailed() {}
func (NoopInstrumenter) SignatureFailed(string) {}
func (NoopInstrumenter) RequestSent() {}
func (NoopInstrumenter) RequestCompleted(string, time.Duration) {}
func (NoopInstrumenter) RequestReceived() {}
func (NoopInstrumenter) SetPendingRequests(int) {}
func (NoopInstrumenter) SetConnections(int) {}
