package correlation

import (
	"time"

	"github.com/ocppnet/ocppnet/metrics"
	"github.com/ocppnet/ocppnet/ocpp"
)

type OutcomeKind int

const (
	OutcomeResponse OutcomeKind = iota + 1
	OutcomeRequestError
	OutcomeTimeout
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResponse:
		return metrics.OutcomeResponse
	case OutcomeRequestError:
		return metrics.OutcomeRequestError
	case OutcomeTimeout:
		return metrics.OutcomeTimeout
	default:
		return "unknown"
	}
}

// Outcome is the single result of a request: a response, a request error
// (received from a peer or synthesized locally) or a timeout
type Outcome struct {
	Kind    OutcomeKind
	Request ocpp.Envelope
	// Envelope is the response or request error; for timeouts it is a
	// synthesized request error with the Timeout code
	Envelope ocpp.Envelope
	Elapsed  time.Duration
}

func (o Outcome) IsResponse() bool {
	return o.Kind == OutcomeResponse
}

// Code returns OK for responses and the error code otherwise
func (o Outcome) Code() ocpp.ResultCode {
	if o.Kind == OutcomeResponse {
		return ocpp.CodeOK
	}

	return o.Envelope.ErrorCode
}

// Failed builds the outcome of a request that could not be sent at all
func Failed(req ocpp.Envelope, code ocpp.ResultCode, description string) Outcome {
	return Outcome{
		Kind:     OutcomeRequestError,
		Request:  req,
		Envelope: synthesize(req, code, description),
	}
}
