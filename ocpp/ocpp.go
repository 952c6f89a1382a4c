// Package ocpp implements the OCPP-J message envelope: the four message kinds,
// their JSON array and binary wire forms, and the CALLERROR taxonomy.
package ocpp

import (
	"fmt"

	"github.com/google/uuid"

	nanoid "github.com/matoous/go-nanoid"
)

const (
	Subprotocol16  = "ocpp1.6"
	Subprotocol201 = "ocpp2.0.1"
	Subprotocol21  = "ocpp2.1"

	CallCode       = 2
	CallResultCode = 3
	CallErrorCode  = 4
	SendCode       = 6
)

func Subprotocols() []string {
	return []string{Subprotocol21, Subprotocol201, Subprotocol16}
}

// Kind is a message kind; values match the wire message type tags
type Kind int

const (
	KindUnknown      Kind = 0
	KindRequest      Kind = CallCode
	KindResponse     Kind = CallResultCode
	KindRequestError Kind = CallErrorCode
	KindSend         Kind = SendCode
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "CALL"
	case KindResponse:
		return "CALLRESULT"
	case KindRequestError:
		return "CALLERROR"
	case KindSend:
		return "SEND"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}

// NetworkingMode selects the wire shape of an envelope
type NetworkingMode int

const (
	ModeUnknown NetworkingMode = iota
	ModeStandard
	ModeOverlay
)

func (m NetworkingMode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModeOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// ParseNetworkingMode converts a configuration value into a mode
func ParseNetworkingMode(str string) (NetworkingMode, error) {
	switch str {
	case "standard", "":
		return ModeStandard, nil
	case "overlay":
		return ModeOverlay, nil
	default:
		return ModeUnknown, fmt.Errorf("unknown networking mode: %s. Available modes are: standard, overlay", str)
	}
}

// RequestID correlates a CALL with its CALLRESULT or CALLERROR
type RequestID string

// EventTrackingID correlates every message of a causal chain
type EventTrackingID string

// NewRequestID generates a random request identifier
func NewRequestID() RequestID {
	id, err := nanoid.Nanoid()

	if err != nil {
		// Only fails when the system random source is broken
		panic(fmt.Sprintf("failed to generate request id: %v", err))
	}

	return RequestID(id)
}

// NewEventTrackingID generates a random event tracking identifier
func NewEventTrackingID() EventTrackingID {
	return EventTrackingID(uuid.NewString())
}

// FrameType distinguishes text (JSON) and binary frames
type FrameType int

const (
	TextFrame FrameType = iota
	BinaryFrame
)

func (t FrameType) String() string {
	if t == BinaryFrame {
		return "binary"
	}

	return "text"
}

// Frame is a raw message as handed over by (or to) a transport connection
type Frame struct {
	Type    FrameType
	Payload []byte
}

func TextFrameOf(payload []byte) Frame {
	return Frame{Type: TextFrame, Payload: payload}
}

func BinaryFrameOf(payload []byte) Frame {
	return Frame{Type: BinaryFrame, Payload: payload}
}
