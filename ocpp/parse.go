package ocpp

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/addressing"
)

// TryParseJSON parses a JSON frame, reporting failure as ok=false with a human-readable reason
func TryParseJSON(raw []byte, implicitSource addressing.NodeID) (Envelope, bool, string) {
	return tryParse(ParseJSON(raw, implicitSource))
}

// TryParseBinary parses a binary CALL/CALLRESULT frame without a payload size limit
func TryParseBinary(raw []byte, implicitSource addressing.NodeID) (Envelope, bool, string) {
	return tryParse(ParseBinary(raw, implicitSource, 0))
}

// TryParse parses a frame of either type
func TryParse(frame Frame, implicitSource addressing.NodeID) (Envelope, bool, string) {
	if frame.Type == BinaryFrame {
		return TryParseBinary(frame.Payload, implicitSource)
	}

	return TryParseJSON(frame.Payload, implicitSource)
}

// ToFrame serializes an envelope into a text or binary frame depending on its payload
func ToFrame(env Envelope, forced NetworkingMode) (Frame, error) {
	if env.IsBinary() {
		b, err := ToBinary(env)

		if err != nil {
			return Frame{}, err
		}

		return BinaryFrameOf(b), nil
	}

	b, err := ToBytes(env, forced)

	if err != nil {
		return Frame{}, err
	}

	return TextFrameOf(b), nil
}

func tryParse(env Envelope, err error) (Envelope, bool, string) {
	if err != nil {
		return Envelope{}, false, ErrorReason(err)
	}

	return env, true, ""
}

// ErrorReason returns the message of an error without stack traces
func ErrorReason(err error) string {
	if e := errorx.Cast(err); e != nil {
		if cause := e.Cause(); cause != nil {
			return e.Message() + ": " + cause.Error()
		}

		return e.Message()
	}

	return err.Error()
}

// Peek extracts the message kind and request id from a frame that failed to parse.
// It is best effort: unknown parts are returned as zero values.
func Peek(frame Frame) (Kind, RequestID) {
	if frame.Type == BinaryFrame {
		r := &binaryReader{data: frame.Payload}

		id, err := r.text("request id")

		if err != nil {
			return KindUnknown, ""
		}

		// binary CALLRESULTs are CALLs without an action
		action, err := r.text("action")

		if err != nil {
			return KindUnknown, RequestID(id)
		}

		if action == "" {
			return KindResponse, RequestID(id)
		}

		return KindRequest, RequestID(id)
	}

	var elements []json.RawMessage

	if err := json.Unmarshal(frame.Payload, &elements); err != nil || len(elements) == 0 {
		return KindUnknown, ""
	}

	code, err := strconv.Atoi(string(bytes.TrimSpace(elements[0])))

	if err != nil {
		return KindUnknown, ""
	}

	kind := Kind(code)

	// overlay frames carry destination and path in front of the id
	pos := 1

	switch {
	case (kind == KindRequest || kind == KindSend) && len(elements) == 6,
		kind == KindResponse && len(elements) == 5,
		kind == KindRequestError && len(elements) == 7:
		pos = 3
	}

	if pos >= len(elements) {
		return kind, ""
	}

	var id string

	if err := json.Unmarshal(elements[pos], &id); err != nil {
		return kind, ""
	}

	return kind, RequestID(id)
}
