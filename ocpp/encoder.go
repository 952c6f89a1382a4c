package ocpp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/addressing"
)

// Encoder converts envelopes from/to OCPP-J frames
type Encoder struct {
	// MaxBinaryPayloadSize limits the payload length accepted from binary frames (0 means no limit)
	MaxBinaryPayloadSize uint64
}

func NewEncoder(c *Config) Encoder {
	return Encoder{MaxBinaryPayloadSize: c.MaxBinaryPayloadSize}
}

// Decode parses a frame received from a connection.
// The implicit source is the identity of that connection; it seeds an empty network path.
func (enc Encoder) Decode(frame Frame, implicitSource addressing.NodeID) (Envelope, error) {
	if frame.Type == BinaryFrame {
		return ParseBinary(frame.Payload, implicitSource, enc.MaxBinaryPayloadSize)
	}

	return ParseJSON(frame.Payload, implicitSource)
}

// Encode serializes an envelope into a frame. Binary envelopes always produce binary frames.
// When forced is ModeUnknown, the envelope's own networking mode selects the shape.
func (enc Encoder) Encode(env Envelope, forced NetworkingMode) (Frame, error) {
	return ToFrame(env, forced)
}

// jsonKind returns a human-readable JSON type of a raw element
func jsonKind(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)

	if len(raw) == 0 {
		return "nothing"
	}

	switch raw[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// frameReader checks the type of each array element positionally before decoding it
type frameReader struct {
	elements []json.RawMessage
}

func (r frameReader) string(pos int, name string) (string, error) {
	el := r.elements[pos]

	if kind := jsonKind(el); kind != "string" {
		return "", ParseError.New("%s (element #%d) must be a string, got %s", name, pos, kind)
	}

	var str string

	if err := json.Unmarshal(el, &str); err != nil {
		return "", ParseError.Wrap(err, "%s (element #%d) is not a valid string", name, pos)
	}

	return str, nil
}

func (r frameReader) nonEmptyString(pos int, name string) (string, error) {
	str, err := r.string(pos, name)

	if err != nil {
		return "", err
	}

	if str == "" {
		return "", ParseError.New("%s (element #%d) must not be empty", name, pos)
	}

	return str, nil
}

func (r frameReader) object(pos int, name string) (json.RawMessage, error) {
	el := r.elements[pos]

	if kind := jsonKind(el); kind != "object" {
		return nil, ParseError.New("%s (element #%d) must be an object, got %s", name, pos, kind)
	}

	return json.RawMessage(bytes.TrimSpace(el)), nil
}

func (r frameReader) hops(pos int, name string) ([]byte, error) {
	el := r.elements[pos]

	if kind := jsonKind(el); kind != "string" && kind != "array" {
		return nil, ParseError.New("%s (element #%d) must be a string or an array of strings, got %s", name, pos, kind)
	}

	return el, nil
}

func (r frameReader) destination(pos int) (addressing.SourceRouting, error) {
	raw, err := r.hops(pos, "destination")

	if err != nil {
		return addressing.ZeroRouting, err
	}

	var dest addressing.SourceRouting

	if err := json.Unmarshal(raw, &dest); err != nil {
		return addressing.ZeroRouting, ParseError.Wrap(err, "invalid destination (element #%d)", pos)
	}

	return dest, nil
}

func (r frameReader) networkPath(pos int) (addressing.NetworkPath, error) {
	raw, err := r.hops(pos, "network path")

	if err != nil {
		return addressing.Empty, err
	}

	var path addressing.NetworkPath

	if err := json.Unmarshal(raw, &path); err != nil {
		return addressing.Empty, ParseError.Wrap(err, "invalid network path (element #%d)", pos)
	}

	return path, nil
}

// ParseJSON parses an OCPP-J JSON array frame.
// It never panics: every malformed input results in a ParseError describing the problem.
func ParseJSON(raw []byte, implicitSource addressing.NodeID) (env Envelope, err error) {
	defer func() {
		if r := recover(); r != nil {
			env = Envelope{}
			err = ParseError.New("failed to parse message: %v", r)
		}
	}()

	var elements []json.RawMessage

	if err := json.Unmarshal(raw, &elements); err != nil {
		return Envelope{}, ParseError.Wrap(err, "message is not a JSON array")
	}

	if len(elements) == 0 {
		return Envelope{}, ParseError.New("message is an empty array")
	}

	code, err := strconv.Atoi(string(bytes.TrimSpace(elements[0])))

	if err != nil {
		return Envelope{}, ParseError.New("unknown message type format: %s", elements[0])
	}

	r := frameReader{elements: elements}

	switch code {
	case CallCode:
		env, err = parseCall(r, KindRequest)
	case SendCode:
		env, err = parseCall(r, KindSend)
	case CallResultCode:
		env, err = parseCallResult(r)
	case CallErrorCode:
		env, err = parseCallError(r)
	default:
		return Envelope{}, ParseError.New("unknown message type: %d", code)
	}

	if err != nil {
		return Envelope{}, err
	}

	return withImplicitSource(env, implicitSource), nil
}

// withImplicitSource records the connection the message came from when no hop has been recorded yet.
// The rule is the same for every message kind and both networking modes.
func withImplicitSource(env Envelope, implicitSource addressing.NodeID) Envelope {
	if implicitSource != "" && env.NetworkPath.IsEmpty() {
		env.NetworkPath = addressing.NewNetworkPath(implicitSource)
	}

	return env
}

// overlayPrefix reads destination and network path of an overlay frame and returns the
// position of the request id
func overlayPrefix(r frameReader, env *Envelope) (int, error) {
	dest, err := r.destination(1)

	if err != nil {
		return 0, err
	}

	path, err := r.networkPath(2)

	if err != nil {
		return 0, err
	}

	env.NetworkingMode = ModeOverlay
	env.Destination = dest
	env.NetworkPath = path

	return 3, nil
}

// [2, id, action, payload] or [2, destination, path, id, action, payload] (the same for SEND, 6)
func parseCall(r frameReader, kind Kind) (Envelope, error) {
	env := newEnvelope(kind, "", nil)
	pos := 1

	switch len(r.elements) {
	case 4:
		env.NetworkingMode = ModeStandard
	case 6:
		var err error
		if pos, err = overlayPrefix(r, &env); err != nil {
			return Envelope{}, err
		}
	default:
		return Envelope{}, ParseError.New("%s must have 4 or 6 elements, got %d", kind, len(r.elements))
	}

	id, err := r.nonEmptyString(pos, "request id")

	if err != nil {
		return Envelope{}, err
	}

	action, err := r.nonEmptyString(pos+1, "action")

	if err != nil {
		return Envelope{}, err
	}

	payload, err := r.object(pos+2, "payload")

	if err != nil {
		return Envelope{}, err
	}

	env.RequestID = RequestID(id)
	env.Action = action
	env.Payload = payload

	return env, nil
}

// [3, id, payload] or [3, destination, path, id, payload]
func parseCallResult(r frameReader) (Envelope, error) {
	env := newEnvelope(KindResponse, "", nil)
	pos := 1

	switch len(r.elements) {
	case 3:
		env.NetworkingMode = ModeStandard
	case 5:
		var err error
		if pos, err = overlayPrefix(r, &env); err != nil {
			return Envelope{}, err
		}
	default:
		return Envelope{}, ParseError.New("%s must have 3 or 5 elements, got %d", KindResponse, len(r.elements))
	}

	id, err := r.nonEmptyString(pos, "request id")

	if err != nil {
		return Envelope{}, err
	}

	payload, err := r.object(pos+1, "payload")

	if err != nil {
		return Envelope{}, err
	}

	env.RequestID = RequestID(id)
	env.Payload = payload

	return env, nil
}

// [4, id, code, description, details] or [4, destination, path, id, code, description, details]
func parseCallError(r frameReader) (Envelope, error) {
	env := newEnvelope(KindRequestError, "", nil)
	pos := 1

	switch len(r.elements) {
	case 5:
		env.NetworkingMode = ModeStandard
	case 7:
		var err error
		if pos, err = overlayPrefix(r, &env); err != nil {
			return Envelope{}, err
		}
	default:
		return Envelope{}, ParseError.New("%s must have 5 or 7 elements, got %d", KindRequestError, len(r.elements))
	}

	id, err := r.nonEmptyString(pos, "request id")

	if err != nil {
		return Envelope{}, err
	}

	code, err := r.nonEmptyString(pos+1, "error code")

	if err != nil {
		return Envelope{}, err
	}

	description, err := r.string(pos+2, "error description")

	if err != nil {
		return Envelope{}, err
	}

	details, err := r.object(pos+3, "error details")

	if err != nil {
		return Envelope{}, err
	}

	env.RequestID = RequestID(id)
	env.ErrorCode = ResultCode(code)
	env.ErrorDescription = description
	env.ErrorDetails = details

	return env, nil
}

func orEmptyObject(payload json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(payload)) == 0 {
		return json.RawMessage("{}")
	}

	return payload
}

// ToBytes serializes a JSON envelope into an OCPP-J array.
// When forced is ModeUnknown, the envelope's networking mode selects the shape (unknown means standard).
func ToBytes(env Envelope, forced NetworkingMode) ([]byte, error) {
	mode := env.NetworkingMode

	if forced != ModeUnknown {
		mode = forced
	}

	overlay := mode == ModeOverlay

	var frame []interface{}

	switch env.Kind {
	case KindRequest, KindSend:
		frame = []interface{}{int(env.Kind)}
		if overlay {
			frame = append(frame, env.Destination, env.NetworkPath)
		}
		frame = append(frame, string(env.RequestID), env.Action, orEmptyObject(env.Payload))
	case KindResponse:
		frame = []interface{}{CallResultCode}
		if overlay {
			frame = append(frame, env.Destination, env.NetworkPath)
		}
		frame = append(frame, string(env.RequestID), orEmptyObject(env.Payload))
	case KindRequestError:
		frame = []interface{}{CallErrorCode}
		if overlay {
			frame = append(frame, env.Destination, env.NetworkPath)
		}
		frame = append(frame, string(env.RequestID), string(env.ErrorCode), env.ErrorDescription, orEmptyObject(env.ErrorDetails))
	default:
		return nil, fmt.Errorf("unknown message kind: %v", env.Kind)
	}

	var buf bytes.Buffer

	// Payloads are written as they are, without HTML escaping
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(frame); err != nil {
		return nil, errorx.Decorate(err, "failed to encode %s %s", env.Kind, env.RequestID)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
