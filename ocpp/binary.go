package ocpp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/ocppnet/ocppnet/addressing"
)

// Binary framing (little-endian):
//
//	u16 requestIdLen | requestId (utf8) | u16 actionLen | action (utf8) | u64 payloadLen | payload
//
// A binary CALLRESULT uses the same layout with an empty action.
var byteOrder = binary.LittleEndian

const binaryHeaderMin = 2 + 2 + 8

// ToBinary serializes a binary request or response
func ToBinary(env Envelope) ([]byte, error) {
	switch env.Kind {
	case KindRequest:
		if env.Action == "" {
			return nil, fmt.Errorf("binary request %s has no action", env.RequestID)
		}
	case KindResponse:
	default:
		return nil, fmt.Errorf("%s has no binary form", env.Kind)
	}

	id := []byte(env.RequestID)
	action := []byte(env.Action)

	if len(id) > math.MaxUint16 {
		return nil, fmt.Errorf("request id is too long: %d bytes", len(id))
	}

	if len(action) > math.MaxUint16 {
		return nil, fmt.Errorf("action is too long: %d bytes", len(action))
	}

	buf := bytes.NewBuffer(make([]byte, 0, binaryHeaderMin+len(id)+len(action)+len(env.BinaryPayload)))

	writeUint16(buf, uint16(len(id)))
	buf.Write(id)
	writeUint16(buf, uint16(len(action)))
	buf.Write(action)

	var size [8]byte
	byteOrder.PutUint64(size[:], uint64(len(env.BinaryPayload)))
	buf.Write(size[:])
	buf.Write(env.BinaryPayload)

	return buf.Bytes(), nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	byteOrder.PutUint16(b[:], v)
	buf.Write(b[:])
}

type binaryReader struct {
	data []byte
	pos  int
}

func (r *binaryReader) take(n uint64, name string) ([]byte, error) {
	left := uint64(len(r.data) - r.pos)

	if n > left {
		return nil, ParseError.New("%s needs %d bytes at offset %d, only %d left", name, n, r.pos, left)
	}

	chunk := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)

	return chunk, nil
}

func (r *binaryReader) uint16(name string) (uint16, error) {
	b, err := r.take(2, name)

	if err != nil {
		return 0, err
	}

	return byteOrder.Uint16(b), nil
}

func (r *binaryReader) uint64(name string) (uint64, error) {
	b, err := r.take(8, name)

	if err != nil {
		return 0, err
	}

	return byteOrder.Uint64(b), nil
}

func (r *binaryReader) text(name string) (string, error) {
	n, err := r.uint16(name + " length")

	if err != nil {
		return "", err
	}

	b, err := r.take(uint64(n), name)

	if err != nil {
		return "", err
	}

	if !utf8.Valid(b) {
		return "", ParseError.New("%s is not valid UTF-8", name)
	}

	return string(b), nil
}

// ParseBinary parses a binary frame. Binary frames are standard-mode only:
// the implicit source (the sending connection) becomes the network path.
// maxPayload limits the declared payload length (0 means no limit).
func ParseBinary(raw []byte, implicitSource addressing.NodeID, maxPayload uint64) (Envelope, error) {
	if len(raw) < binaryHeaderMin {
		return Envelope{}, ParseError.New("binary message is too short: %d bytes", len(raw))
	}

	r := &binaryReader{data: raw}

	id, err := r.text("request id")

	if err != nil {
		return Envelope{}, err
	}

	if id == "" {
		return Envelope{}, ParseError.New("request id must not be empty")
	}

	action, err := r.text("action")

	if err != nil {
		return Envelope{}, err
	}

	size, err := r.uint64("payload length")

	if err != nil {
		return Envelope{}, err
	}

	if maxPayload > 0 && size > maxPayload {
		return Envelope{}, ParseError.New("binary payload is too large: %d bytes (max %d)", size, maxPayload)
	}

	payload, err := r.take(size, "payload")

	if err != nil {
		return Envelope{}, err
	}

	if r.pos != len(raw) {
		return Envelope{}, ParseError.New("unexpected %d trailing bytes after payload", len(raw)-r.pos)
	}

	data := make([]byte, len(payload))
	copy(data, payload)

	var env Envelope

	if action == "" {
		env = NewBinaryResponse(RequestID(id), data, WithMode(ModeStandard))
	} else {
		env = NewBinaryRequest(RequestID(id), action, data, WithMode(ModeStandard))
	}

	return withImplicitSource(env, implicitSource), nil
}
