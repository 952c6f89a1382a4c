// Package signing signs and verifies OCPP message payloads.
//
// Signatures cover the canonical (RFC 8785) form of the JSON payload without its
// "signatures" member, so relays may rewrite destinations and network paths freely.
package signing

import (
	"bytes"
	"encoding/json"

	"github.com/gowebpki/jcs"
	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/ocpp"
)

const (
	AlgorithmHMACSHA256 = "HMAC-SHA256"
	AlgorithmEd25519    = "Ed25519"

	signaturesKey = "signatures"
)

// Signature is a single signature attached to a payload
type Signature struct {
	KeyID     string `json:"keyId"`
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// SignatureSet is the list of signatures attached to a payload
type SignatureSet []Signature

// Policy creates and checks signatures over canonical payload bytes
type Policy interface {
	Sign(canonical []byte) (SignatureSet, error)
	Verify(canonical []byte, sigs SignatureSet) error
}

// NoopPolicy neither signs nor checks anything
type NoopPolicy struct{}

var _ Policy = NoopPolicy{}

func (NoopPolicy) Sign([]byte) (SignatureSet, error) {
	return nil, nil
}

func (NoopPolicy) Verify([]byte, SignatureSet) error {
	return nil
}

func decodeObject(payload json.RawMessage) (map[string]json.RawMessage, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var obj map[string]json.RawMessage

	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, ocpp.SignatureError.Wrap(err, "payload is not a JSON object")
	}

	if obj == nil {
		return nil, ocpp.SignatureError.New("payload is not a JSON object")
	}

	return obj, nil
}

func encodeObject(obj map[string]json.RawMessage) (json.RawMessage, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(obj); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Canonicalize splits a payload into its canonical signed bytes and the attached signatures
func Canonicalize(payload json.RawMessage) ([]byte, SignatureSet, error) {
	obj, err := decodeObject(payload)

	if err != nil {
		return nil, nil, err
	}

	var sigs SignatureSet

	if raw, ok := obj[signaturesKey]; ok {
		if err := json.Unmarshal(raw, &sigs); err != nil {
			return nil, nil, ocpp.SignatureError.Wrap(err, "invalid signatures format")
		}

		delete(obj, signaturesKey)
	}

	stripped, err := encodeObject(obj)

	if err != nil {
		return nil, nil, errorx.Decorate(err, "failed to encode payload")
	}

	canonical, err := jcs.Transform(stripped)

	if err != nil {
		return nil, nil, ocpp.SignatureError.Wrap(err, "failed to canonicalize payload")
	}

	return canonical, sigs, nil
}

// Attach adds signatures to the payload's "signatures" member, keeping the existing ones
func Attach(payload json.RawMessage, sigs SignatureSet) (json.RawMessage, error) {
	if len(sigs) == 0 {
		return payload, nil
	}

	obj, err := decodeObject(payload)

	if err != nil {
		return nil, err
	}

	var existing SignatureSet

	if raw, ok := obj[signaturesKey]; ok {
		if err := json.Unmarshal(raw, &existing); err != nil {
			return nil, ocpp.SignatureError.Wrap(err, "invalid signatures format")
		}
	}

	encoded, err := json.Marshal(append(existing, sigs...))

	if err != nil {
		return nil, errorx.Decorate(err, "failed to encode signatures")
	}

	obj[signaturesKey] = encoded

	return encodeObject(obj)
}
