package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/ocpp"
)

// HMACPolicy signs payloads with a shared secret (HMAC-SHA256, hex-encoded digest)
type HMACPolicy struct {
	keyID string
	key   []byte
}

var _ Policy = (*HMACPolicy)(nil)

func NewHMACPolicy(keyID string, secret string) *HMACPolicy {
	return &HMACPolicy{keyID: keyID, key: []byte(secret)}
}

func (m *HMACPolicy) Sign(canonical []byte) (SignatureSet, error) {
	digest, err := m.digest(canonical)

	if err != nil {
		return nil, err
	}

	return SignatureSet{{KeyID: m.keyID, Algorithm: AlgorithmHMACSHA256, Value: string(digest)}}, nil
}

func (m *HMACPolicy) Verify(canonical []byte, sigs SignatureSet) error {
	actual, err := m.digest(canonical)

	if err != nil {
		return err
	}

	for _, sig := range sigs {
		if sig.Algorithm != AlgorithmHMACSHA256 || sig.KeyID != m.keyID {
			continue
		}

		digest := []byte(sig.Value)

		if subtle.ConstantTimeEq(int32(len(actual)), int32(len(digest))) == 1 &&
			subtle.ConstantTimeCompare(actual, digest) == 1 {
			return nil
		}

		return ocpp.SignatureError.New("invalid signature for key %s", m.keyID)
	}

	return ocpp.SignatureError.New("no signature for key %s", m.keyID)
}

func (m *HMACPolicy) digest(payload []byte) ([]byte, error) {
	h := hmac.New(sha256.New, m.key)

	if _, err := h.Write(payload); err != nil {
		return nil, errorx.Decorate(err, "failed to sign payload")
	}

	return []byte(fmt.Sprintf("%x", h.Sum(nil))), nil
}
