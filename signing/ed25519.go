package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/ocppnet/ocppnet/ocpp"
)

// Ed25519Policy signs with a private key and verifies against a set of trusted public keys
type Ed25519Policy struct {
	keyID   string
	private ed25519.PrivateKey
	trusted map[string]ed25519.PublicKey
}

var _ Policy = (*Ed25519Policy)(nil)

// NewEd25519Policy builds a policy; the signing key (if any) is trusted as well.
// A policy without a private key can only verify.
func NewEd25519Policy(keyID string, private ed25519.PrivateKey, trusted map[string]ed25519.PublicKey) *Ed25519Policy {
	keys := make(map[string]ed25519.PublicKey, len(trusted)+1)

	for id, key := range trusted {
		keys[id] = key
	}

	if private != nil {
		keys[keyID] = private.Public().(ed25519.PublicKey)
	}

	return &Ed25519Policy{keyID: keyID, private: private, trusted: keys}
}

// ParseEd25519Seed decodes a base64-encoded 32-byte seed into a private key
func ParseEd25519Seed(encoded string) (ed25519.PrivateKey, error) {
	seed, err := base64.StdEncoding.DecodeString(encoded)

	if err != nil {
		return nil, err
	}

	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	return ed25519.NewKeyFromSeed(seed), nil
}

// ParseEd25519PublicKey decodes a base64-encoded public key
func ParseEd25519PublicKey(encoded string) (ed25519.PublicKey, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)

	if err != nil {
		return nil, err
	}

	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}

	return ed25519.PublicKey(key), nil
}

func (p *Ed25519Policy) Sign(canonical []byte) (SignatureSet, error) {
	if p.private == nil {
		return nil, ocpp.SignatureError.New("no private key configured for %s", p.keyID)
	}

	sig := ed25519.Sign(p.private, canonical)

	return SignatureSet{{KeyID: p.keyID, Algorithm: AlgorithmEd25519, Value: base64.StdEncoding.EncodeToString(sig)}}, nil
}

// Verify requires at least one valid signature from a trusted key;
// any invalid signature made with a trusted key fails the whole set
func (p *Ed25519Policy) Verify(canonical []byte, sigs SignatureSet) error {
	valid := 0

	for _, sig := range sigs {
		if sig.Algorithm != AlgorithmEd25519 {
			continue
		}

		key, ok := p.trusted[sig.KeyID]

		if !ok {
			continue
		}

		value, err := base64.StdEncoding.DecodeString(sig.Value)

		if err != nil || !ed25519.Verify(key, canonical, value) {
			return ocpp.SignatureError.New("invalid signature for key %s", sig.KeyID)
		}

		valid++
	}

	if valid == 0 {
		return ocpp.SignatureError.New("no signature from a trusted key")
	}

	return nil
}
