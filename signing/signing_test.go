package signing

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/addressing"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	a, sigs, err := Canonicalize(json.RawMessage(`{"b": "x", "a": 1}`))
	require.NoError(t, err)
	assert.Empty(t, sigs)

	b, _, err := Canonicalize(json.RawMessage(`{"a":1,"b":"x","signatures":[{"keyId":"k","algorithm":"HMAC-SHA256","value":"00"}]}`))
	require.NoError(t, err)

	assert.Equal(t, `{"a":1,"b":"x"}`, string(a))
	assert.Equal(t, a, b)

	t.Run("empty payload", func(t *testing.T) {
		canonical, _, err := Canonicalize(nil)

		require.NoError(t, err)
		assert.Equal(t, `{}`, string(canonical))
	})

	t.Run("not an object", func(t *testing.T) {
		_, _, err := Canonicalize(json.RawMessage(`[1,2]`))

		require.Error(t, err)
		assert.True(t, errorx.IsOfType(err, ocpp.SignatureError))
	})

	t.Run("invalid signatures", func(t *testing.T) {
		_, _, err := Canonicalize(json.RawMessage(`{"signatures":"nope"}`))

		require.Error(t, err)
	})
}

func TestAttach(t *testing.T) {
	first := SignatureSet{{KeyID: "a", Algorithm: AlgorithmHMACSHA256, Value: "01"}}
	second := SignatureSet{{KeyID: "b", Algorithm: AlgorithmEd25519, Value: "AQ=="}}

	signed, err := Attach(json.RawMessage(`{"status":"Accepted"}`), first)
	require.NoError(t, err)

	signed, err = Attach(signed, second)
	require.NoError(t, err)

	_, sigs, err := Canonicalize(signed)
	require.NoError(t, err)

	assert.Equal(t, append(first, second...), sigs)
	assert.JSONEq(t, `{"status":"Accepted","signatures":[{"keyId":"a","algorithm":"HMAC-SHA256","value":"01"},{"keyId":"b","algorithm":"Ed25519","value":"AQ=="}]}`, string(signed))
}

func TestHMACPolicy(t *testing.T) {
	policy := NewHMACPolicy("k1", "secret")

	sigs, err := policy.Sign([]byte(`{"a":1,"b":"x"}`))
	require.NoError(t, err)
	require.Len(t, sigs, 1)

	assert.Equal(t, "k1", sigs[0].KeyID)
	assert.Equal(t, AlgorithmHMACSHA256, sigs[0].Algorithm)
	assert.Equal(t, "506ce4703bac0b18686d948c378b3d6956a1e9a43b224878d47270b08c0c924e", sigs[0].Value)

	assert.NoError(t, policy.Verify([]byte(`{"a":1,"b":"x"}`), sigs))
	assert.Error(t, policy.Verify([]byte(`{"a":2,"b":"x"}`), sigs))
	assert.Error(t, NewHMACPolicy("k1", "other").Verify([]byte(`{"a":1,"b":"x"}`), sigs))

	err = NewHMACPolicy("k2", "secret").Verify([]byte(`{"a":1,"b":"x"}`), sigs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no signature for key k2")
}

func TestEd25519Policy(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signer := NewEd25519Policy("cs1", priv, nil)
	verifier := NewEd25519Policy("csms", nil, map[string]ed25519.PublicKey{"cs1": pub})

	sigs, err := signer.Sign([]byte(`{}`))
	require.NoError(t, err)

	assert.NoError(t, signer.Verify([]byte(`{}`), sigs))
	assert.NoError(t, verifier.Verify([]byte(`{}`), sigs))
	assert.Error(t, verifier.Verify([]byte(`{"a":1}`), sigs))

	_, err = verifier.Sign([]byte(`{}`))
	assert.Error(t, err)

	t.Run("untrusted keys only", func(t *testing.T) {
		_, other, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)

		sigs, err := NewEd25519Policy("intruder", other, nil).Sign([]byte(`{}`))
		require.NoError(t, err)

		err = verifier.Verify([]byte(`{}`), sigs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no signature from a trusted key")
	})

	t.Run("garbage value", func(t *testing.T) {
		err := verifier.Verify([]byte(`{}`), SignatureSet{{KeyID: "cs1", Algorithm: AlgorithmEd25519, Value: "%%%"}})

		assert.Error(t, err)
	})
}

func TestChain(t *testing.T) {
	a := NewHMACPolicy("a", "first")
	b := NewHMACPolicy("b", "second")

	chain := &Chain{Policies: []Policy{a, b}}

	sigs, err := chain.Sign([]byte(`{}`))
	require.NoError(t, err)
	assert.Len(t, sigs, 2)

	assert.NoError(t, chain.Verify([]byte(`{}`), sigs[1:]))

	chain.RequireAll = true

	assert.NoError(t, chain.Verify([]byte(`{}`), sigs))
	assert.Error(t, chain.Verify([]byte(`{}`), sigs[1:]))

	chain.RequireAll = false

	err = chain.Verify([]byte(`{"x":1}`), sigs)
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, ocpp.SignatureError))
}

func TestPipeline(t *testing.T) {
	conf := NewConfig()
	conf.SignOutbound = true
	conf.RequireSignatures = true

	pipeline := NewPipeline(NewHMACPolicy("k1", "secret"), &conf)

	req := ocpp.NewRequest(
		"42", "Heartbeat", json.RawMessage(`{}`),
		ocpp.WithMode(ocpp.ModeOverlay),
		ocpp.WithDestination(addressing.Via("NN1", "CSMS")),
	)

	signed, err := pipeline.SignEnvelope(req)
	require.NoError(t, err)

	assert.Contains(t, string(signed.Payload), `"signatures"`)
	assert.NotContains(t, string(req.Payload), `"signatures"`)

	t.Run("relays may rewrite addressing", func(t *testing.T) {
		relayed := signed.AppendHop("NN1").WithDestination(addressing.To("CSMS"))

		assert.NoError(t, pipeline.VerifyEnvelope(relayed))
	})

	t.Run("survives wire round trip", func(t *testing.T) {
		raw, err := ocpp.ToBytes(signed, ocpp.ModeUnknown)
		require.NoError(t, err)

		parsed, err := ocpp.ParseJSON(raw, "CS1")
		require.NoError(t, err)

		assert.NoError(t, pipeline.VerifyEnvelope(parsed))
	})

	t.Run("tampered payload", func(t *testing.T) {
		_, sigs, err := Canonicalize(signed.Payload)
		require.NoError(t, err)

		payload, err := Attach(json.RawMessage(`{"tampered":true}`), sigs)
		require.NoError(t, err)

		err = pipeline.VerifyEnvelope(signed.WithPayload(payload))

		require.Error(t, err)
		assert.True(t, errorx.IsOfType(err, ocpp.SignatureError))
	})

	t.Run("unsigned rejected", func(t *testing.T) {
		err := pipeline.VerifyEnvelope(req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not signed")
	})

	t.Run("unsigned accepted when not required", func(t *testing.T) {
		lenient := &Pipeline{Policy: pipeline.Policy}

		assert.NoError(t, lenient.VerifyEnvelope(req))
		assert.NoError(t, lenient.VerifyEnvelope(signed))
	})

	t.Run("request error details", func(t *testing.T) {
		rejected := ocpp.Reject(req, ocpp.CodeNotSupported, "no", json.RawMessage(`{"hint":"later"}`))

		signedErr, err := pipeline.SignEnvelope(rejected)
		require.NoError(t, err)

		assert.Contains(t, string(signedErr.ErrorDetails), `"signatures"`)
		assert.NoError(t, pipeline.VerifyEnvelope(signedErr))
	})

	t.Run("binary passes through", func(t *testing.T) {
		bin := ocpp.NewBinaryRequest("7", "UploadFile", []byte{1, 2, 3})

		out, err := pipeline.SignEnvelope(bin)
		require.NoError(t, err)

		assert.Equal(t, bin, out)
		assert.NoError(t, pipeline.VerifyEnvelope(bin))
	})

	t.Run("noop", func(t *testing.T) {
		noop := NoopPipeline()

		out, err := noop.SignEnvelope(req)
		require.NoError(t, err)

		assert.Equal(t, req, out)
		assert.NoError(t, noop.VerifyEnvelope(req))
	})
}
