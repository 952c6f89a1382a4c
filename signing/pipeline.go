package signing

import (
	"encoding/json"

	"github.com/ocppnet/ocppnet/ocpp"
)

// Pipeline applies a policy to envelopes.
//
// Request, response and send payloads are signed as well as the error details of a
// request error. Binary payloads carry no JSON object to embed signatures into and
// are passed through unsigned.
type Pipeline struct {
	Policy            Policy
	SignOutbound      bool
	RequireSignatures bool
}

func NewPipeline(policy Policy, c *Config) *Pipeline {
	return &Pipeline{Policy: policy, SignOutbound: c.SignOutbound, RequireSignatures: c.RequireSignatures}
}

// NoopPipeline neither signs nor verifies
func NoopPipeline() *Pipeline {
	return &Pipeline{Policy: NoopPolicy{}}
}

func signedPart(env ocpp.Envelope) json.RawMessage {
	if env.Kind == ocpp.KindRequestError {
		return env.ErrorDetails
	}

	return env.Payload
}

func withSignedPart(env ocpp.Envelope, part json.RawMessage) ocpp.Envelope {
	if env.Kind == ocpp.KindRequestError {
		env.ErrorDetails = part
		return env
	}

	return env.WithPayload(part)
}

// SignEnvelope returns a copy of the envelope with signatures attached to its payload
func (p *Pipeline) SignEnvelope(env ocpp.Envelope) (ocpp.Envelope, error) {
	if !p.SignOutbound || env.IsBinary() {
		return env, nil
	}

	canonical, _, err := Canonicalize(signedPart(env))

	if err != nil {
		return env, err
	}

	sigs, err := p.Policy.Sign(canonical)

	if err != nil {
		return env, ocpp.SignatureError.Wrap(err, "failed to sign %s %s", env.Kind, env.RequestID)
	}

	if len(sigs) == 0 {
		return env, nil
	}

	signed, err := Attach(signedPart(env), sigs)

	if err != nil {
		return env, err
	}

	return withSignedPart(env, signed), nil
}

// VerifyEnvelope checks the signatures attached to the envelope's payload
func (p *Pipeline) VerifyEnvelope(env ocpp.Envelope) error {
	if env.IsBinary() {
		return nil
	}

	canonical, sigs, err := Canonicalize(signedPart(env))

	if err != nil {
		return err
	}

	if len(sigs) == 0 {
		if p.RequireSignatures {
			return ocpp.SignatureError.New("%s %s is not signed", env.Kind, env.RequestID)
		}

		return nil
	}

	if err := p.Policy.Verify(canonical, sigs); err != nil {
		return ocpp.SignatureError.Wrap(err, "%s %s failed verification", env.Kind, env.RequestID)
	}

	return nil
}
