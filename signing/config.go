package signing

import (
	"crypto/ed25519"
	"fmt"
	"sort"
	"strings"

	"github.com/joomcode/errorx"
)

const (
	PolicyNone    = "none"
	PolicyHMAC    = "hmac"
	PolicyEd25519 = "ed25519"
)

type Config struct {
	// Policy is one of none, hmac or ed25519
	Policy string `toml:"policy"`
	// KeyID identifies the local signing key
	KeyID string `toml:"key_id"`
	// Secret is the shared HMAC secret
	Secret string `toml:"secret"`
	// PrivateKey is a base64-encoded ed25519 seed
	PrivateKey string `toml:"private_key"`
	// TrustedKeys maps key ids to base64-encoded ed25519 public keys
	TrustedKeys map[string]string `toml:"trusted_keys"`
	// SignOutbound attaches signatures to every JSON message sent or originated by the node
	SignOutbound bool `toml:"sign_outbound"`
	// RequireSignatures rejects inbound JSON messages without signatures
	RequireSignatures bool `toml:"require_signatures"`
}

func NewConfig() Config {
	return Config{Policy: PolicyNone, KeyID: "default", TrustedKeys: map[string]string{}}
}

// BuildPolicy creates the policy described by the configuration
func (c Config) BuildPolicy() (Policy, error) {
	switch c.Policy {
	case "", PolicyNone:
		return NoopPolicy{}, nil
	case PolicyHMAC:
		if c.Secret == "" {
			return nil, errorx.IllegalArgument.New("hmac signing requires a secret")
		}

		return NewHMACPolicy(c.KeyID, c.Secret), nil
	case PolicyEd25519:
		var private ed25519.PrivateKey

		if c.PrivateKey != "" {
			key, err := ParseEd25519Seed(c.PrivateKey)

			if err != nil {
				return nil, errorx.Decorate(err, "invalid private key")
			}

			private = key
		}

		trusted := make(map[string]ed25519.PublicKey, len(c.TrustedKeys))

		for id, encoded := range c.TrustedKeys {
			key, err := ParseEd25519PublicKey(encoded)

			if err != nil {
				return nil, errorx.Decorate(err, "invalid trusted key %s", id)
			}

			trusted[id] = key
		}

		return NewEd25519Policy(c.KeyID, private, trusted), nil
	default:
		return nil, errorx.IllegalArgument.New("unknown signing policy: %s", c.Policy)
	}
}

func (c Config) ToToml() string {
	var result strings.Builder

	result.WriteString("# Signing policy (none, hmac, ed25519)\n")
	result.WriteString(fmt.Sprintf("policy = \"%s\"\n", c.Policy))

	result.WriteString("# Local key identifier\n")
	result.WriteString(fmt.Sprintf("key_id = \"%s\"\n", c.KeyID))

	result.WriteString("# Shared secret for HMAC signatures\n")
	if c.Secret != "" {
		result.WriteString(fmt.Sprintf("secret = \"%s\"\n", c.Secret))
	} else {
		result.WriteString("# secret = \"\"\n")
	}

	result.WriteString("# Base64-encoded ed25519 seed\n")
	if c.PrivateKey != "" {
		result.WriteString(fmt.Sprintf("private_key = \"%s\"\n", c.PrivateKey))
	} else {
		result.WriteString("# private_key = \"\"\n")
	}

	result.WriteString("# Sign outgoing messages\n")
	result.WriteString(fmt.Sprintf("sign_outbound = %t\n", c.SignOutbound))

	result.WriteString("# Reject incoming messages without signatures\n")
	result.WriteString(fmt.Sprintf("require_signatures = %t\n", c.RequireSignatures))

	result.WriteString("# Trusted ed25519 public keys by key id\n")
	if len(c.TrustedKeys) > 0 {
		ids := make([]string, 0, len(c.TrustedKeys))
		for id := range c.TrustedKeys {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		pairs := make([]string, 0, len(ids))
		for _, id := range ids {
			pairs = append(pairs, fmt.Sprintf("%q = %q", id, c.TrustedKeys[id]))
		}

		result.WriteString(fmt.Sprintf("trusted_keys = { %s }\n", strings.Join(pairs, ", ")))
	} else {
		result.WriteString("# trusted_keys = { \"csms\" = \"<base64 public key>\" }\n")
	}

	result.WriteString("\n")

	return result.String()
}
