package signing

import (
	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/ocpp"
)

// Chain combines several policies: every policy signs, and verification
// succeeds when any (or, with RequireAll, every) policy accepts the signatures
type Chain struct {
	Policies   []Policy
	RequireAll bool
}

var _ Policy = (*Chain)(nil)

func (c *Chain) Sign(canonical []byte) (SignatureSet, error) {
	var all SignatureSet

	for _, p := range c.Policies {
		sigs, err := p.Sign(canonical)

		if err != nil {
			return nil, err
		}

		all = append(all, sigs...)
	}

	return all, nil
}

func (c *Chain) Verify(canonical []byte, sigs SignatureSet) error {
	if len(c.Policies) == 0 {
		return nil
	}

	var errs []error

	for _, p := range c.Policies {
		err := p.Verify(canonical, sigs)

		if err == nil && !c.RequireAll {
			return nil
		}

		if err != nil {
			if c.RequireAll {
				return err
			}

			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errorx.WrapMany(ocpp.SignatureError, "no policy accepted the signatures", errs...)
	}

	return nil
}
