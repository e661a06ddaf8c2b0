// Package sharing implements the polynomial secret-sharing engine (C2):
// generation, evaluation at peer indices, commitment, and Lagrange-based
// reconstruction/resharing (spec.md §4.2).
package sharing

import (
	"io"

	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/field"
)

// Polynomial is a degree-(threshold-1) polynomial over Fr, stored as
// coefficients [a_0, a_1, ..., a_{t-1}]; a_0 is the secret.
type Polynomial struct {
	coeffs []*field.Scalar
}

// NewPolynomial draws uniform random a_1..a_{t-1} and fixes a_0 =
// constantTerm: the node's fresh DKG secret, or its existing share for
// resharing — the Lagrange weighting that makes resharing reconstruct the
// original secret is applied by each recipient when it aggregates Round-3
// contributions, not here (spec.md §4.2).
func NewPolynomial(threshold int, constantTerm *field.Scalar, rnd io.Reader) (*Polynomial, error) {
	coeffs := make([]*field.Scalar, threshold)
	coeffs[0] = constantTerm
	for i := 1; i < threshold; i++ {
		c, err := field.Random(rnd)
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}
	return &Polynomial{coeffs: coeffs}, nil
}

// Threshold returns the number of coefficients (degree+1).
func (p *Polynomial) Threshold() int { return len(p.coeffs) }

// Coefficients returns the non-constant coefficients [a_1..a_{t-1}], the
// slice commitCoeffs absorbs.
func (p *Polynomial) Coefficients() []*field.Scalar {
	return p.coeffs[1:]
}

// Constant returns a_0, the secret.
func (p *Polynomial) Constant() *field.Scalar { return p.coeffs[0] }

// Evaluate computes f(x) via Horner's method.
func (p *Polynomial) Evaluate(x *field.Scalar) *field.Scalar {
	acc := field.Zero()
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		acc = acc.Mul(x).Add(p.coeffs[i])
	}
	return acc
}

// Zeroize destroys every coefficient, including the secret.
func (p *Polynomial) Zeroize() {
	for _, c := range p.coeffs {
		c.Zeroize()
	}
}

// CommitShare returns share * G (spec.md §4.2).
func CommitShare(share *field.Scalar) *curve.Point {
	return curve.ScalarBaseMul(share)
}
