package sharing

import (
	"errors"

	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/party"
)

// ErrDuplicateIDs is returned when the input id set is not pairwise
// distinct (spec.md §4.1 lagrangeCoefficients).
var ErrDuplicateIDs = errors.New("sharing: duplicate peer ids")

// ErrInvalidThreshold is returned when len(ids) != threshold.
var ErrInvalidThreshold = errors.New("sharing: |ids| != threshold")

// LagrangeCoefficients computes, for every peer in [0, numPeers), the
// Lagrange weight mapping f(ids) to f(0): non-zero only for i in ids
// (spec.md §4.1). ids must be pairwise distinct and |ids| == threshold.
func LagrangeCoefficients(ids party.IDSlice, threshold, numPeers int) ([]*field.Scalar, error) {
	if len(ids) != threshold {
		return nil, ErrInvalidThreshold
	}
	seen := make(map[party.ID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, ErrDuplicateIDs
		}
		seen[id] = true
	}

	out := make([]*field.Scalar, numPeers)
	for i := 0; i < numPeers; i++ {
		out[i] = field.Zero()
	}

	zero := field.Zero()
	for _, i := range ids {
		xi := i.Scalar()
		num := field.One()
		den := field.One()
		for _, j := range ids {
			if j == i {
				continue
			}
			xj := j.Scalar()
			// numerator *= (0 - xj) = -xj
			num = num.Mul(zero.Sub(xj))
			// denominator *= (xi - xj)
			den = den.Mul(xi.Sub(xj))
		}
		if den.IsZero() {
			return nil, ErrDuplicateIDs
		}
		out[i] = num.Mul(den.Inverse())
	}
	return out, nil
}
