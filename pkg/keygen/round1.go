package keygen

import (
	"context"
	"fmt"

	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/sharing"
	"github.com/luxfi/oprf-dkg/pkg/sponge"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

// localState is the ephemeral, never-persisted material a node carries
// between rounds for one OprfKeyId (spec.md §4.3: "fresh ephemeral DH
// keypair", "degree-(t-1) polynomial").
type localState struct {
	committee  party.Committee
	poly       *sharing.Polynomial
	eph        *sharing.EphemeralKeyPair
	nonces     *sharing.NonceTracker
	commCoeffs *field.Scalar

	submittedRound2 bool
	submittedRound3 bool
}

// commCoeffsCached returns the commCoeffs value computed once at Round 1,
// avoiding a second sponge pass over the polynomial's coefficients.
func (l *localState) commCoeffsCached() *field.Scalar {
	return l.commCoeffs
}

// handleRound1 runs the moment Round1Started fires: every committee member
// is a Producer (spec.md §4.3), so every member draws its own secret
// polynomial and ephemeral keypair and submits its Round1Contribution.
func (h *Handler) handleRound1(ctx context.Context, id oprfkey.ID, committee party.Committee) error {
	if _, exists := h.local[id]; exists {
		return nil // already submitted for this key
	}

	secret, err := field.Random(h.Rnd)
	if err != nil {
		return fmt.Errorf("%w: draw secret: %v", types.ErrCryptoFailure, err)
	}
	poly, err := sharing.NewPolynomial(committee.Threshold, secret, h.Rnd)
	if err != nil {
		return fmt.Errorf("%w: build polynomial: %v", types.ErrCryptoFailure, err)
	}

	eph, err := sharing.NewEphemeralKeyPair(h.Rnd)
	if err != nil {
		return fmt.Errorf("%w: draw ephemeral keypair: %v", types.ErrCryptoFailure, err)
	}

	commShare := sharing.CommitShare(secret)
	commCoeffs := sponge.CommitCoeffs(poly.Coefficients())

	contribution := types.Round1Contribution{
		EphPubKey:  eph.Public,
		CommShare:  commShare,
		CommCoeffs: commCoeffs,
	}

	if err := h.Chain.AddRound1KeyGenContribution(ctx, id, h.Self, contribution); err != nil {
		return fmt.Errorf("%w: submit round1: %v", types.ErrTransientChain, err)
	}

	h.local[id] = &localState{
		committee:  committee,
		poly:       poly,
		eph:        eph,
		nonces:     sharing.NewNonceTracker(h.Rnd),
		commCoeffs: commCoeffs,
	}
	return nil
}
