package reshare

import (
	"context"
	"fmt"

	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/sharing"
	"github.com/luxfi/oprf-dkg/pkg/sponge"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

// handleRound1 runs the moment ReshareRound1 fires. A Producer draws a
// fresh degree-(t-1) polynomial around its existing share; a Consumer only
// draws the ephemeral DH keypair it needs to receive shares (spec.md §4.2,
// §3 nodeRoles).
func (h *Handler) handleRound1(ctx context.Context, id oprfkey.ID, committee party.Committee) error {
	if _, exists := h.local[id]; exists {
		return nil
	}

	oldShare, isProducer, err := h.Roles.OldShare(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: resolve role: %v", types.ErrStorageFailure, err)
	}

	eph, err := sharing.NewEphemeralKeyPair(h.Rnd)
	if err != nil {
		return fmt.Errorf("%w: draw ephemeral keypair: %v", types.ErrCryptoFailure, err)
	}

	loc := &localState{
		committee: committee,
		eph:       eph,
		nonces:    sharing.NewNonceTracker(h.Rnd),
	}

	contribution := types.Round1Contribution{EphPubKey: eph.Public}

	if isProducer {
		// a_0 is the Producer's own existing share, unweighted: the
		// registry checks commShare against the share commitment it already
		// holds from the prior generation (spec.md §4.2). The Lagrange
		// weight for this generation isn't known until Round 1 closes
		// (GetLagrangeWeight only resolves then), so weighting is applied
		// once at Round 3 aggregation instead of here — see reshare/round3.go.
		poly, err := sharing.NewPolynomial(committee.Threshold, oldShare, h.Rnd)
		if err != nil {
			return fmt.Errorf("%w: build polynomial: %v", types.ErrCryptoFailure, err)
		}
		commCoeffs := sponge.CommitCoeffs(poly.Coefficients())

		contribution.CommShare = sharing.CommitShare(oldShare)
		contribution.CommCoeffs = commCoeffs

		loc.role = types.RoleProducer
		loc.poly = poly
		loc.commCoeffs = commCoeffs
	} else {
		loc.role = types.RoleConsumer
	}

	if err := h.Chain.AddRound1ReshareContribution(ctx, id, h.Self, contribution); err != nil {
		return fmt.Errorf("%w: submit round1: %v", types.ErrTransientChain, err)
	}

	h.local[id] = loc
	return nil
}
