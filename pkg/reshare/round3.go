package reshare

import (
	"context"
	"fmt"

	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/sharing"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

// handleRound3 runs once Round2 has closed: every new-committee member
// (Producer or Consumer) decrypts the share each Producer sent it, weights
// it by that Producer's on-chain Lagrange coefficient (delivered with the
// ReshareRound3 event, since the final Producer set — and so the weights —
// aren't known until Round 1 closes), sums the weighted contributions into
// its new share, and acknowledges. epoch is the generation number this
// resharing will bump to once every member has acknowledged (spec.md
// §4.2, §4.5, §4.6).
func (h *Handler) handleRound3(ctx context.Context, id oprfkey.ID, committee party.Committee, epoch uint32) error {
	loc, ok := h.local[id]
	if !ok {
		return fmt.Errorf("%w: round3 with no local state for %s", types.ErrInvariantViolation, id)
	}
	if loc.submittedRound3 {
		return nil
	}

	state, ok := h.Mirror.State(id)
	if !ok {
		return fmt.Errorf("%w: no mirrored state for %s", types.ErrInvariantViolation, id)
	}

	producers, err := h.Chain.LoadPeerPublicKeysForProducers(ctx, id, h.Self)
	if err != nil {
		return fmt.Errorf("%w: load producer contributions: %v", types.ErrTransientChain, err)
	}
	ciphers, err := h.Chain.CheckIsParticipantAndReturnRound2Ciphers(ctx, id, h.Self)
	if err != nil {
		return fmt.Errorf("%w: load round2 ciphers: %v", types.ErrTransientChain, err)
	}

	finalShare := field.Zero()
	for _, sender := range state.Producers {
		ct := ciphers[sender]
		if ct.Commitment == nil {
			return fmt.Errorf("%w: missing ciphertext from producer %d", types.ErrBadContribution, sender)
		}
		share, ok := sharing.DecryptAndVerify(loc.eph.Secret, producers[sender].EphPubKey, ct)
		if !ok {
			return fmt.Errorf("%w: producer %d share failed commitment check", types.ErrCryptoFailure, sender)
		}
		weight := state.LagrangeCoeffs[sender]
		if weight == nil {
			return fmt.Errorf("%w: no lagrange weight for producer %d", types.ErrInvariantViolation, sender)
		}
		finalShare = finalShare.Add(share.Mul(weight))
	}

	existingPubKey, _, err := h.Chain.GetOprfPublicKeyAndEpoch(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: read public key: %v", types.ErrTransientChain, err)
	}
	keyAggregate, err := decodeSharedPublicKey(existingPubKey)
	if err != nil {
		return fmt.Errorf("%w: decode public key: %v", types.ErrInvariantViolation, err)
	}

	if err := h.Store.UpsertShare(ctx, id, finalShare, epoch, keyAggregate); err != nil {
		return fmt.Errorf("%w: persist new share: %v", types.ErrStorageFailure, err)
	}

	if err := h.Chain.AddRound3Contribution(ctx, id, h.Self); err != nil {
		return fmt.Errorf("%w: acknowledge round3: %v", types.ErrTransientChain, err)
	}

	loc.submittedRound3 = true
	if loc.poly != nil {
		loc.poly.Zeroize()
	}
	finalShare.Zeroize()
	return nil
}
