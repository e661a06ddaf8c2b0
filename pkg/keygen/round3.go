package keygen

import (
	"context"
	"fmt"

	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/sharing"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

// handleRound3 runs once Round2 has closed: this node decrypts the share
// every Producer sent it, verifies each against its declared commitment,
// sums them into its final share, and acknowledges (spec.md §4.5).
func (h *Handler) handleRound3(ctx context.Context, id oprfkey.ID, committee party.Committee) error {
	loc, ok := h.local[id]
	if !ok {
		return fmt.Errorf("%w: round3 with no local state for %s", types.ErrInvariantViolation, id)
	}
	if loc.submittedRound3 {
		return nil
	}

	round1, err := h.Chain.LoadPeerPublicKeysForProducers(ctx, id, h.Self)
	if err != nil {
		return fmt.Errorf("%w: load round1 contributions: %v", types.ErrTransientChain, err)
	}
	ciphers, err := h.Chain.CheckIsParticipantAndReturnRound2Ciphers(ctx, id, h.Self)
	if err != nil {
		return fmt.Errorf("%w: load round2 ciphers: %v", types.ErrTransientChain, err)
	}
	if len(ciphers) != committee.NumPeers() {
		return fmt.Errorf("%w: expected %d round2 ciphers, got %d", types.ErrBadContribution, committee.NumPeers(), len(ciphers))
	}

	finalShare := field.Zero()
	keyAggregate := curve.Identity()
	for _, sender := range committee.Peers {
		share, ok := sharing.DecryptAndVerify(loc.eph.Secret, round1[sender].EphPubKey, ciphers[sender])
		if !ok {
			return fmt.Errorf("%w: sender %d share failed commitment check", types.ErrCryptoFailure, sender)
		}
		finalShare = finalShare.Add(share)
		keyAggregate = keyAggregate.Add(round1[sender].CommShare)
	}

	// The registry publishes no public key or epoch until finalize, so the
	// share is stamped with the replica's generatedEpoch (0 for a fresh DKG).
	state, err := h.stateFor(id)
	if err != nil {
		return err
	}
	epoch := state.GeneratedEpoch

	if err := h.Store.UpsertShare(ctx, id, finalShare, epoch, keyAggregate); err != nil {
		return fmt.Errorf("%w: persist final share: %v", types.ErrStorageFailure, err)
	}

	if err := h.Chain.AddRound3Contribution(ctx, id, h.Self); err != nil {
		return fmt.Errorf("%w: acknowledge round3: %v", types.ErrTransientChain, err)
	}

	loc.submittedRound3 = true
	loc.poly.Zeroize()
	finalShare.Zeroize()
	return nil
}
