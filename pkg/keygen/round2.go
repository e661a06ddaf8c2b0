package keygen

import (
	"context"
	"fmt"
	"math/big"

	"github.com/luxfi/oprf-dkg/pkg/circuit"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/sharing"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

// handleRound2 runs once Round1 has closed: each Producer computes a share
// for every committee member (including itself), encrypts each under the
// recipient's Round-1 ephemeral public key, proves consistency, and
// submits the batch (spec.md §4.4).
func (h *Handler) handleRound2(ctx context.Context, id oprfkey.ID, committee party.Committee) error {
	loc, ok := h.local[id]
	if !ok {
		return fmt.Errorf("%w: round2 with no local round1 state for %s", types.ErrInvariantViolation, id)
	}
	if loc.submittedRound2 {
		return nil
	}

	round1, err := h.Chain.LoadPeerPublicKeysForProducers(ctx, id, h.Self)
	if err != nil {
		return fmt.Errorf("%w: load round1 contributions: %v", types.ErrTransientChain, err)
	}
	if len(round1) != committee.NumPeers() {
		return fmt.Errorf("%w: expected %d round1 contributions, got %d", types.ErrBadContribution, committee.NumPeers(), len(round1))
	}

	ciphers := make([]types.SecretGenCiphertext, committee.NumPeers())
	for _, recipient := range committee.Peers {
		if err := round1[recipient].EphPubKey.Validate(); err != nil {
			return fmt.Errorf("%w: recipient %d ephemeral key: %v", types.ErrInvalidPoint, recipient, err)
		}
		share := loc.poly.Evaluate(recipient.Scalar())
		nonce, err := loc.nonces.Next()
		if err != nil {
			return fmt.Errorf("%w: draw nonce: %v", types.ErrCryptoFailure, err)
		}
		ciphers[recipient] = sharing.EncryptShare(loc.eph.Secret, round1[recipient].EphPubKey, share, nonce)
	}

	layout := circuit.Layout{NumPeers: committee.NumPeers(), Threshold: committee.Threshold}
	publicInputs := circuit.Assemble(layout, loc.eph.Public, sharing.CommitShare(loc.poly.Constant()), loc.commCoeffsCached(), ciphers, circuit.RecipientEphPubKeys(round1))

	var proof []byte
	if h.Prover != nil {
		assignment := h.assignmentForRound2(loc, ciphers)
		proof, err = h.Prover.Prove(layout, publicInputs, assignment)
		if err != nil {
			return fmt.Errorf("%w: prove round2: %v", types.ErrCryptoFailure, err)
		}
	}

	if err := h.Chain.AddRound2Contribution(ctx, id, h.Self, types.Round2Contribution{
		CompressedProof: proof,
		Ciphers:         ciphers,
	}); err != nil {
		return fmt.Errorf("%w: submit round2: %v", types.ErrTransientChain, err)
	}

	loc.submittedRound2 = true
	return nil
}

// assignmentForRound2 builds the private witness values the registered
// circuit needs (SPEC_FULL §4.4); keyed by the names the (unregistered in
// this tree) trusted-setup circuit definition documents.
func (h *Handler) assignmentForRound2(loc *localState, ciphers []types.SecretGenCiphertext) map[string]*big.Int {
	assignment := make(map[string]*big.Int, len(loc.poly.Coefficients())+2)
	assignment["ephSecret"] = loc.eph.Secret.Big()
	assignment["constant"] = loc.poly.Constant().Big()
	for i, c := range loc.poly.Coefficients() {
		assignment[fmt.Sprintf("coeff_%d", i)] = c.Big()
	}
	return assignment
}
