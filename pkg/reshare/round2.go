package reshare

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

// handleRound2 runs once enough Producers have volunteered in Round 1:
// every Producer computes a share of its degree-(t-1) polynomial (built
// around its unweighted existing share) for every member of the new
// committee, encrypts it, proves consistency, and submits the batch. The
// Lagrange weighting that turns these into valid new shares is applied by
// each recipient at Round 3, once the registry's ReshareRound3 event
// tells them their weights. Consumers do nothing this round (spec.md §4.4).
func (h *Handler) handleRound2(ctx context.Context, id oprfkey.ID, committee party.Committee) error {
	loc, ok := h.local[id]
	if !ok {
		return fmt.Errorf("%w: round2 with no local round1 state for %s", types.ErrInvariantViolation, id)
	}
	if loc.role != types.RoleProducer || loc.submittedRound2 {
		return nil
	}

	recipients, err := h.Chain.LoadPeerPublicKeysForConsumers(ctx, id, h.Self)
	if err != nil {
		return fmt.Errorf("%w: load new-committee contributions: %v", types.ErrTransientChain, err)
	}
	if len(recipients) != committee.NumPeers() {
		return fmt.Errorf("%w: expected %d recipients, got %d", types.ErrBadContribution, committee.NumPeers(), len(recipients))
	}

	ciphers := make([]types.SecretGenCiphertext, committee.NumPeers())
	for _, recipient := range committee.Peers {
		if err := recipients[recipient].EphPubKey.Validate(); err != nil {
			return fmt.Errorf("%w: recipient %d ephemeral key: %v", types.ErrInvalidPoint, recipient, err)
		}
		share := loc.poly.Evaluate(recipient.Scalar())
		nonce, err := loc.nonces.Next()
		if err != nil {
			return fmt.Errorf("%w: draw nonce: %v", types.ErrCryptoFailure, err)
		}
		ciphers[recipient] = sharing.EncryptShare(loc.eph.Secret, recipients[recipient].EphPubKey, share, nonce)
	}

	layout := circuit.Layout{NumPeers: committee.NumPeers(), Threshold: committee.Threshold}
	publicInputs := circuit.Assemble(layout, loc.eph.Public, sharing.CommitShare(loc.poly.Constant()), loc.commCoeffsCached(), ciphers, circuit.RecipientEphPubKeys(recipients))

	var proof []byte
	if h.Prover != nil {
		assignment := h.assignmentForRound2(loc)
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

func (h *Handler) assignmentForRound2(loc *localState) map[string]*big.Int {
	assignment := make(map[string]*big.Int, len(loc.poly.Coefficients())+2)
	assignment["ephSecret"] = loc.eph.Secret.Big()
	assignment["constant"] = loc.poly.Constant().Big()
	for i, c := range loc.poly.Coefficients() {
		assignment[fmt.Sprintf("coeff_%d", i)] = c.Big()
	}
	return assignment
}
