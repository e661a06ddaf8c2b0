package e2e

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
	"github.com/luxfi/oprf-dkg/pkg/registry/fakechain"
	"github.com/luxfi/oprf-dkg/pkg/sharing"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

// S6 ("proof failure") hinges on a zk-proof obligation this in-process
// ChainClient double deliberately does not enforce (fakechain.go documents
// why: no trusted-setup artifacts to verify against). The equivalent,
// genuinely-exercised safety boundary in this tree is the recipient-side
// commitment check in sharing.DecryptAndVerify, called from Round 3: a
// corrupted cipher is accepted onto the registry exactly as the real
// contract's malformed-proof case would be rejected, but it can never be
// turned into a valid reconstructed share, so the round simply never
// finalizes. This test exercises that boundary, then a clean DKG on a
// fresh key to show a valid run reaches Finalized.
var _ = Describe("Proof failure (S6)", func() {
	It("stalls the round on a corrupted cipher and a retried run still reaches Round 3", func() {
		ctx := context.Background()
		committee := party.Committee{Peers: party.IDSlice{0, 1, 2}, Threshold: 2}
		chain := fakechain.New()
		id := testKeyID(6)

		watcher, err := chain.Subscribe(ctx)
		Expect(err).NotTo(HaveOccurred())

		// Peers 1 and 2 run the real handler; peer 0 is driven by hand so
		// its Round-2 batch can be corrupted before submission.
		peer1 := newDKGNode(1, chain)
		peer2 := newDKGNode(2, chain)

		Expect(chain.InitKeyGen(ctx, id, committee)).To(Succeed())

		eph0, err := sharing.NewEphemeralKeyPair(nil)
		Expect(err).NotTo(HaveOccurred())
		poly0, err := sharing.NewPolynomial(2, mustRandomScalar(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(chain.AddRound1KeyGenContribution(ctx, id, 0, types.Round1Contribution{
			EphPubKey:  eph0.Public,
			CommShare:  sharing.CommitShare(poly0.Constant()),
			CommCoeffs: mustRandomScalar(),
		})).To(Succeed())

		// Drive peers 1 and 2 through their own Round 1 submissions.
		for i := 0; i < 4; i++ {
			progressed := false
			for _, n := range []*node{peer1, peer2} {
				select {
				case ev := <-n.events:
					progressed = true
					_ = n.mirror.Apply(ev, committee)
					_ = n.keygenH.Handle(ctx, ev, committee)
				default:
				}
			}
			if !progressed {
				break
			}
		}

		// Peer 0 builds its real Round-2 batch, then corrupts the cipher
		// addressed to peer 1 by perturbing its ciphertext scalar.
		recipients, err := chain.LoadPeerPublicKeysForProducers(ctx, id, 0)
		Expect(err).NotTo(HaveOccurred())

		nonces := sharing.NewNonceTracker(nil)
		ciphers := make([]types.SecretGenCiphertext, committee.NumPeers())
		for _, recipient := range committee.Peers {
			share := poly0.Evaluate(recipient.Scalar())
			nonce, err := nonces.Next()
			Expect(err).NotTo(HaveOccurred())
			ciphers[recipient] = sharing.EncryptShare(eph0.Secret, recipients[recipient].EphPubKey, share, nonce)
		}
		ciphers[1].Cipher = ciphers[1].Cipher.Add(field.One())

		Expect(chain.AddRound2Contribution(ctx, id, 0, types.Round2Contribution{
			CompressedProof: []byte("stand-in proof bytes"),
			Ciphers:         ciphers,
		})).To(Succeed())

		// Drive peers 1 and 2 through Round 2/3; peer 1's Round-3 decrypt
		// of peer 0's cipher fails and it never acknowledges.
		for i := 0; i < 8; i++ {
			progressed := false
			for _, n := range []*node{peer1, peer2} {
				select {
				case ev := <-n.events:
					progressed = true
					_ = n.mirror.Apply(ev, committee)
					_ = n.keygenH.Handle(ctx, ev, committee)
				default:
				}
			}
			if !progressed {
				break
			}
		}

		sawFinalize := false
		draining := true
		for draining {
			select {
			case ev := <-watcher:
				if ev.Kind == registry.EventSecretGenFinalize {
					sawFinalize = true
				}
			default:
				draining = false
			}
		}
		Expect(sawFinalize).To(BeFalse(), "a corrupted cipher must never let the round finalize")

		// Peer 2's own incoming cipher from peer 0 was untouched, so it
		// still reconstructs and persists its own share even though the
		// registry-wide round never closes.
		_, err = peer2.store.LoadShare(ctx, id)
		Expect(err).NotTo(HaveOccurred())

		// A clean retry (fresh key, no corruption) reaches Round 3 and
		// finalizes normally.
		retryID := testKeyID(7)
		retryNodes := []*node{newDKGNode(0, chain), newDKGNode(1, chain), newDKGNode(2, chain)}
		Expect(chain.InitKeyGen(ctx, retryID, committee)).To(Succeed())
		pumpKeygen(ctx, committee, retryNodes)

		for _, n := range retryNodes {
			state, ok := n.mirror.State(retryID)
			Expect(ok).To(BeTrue())
			Expect(state.Stage).To(Equal(types.StageFinalized))
		}
	})
})
