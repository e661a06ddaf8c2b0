package e2e

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
	"github.com/luxfi/oprf-dkg/pkg/registry/fakechain"
	"github.com/luxfi/oprf-dkg/pkg/sharing"
	"github.com/luxfi/oprf-dkg/pkg/store"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

func testKeyID(b byte) oprfkey.ID {
	var id oprfkey.ID
	id[len(id)-1] = b
	return id
}

var _ = Describe("Happy-path DKG (S1, N=3 t=2)", func() {
	It("reconstructs a consistent aggregate secret from any 2-of-3 shares (property 1)", func() {
		ctx := context.Background()
		committee := party.Committee{Peers: party.IDSlice{0, 1, 2}, Threshold: 2}
		chain := fakechain.New()

		nodes := []*node{
			newDKGNode(0, chain),
			newDKGNode(1, chain),
			newDKGNode(2, chain),
		}

		id := testKeyID(1)
		Expect(chain.InitKeyGen(ctx, id, committee)).To(Succeed())

		pumpKeygen(ctx, committee, nodes)

		for _, n := range nodes {
			state, ok := n.mirror.State(id)
			Expect(ok).To(BeTrue())
			Expect(state.Stage).To(Equal(types.StageFinalized))
		}

		loaded := make([]*store.StoredShare, 3)
		for i, n := range nodes {
			s, err := n.store.LoadShare(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			loaded[i] = s
		}

		// Property 1: Lagrange-reconstructing any 2-of-3 shares at x=0
		// yields the same aggregate secret, which generates the published
		// public key.
		wantPub := loaded[0].PublicKey
		for _, subset := range [][]party.ID{{0, 1}, {0, 2}, {1, 2}} {
			coeffs, err := sharing.LagrangeCoefficients(party.IDSlice(subset), 2, 3)
			Expect(err).NotTo(HaveOccurred())

			acc := curve.Identity()
			for _, p := range subset {
				acc = acc.Add(curve.ScalarBaseMul(loaded[p].Share).ScalarMul(coeffs[p]))
			}
			Expect(acc.Equal(wantPub)).To(BeTrue(), "subset %v must reconstruct the same aggregate", subset)
		}

		for i := range loaded {
			Expect(loaded[i].PublicKey.Equal(wantPub)).To(BeTrue())
		}

		pub, err := chain.GetOprfPublicKey(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).To(HaveLen(64))
	})
})

var _ = Describe("Deletion during DKG", func() {
	It("S2: rejects a Round-1 submission after deletion with an unknown-key error", func() {
		ctx := context.Background()
		committee := party.Committee{Peers: party.IDSlice{0, 1, 2}, Threshold: 2}
		chain := fakechain.New()
		id := testKeyID(2)

		Expect(chain.InitKeyGen(ctx, id, committee)).To(Succeed())

		// Peer B submits Round 1.
		bEph, err := sharing.NewEphemeralKeyPair(nil)
		Expect(err).NotTo(HaveOccurred())
		bPoly, err := sharing.NewPolynomial(2, mustRandomScalar(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(chain.AddRound1KeyGenContribution(ctx, id, 1, types.Round1Contribution{
			EphPubKey:  bEph.Public,
			CommShare:  sharing.CommitShare(bPoly.Constant()),
			CommCoeffs: mustRandomScalar(),
		})).To(Succeed())

		Expect(chain.DeleteOprfPublicKey(ctx, id)).To(Succeed())

		aEph, err := sharing.NewEphemeralKeyPair(nil)
		Expect(err).NotTo(HaveOccurred())
		err = chain.AddRound1KeyGenContribution(ctx, id, 0, types.Round1Contribution{
			EphPubKey:  aEph.Public,
			CommShare:  sharing.CommitShare(mustRandomScalar()),
			CommCoeffs: mustRandomScalar(),
		})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Deletion during Round 2", func() {
	It("S3: no finalize event is emitted once a key is deleted mid-round-2", func() {
		ctx := context.Background()
		committee := party.Committee{Peers: party.IDSlice{0, 1, 2}, Threshold: 2}
		chain := fakechain.New()
		id := testKeyID(3)

		nodes := []*node{
			newDKGNode(0, chain),
			newDKGNode(1, chain),
			newDKGNode(2, chain),
		}
		watcher, err := chain.Subscribe(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(chain.InitKeyGen(ctx, id, committee)).To(Succeed())

		// Drive only through Round 1 so every peer has a polynomial ready,
		// then delete before Round 2 closes.
		for i := 0; i < 4; i++ {
			for _, n := range nodes {
				select {
				case ev := <-n.events:
					_ = n.mirror.Apply(ev, committee)
					_ = n.keygenH.Handle(ctx, ev, committee)
				default:
				}
			}
		}

		Expect(chain.DeleteOprfPublicKey(ctx, id)).To(Succeed())

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
		Expect(sawFinalize).To(BeFalse())
	})
})
