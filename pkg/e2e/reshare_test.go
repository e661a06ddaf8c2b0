package e2e

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
	"github.com/luxfi/oprf-dkg/pkg/registry/fakechain"
	"github.com/luxfi/oprf-dkg/pkg/sharing"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

// runDKG finalizes a fresh key over committee and returns the DKG nodes,
// whose stores hold each peer's live share afterward.
func runDKG(ctx context.Context, chain *fakechain.Client, id oprfkey.ID, committee party.Committee) []*node {
	nodes := make([]*node, committee.NumPeers())
	for _, p := range committee.Peers {
		nodes[p] = newDKGNode(p, chain)
	}
	Expect(chain.InitKeyGen(ctx, id, committee)).To(Succeed())
	pumpKeygen(ctx, committee, nodes)
	return nodes
}

var _ = Describe("Reshare preserves the public key (S4)", func() {
	It("keeps the same OPRF public key and advances to epoch 1", func() {
		ctx := context.Background()
		committee := party.Committee{Peers: party.IDSlice{0, 1, 2}, Threshold: 2}
		chain := fakechain.New()
		id := testKeyID(4)

		dkgNodes := runDKG(ctx, chain, id, committee)
		oldPub, oldEpoch, err := chain.GetOprfPublicKeyAndEpoch(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(oldEpoch).To(Equal(uint32(0)))

		newCommittee := party.Committee{Peers: party.IDSlice{0, 1, 2}, Threshold: 2}

		// Subscribe every reshare node before InitReshare fires, so nobody
		// misses the opening EventReshareRound1.
		var reshareNodes []*node
		for _, p := range newCommittee.Peers {
			share, err := dkgNodes[p].store.LoadShare(ctx, id)
			Expect(err).NotTo(HaveOccurred())

			isProducer := p == 0 || p == 1 // two volunteer, the third is a consumer
			roles := &fixedRoleSource{
				isProducer: map[oprfkey.ID]bool{id: isProducer},
				oldShare:   map[oprfkey.ID]*field.Scalar{id: share.Share},
			}
			reshareNodes = append(reshareNodes, newReshareNode(p, chain, dkgNodes[p].store, roles))
		}

		Expect(chain.InitReshare(ctx, id, newCommittee)).To(Succeed())

		pumpReshare(ctx, newCommittee, reshareNodes)

		for _, n := range reshareNodes {
			state, ok := n.mirror.State(id)
			Expect(ok).To(BeTrue())
			Expect(state.Stage).To(Equal(types.StageFinalized))
		}

		newPub, newEpoch, err := chain.GetOprfPublicKeyAndEpoch(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(newEpoch).To(Equal(uint32(1)))
		Expect(newPub).To(Equal(oldPub))
	})
})

var _ = Describe("NotEnoughProducers (S5)", func() {
	It("aborts the reshare and mutates no shares when nobody volunteers", func() {
		ctx := context.Background()
		committee := party.Committee{Peers: party.IDSlice{0, 1, 2}, Threshold: 2}
		chain := fakechain.New()
		id := testKeyID(5)

		dkgNodes := runDKG(ctx, chain, id, committee)
		before := make([]*struct{ epoch uint32 }, 3)
		for i, n := range dkgNodes {
			s, err := n.store.LoadShare(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			before[i] = &struct{ epoch uint32 }{epoch: s.Epoch}
		}

		watcher, err := chain.Subscribe(ctx)
		Expect(err).NotTo(HaveOccurred())

		newCommittee := party.Committee{Peers: party.IDSlice{0, 1, 2}, Threshold: 2}
		Expect(chain.InitReshare(ctx, id, newCommittee)).To(Succeed())

		// Every peer registers Consumer-shaped (nobody volunteers as a
		// Producer): a bare ephemeral keypair, no commitments.
		for _, p := range newCommittee.Peers {
			eph, err := sharing.NewEphemeralKeyPair(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(chain.AddRound1ReshareContribution(ctx, id, p, types.Round1Contribution{EphPubKey: eph.Public})).To(Succeed())
		}

		sawNotEnough := false
		draining := true
		for draining {
			select {
			case ev := <-watcher:
				if ev.Kind == registry.EventNotEnoughProducers {
					sawNotEnough = true
				}
			default:
				draining = false
			}
		}
		Expect(sawNotEnough).To(BeTrue())

		for i, n := range dkgNodes {
			s, err := n.store.LoadShare(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Epoch).To(Equal(before[i].epoch))
		}
	})
})
