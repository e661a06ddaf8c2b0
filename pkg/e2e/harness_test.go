package e2e

import (
	"context"
	"crypto/rand"
	"io"

	"go.uber.org/zap"

	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/keygen"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
	"github.com/luxfi/oprf-dkg/pkg/registry/fakechain"
	"github.com/luxfi/oprf-dkg/pkg/reshare"
	"github.com/luxfi/oprf-dkg/pkg/store"
	"github.com/luxfi/oprf-dkg/pkg/store/memstore"
)

// node bundles one simulated peer's private state: its own event feed, its
// own registry.Mirror, its own share store, and the handler driving its
// reaction to confirmed events. Each node is independent, mirroring how
// separate processes never share in-memory state in production.
type node struct {
	self     party.ID
	events   <-chan registry.Event
	mirror   *registry.Mirror
	store    store.Store
	keygenH  *keygen.Handler
	reshareH *reshare.Handler
}

func newDKGNode(self party.ID, chain *fakechain.Client) *node {
	return newDKGNodeWithRand(self, chain, rand.Reader)
}

// newDKGNodeWithRand is newDKGNode with the handler's randomness source
// exposed, so a deterministic io.Reader can stand in for crypto/rand.Reader
// (e.g. a fixed-secret reproduction of spec.md S1's vector).
func newDKGNodeWithRand(self party.ID, chain *fakechain.Client, rnd io.Reader) *node {
	mirror := registry.NewMirror()
	events, _ := chain.Subscribe(context.Background())
	st := memstore.New()
	h := keygen.NewHandler(self, chain, mirror, st, nil, nil, rnd, zap.NewNop(), nil)
	return &node{self: self, events: events, mirror: mirror, store: st, keygenH: h}
}

// fixedRoleSource answers reshare.RoleSource for one specific node: whether
// it volunteers as a Producer for a given OprfKeyId and, if so, the old
// share it re-shares. A real node instead answers this by reading its own
// Store for a live (non-tombstone) row.
type fixedRoleSource struct {
	isProducer map[oprfkey.ID]bool
	oldShare   map[oprfkey.ID]*field.Scalar
}

func (r *fixedRoleSource) OldShare(_ context.Context, id oprfkey.ID) (*field.Scalar, bool, error) {
	if !r.isProducer[id] {
		return nil, false, nil
	}
	return r.oldShare[id], true, nil
}

func newReshareNode(self party.ID, chain *fakechain.Client, st store.Store, roles reshare.RoleSource) *node {
	mirror := registry.NewMirror()
	events, _ := chain.Subscribe(context.Background())
	h := reshare.NewHandler(self, chain, mirror, st, roles, nil, nil, rand.Reader, zap.NewNop(), nil)
	return &node{self: self, events: events, mirror: mirror, store: st, reshareH: h}
}

// pumpKeygen drains every node's event channel into its Mirror and
// keygen.Handler until no node makes further progress, the deterministic
// substitute for pkg/dispatch's goroutine-per-key scheduling in these
// single-process scenario tests.
func pumpKeygen(ctx context.Context, committee party.Committee, nodes []*node) {
	for iter := 0; iter < 16; iter++ {
		progressed := false
		for _, n := range nodes {
		drain:
			for {
				select {
				case ev := <-n.events:
					progressed = true
					_ = n.mirror.Apply(ev, committee)
					_ = n.keygenH.Handle(ctx, ev, committee)
				default:
					break drain
				}
			}
		}
		if !progressed {
			return
		}
	}
}

// mustRandomScalar draws a scalar for tests that need throwaway commitment
// material (e.g. a Round-1 submission constructed by hand rather than via
// pkg/keygen, to simulate a specific peer ordering for S2/S3).
func mustRandomScalar() *field.Scalar {
	s, err := field.Random(rand.Reader)
	if err != nil {
		panic(err)
	}
	return s
}

func pumpReshare(ctx context.Context, committee party.Committee, nodes []*node) {
	for iter := 0; iter < 16; iter++ {
		progressed := false
		for _, n := range nodes {
		drain:
			for {
				select {
				case ev := <-n.events:
					progressed = true
					_ = n.mirror.Apply(ev, committee)
					_ = n.reshareH.Handle(ctx, ev, committee)
				default:
					break drain
				}
			}
		}
		if !progressed {
			return
		}
	}
}
