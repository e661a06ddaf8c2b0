package registry

import (
	"fmt"
	"sync"

	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

// Mirror is the per-peer local replica of every OprfKeyId's on-chain state
// (spec.md §4.6): a map of independent state machines, one per key, updated
// by confirmed events. Every Apply and State call runs under one Mirror-wide
// mutex; pkg/dispatch additionally feeds a single key's events from a
// single goroutine.
type Mirror struct {
	mu     sync.Mutex
	states map[oprfkey.ID]*types.KeyGenState
}

// NewMirror returns an empty Mirror.
func NewMirror() *Mirror {
	return &Mirror{states: make(map[oprfkey.ID]*types.KeyGenState)}
}

// State returns the current replica for id, or (nil, false) if no event has
// created one yet (a Round1Started/ReshareRound1 event, or a KeyDeletion,
// which records a tombstone).
func (m *Mirror) State(id oprfkey.ID) (*types.KeyGenState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[id]
	return s, ok
}

// Apply folds one confirmed event into the replica for its OprfKeyId,
// idempotently: replaying the same event twice (spec.md property 5) must
// leave the state unchanged the second time.
func (m *Mirror) Apply(ev Event, committee party.Committee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Kind {
	case EventSecretGenRound1, EventReshareRound1:
		if _, ok := m.states[ev.OprfKeyID]; ok {
			return nil // idempotent replay
		}
		s := types.NewKeyGenState(committee.NumPeers())
		for _, p := range committee.Peers {
			s.NodeRoles[p] = types.RoleProducer
		}
		m.states[ev.OprfKeyID] = s
		return nil

	case EventSecretGenRound2:
		s, ok := m.states[ev.OprfKeyID]
		if !ok {
			return fmt.Errorf("registry: round2 event for unknown key %s", ev.OprfKeyID)
		}
		if s.Stage < types.StageRound2 {
			s.Stage = types.StageRound2
		}
		return nil

	case EventSecretGenRound3:
		s, ok := m.states[ev.OprfKeyID]
		if !ok {
			return fmt.Errorf("registry: round3 event for unknown key %s", ev.OprfKeyID)
		}
		if s.Stage < types.StageRound3 {
			s.Stage = types.StageRound3
		}
		return nil

	case EventSecretGenFinalize:
		s, ok := m.states[ev.OprfKeyID]
		if !ok {
			return fmt.Errorf("registry: finalize event for unknown key %s", ev.OprfKeyID)
		}
		// Monotone: a later Finalize for the same epoch is a no-op replay;
		// an out-of-order earlier epoch must never roll the stage back
		// (spec.md property 4, "monotone epoch").
		if ev.Epoch < s.GeneratedEpoch {
			return nil
		}
		s.GeneratedEpoch = ev.Epoch
		s.Stage = types.StageFinalized
		return nil

	case EventReshareRound3:
		// The resharing variant of Round2→Round3: fires once every official
		// Producer's Round-2 batch has landed, carrying the Lagrange
		// weights the registry derived for the final Producer set. This is
		// NOT the finalize event — acks still follow, and EventSecretGenFinalize
		// (shared with fresh DKG) bumps the epoch once they land.
		s, ok := m.states[ev.OprfKeyID]
		if !ok {
			return fmt.Errorf("registry: reshare-round3 event for unknown key %s", ev.OprfKeyID)
		}
		if s.Stage >= types.StageRound3 {
			return nil // idempotent replay
		}
		coeffs := make([]*field.Scalar, committee.NumPeers())
		producers := make(party.IDSlice, 0, len(ev.Lagrange))
		for _, le := range ev.Lagrange {
			sc, err := field.SetBytesCanonical(le.Weight)
			if err != nil {
				return fmt.Errorf("%w: lagrange weight for peer %d", err, le.Peer)
			}
			coeffs[le.Peer] = sc
			producers = append(producers, le.Peer)
		}
		s.LagrangeCoeffs = coeffs
		s.Producers = producers.Sorted()
		s.NumProducers = len(producers)
		s.Stage = types.StageRound3
		return nil

	case EventKeyDeletion:
		s, ok := m.states[ev.OprfKeyID]
		if !ok {
			// Deletion of a key this replica never saw Round1 for is still
			// idempotent: record a deleted tombstone so a later stray event
			// for the same id cannot resurrect it.
			s = &types.KeyGenState{Deleted: true}
			m.states[ev.OprfKeyID] = s
			return nil
		}
		s.Deleted = true
		s.Exists = false
		return nil

	case EventNotEnoughProducers:
		// Advisory-only event; the registry has already aborted the
		// reshare round, and no local state transition is implied.
		return nil

	default:
		return fmt.Errorf("registry: unhandled event kind %q", ev.Kind)
	}
}
