// Package keygen implements the all-Producer distributed key generation
// protocol (C3-C5 for a fresh OprfKeyId, spec.md §4.3-§4.5): every
// committee member draws a secret polynomial, encrypts a share to every
// peer, and reconstructs its own final share from what it receives back.
package keygen

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/luxfi/oprf-dkg/pkg/alarm"
	"github.com/luxfi/oprf-dkg/pkg/circuit"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
	"github.com/luxfi/oprf-dkg/pkg/store"
	"github.com/luxfi/oprf-dkg/pkg/types"
	"github.com/luxfi/oprf-dkg/pkg/workerpool"
)

// Handler drives one node's reaction to DKG registry events; it implements
// dispatch.Handler.
type Handler struct {
	Self   party.ID
	Chain  registry.ChainClient
	Mirror *registry.Mirror
	Store  store.Store
	Prover circuit.Prover // nil: Round-2 contributions are submitted without a proof
	Pool   *workerpool.Pool
	Rnd    io.Reader
	Log    *zap.Logger
	Alarms *alarm.Bus

	// local holds the per-OprfKeyId secret material live only in this
	// process's memory between rounds (polynomial, ephemeral keys); never
	// persisted except the final share via Store.
	local map[oprfkey.ID]*localState
}

// NewHandler returns a Handler ready to register with pkg/dispatch.
func NewHandler(self party.ID, chain registry.ChainClient, mirror *registry.Mirror, st store.Store, prover circuit.Prover, pool *workerpool.Pool, rnd io.Reader, log *zap.Logger, alarms *alarm.Bus) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Self: self, Chain: chain, Mirror: mirror, Store: st, Prover: prover,
		Pool: pool, Rnd: rnd, Log: log, Alarms: alarms,
		local: make(map[oprfkey.ID]*localState),
	}
}

// Handle reacts to one confirmed registry event for a single OprfKeyId.
func (h *Handler) Handle(ctx context.Context, ev registry.Event, committee party.Committee) error {
	switch ev.Kind {
	case registry.EventSecretGenRound1:
		return h.handleRound1(ctx, ev.OprfKeyID, committee)
	case registry.EventSecretGenRound2:
		return h.handleRound2(ctx, ev.OprfKeyID, committee)
	case registry.EventSecretGenRound3:
		return h.handleRound3(ctx, ev.OprfKeyID, committee)
	case registry.EventSecretGenFinalize:
		delete(h.local, ev.OprfKeyID) // ephemeral material no longer needed
		return nil
	case registry.EventKeyDeletion:
		delete(h.local, ev.OprfKeyID)
		return h.Store.SoftDelete(ctx, ev.OprfKeyID)
	default:
		return nil
	}
}

func (h *Handler) raise(id oprfkey.ID, sev alarm.Severity, kind error, msg string) {
	if h.Alarms == nil {
		return
	}
	h.Alarms.Raise(alarm.Alarm{Severity: sev, OprfKeyID: id, Kind: kind, Message: msg})
}

func (h *Handler) stateFor(id oprfkey.ID) (*types.KeyGenState, error) {
	s, ok := h.Mirror.State(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownID, id)
	}
	return s, nil
}
