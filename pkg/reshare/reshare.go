// Package reshare implements Producer/Consumer-role resharing (C3-C5 for
// an existing OprfKeyId's committee rotation, spec.md §4.2-§4.6): a
// threshold subset of the old committee (Producers) re-share their
// existing shares to the new committee (which may include both
// carried-over Producers and brand-new Consumers), whose members weight
// each Producer's contribution by its Lagrange coefficient at Round 3,
// without ever changing the underlying OPRF public key.
package reshare

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/luxfi/oprf-dkg/pkg/alarm"
	"github.com/luxfi/oprf-dkg/pkg/circuit"
	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
	"github.com/luxfi/oprf-dkg/pkg/sharing"
	"github.com/luxfi/oprf-dkg/pkg/store"
	"github.com/luxfi/oprf-dkg/pkg/types"
	"github.com/luxfi/oprf-dkg/pkg/workerpool"
)

// RoleSource tells the handler whether this node is a resharing Producer
// for a given OprfKeyId and, if so, loads the old share it must re-share.
// A real deployment answers this from Store: a node is a Producer exactly
// when it holds a live (non-tombstone) share for id.
type RoleSource interface {
	OldShare(ctx context.Context, id oprfkey.ID) (share *field.Scalar, isProducer bool, err error)
}

// Handler drives one node's reaction to resharing registry events; it
// implements dispatch.Handler.
type Handler struct {
	Self   party.ID
	Chain  registry.ChainClient
	Mirror *registry.Mirror
	Store  store.Store
	Roles  RoleSource
	Prover circuit.Prover
	Pool   *workerpool.Pool
	Rnd    io.Reader
	Log    *zap.Logger
	Alarms *alarm.Bus

	local map[oprfkey.ID]*localState
}

// NewHandler returns a Handler ready to register with pkg/dispatch.
func NewHandler(self party.ID, chain registry.ChainClient, mirror *registry.Mirror, st store.Store, roles RoleSource, prover circuit.Prover, pool *workerpool.Pool, rnd io.Reader, log *zap.Logger, alarms *alarm.Bus) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Self: self, Chain: chain, Mirror: mirror, Store: st, Roles: roles, Prover: prover,
		Pool: pool, Rnd: rnd, Log: log, Alarms: alarms,
		local: make(map[oprfkey.ID]*localState),
	}
}

// localState is the ephemeral material this node carries between
// resharing rounds for one OprfKeyId.
type localState struct {
	committee  party.Committee
	role       types.Role
	poly       *sharing.Polynomial // nil for a Consumer
	eph        *sharing.EphemeralKeyPair
	nonces     *sharing.NonceTracker
	commCoeffs *field.Scalar

	submittedRound2 bool
	submittedRound3 bool
}

// Handle reacts to one confirmed registry event for a single OprfKeyId.
func (h *Handler) Handle(ctx context.Context, ev registry.Event, committee party.Committee) error {
	switch ev.Kind {
	case registry.EventReshareRound1:
		return h.handleRound1(ctx, ev.OprfKeyID, committee)
	case registry.EventSecretGenRound2:
		return h.handleRound2(ctx, ev.OprfKeyID, committee)
	case registry.EventReshareRound3:
		return h.handleRound3(ctx, ev.OprfKeyID, committee, ev.Epoch)
	case registry.EventSecretGenFinalize:
		delete(h.local, ev.OprfKeyID) // ephemeral material no longer needed
		return nil
	case registry.EventKeyDeletion:
		delete(h.local, ev.OprfKeyID)
		return h.Store.SoftDelete(ctx, ev.OprfKeyID)
	case registry.EventNotEnoughProducers:
		delete(h.local, ev.OprfKeyID)
		h.raise(ev.OprfKeyID, alarm.SeverityWarn, types.ErrNotEnoughProducers, "resharing aborted: too few volunteers")
		return nil
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

func (l *localState) commCoeffsCached() *field.Scalar { return l.commCoeffs }
