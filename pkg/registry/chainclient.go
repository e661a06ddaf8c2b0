// Package registry implements the on-chain registry mirror (C6, spec.md
// §4.6): the event-driven replicated state machine each peer keeps per
// OprfKeyId, reconciling its local view with confirmed chain transactions.
package registry

import (
	"context"

	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

// EventKind names match the contract's emitted event names bit-for-bit
// (spec.md §6).
type EventKind string

const (
	EventSecretGenRound1      EventKind = "SecretGenRound1"
	EventSecretGenRound2      EventKind = "SecretGenRound2"
	EventSecretGenRound3      EventKind = "SecretGenRound3"
	EventSecretGenFinalize    EventKind = "SecretGenFinalize"
	EventReshareRound1        EventKind = "ReshareRound1"
	EventReshareRound3        EventKind = "ReshareRound3"
	EventKeyDeletion          EventKind = "KeyDeletion"
	EventNotEnoughProducers   EventKind = "NotEnoughProducers"
	EventKeyGenAdminRegistered EventKind = "KeyGenAdminRegistered"
	EventKeyGenAdminRevoked   EventKind = "KeyGenAdminRevoked"
)

// Event is one confirmed contract log, already past the confirmation
// horizon (spec.md §5 "after confirmations blocks").
type Event struct {
	Kind       EventKind
	OprfKeyID  oprfkey.ID
	BlockNumber uint64
	LogIndex   uint

	Threshold  int   // Round1Started/ReshareRound1
	Epoch      uint32 // Finalize, ReshareRound3
	Lagrange   []LagrangeEntry // ReshareRound3
}

// LagrangeEntry is one peer's on-chain-derived Lagrange weight, delivered
// by ReshareRound3 (spec.md §4.6).
type LagrangeEntry struct {
	Peer   party.ID
	Weight []byte // canonical big-endian field.Scalar encoding
}

// ChainClient is the contract surface the core consumes (spec.md §6),
// reproduced exactly: every method name corresponds 1:1 to a contract
// operation. The concrete implementation lives in pkg/registry/ethregistry
// (go-ethereum) for production and pkg/registry/fakechain for tests.
type ChainClient interface {
	InitKeyGen(ctx context.Context, id oprfkey.ID, committee party.Committee) error
	InitReshare(ctx context.Context, id oprfkey.ID, newCommittee party.Committee) error
	DeleteOprfPublicKey(ctx context.Context, id oprfkey.ID) error

	AddRound1KeyGenContribution(ctx context.Context, id oprfkey.ID, self party.ID, c types.Round1Contribution) error
	AddRound1ReshareContribution(ctx context.Context, id oprfkey.ID, self party.ID, c types.Round1Contribution) error
	AddRound2Contribution(ctx context.Context, id oprfkey.ID, self party.ID, c types.Round2Contribution) error
	AddRound3Contribution(ctx context.Context, id oprfkey.ID, self party.ID) error

	GetOprfPublicKey(ctx context.Context, id oprfkey.ID) ([]byte, error)
	GetOprfPublicKeyAndEpoch(ctx context.Context, id oprfkey.ID) ([]byte, uint32, error)
	GetPartyIDForParticipant(ctx context.Context, address string) (party.ID, error)

	// GetLagrangeWeight returns self's canonical big-endian Lagrange weight
	// for a resharing, computed on-chain from the Producer set that
	// volunteered in ReshareRound1 (spec.md §4.2, §4.6).
	GetLagrangeWeight(ctx context.Context, id oprfkey.ID, self party.ID) ([]byte, error)

	LoadPeerPublicKeysForProducers(ctx context.Context, id oprfkey.ID, self party.ID) ([]types.Round1Contribution, error)
	LoadPeerPublicKeysForConsumers(ctx context.Context, id oprfkey.ID, self party.ID) ([]types.Round1Contribution, error)
	CheckIsParticipantAndReturnRound2Ciphers(ctx context.Context, id oprfkey.ID, self party.ID) ([]types.SecretGenCiphertext, error)

	// Subscribe streams raw (not yet confirmation-delayed) events for all
	// keys; the Dispatcher (pkg/dispatch) demultiplexes by OprfKeyId and
	// holds each event until LatestBlock clears its confirmation horizon.
	Subscribe(ctx context.Context) (<-chan Event, error)

	// LatestBlock returns the chain's current head height, used to decide
	// when a buffered event has passed the configured confirmation depth
	// (spec.md §5).
	LatestBlock(ctx context.Context) (uint64, error)
}
