// Package types holds the wire/state data model shared by every component:
// Round1/Round2 contributions, the on-chain mirror's per-key state, and the
// errors the core's state machine can raise (spec.md §3, §7).
package types

import (
	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/party"
)

// Role is a peer's assignment for a given round (spec.md §3 nodeRoles).
type Role uint8

const (
	RoleNotReady Role = iota
	RoleProducer
	RoleConsumer
)

func (r Role) String() string {
	switch r {
	case RoleProducer:
		return "producer"
	case RoleConsumer:
		return "consumer"
	default:
		return "not-ready"
	}
}

// Round1Contribution is one peer's per-OprfKeyId, per-round submission
// (spec.md §3).
type Round1Contribution struct {
	EphPubKey  *curve.Point
	CommShare  *curve.Point  // nil for a Consumer contribution
	CommCoeffs *field.Scalar // nil (or zero) for a Consumer contribution
}

// IsConsumerShaped reports whether both commitments are absent, the shape
// a resharing Consumer (or a Producer demoted after the slot filled,
// SPEC_FULL §9 open question 2) must submit.
func (r Round1Contribution) IsConsumerShaped() bool {
	return r.CommShare == nil && (r.CommCoeffs == nil || r.CommCoeffs.IsZero())
}

// SecretGenCiphertext is a single sender->recipient encrypted share
// (spec.md §3).
type SecretGenCiphertext struct {
	Nonce      *field.Scalar
	Cipher     *field.Scalar
	Commitment *curve.Point
}

// Round2Contribution is a Producer's Round-2 submission: a compressed
// Groth16 proof plus the ordered-by-PeerId ciphertexts for every recipient
// (spec.md §3).
type Round2Contribution struct {
	CompressedProof []byte
	Ciphers         []SecretGenCiphertext // indexed by recipient party.ID
}

// Stage is the on-chain registry mirror's per-OprfKeyId lifecycle state
// (spec.md §3 OprfKeyGenState.stage, §4.6).
type Stage uint8

const (
	StageNone Stage = iota
	StageRound1
	StageRound2
	StageRound3
	StageFinalized
)

func (s Stage) String() string {
	switch s {
	case StageRound1:
		return "round1"
	case StageRound2:
		return "round2"
	case StageRound3:
		return "round3"
	case StageFinalized:
		return "finalized"
	default:
		return "none"
	}
}

// KeyGenState mirrors spec.md §3's OprfKeyGenState: the registry's local
// replica of one OprfKeyId's on-chain state.
type KeyGenState struct {
	Exists         bool
	Deleted        bool
	GeneratedEpoch uint32
	NodeRoles      map[party.ID]Role
	LagrangeCoeffs []*field.Scalar // resharing only, len == numPeers

	Round1 []Round1Contribution          // len == numPeers
	Round2 [][]SecretGenCiphertext       // [recipient][sender], len == numPeers each
	Round2Proofs map[party.ID][]byte     // sender -> compressed proof

	ShareCommitments []*curve.Point // running accumulator, len == numPeers
	KeyAggregate     *curve.Point   // running aggregate / final OPRF public key

	NumProducers int
	Producers    party.IDSlice
	Round2Done   []bool
	Round3Done   []bool

	Stage Stage
}

// NewKeyGenState allocates a fresh state for a Round1Started transition.
func NewKeyGenState(numPeers int) *KeyGenState {
	s := &KeyGenState{
		Exists:           true,
		NodeRoles:        make(map[party.ID]Role, numPeers),
		Round1:           make([]Round1Contribution, numPeers),
		Round2:           make([][]SecretGenCiphertext, numPeers),
		Round2Proofs:     make(map[party.ID][]byte, numPeers),
		ShareCommitments: make([]*curve.Point, numPeers),
		KeyAggregate:     curve.Identity(),
		Round2Done:       make([]bool, numPeers),
		Round3Done:       make([]bool, numPeers),
		Stage:            StageRound1,
	}
	for i := range s.ShareCommitments {
		s.ShareCommitments[i] = curve.Identity()
	}
	for i := range s.Round2 {
		s.Round2[i] = make([]SecretGenCiphertext, numPeers)
	}
	return s
}
