// Package fakechain is an in-process registry.ChainClient double: it plays
// the authoritative on-chain contract's role for tests (pkg/e2e), applying
// the exact accept/reject rules spec.md §4.6 assigns to the registry
// contract, so the local registry.Mirror each simulated peer keeps can be
// exercised against real event ordering without a network.
package fakechain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
	"github.com/luxfi/oprf-dkg/pkg/sharing"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

var (
	ErrAlreadyExists = errors.New("fakechain: key already exists")
	ErrNotFound      = errors.New("fakechain: key not found")
	ErrNotReady      = errors.New("fakechain: operation not valid for current stage")
)

type keyRecord struct {
	committee    party.Committee // committee currently in force
	newCommittee party.Committee // set only while a reshare is active
	isReshare    bool

	stage types.Stage

	round1            map[party.ID]types.Round1Contribution
	officialProducers party.IDSlice

	round2     map[party.ID]types.Round2Contribution
	round3Acks map[party.ID]bool

	lagrange map[party.ID]*field.Scalar

	oprfPublicKey *curve.Point
	epoch         uint32
	deleted       bool
}

// Client is the in-process ChainClient double.
type Client struct {
	mu          sync.Mutex
	records     map[oprfkey.ID]*keyRecord
	blockHeight uint64
	subscribers []chan registry.Event
}

// New returns an empty Client.
func New() *Client {
	return &Client{records: make(map[oprfkey.ID]*keyRecord)}
}

func (c *Client) nextBlock() uint64 {
	c.blockHeight++
	return c.blockHeight
}

func (c *Client) emit(ev registry.Event) {
	ev.BlockNumber = c.blockHeight
	for _, sub := range c.subscribers {
		select {
		case sub <- ev:
		default:
		}
	}
}

// InitKeyGen creates a fresh OprfKeyId and opens Round 1 with every
// committee member a Producer (spec.md §4.3).
func (c *Client) InitKeyGen(ctx context.Context, id oprfkey.ID, committee party.Committee) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[id]; ok {
		return ErrAlreadyExists
	}
	c.records[id] = &keyRecord{
		committee:  committee,
		stage:      types.StageRound1,
		round1:     make(map[party.ID]types.Round1Contribution),
		round2:     make(map[party.ID]types.Round2Contribution),
		round3Acks: make(map[party.ID]bool),
	}
	c.nextBlock()
	c.emit(registry.Event{Kind: registry.EventSecretGenRound1, OprfKeyID: id, Threshold: committee.Threshold})
	return nil
}

// InitReshare opens a new Round 1 over the existing OprfKeyId's committee,
// targeting newCommittee (spec.md §4.2).
func (c *Client) InitReshare(ctx context.Context, id oprfkey.ID, newCommittee party.Committee) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok || rec.deleted {
		return ErrNotFound
	}
	if rec.stage != types.StageFinalized {
		return ErrNotReady
	}
	rec.newCommittee = newCommittee
	rec.isReshare = true
	rec.stage = types.StageRound1
	rec.round1 = make(map[party.ID]types.Round1Contribution)
	rec.officialProducers = nil
	rec.round2 = make(map[party.ID]types.Round2Contribution)
	rec.round3Acks = make(map[party.ID]bool)
	rec.lagrange = nil
	c.nextBlock()
	c.emit(registry.Event{Kind: registry.EventReshareRound1, OprfKeyID: id, Threshold: newCommittee.Threshold})
	return nil
}

// DeleteOprfPublicKey tombstones id.
func (c *Client) DeleteOprfPublicKey(ctx context.Context, id oprfkey.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.deleted = true
	c.nextBlock()
	c.emit(registry.Event{Kind: registry.EventKeyDeletion, OprfKeyID: id})
	return nil
}

// AddRound1KeyGenContribution records a fresh-DKG Round1 submission.
func (c *Client) AddRound1KeyGenContribution(ctx context.Context, id oprfkey.ID, self party.ID, contribution types.Round1Contribution) error {
	return c.addRound1(id, self, contribution, false)
}

// AddRound1ReshareContribution records a resharing Round1 submission.
func (c *Client) AddRound1ReshareContribution(ctx context.Context, id oprfkey.ID, self party.ID, contribution types.Round1Contribution) error {
	return c.addRound1(id, self, contribution, true)
}

func (c *Client) addRound1(id oprfkey.ID, self party.ID, contribution types.Round1Contribution, reshare bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok || rec.deleted {
		return ErrNotFound
	}
	if rec.stage != types.StageRound1 || rec.isReshare != reshare {
		return fmt.Errorf("%w", types.ErrWrongRound)
	}
	if _, dup := rec.round1[self]; dup {
		return fmt.Errorf("%w", types.ErrAlreadySubmitted)
	}
	if err := contribution.EphPubKey.Validate(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidPoint, err)
	}
	rec.round1[self] = contribution

	activeCommittee := rec.committee
	if reshare {
		activeCommittee = rec.newCommittee
	}

	if !reshare {
		// Fresh DKG: every member is a Producer.
		if contribution.CommShare == nil || contribution.CommCoeffs == nil {
			return fmt.Errorf("%w: producer contribution missing commitments", types.ErrBadContribution)
		}
		if len(rec.round1) == activeCommittee.NumPeers() {
			rec.officialProducers = activeCommittee.Peers.Sorted()
			rec.stage = types.StageRound2
			c.nextBlock()
			c.emit(registry.Event{Kind: registry.EventSecretGenRound2, OprfKeyID: id})
		}
		return nil
	}

	// Resharing: the first `threshold` Producer-shaped submissions win the
	// official Producer slots (SPEC_FULL §9 open question 2); everything
	// after that is accepted but treated as Consumer-shaped regardless of
	// what the submitter sent, and anyone still missing once every member of
	// the new committee has responded demotes the reshare to
	// NotEnoughProducers.
	if !contribution.IsConsumerShaped() && len(rec.officialProducers) < activeCommittee.Threshold {
		rec.officialProducers = append(rec.officialProducers, self)
	}

	if len(rec.round1) == activeCommittee.NumPeers() {
		if len(rec.officialProducers) < activeCommittee.Threshold {
			rec.stage = types.StageNone
			c.nextBlock()
			c.emit(registry.Event{Kind: registry.EventNotEnoughProducers, OprfKeyID: id})
			return nil
		}
		sort.Sort(rec.officialProducers)
		weights, err := sharing.LagrangeCoefficients(rec.officialProducers, activeCommittee.Threshold, rec.committee.NumPeers())
		if err != nil {
			return fmt.Errorf("%w: lagrange: %v", types.ErrInvariantViolation, err)
		}
		rec.lagrange = make(map[party.ID]*field.Scalar, len(rec.officialProducers))
		for _, p := range rec.officialProducers {
			rec.lagrange[p] = weights[p]
		}
		rec.stage = types.StageRound2
		c.nextBlock()
		c.emit(registry.Event{Kind: registry.EventSecretGenRound2, OprfKeyID: id})
	}
	return nil
}

// AddRound2Contribution records a Producer's encrypted-share batch. This
// double does not hold real trusted-setup artifacts, so it accepts any
// proof byte string a registered Prover produced rather than calling
// pkg/circuit.Verify (DESIGN.md documents this as a deliberate test-double
// simplification, not a production shortcut).
func (c *Client) AddRound2Contribution(ctx context.Context, id oprfkey.ID, self party.ID, contribution types.Round2Contribution) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok || rec.deleted {
		return ErrNotFound
	}
	if rec.stage != types.StageRound2 {
		return fmt.Errorf("%w", types.ErrWrongRound)
	}
	if !rec.officialProducers.Contains(self) {
		return fmt.Errorf("%w: %d is not a producer this round", types.ErrBadContribution, self)
	}
	if _, dup := rec.round2[self]; dup {
		return fmt.Errorf("%w", types.ErrAlreadySubmitted)
	}
	rec.round2[self] = contribution

	if len(rec.round2) == len(rec.officialProducers) {
		rec.stage = types.StageRound3
		c.nextBlock()
		if rec.isReshare {
			lagrangeEntries := make([]registry.LagrangeEntry, 0, len(rec.lagrange))
			for p, w := range rec.lagrange {
				lagrangeEntries = append(lagrangeEntries, registry.LagrangeEntry{Peer: p, Weight: w.Bytes()})
			}
			// rec.epoch only bumps once every ack lands; deliver the epoch
			// this resharing will produce so recipients can stamp their new
			// share correctly as soon as they finish Round 3.
			c.emit(registry.Event{Kind: registry.EventReshareRound3, OprfKeyID: id, Epoch: rec.epoch + 1, Lagrange: lagrangeEntries})
		} else {
			c.emit(registry.Event{Kind: registry.EventSecretGenRound3, OprfKeyID: id})
		}
	}
	return nil
}

// AddRound3Contribution acknowledges this peer has reconstructed its
// share; once every committee member has acknowledged, the registry
// finalizes the epoch.
func (c *Client) AddRound3Contribution(ctx context.Context, id oprfkey.ID, self party.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok || rec.deleted {
		return ErrNotFound
	}
	if rec.stage != types.StageRound3 {
		return fmt.Errorf("%w", types.ErrWrongRound)
	}
	if rec.round3Acks[self] {
		return fmt.Errorf("%w", types.ErrAlreadySubmitted)
	}
	rec.round3Acks[self] = true

	activeCommittee := rec.committee
	if rec.isReshare {
		activeCommittee = rec.newCommittee
	}
	if len(rec.round3Acks) != activeCommittee.NumPeers() {
		return nil
	}

	rec.stage = types.StageFinalized
	if !rec.isReshare {
		agg := curve.Identity()
		for _, p := range activeCommittee.Peers {
			agg = agg.Add(rec.round1[p].CommShare)
		}
		rec.oprfPublicKey = agg
	} else {
		rec.epoch++
		rec.committee = rec.newCommittee
		rec.isReshare = false
		// The OPRF public key is unchanged by a reshare (spec.md property 2);
		// only the epoch and underlying shares move.
	}
	c.nextBlock()
	c.emit(registry.Event{Kind: registry.EventSecretGenFinalize, OprfKeyID: id, Epoch: rec.epoch})
	return nil
}

// GetOprfPublicKey returns the 64-byte raw (X||Y) public key.
func (c *Client) GetOprfPublicKey(ctx context.Context, id oprfkey.ID) ([]byte, error) {
	b, _, err := c.GetOprfPublicKeyAndEpoch(ctx, id)
	return b, err
}

// GetOprfPublicKeyAndEpoch returns the public key and current epoch.
func (c *Client) GetOprfPublicKeyAndEpoch(ctx context.Context, id oprfkey.ID) ([]byte, uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok || rec.deleted || rec.oprfPublicKey == nil {
		return nil, 0, ErrNotFound
	}
	out := make([]byte, 0, 64)
	out = append(out, pad32(rec.oprfPublicKey.X())...)
	out = append(out, pad32(rec.oprfPublicKey.Y())...)
	return out, rec.epoch, nil
}

// GetPartyIDForParticipant is unused by this double's scenario tests; it
// returns ErrNotFound unconditionally since no address book is modeled.
func (c *Client) GetPartyIDForParticipant(ctx context.Context, address string) (party.ID, error) {
	return 0, ErrNotFound
}

// GetLagrangeWeight returns self's resharing weight once the Producer set
// has been finalized for the active reshare.
func (c *Client) GetLagrangeWeight(ctx context.Context, id oprfkey.ID, self party.ID) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok || rec.lagrange == nil {
		return nil, ErrNotReady
	}
	w, ok := rec.lagrange[self]
	if !ok {
		return nil, fmt.Errorf("%w: %d is not a producer this reshare", ErrNotReady, self)
	}
	return w.Bytes(), nil
}

// LoadPeerPublicKeysForProducers returns every Round1 contribution indexed
// by party.ID, sized to the committee that opened the current round.
func (c *Client) LoadPeerPublicKeysForProducers(ctx context.Context, id oprfkey.ID, self party.ID) ([]types.Round1Contribution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	activeCommittee := rec.committee
	if rec.isReshare {
		activeCommittee = rec.newCommittee
	}
	out := make([]types.Round1Contribution, activeCommittee.NumPeers())
	for p, contribution := range rec.round1 {
		out[p] = contribution
	}
	return out, nil
}

// LoadPeerPublicKeysForConsumers returns the new committee's Round1
// contributions (the recipients a resharing Producer must encrypt to).
func (c *Client) LoadPeerPublicKeysForConsumers(ctx context.Context, id oprfkey.ID, self party.ID) ([]types.Round1Contribution, error) {
	return c.LoadPeerPublicKeysForProducers(ctx, id, self)
}

// CheckIsParticipantAndReturnRound2Ciphers returns, for self, the
// ciphertext addressed to it by every sender who submitted Round 2 (empty
// entries for non-Producers).
func (c *Client) CheckIsParticipantAndReturnRound2Ciphers(ctx context.Context, id oprfkey.ID, self party.ID) ([]types.SecretGenCiphertext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	activeCommittee := rec.committee
	if rec.isReshare {
		activeCommittee = rec.newCommittee
	}
	out := make([]types.SecretGenCiphertext, activeCommittee.NumPeers())
	for sender, contribution := range rec.round2 {
		if int(self) >= len(contribution.Ciphers) {
			continue
		}
		out[sender] = contribution.Ciphers[self]
	}
	return out, nil
}

// Subscribe returns a fresh event channel; every event emitted after this
// call is delivered to it.
func (c *Client) Subscribe(ctx context.Context) (<-chan registry.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan registry.Event, 256)
	c.subscribers = append(c.subscribers, ch)
	return ch, nil
}

// LatestBlock returns the current simulated block height.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blockHeight, nil
}

func pad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

var _ registry.ChainClient = (*Client)(nil)
