// Package ethregistry is the production registry.ChainClient: a thin
// go-ethereum binding over the on-chain registry contract (spec.md §6).
// It deliberately avoids a generated abigen package (no contract source is
// vendored into this tree) and instead binds the ABI inline with
// accounts/abi/bind.BoundContract, the same lower-level approach abigen's
// generated code itself compiles down to.
package ethregistry

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
	"github.com/luxfi/oprf-dkg/pkg/types"
	"github.com/luxfi/oprf-dkg/pkg/wallet"
)

// registryABI is the minimal event/method surface spec.md §6 names. The
// full contract carries more view helpers; only what this client calls is
// declared here.
const registryABI = `[
  {"type":"event","name":"SecretGenRound1","inputs":[{"name":"oprfKeyId","type":"bytes20","indexed":true},{"name":"threshold","type":"uint8"}]},
  {"type":"event","name":"SecretGenRound2","inputs":[{"name":"oprfKeyId","type":"bytes20","indexed":true}]},
  {"type":"event","name":"SecretGenRound3","inputs":[{"name":"oprfKeyId","type":"bytes20","indexed":true}]},
  {"type":"event","name":"SecretGenFinalize","inputs":[{"name":"oprfKeyId","type":"bytes20","indexed":true},{"name":"epoch","type":"uint32"}]},
  {"type":"event","name":"ReshareRound1","inputs":[{"name":"oprfKeyId","type":"bytes20","indexed":true},{"name":"threshold","type":"uint8"}]},
  {"type":"event","name":"ReshareRound3","inputs":[{"name":"oprfKeyId","type":"bytes20","indexed":true},{"name":"epoch","type":"uint32"}]},
  {"type":"event","name":"KeyDeletion","inputs":[{"name":"oprfKeyId","type":"bytes20","indexed":true}]},
  {"type":"event","name":"NotEnoughProducers","inputs":[{"name":"oprfKeyId","type":"bytes20","indexed":true}]},
  {"type":"event","name":"Round1Contributed","inputs":[{"name":"oprfKeyId","type":"bytes20","indexed":true},{"name":"partyId","type":"uint16"},{"name":"ephPubX","type":"uint256"},{"name":"ephPubY","type":"uint256"},{"name":"commShareX","type":"uint256"},{"name":"commShareY","type":"uint256"},{"name":"commCoeffs","type":"uint256"}]},
  {"type":"event","name":"Round2Contributed","inputs":[{"name":"oprfKeyId","type":"bytes20","indexed":true},{"name":"partyId","type":"uint16"},{"name":"proof","type":"bytes"},{"name":"ciphers","type":"bytes"}]},
  {"type":"function","name":"initKeyGen","inputs":[{"name":"oprfKeyId","type":"bytes20"},{"name":"threshold","type":"uint8"}],"outputs":[]},
  {"type":"function","name":"initReshare","inputs":[{"name":"oprfKeyId","type":"bytes20"},{"name":"threshold","type":"uint8"}],"outputs":[]},
  {"type":"function","name":"deleteOprfPublicKey","inputs":[{"name":"oprfKeyId","type":"bytes20"}],"outputs":[]},
  {"type":"function","name":"addRound1KeyGenContribution","inputs":[{"name":"oprfKeyId","type":"bytes20"},{"name":"ephPubX","type":"uint256"},{"name":"ephPubY","type":"uint256"},{"name":"commShareX","type":"uint256"},{"name":"commShareY","type":"uint256"},{"name":"commCoeffs","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"addRound1ReshareContribution","inputs":[{"name":"oprfKeyId","type":"bytes20"},{"name":"ephPubX","type":"uint256"},{"name":"ephPubY","type":"uint256"},{"name":"commShareX","type":"uint256"},{"name":"commShareY","type":"uint256"},{"name":"commCoeffs","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"addRound2Contribution","inputs":[{"name":"oprfKeyId","type":"bytes20"},{"name":"proof","type":"bytes"},{"name":"ciphers","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"addRound3Contribution","inputs":[{"name":"oprfKeyId","type":"bytes20"}],"outputs":[]},
  {"type":"function","name":"getOprfPublicKey","inputs":[{"name":"oprfKeyId","type":"bytes20"}],"outputs":[{"name":"","type":"bytes"}]},
  {"type":"function","name":"getOprfPublicKeyAndEpoch","inputs":[{"name":"oprfKeyId","type":"bytes20"}],"outputs":[{"name":"","type":"bytes"},{"name":"","type":"uint32"}]},
  {"type":"function","name":"getPartyIdForParticipant","inputs":[{"name":"participant","type":"address"}],"outputs":[{"name":"","type":"uint16"}]},
  {"type":"function","name":"getLagrangeWeight","inputs":[{"name":"oprfKeyId","type":"bytes20"},{"name":"self","type":"uint16"}],"outputs":[{"name":"","type":"bytes32"}]}
]`

// Client is the go-ethereum-backed ChainClient.
type Client struct {
	eth     *ethclient.Client
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
	signer  *wallet.Manager
	chainID uint64
}

// Dial connects to an RPC endpoint and binds the registry contract at
// address.
func Dial(ctx context.Context, rpcURL string, address common.Address, signer *wallet.Manager, chainID uint64) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", types.ErrTransientChain, err)
	}
	parsed, err := abi.JSON(stringsReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("ethregistry: parse abi: %w", err)
	}
	bound := bind.NewBoundContract(address, parsed, eth, eth, eth)
	return &Client{eth: eth, address: address, abi: parsed, bound: bound, signer: signer, chainID: chainID}, nil
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	opts := &bind.CallOpts{Context: ctx}
	var out []interface{}
	if err := c.bound.Call(opts, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%w: call %s: %v", types.ErrTransientChain, method, err)
	}
	return out, nil
}

func (c *Client) transact(ctx context.Context, method string, args ...interface{}) error {
	nonce, err := c.signer.Allocate(ctx)
	if err != nil {
		return fmt.Errorf("%w: allocate nonce: %v", types.ErrTransientChain, err)
	}
	opts := &bind.TransactOpts{
		Context: ctx,
		Nonce:   new(big.Int).SetUint64(nonce),
		Signer: func(addr common.Address, tx *gethtypes.Transaction) (*gethtypes.Transaction, error) {
			return c.signer_sign(ctx, tx)
		},
	}
	if _, err := c.bound.Transact(opts, method, args...); err != nil {
		c.signer.Release(nonce)
		return fmt.Errorf("%w: transact %s: %v", types.ErrTransientChain, method, err)
	}
	return nil
}

func (c *Client) signer_sign(ctx context.Context, tx *gethtypes.Transaction) (*gethtypes.Transaction, error) {
	return c.signer.Sign(ctx, tx, c.chainID)
}

func (c *Client) InitKeyGen(ctx context.Context, id oprfkey.ID, committee party.Committee) error {
	return c.transact(ctx, "initKeyGen", id, uint8(committee.Threshold))
}

func (c *Client) InitReshare(ctx context.Context, id oprfkey.ID, newCommittee party.Committee) error {
	return c.transact(ctx, "initReshare", id, uint8(newCommittee.Threshold))
}

func (c *Client) DeleteOprfPublicKey(ctx context.Context, id oprfkey.ID) error {
	return c.transact(ctx, "deleteOprfPublicKey", id)
}

func (c *Client) AddRound1KeyGenContribution(ctx context.Context, id oprfkey.ID, self party.ID, contribution types.Round1Contribution) error {
	return c.addRound1(ctx, "addRound1KeyGenContribution", id, contribution)
}

func (c *Client) AddRound1ReshareContribution(ctx context.Context, id oprfkey.ID, self party.ID, contribution types.Round1Contribution) error {
	return c.addRound1(ctx, "addRound1ReshareContribution", id, contribution)
}

func (c *Client) addRound1(ctx context.Context, method string, id oprfkey.ID, contribution types.Round1Contribution) error {
	commShareX, commShareY := new(big.Int), new(big.Int)
	commCoeffs := new(big.Int)
	if contribution.CommShare != nil {
		commShareX.SetBytes(contribution.CommShare.X())
		commShareY.SetBytes(contribution.CommShare.Y())
	}
	if contribution.CommCoeffs != nil {
		commCoeffs.SetBytes(contribution.CommCoeffs.Bytes())
	}
	return c.transact(ctx, method, id,
		new(big.Int).SetBytes(contribution.EphPubKey.X()),
		new(big.Int).SetBytes(contribution.EphPubKey.Y()),
		commShareX, commShareY, commCoeffs,
	)
}

func (c *Client) AddRound2Contribution(ctx context.Context, id oprfkey.ID, self party.ID, contribution types.Round2Contribution) error {
	ciphers, err := encodeCiphers(contribution.Ciphers)
	if err != nil {
		return err
	}
	return c.transact(ctx, "addRound2Contribution", id, contribution.CompressedProof, ciphers)
}

func (c *Client) AddRound3Contribution(ctx context.Context, id oprfkey.ID, self party.ID) error {
	return c.transact(ctx, "addRound3Contribution", id)
}

func (c *Client) GetOprfPublicKey(ctx context.Context, id oprfkey.ID) ([]byte, error) {
	out, err := c.call(ctx, "getOprfPublicKey", id)
	if err != nil {
		return nil, err
	}
	return out[0].([]byte), nil
}

func (c *Client) GetOprfPublicKeyAndEpoch(ctx context.Context, id oprfkey.ID) ([]byte, uint32, error) {
	out, err := c.call(ctx, "getOprfPublicKeyAndEpoch", id)
	if err != nil {
		return nil, 0, err
	}
	return out[0].([]byte), out[1].(uint32), nil
}

func (c *Client) GetPartyIDForParticipant(ctx context.Context, address string) (party.ID, error) {
	out, err := c.call(ctx, "getPartyIdForParticipant", common.HexToAddress(address))
	if err != nil {
		return 0, err
	}
	return party.ID(out[0].(uint16)), nil
}

func (c *Client) GetLagrangeWeight(ctx context.Context, id oprfkey.ID, self party.ID) ([]byte, error) {
	out, err := c.call(ctx, "getLagrangeWeight", id, uint16(self))
	if err != nil {
		return nil, err
	}
	raw := out[0].([32]byte)
	return raw[:], nil
}

// filterLogsForEvent returns every historical log of eventName carrying
// this OprfKeyId as its indexed topic.
func (c *Client) filterLogsForEvent(ctx context.Context, eventName string, id oprfkey.ID) ([]gethtypes.Log, error) {
	ev, ok := c.abi.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("ethregistry: abi missing event %s", eventName)
	}
	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{ev.ID}, {idTopic(id)}},
	}
	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: filter logs %s: %v", types.ErrTransientChain, eventName, err)
	}
	return logs, nil
}

// LoadPeerPublicKeysForProducers replays every Round1Contributed log for id
// and assembles the committee's Round1 contributions, indexed by party.ID.
func (c *Client) LoadPeerPublicKeysForProducers(ctx context.Context, id oprfkey.ID, self party.ID) ([]types.Round1Contribution, error) {
	logs, err := c.filterLogsForEvent(ctx, "Round1Contributed", id)
	if err != nil {
		return nil, err
	}
	byParty := make(map[party.ID]types.Round1Contribution, len(logs))
	var maxID party.ID
	for _, lg := range logs {
		pid, contribution, err := decodeRound1Log(c.abi, lg)
		if err != nil {
			return nil, fmt.Errorf("ethregistry: decode Round1Contributed: %w", err)
		}
		byParty[pid] = contribution
		if pid > maxID {
			maxID = pid
		}
	}
	out := make([]types.Round1Contribution, int(maxID)+1)
	for pid, contribution := range byParty {
		out[pid] = contribution
	}
	return out, nil
}

// LoadPeerPublicKeysForConsumers is the same replay: Round1Contributed
// carries every committee member's submission regardless of Producer or
// Consumer role, so the recipient set a Producer must encrypt to is read
// identically.
func (c *Client) LoadPeerPublicKeysForConsumers(ctx context.Context, id oprfkey.ID, self party.ID) ([]types.Round1Contribution, error) {
	return c.LoadPeerPublicKeysForProducers(ctx, id, self)
}

// CheckIsParticipantAndReturnRound2Ciphers replays every Round2Contributed
// log for id and picks out, per sender, the ciphertext addressed to self.
func (c *Client) CheckIsParticipantAndReturnRound2Ciphers(ctx context.Context, id oprfkey.ID, self party.ID) ([]types.SecretGenCiphertext, error) {
	logs, err := c.filterLogsForEvent(ctx, "Round2Contributed", id)
	if err != nil {
		return nil, err
	}
	bySender := make(map[party.ID]types.SecretGenCiphertext, len(logs))
	var maxID party.ID
	for _, lg := range logs {
		sender, ciphers, err := decodeRound2Log(c.abi, lg)
		if err != nil {
			return nil, fmt.Errorf("ethregistry: decode Round2Contributed: %w", err)
		}
		if int(self) < len(ciphers) {
			bySender[sender] = ciphers[self]
		}
		if sender > maxID {
			maxID = sender
		}
	}
	out := make([]types.SecretGenCiphertext, int(maxID)+1)
	for sender, ct := range bySender {
		out[sender] = ct
	}
	return out, nil
}

// Subscribe watches the contract's event log stream, translating each raw
// log into a registry.Event with decodeLog, which matches topic0 against
// the parsed registry ABI; logs it does not recognise are skipped.
func (c *Client) Subscribe(ctx context.Context) (<-chan registry.Event, error) {
	logs := make(chan gethtypes.Log, 256)
	query := ethereum.FilterQuery{Addresses: []common.Address{c.address}}
	sub, err := c.eth.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe logs: %v", types.ErrTransientChain, err)
	}

	out := make(chan registry.Event, 256)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				sub.Unsubscribe()
				return
			case err := <-sub.Err():
				if err != nil {
					return
				}
			case lg := <-logs:
				if ev, ok := decodeLog(c.abi, lg); ok {
					out <- ev
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: block number: %v", types.ErrTransientChain, err)
	}
	return n, nil
}

var _ registry.ChainClient = (*Client)(nil)
