package ethregistry

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}

// idTopic renders an OprfKeyId as the indexed bytes20 topic decodeLog
// expects it back as (the id occupies the low 20 bytes of the topic word,
// matching decodeLog's Topics[1].Bytes()[12:] read).
func idTopic(id oprfkey.ID) common.Hash {
	var h common.Hash
	copy(h[12:], id[:])
	return h
}

// topicToEventKind maps each event's ABI name (found from topic0 via the
// parsed ABI) to the registry.EventKind this package emits for it.
var topicToEventKind = map[string]registry.EventKind{
	"SecretGenRound1":   registry.EventSecretGenRound1,
	"SecretGenRound2":   registry.EventSecretGenRound2,
	"SecretGenRound3":   registry.EventSecretGenRound3,
	"SecretGenFinalize": registry.EventSecretGenFinalize,
	"ReshareRound1":      registry.EventReshareRound1,
	"ReshareRound3":      registry.EventReshareRound3,
	"KeyDeletion":        registry.EventKeyDeletion,
	"NotEnoughProducers": registry.EventNotEnoughProducers,
}

// decodeLog translates one contract log into a registry.Event, matching
// topic0 against the parsed ABI's event set.
func decodeLog(parsed abi.ABI, lg gethtypes.Log) (registry.Event, bool) {
	if len(lg.Topics) == 0 {
		return registry.Event{}, false
	}
	evABI, err := parsed.EventByID(lg.Topics[0])
	if err != nil {
		return registry.Event{}, false
	}
	kind, ok := topicToEventKind[evABI.Name]
	if !ok {
		return registry.Event{}, false
	}

	var id oprfkey.ID
	if len(lg.Topics) > 1 {
		copy(id[:], lg.Topics[1].Bytes()[12:])
	}

	ev := registry.Event{
		Kind:        kind,
		OprfKeyID:   id,
		BlockNumber: lg.BlockNumber,
		LogIndex:    uint(lg.Index),
	}

	switch kind {
	case registry.EventSecretGenFinalize, registry.EventReshareRound3:
		if len(lg.Data) >= 4 {
			ev.Epoch = binary.BigEndian.Uint32(lg.Data[len(lg.Data)-4:])
		}
	}
	return ev, true
}

// encodeCiphers renders a Round2Contribution's ciphertext batch as a flat
// byte string: 128 bytes per recipient (nonce, cipher, commitment.x,
// commitment.y, each 32 bytes padded), in committee order. The registry
// contract's actual calldata ABI-encoding is a deployment detail on top of
// this payload.
func encodeCiphers(ciphers []types.SecretGenCiphertext) ([]byte, error) {
	out := make([]byte, 0, len(ciphers)*128)
	for _, ct := range ciphers {
		out = append(out, pad32(ct.Nonce.Bytes())...)
		out = append(out, pad32(ct.Cipher.Bytes())...)
		out = append(out, pad32(ct.Commitment.X())...)
		out = append(out, pad32(ct.Commitment.Y())...)
	}
	return out, nil
}

func pad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// decodeCiphersPayload inverts encodeCiphers.
func decodeCiphersPayload(data []byte) ([]types.SecretGenCiphertext, error) {
	if len(data)%128 != 0 {
		return nil, fmt.Errorf("ethregistry: ciphers payload length %d not a multiple of 128", len(data))
	}
	n := len(data) / 128
	out := make([]types.SecretGenCiphertext, n)
	for i := 0; i < n; i++ {
		chunk := data[i*128 : (i+1)*128]
		out[i] = types.SecretGenCiphertext{
			Nonce:      field.NewFromBigInt(new(big.Int).SetBytes(chunk[0:32])),
			Cipher:     field.NewFromBigInt(new(big.Int).SetBytes(chunk[32:64])),
			Commitment: curve.Decode(chunk[64:96], chunk[96:128]),
		}
	}
	return out, nil
}

// decodeRound1Log unpacks a Round1Contributed log's non-indexed fields
// (partyId, ephPubX, ephPubY, commShareX, commShareY, commCoeffs) back into
// a Round1Contribution. A zero commCoeffs marks a Consumer-shaped
// submission (types.Round1Contribution.IsConsumerShaped), matching how
// addRound1 zero-fills those fields for a Consumer.
func decodeRound1Log(parsed abi.ABI, lg gethtypes.Log) (party.ID, types.Round1Contribution, error) {
	ev := parsed.Events["Round1Contributed"]
	values, err := ev.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return 0, types.Round1Contribution{}, err
	}
	pid := party.ID(values[0].(uint16))
	ephPubX := values[1].(*big.Int)
	ephPubY := values[2].(*big.Int)
	commShareX := values[3].(*big.Int)
	commShareY := values[4].(*big.Int)
	commCoeffs := values[5].(*big.Int)

	contribution := types.Round1Contribution{
		EphPubKey: curve.Decode(ephPubX.Bytes(), ephPubY.Bytes()),
	}
	if commCoeffs.Sign() != 0 {
		contribution.CommShare = curve.Decode(commShareX.Bytes(), commShareY.Bytes())
		contribution.CommCoeffs = field.NewFromBigInt(commCoeffs)
	}
	return pid, contribution, nil
}

// decodeRound2Log unpacks a Round2Contributed log's non-indexed fields
// (partyId, proof, ciphers) into the sender's party.ID and ciphertext
// batch.
func decodeRound2Log(parsed abi.ABI, lg gethtypes.Log) (party.ID, []types.SecretGenCiphertext, error) {
	ev := parsed.Events["Round2Contributed"]
	values, err := ev.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return 0, nil, err
	}
	pid := party.ID(values[0].(uint16))
	ciphersBytes, ok := values[2].([]byte)
	if !ok {
		return 0, nil, fmt.Errorf("ethregistry: Round2Contributed.ciphers not []byte")
	}
	ciphers, err := decodeCiphersPayload(ciphersBytes)
	if err != nil {
		return 0, nil, err
	}
	return pid, ciphers, nil
}
