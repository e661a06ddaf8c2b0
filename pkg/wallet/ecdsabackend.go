package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// ECDSABackend is the simplest SecretBackend: an in-process ECDSA key. Both
// cmd/oprf-noded and cmd/oprf-ctl use this for a command-line-supplied
// signing key; a real deployment swaps it for whatever custody path it
// already operates (spec.md Non-goal: no custody/HSM integration in scope).
type ECDSABackend struct {
	key *ecdsa.PrivateKey
}

// NewECDSABackend wraps an already-parsed private key.
func NewECDSABackend(key *ecdsa.PrivateKey) ECDSABackend {
	return ECDSABackend{key: key}
}

func (b ECDSABackend) Address() common.Address {
	return gethcrypto.PubkeyToAddress(b.key.PublicKey)
}

func (b ECDSABackend) SignTx(ctx context.Context, tx *gethtypes.Transaction, chainID uint64) (*gethtypes.Transaction, error) {
	signer := gethtypes.NewEIP155Signer(new(big.Int).SetUint64(chainID))
	return gethtypes.SignTx(tx, signer, b.key)
}
