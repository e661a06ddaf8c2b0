// Package wallet serializes this node's outbound registry transactions
// through a single nonce-managed signer. Key custody itself is out of
// scope (spec.md Non-goals: "no custody/HSM integration"); SecretBackend
// is an interface only, so a real deployment can plug in whatever signer
// it already operates.
package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// SecretBackend signs outbound transactions; production wiring is a
// deployment concern, never a repo-local keystore.
type SecretBackend interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *gethtypes.Transaction, chainID uint64) (*gethtypes.Transaction, error)
}

// NonceSource reads the next account nonce from the chain, used only to
// seed Manager on startup and to recover after a gap is detected.
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// Manager serializes nonce allocation for this node's single signing
// address, so concurrent dispatcher shards submitting transactions never
// race on the same nonce (spec.md §5: "a simple wallet-nonce manager").
type Manager struct {
	backend SecretBackend
	source  NonceSource

	mu    sync.Mutex
	next  uint64
	ready bool
}

// New returns a Manager that lazily seeds its nonce from source on first
// use.
func New(backend SecretBackend, source NonceSource) *Manager {
	return &Manager{backend: backend, source: source}
}

// Allocate reserves and returns the next nonce to use, seeding from the
// chain the first time it is called.
func (m *Manager) Allocate(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		n, err := m.source.PendingNonceAt(ctx, m.backend.Address())
		if err != nil {
			return 0, fmt.Errorf("wallet: seed nonce: %w", err)
		}
		m.next = n
		m.ready = true
	}

	n := m.next
	m.next++
	return n, nil
}

// Release returns a reserved nonce that was never broadcast (the
// transaction build failed after Allocate), so it can be reused instead of
// leaving a permanent gap.
func (m *Manager) Release(n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready && n == m.next-1 {
		m.next = n
	}
}

// Sign signs tx via the backend. It allocates no nonce: tx already carries
// the one the caller reserved with Allocate.
func (m *Manager) Sign(ctx context.Context, tx *gethtypes.Transaction, chainID uint64) (*gethtypes.Transaction, error) {
	return m.backend.SignTx(ctx, tx, chainID)
}
