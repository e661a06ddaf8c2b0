// Package memstore is an in-process double for pkg/store.Store, used by
// unit and scenario tests (SPEC_FULL §8) the way the teacher repo uses
// in-process fakes under internal/test.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu      sync.Mutex
	rows    map[oprfkey.ID]*store.StoredShare
	address string
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{rows: make(map[oprfkey.ID]*store.StoredShare)}
}

func (s *Store) UpsertShare(_ context.Context, id oprfkey.ID, share *field.Scalar, epoch uint32, publicKey *curve.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Keep a private copy: callers zeroize their share once it is persisted.
	if share != nil {
		share = share.Clone()
	}
	now := time.Now()
	if existing, ok := s.rows[id]; ok && !existing.Deleted && existing.Epoch > epoch {
		return store.ErrStaleWrite
	}
	if existing, ok := s.rows[id]; ok {
		s.rows[id] = &store.StoredShare{
			Share: share, Epoch: epoch, PublicKey: publicKey,
			Deleted: false, CreatedAt: existing.CreatedAt, UpdatedAt: now,
		}
		return nil
	}
	s.rows[id] = &store.StoredShare{
		Share: share, Epoch: epoch, PublicKey: publicKey,
		Deleted: false, CreatedAt: now, UpdatedAt: now,
	}
	return nil
}

func (s *Store) LoadShare(_ context.Context, id oprfkey.ID) (*store.StoredShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if row.Deleted {
		return nil, store.ErrTombstone
	}
	cp := *row
	return &cp, nil
}

func (s *Store) SoftDelete(_ context.Context, id oprfkey.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		s.rows[id] = &store.StoredShare{Deleted: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		return nil
	}
	row.Zeroize()
	row.Share = nil
	row.Deleted = true
	row.UpdatedAt = time.Now()
	return nil
}

func (s *Store) LoadAddress(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.address == "" {
		return "", store.ErrNotFound
	}
	return s.address, nil
}

func (s *Store) SetAddress(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.address != "" && s.address != address {
		return store.ErrStaleWrite
	}
	s.address = address
	return nil
}
