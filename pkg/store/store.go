// Package store implements the epoch-versioned, soft-delete share store
// (C7, spec.md §4.7): at most one live row per OprfKeyId, with a singleton
// wallet-address row.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
)

// ErrNotFound is returned by LoadShare when no row exists for the id.
var ErrNotFound = errors.New("store: not found")

// ErrTombstone is returned by LoadShare for a soft-deleted id.
var ErrTombstone = errors.New("store: tombstone")

// ErrStaleWrite is returned by UpsertShare when the stored epoch is
// strictly greater than the epoch being written (spec.md §4.7).
var ErrStaleWrite = errors.New("store: stale write")

// StoredShare mirrors spec.md §3's StoredShare row.
type StoredShare struct {
	Share     *field.Scalar // nil for a tombstone
	Epoch     uint32
	PublicKey *curve.Point
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Zeroize destroys the secret share in memory (SPEC_FULL §9, spec.md §4.7).
func (s *StoredShare) Zeroize() {
	if s != nil && s.Share != nil {
		s.Share.Zeroize()
	}
}

// Store is the persistence contract every C3-C5 dispatcher uses; see
// pkg/store/pgstore (pgx-backed) and pkg/store/memstore (in-process double).
type Store interface {
	// UpsertShare atomically replaces the row for id, aborting with
	// ErrStaleWrite if a strictly greater epoch is already stored.
	UpsertShare(ctx context.Context, id oprfkey.ID, share *field.Scalar, epoch uint32, publicKey *curve.Point) error

	// LoadShare returns the live share, ErrTombstone if soft-deleted, or
	// ErrNotFound if no row exists.
	LoadShare(ctx context.Context, id oprfkey.ID) (*StoredShare, error)

	// SoftDelete sets deleted=true and clears the share, leaving the row as
	// a tombstone that still rejects racing contributions.
	SoftDelete(ctx context.Context, id oprfkey.ID) error

	// LoadAddress returns the process wallet's singleton address, hex
	// encoded with 0x prefix.
	LoadAddress(ctx context.Context) (string, error)

	// SetAddress sets the singleton wallet address row, failing if one is
	// already present with a different value (the uniqueness CHECK,
	// spec.md §4.7).
	SetAddress(ctx context.Context, address string) error
}
