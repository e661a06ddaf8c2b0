// Package pgstore is the Postgres-backed implementation of store.Store
// (C7, spec.md §4.7/§6), using pgx directly (no ORM) in the pooled-pgxpool
// style idiomatic for modern Go services. No example in the retrieval pack
// exercises a database driver, so this dependency is named rather than
// grounded (SPEC_FULL §4.7); pgx is the idiomatic choice for a Postgres
// backend in contemporary Go.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/store"
)

// DefaultSchema is the default Postgres schema the table DDL below targets;
// configurable per spec.md §6 ("Two relations in a schema (configurable)").
const DefaultSchema = "oprf_dkg"

// DDL is the exact relation layout spec.md §6 specifies.
func DDL(schema string) string {
	return fmt.Sprintf(`
CREATE SCHEMA IF NOT EXISTS %[1]s;

CREATE TABLE IF NOT EXISTS %[1]s.evm_address (
	id      boolean PRIMARY KEY DEFAULT true,
	address text NOT NULL,
	CHECK (id)
);

CREATE TABLE IF NOT EXISTS %[1]s.shares (
	id         bytea PRIMARY KEY,
	share      bytea NULL,
	epoch      bigint NOT NULL,
	public_key bytea NOT NULL,
	deleted    boolean NOT NULL DEFAULT false,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	CHECK ((deleted = false AND share IS NOT NULL) OR (deleted = true AND share IS NULL))
);

CREATE OR REPLACE FUNCTION %[1]s.touch_updated_at() RETURNS trigger AS $$
BEGIN
	NEW.updated_at = now();
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS shares_touch_updated_at ON %[1]s.shares;
CREATE TRIGGER shares_touch_updated_at
	BEFORE UPDATE ON %[1]s.shares
	FOR EACH ROW EXECUTE FUNCTION %[1]s.touch_updated_at();
`, schema)
}

// Store is a pgxpool-backed store.Store.
type Store struct {
	pool   *pgxpool.Pool
	schema string
}

// New wraps an already-connected pool. Callers are expected to have applied
// DDL(schema) via a migration step before constructing a Store.
func New(pool *pgxpool.Pool, schema string) *Store {
	if schema == "" {
		schema = DefaultSchema
	}
	return &Store{pool: pool, schema: schema}
}

func (s *Store) table(name string) string { return s.schema + "." + name }

func (s *Store) UpsertShare(ctx context.Context, id oprfkey.ID, share *field.Scalar, epoch uint32, publicKey *curve.Point) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage failure: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var existingEpoch int64
	var deleted bool
	err = tx.QueryRow(ctx, "SELECT epoch, deleted FROM "+s.table("shares")+" WHERE id=$1 FOR UPDATE", id[:]).
		Scan(&existingEpoch, &deleted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// insert path below
	case err != nil:
		return fmt.Errorf("storage failure: select for update: %w", err)
	default:
		if !deleted && uint32(existingEpoch) > epoch {
			return store.ErrStaleWrite
		}
	}

	pubBytes := encodePoint(publicKey)
	_, err = tx.Exec(ctx, `
INSERT INTO `+s.table("shares")+` (id, share, epoch, public_key, deleted)
VALUES ($1, $2, $3, $4, false)
ON CONFLICT (id) DO UPDATE SET
	share = EXCLUDED.share,
	epoch = EXCLUDED.epoch,
	public_key = EXCLUDED.public_key,
	deleted = false
`, id[:], share.Bytes(), int64(epoch), pubBytes)
	if err != nil {
		return fmt.Errorf("storage failure: upsert: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) LoadShare(ctx context.Context, id oprfkey.ID) (*store.StoredShare, error) {
	row := s.pool.QueryRow(ctx, `
SELECT share, epoch, public_key, deleted, created_at, updated_at
FROM `+s.table("shares")+` WHERE id=$1`, id[:])

	var shareBytes, pubBytes []byte
	var epoch int64
	var deleted bool
	var out store.StoredShare
	if err := row.Scan(&shareBytes, &epoch, &pubBytes, &deleted, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("storage failure: load: %w", err)
	}
	if deleted {
		return nil, store.ErrTombstone
	}
	sc, err := field.SetBytesCanonical(shareBytes)
	if err != nil {
		return nil, fmt.Errorf("storage failure: decode share: %w", err)
	}
	out.Share = sc
	out.Epoch = uint32(epoch)
	out.PublicKey = decodePoint(pubBytes)
	return &out, nil
}

func (s *Store) SoftDelete(ctx context.Context, id oprfkey.ID) error {
	_, err := s.pool.Exec(ctx, `
UPDATE `+s.table("shares")+` SET share=NULL, deleted=true WHERE id=$1
`, id[:])
	if err != nil {
		return fmt.Errorf("storage failure: soft delete: %w", err)
	}
	return nil
}

func (s *Store) LoadAddress(ctx context.Context) (string, error) {
	var addr string
	err := s.pool.QueryRow(ctx, "SELECT address FROM "+s.table("evm_address")+" WHERE id=true").Scan(&addr)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage failure: load address: %w", err)
	}
	return addr, nil
}

func (s *Store) SetAddress(ctx context.Context, address string) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO `+s.table("evm_address")+` (id, address) VALUES (true, $1)
ON CONFLICT (id) DO UPDATE SET address = EXCLUDED.address
	WHERE `+s.table("evm_address")+`.address = EXCLUDED.address
`, address)
	if err != nil {
		return fmt.Errorf("storage failure: set address: %w", err)
	}
	return nil
}

// 65 bytes: 0x04 || 32-byte X || 32-byte Y, a familiar uncompressed-point
// shape reused here purely as a canonical wire encoding.
func encodePoint(p *curve.Point) []byte {
	out := make([]byte, 0, 65)
	out = append(out, 0x04)
	out = append(out, pad32(p.X())...)
	out = append(out, pad32(p.Y())...)
	return out
}

func decodePoint(b []byte) *curve.Point {
	if len(b) != 65 {
		return curve.Identity()
	}
	return curve.Decode(b[1:33], b[33:65])
}

func pad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
