package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/store"
	"github.com/luxfi/oprf-dkg/pkg/store/memstore"
)

func testID(b byte) oprfkey.ID {
	var id oprfkey.ID
	id[len(id)-1] = b
	return id
}

func TestLoadShareNotFound(t *testing.T) {
	s := memstore.New()
	_, err := s.LoadShare(context.Background(), testID(1))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertThenLoad(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	id := testID(2)

	share, err := field.Random(nil)
	require.NoError(t, err)
	require.NoError(t, s.UpsertShare(ctx, id, share, 0, nil))

	loaded, err := s.LoadShare(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), loaded.Epoch)
	assert.False(t, loaded.Deleted)
}

func TestUpsertRejectsStaleEpoch(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	id := testID(3)

	share, err := field.Random(nil)
	require.NoError(t, err)
	require.NoError(t, s.UpsertShare(ctx, id, share, 2, nil))

	stale, err := field.Random(nil)
	require.NoError(t, err)
	err = s.UpsertShare(ctx, id, stale, 1, nil)
	assert.ErrorIs(t, err, store.ErrStaleWrite)
}

func TestUpsertAcceptsNewerEpoch(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	id := testID(4)

	share, err := field.Random(nil)
	require.NoError(t, err)
	require.NoError(t, s.UpsertShare(ctx, id, share, 0, nil))

	next, err := field.Random(nil)
	require.NoError(t, err)
	require.NoError(t, s.UpsertShare(ctx, id, next, 1, nil))

	loaded, err := s.LoadShare(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), loaded.Epoch)
}

func TestSoftDeleteTombstones(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	id := testID(5)

	share, err := field.Random(nil)
	require.NoError(t, err)
	require.NoError(t, s.UpsertShare(ctx, id, share, 0, nil))
	require.NoError(t, s.SoftDelete(ctx, id))

	_, err = s.LoadShare(ctx, id)
	assert.ErrorIs(t, err, store.ErrTombstone)
}

func TestSoftDeleteOfUnknownIDTombstonesAnyway(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	id := testID(6)

	require.NoError(t, s.SoftDelete(ctx, id))
	_, err := s.LoadShare(ctx, id)
	assert.ErrorIs(t, err, store.ErrTombstone)
}

func TestAddressSingleton(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	_, err := s.LoadAddress(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetAddress(ctx, "0xabc"))
	addr, err := s.LoadAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", addr)

	assert.NoError(t, s.SetAddress(ctx, "0xabc")) // idempotent re-set of the same value
	assert.ErrorIs(t, s.SetAddress(ctx, "0xdef"), store.ErrStaleWrite)
}
