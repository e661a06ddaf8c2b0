package party_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luxfi/oprf-dkg/pkg/party"
)

func TestScalarNeverZero(t *testing.T) {
	assert.False(t, party.ID(0).Scalar().IsZero())
}

func TestIDSliceSortedAndContains(t *testing.T) {
	ids := party.IDSlice{3, 1, 2}
	sorted := ids.Sorted()
	assert.Equal(t, party.IDSlice{1, 2, 3}, sorted)
	assert.True(t, ids.Contains(2))
	assert.False(t, ids.Contains(9))
}

func TestSortedDoesNotMutateOriginal(t *testing.T) {
	ids := party.IDSlice{3, 1, 2}
	_ = ids.Sorted()
	assert.Equal(t, party.IDSlice{3, 1, 2}, ids)
}

func TestCommitteeNumPeers(t *testing.T) {
	c := party.Committee{Peers: party.IDSlice{0, 1, 2, 3}, Threshold: 3}
	assert.Equal(t, 4, c.NumPeers())
}
