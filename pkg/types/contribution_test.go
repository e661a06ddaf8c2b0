package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/types"
)

func TestRoleString(t *testing.T) {
	assert.Equal(t, "not-ready", types.RoleNotReady.String())
	assert.Equal(t, "producer", types.RoleProducer.String())
	assert.Equal(t, "consumer", types.RoleConsumer.String())
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "none", types.StageNone.String())
	assert.Equal(t, "round1", types.StageRound1.String())
	assert.Equal(t, "round2", types.StageRound2.String())
	assert.Equal(t, "round3", types.StageRound3.String())
	assert.Equal(t, "finalized", types.StageFinalized.String())
}

func TestIsConsumerShapedTrueWhenBothCommitmentsAbsent(t *testing.T) {
	c := types.Round1Contribution{EphPubKey: curve.Generator()}
	assert.True(t, c.IsConsumerShaped())
}

func TestIsConsumerShapedTrueWhenCommCoeffsIsZero(t *testing.T) {
	c := types.Round1Contribution{
		EphPubKey:  curve.Generator(),
		CommCoeffs: field.Zero(),
	}
	assert.True(t, c.IsConsumerShaped())
}

func TestIsConsumerShapedFalseForProducerContribution(t *testing.T) {
	c := types.Round1Contribution{
		EphPubKey:  curve.Generator(),
		CommShare:  curve.Generator(),
		CommCoeffs: field.NewFromUint64(5),
	}
	assert.False(t, c.IsConsumerShaped())
}

func TestNewKeyGenStateAllocatesShapes(t *testing.T) {
	n := 4
	s := types.NewKeyGenState(n)

	require.True(t, s.Exists)
	assert.Equal(t, types.StageRound1, s.Stage)
	assert.Len(t, s.Round1, n)
	assert.Len(t, s.Round2, n)
	assert.Len(t, s.Round2Done, n)
	assert.Len(t, s.Round3Done, n)
	assert.Len(t, s.ShareCommitments, n)

	for i := 0; i < n; i++ {
		assert.Len(t, s.Round2[i], n)
		assert.True(t, s.ShareCommitments[i].IsIdentity())
	}
	assert.True(t, s.KeyAggregate.IsIdentity())
	assert.Empty(t, s.NodeRoles)
	assert.Empty(t, s.Round2Proofs)
}
