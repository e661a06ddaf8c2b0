package curve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/oprf-dkg/pkg/curve"
	"github.com/luxfi/oprf-dkg/pkg/field"
)

func TestGeneratorValidates(t *testing.T) {
	g := curve.Generator()
	assert.NoError(t, g.Validate())
	assert.True(t, g.IsOnCurve())
	assert.True(t, g.IsInSubgroup())
}

func TestIdentityIsRejected(t *testing.T) {
	id := curve.Identity()
	assert.True(t, id.IsIdentity())
	assert.Error(t, id.Validate())
	assert.False(t, id.IsInSubgroup())
}

func TestScalarBaseMulZeroIsIdentity(t *testing.T) {
	p := curve.ScalarBaseMul(field.Zero())
	assert.True(t, p.IsIdentity())
}

func TestScalarBaseMulOneIsGenerator(t *testing.T) {
	p := curve.ScalarBaseMul(field.One())
	assert.True(t, p.Equal(curve.Generator()))
}

func TestAddMatchesDoubleScalarMul(t *testing.T) {
	g := curve.Generator()
	two := field.One().Add(field.One())
	doubled := curve.ScalarBaseMul(two)
	summed := g.Add(g)
	assert.True(t, doubled.Equal(summed))
}

func TestScalarMulDistributesOverAdd(t *testing.T) {
	a, err := field.Random(nil)
	require.NoError(t, err)
	b, err := field.Random(nil)
	require.NoError(t, err)

	g := curve.Generator()
	lhs := g.ScalarMul(a.Add(b))
	rhs := g.ScalarMul(a).Add(g.ScalarMul(b))
	assert.True(t, lhs.Equal(rhs))
}

func TestCloneIsIndependentPoint(t *testing.T) {
	g := curve.Generator()
	clone := g.Clone()
	assert.True(t, g.Equal(clone))
	moved := clone.Add(clone)
	assert.False(t, g.Equal(moved))
	assert.True(t, g.Equal(curve.Generator()))
}

func TestDecodeRejectsOffCurvePoint(t *testing.T) {
	bogus := curve.Decode([]byte{1}, []byte{2})
	assert.False(t, bogus.IsOnCurve())
	assert.Error(t, bogus.Validate())
}
