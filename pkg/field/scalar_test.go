package field_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/oprf-dkg/pkg/field"
)

func TestZeroOneIdentities(t *testing.T) {
	z := field.Zero()
	o := field.One()
	assert.True(t, z.IsZero())
	assert.False(t, o.IsZero())
	assert.True(t, o.Equal(z.Add(o)))
}

func TestAddSubRoundTrip(t *testing.T) {
	a, err := field.Random(nil)
	require.NoError(t, err)
	b, err := field.Random(nil)
	require.NoError(t, err)

	sum := a.Add(b)
	back := sum.Sub(b)
	assert.True(t, back.Equal(a))
}

func TestMulInverse(t *testing.T) {
	a, err := field.Random(nil)
	require.NoError(t, err)
	for a.IsZero() {
		a, err = field.Random(nil)
		require.NoError(t, err)
	}
	inv := a.Inverse()
	assert.True(t, a.Mul(inv).Equal(field.One()))
}

func TestInverseOfZeroPanics(t *testing.T) {
	assert.Panics(t, func() { field.Zero().Inverse() })
}

func TestSetBytesCanonicalRejectsOutOfRange(t *testing.T) {
	tooBig := field.OrderBig()
	_, err := field.SetBytesCanonical(tooBig.Bytes())
	require.Error(t, err)
	var rangeErr *field.RangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestSetBytesCanonicalRoundTrip(t *testing.T) {
	s, err := field.Random(nil)
	require.NoError(t, err)
	decoded, err := field.SetBytesCanonical(s.Bytes())
	require.NoError(t, err)
	assert.True(t, s.Equal(decoded))
}

func TestNewFromBigIntReducesModOrder(t *testing.T) {
	order := field.OrderBig()
	plusOne := new(big.Int).Add(order, big.NewInt(1))
	s := field.NewFromBigInt(plusOne)
	assert.True(t, s.Equal(field.One()))
}

func TestZeroizeClearsValue(t *testing.T) {
	s, err := field.Random(nil)
	require.NoError(t, err)
	for s.IsZero() {
		s, err = field.Random(nil)
		require.NoError(t, err)
	}
	s.Zeroize()
	assert.True(t, s.IsZero())
}

func TestStringNeverLeaksValue(t *testing.T) {
	s, err := field.Random(nil)
	require.NoError(t, err)
	assert.Equal(t, "field.Scalar{...}", s.String())
}

func TestCloneIsIndependent(t *testing.T) {
	s, err := field.Random(nil)
	require.NoError(t, err)
	clone := s.Clone()
	clone.Zeroize()
	assert.True(t, clone.IsZero())
	assert.False(t, s.IsZero())
}
