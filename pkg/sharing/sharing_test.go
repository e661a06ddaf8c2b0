package sharing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/oprf-dkg/pkg/field"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/sharing"
)

func TestPolynomialEvaluateAtZeroIsConstant(t *testing.T) {
	secret, err := field.Random(nil)
	require.NoError(t, err)
	poly, err := sharing.NewPolynomial(3, secret, nil)
	require.NoError(t, err)

	assert.True(t, poly.Evaluate(field.Zero()).Equal(secret))
	assert.True(t, poly.Constant().Equal(secret))
	assert.Equal(t, 2, len(poly.Coefficients()))
}

func TestLagrangeReconstructsSecret(t *testing.T) {
	secret, err := field.Random(nil)
	require.NoError(t, err)
	threshold, numPeers := 3, 5
	poly, err := sharing.NewPolynomial(threshold, secret, nil)
	require.NoError(t, err)

	ids := party.IDSlice{0, 2, 4}
	shares := make(map[party.ID]*field.Scalar, len(ids))
	for _, id := range ids {
		shares[id] = poly.Evaluate(id.Scalar())
	}

	coeffs, err := sharing.LagrangeCoefficients(ids, threshold, numPeers)
	require.NoError(t, err)

	reconstructed := field.Zero()
	for _, id := range ids {
		reconstructed = reconstructed.Add(coeffs[id].Mul(shares[id]))
	}
	assert.True(t, reconstructed.Equal(secret))
}

func TestLagrangeCoefficientsZeroOutsideSet(t *testing.T) {
	coeffs, err := sharing.LagrangeCoefficients(party.IDSlice{0, 1}, 2, 4)
	require.NoError(t, err)
	assert.True(t, coeffs[2].IsZero())
	assert.True(t, coeffs[3].IsZero())
}

func TestLagrangeRejectsWrongThreshold(t *testing.T) {
	_, err := sharing.LagrangeCoefficients(party.IDSlice{0, 1}, 3, 5)
	assert.ErrorIs(t, err, sharing.ErrInvalidThreshold)
}

func TestLagrangeRejectsDuplicateIDs(t *testing.T) {
	_, err := sharing.LagrangeCoefficients(party.IDSlice{0, 0}, 2, 5)
	assert.ErrorIs(t, err, sharing.ErrDuplicateIDs)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sender, err := sharing.NewEphemeralKeyPair(nil)
	require.NoError(t, err)
	recipient, err := sharing.NewEphemeralKeyPair(nil)
	require.NoError(t, err)

	share, err := field.Random(nil)
	require.NoError(t, err)
	nonce, err := field.Random(nil)
	require.NoError(t, err)

	ct := sharing.EncryptShare(sender.Secret, recipient.Public, share, nonce)
	decrypted, ok := sharing.DecryptAndVerify(recipient.Secret, sender.Public, ct)
	require.True(t, ok)
	assert.True(t, decrypted.Equal(share))
}

func TestDecryptDetectsTamperedCipher(t *testing.T) {
	sender, err := sharing.NewEphemeralKeyPair(nil)
	require.NoError(t, err)
	recipient, err := sharing.NewEphemeralKeyPair(nil)
	require.NoError(t, err)

	share, err := field.Random(nil)
	require.NoError(t, err)
	nonce, err := field.Random(nil)
	require.NoError(t, err)

	ct := sharing.EncryptShare(sender.Secret, recipient.Public, share, nonce)
	ct.Cipher = ct.Cipher.Add(field.One())

	_, ok := sharing.DecryptAndVerify(recipient.Secret, sender.Public, ct)
	assert.False(t, ok)
}

func TestNonceTrackerNeverRepeats(t *testing.T) {
	tracker := sharing.NewNonceTracker(nil)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n, err := tracker.Next()
		require.NoError(t, err)
		key := string(n.Bytes())
		assert.False(t, seen[key])
		seen[key] = true
	}
}
