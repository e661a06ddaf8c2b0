package oprfkey_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
)

func TestZeroIDIsInvalid(t *testing.T) {
	var id oprfkey.ID
	assert.ErrorIs(t, id.Validate(), oprfkey.ErrZeroID)
}

func TestFromHexRoundTrip(t *testing.T) {
	id, err := oprfkey.FromHex("0x0102030405060708090a0b0c0d0e0f1011121314")
	require.NoError(t, err)
	assert.NoError(t, id.Validate())
	assert.Equal(t, "0x0102030405060708090a0b0c0d0e0f1011121314", id.String())
}

func TestFromHexAcceptsBareHex(t *testing.T) {
	withPrefix, err := oprfkey.FromHex("0x0102030405060708090a0b0c0d0e0f1011121314")
	require.NoError(t, err)
	bare, err := oprfkey.FromHex("0102030405060708090a0b0c0d0e0f1011121314")
	require.NoError(t, err)
	assert.Equal(t, withPrefix, bare)
}

func TestFromHexRejectsWrongLength(t *testing.T) {
	_, err := oprfkey.FromHex("0xabcd")
	assert.Error(t, err)
}

func TestFromHexRejectsInvalidHex(t *testing.T) {
	_, err := oprfkey.FromHex("0xzz02030405060708090a0b0c0d0e0f1011121314")
	assert.Error(t, err)
}
