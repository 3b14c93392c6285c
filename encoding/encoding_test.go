package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTransactionCursorVector(t *testing.T) {
	assert.Equal(t, "WzExMzgsNDJd", EncodeTransactionCursor(1138, 42))
}

func TestTransactionCursorRoundTrip(t *testing.T) {
	cursor := EncodeTransactionCursor(99, 3)

	height, index, ok, err := DecodeTransactionCursor(cursor)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(99), height)
	assert.Equal(t, int64(3), index)
}

func TestDecodeTransactionCursorEmpty(t *testing.T) {
	height, index, ok, err := DecodeTransactionCursor("")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, height)
	assert.Zero(t, index)
}

func TestDecodeTransactionCursorBad(t *testing.T) {
	_, _, _, err := DecodeTransactionCursor("not-valid-base64!!!")
	assert.ErrorIs(t, err, ErrBadCursor)
}

func TestBlockCursorRoundTrip(t *testing.T) {
	cursor := EncodeBlockCursor(1138)

	height, ok, err := DecodeBlockCursor(cursor)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1138), height)
}

func TestTagHashesAreStableAndDistinct(t *testing.T) {
	assert.Equal(t, TagNameHash([]byte("App-Name")), TagNameHash([]byte("App-Name")))
	assert.NotEqual(t, TagNameHash([]byte("App-Name")), TagValueHash([]byte("image/png")))
}

func TestWalletAddress(t *testing.T) {
	a := WalletAddress([]byte("modulus-a"))
	b := WalletAddress([]byte("modulus-b"))
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
