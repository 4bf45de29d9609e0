package crypto_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/dropchain/crypto"
)

func TestKeyPairHexRoundTrip(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	assert.Len(t, pub.Hex(), 64)
	assert.Len(t, pub.Address(), 40)
	assert.Equal(t, pub.Hex(), priv.Public().Hex())

	got, err := crypto.PubKeyFromHex(pub.Hex())
	require.NoError(t, err)
	assert.Equal(t, pub, got)

	_, err = crypto.PubKeyFromHex("abcd")
	assert.ErrorIs(t, err, crypto.ErrInvalidKey)
	_, err = crypto.PrivKeyFromHex("zz")
	assert.ErrorIs(t, err, crypto.ErrInvalidKey)
}

func TestSignVerify(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	sig := crypto.Sign(priv, []byte("edition #7"))
	assert.NoError(t, crypto.Verify(pub, []byte("edition #7"), sig))
	assert.ErrorIs(t, crypto.Verify(pub, []byte("edition #8"), sig), crypto.ErrBadSignature)
	assert.ErrorIs(t, crypto.Verify(pub, []byte("edition #7"), "not-hex"), crypto.ErrBadSignature)
}

func TestKeccak256(t *testing.T) {
	// Keccak-256 of the empty input, as used by Ethereum.
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hex.EncodeToString(crypto.Keccak256()))
	assert.Equal(t, crypto.Keccak256([]byte("ab")), crypto.Keccak256([]byte("a"), []byte("b")))
}
