package wallet_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/wallet"
)

func TestKeystoreRoundTrip(t *testing.T) {
	w, err := wallet.Generate()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "validator.key")

	require.NoError(t, wallet.SaveKey(path, "hunter2", w.PrivKey()))

	priv, err := wallet.LoadKey(path, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, w.PubKey(), priv.Public().Hex())

	_, err = wallet.LoadKey(path, "wrong")
	assert.Error(t, err)
}

func TestMintEditionsPayload(t *testing.T) {
	w, err := wallet.Generate()
	require.NoError(t, err)

	tx, err := w.MintEditions("c", "drop-1", []string{"a", "b"}, 500, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, core.TxMintEditions, tx.Type)
	assert.Equal(t, uint64(500), tx.Value)
	assert.Equal(t, uint64(3), tx.Nonce)
	assert.Equal(t, w.PubKey(), tx.From)
	require.NoError(t, tx.Verify())

	var p core.MintEditionsPayload
	require.NoError(t, json.Unmarshal(tx.Payload, &p))
	assert.Equal(t, "drop-1", p.DropID)
	assert.Equal(t, []string{"a", "b"}, p.Recipients)
}
