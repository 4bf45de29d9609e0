package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/crypto"
	"github.com/tolelom/dropchain/storage"
)

func TestLevelDBBatch(t *testing.T) {
	db, err := storage.NewLevelDB(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	defer db.Close()

	b := db.NewBatch()
	b.Set([]byte("k1"), []byte("v1"))
	b.Set([]byte("k2"), []byte("v2"))
	b.Delete([]byte("k2"))

	_, err = db.Get([]byte("k1"))
	assert.ErrorIs(t, err, core.ErrNotFound, "batch not written yet")

	require.NoError(t, b.Write())
	v, err := db.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)
	_, err = db.Get([]byte("k2"))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLevelBlockStore(t *testing.T) {
	db, err := storage.NewLevelDB(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	defer db.Close()

	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	block := core.NewBlock(1, "0000", pub.Hex(), nil)
	block.Sign(priv)

	store := storage.NewLevelBlockStore(db)
	require.NoError(t, store.CommitBlock(block))

	tip, err := store.GetTip()
	require.NoError(t, err)
	assert.Equal(t, block.Hash, tip)

	byHeight, err := store.GetBlockByHeight(1)
	require.NoError(t, err)
	assert.Equal(t, block.Hash, byHeight.Hash)
}
