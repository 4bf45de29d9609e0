package drop_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/dropchain/drop"
)

func mintAll(t *testing.T, e *drop.Engine, batch int) []uint64 {
	t.Helper()
	var ids []uint64
	for e.Drop().Remaining() > 0 {
		n := batch
		if rem := int(e.Drop().Remaining()); n > rem {
			n = rem
		}
		recipients := make([]string, n)
		for i := range recipients {
			recipients[i] = authority
		}
		receipt, err := e.Mint(drop.MintRequest{Caller: authority, Recipients: recipients})
		require.NoError(t, err)
		ids = append(ids, receipt.IDs...)
	}
	return ids
}

func assertPermutation(t *testing.T, ids []uint64, size uint64) {
	t.Helper()
	require.Len(t, ids, int(size))
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, id := range sorted {
		require.Equal(t, uint64(i+1), id, "identifiers must be exactly 1..%d", size)
	}
}

func TestRandomizedCoversWholeEdition(t *testing.T) {
	for _, size := range []uint64{1, 2, 10, 257} {
		d := newDrop(drop.StrategyRandomized)
		d.Pricing.EditionSize = size
		e := drop.NewEngine(d, drop.NewChainEntropy([]byte("seed"), []byte{byte(size)}))

		ids := mintAll(t, e, 3)
		assertPermutation(t, ids, size)
		assert.Equal(t, size, e.TotalMinted())
	}
}

func TestRandomizedIsNotIdentity(t *testing.T) {
	d := newDrop(drop.StrategyRandomized)
	d.Pricing.EditionSize = 100
	e := drop.NewEngine(d, drop.NewChainEntropy([]byte("block"), []byte("tx")))

	ids := mintAll(t, e, 7)
	inOrder := true
	for i, id := range ids {
		if id != uint64(i+1) {
			inOrder = false
			break
		}
	}
	assert.False(t, inOrder, "random allocation produced the sequential order")
}

func TestRandomizedFollowsEntropy(t *testing.T) {
	d := newDrop(drop.StrategyRandomized)
	d.Pricing.EditionSize = 5
	// slot 4 → id 5; then slot 0 → id 1; then slot 1 → id 2.
	e := drop.NewEngine(d, &scriptedEntropy{values: []uint64{4, 0, 1}})

	receipt, err := e.Mint(drop.MintRequest{Caller: authority, Recipients: []string{"a", "b", "c"}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 1, 2}, receipt.IDs)
}

func TestRandomToggleSwitchesToSequential(t *testing.T) {
	d := newDrop(drop.StrategyRandomized)
	e := drop.NewEngine(d, &scriptedEntropy{values: []uint64{2, 5}})
	assert.True(t, e.IsRandomMint())

	receipt, err := e.Mint(drop.MintRequest{Caller: authority, Recipients: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 6}, receipt.IDs)

	require.NoError(t, e.SetRandomMintEnabled(authority, false))
	assert.False(t, e.IsRandomMint())

	var seq []uint64
	for e.Drop().Remaining() > 0 {
		receipt, err := e.Mint(drop.MintRequest{Caller: authority, Recipients: []string{"a"}})
		require.NoError(t, err)
		seq = append(seq, receipt.IDs...)
	}
	assert.Equal(t, []uint64{1, 2, 4, 5, 7, 8, 9, 10}, seq)
	assertPermutation(t, append(receipt.IDs, seq...), 10)
}

func TestRandomMintNeedsEntropy(t *testing.T) {
	e := drop.NewEngine(newDrop(drop.StrategyRandomized), nil)
	_, err := e.Mint(drop.MintRequest{Caller: authority, Recipients: []string{"a"}})
	require.Error(t, err)
	assert.Equal(t, uint64(0), e.TotalMinted())
}

func TestMixedAllocationNeverRepeats(t *testing.T) {
	d := newDrop(drop.StrategyRandomized)
	d.Pricing.EditionSize = 64
	e := drop.NewEngine(d, drop.NewChainEntropy([]byte("mixed")))

	var ids []uint64
	for i := 0; e.Drop().Remaining() > 0; i++ {
		require.NoError(t, e.SetRandomMintEnabled(authority, i%3 != 0))
		receipt, err := e.Mint(drop.MintRequest{Caller: authority, Recipients: []string{"a"}})
		require.NoError(t, err)
		ids = append(ids, receipt.IDs...)
	}
	assertPermutation(t, ids, 64)
}

func TestChainEntropyDeterministicAndBounded(t *testing.T) {
	a := drop.NewChainEntropy([]byte("x"), []byte("y"))
	b := drop.NewChainEntropy([]byte("x"), []byte("y"))
	c := drop.NewChainEntropy([]byte("xy"))
	var diverged bool
	for i := 0; i < 50; i++ {
		va, vb, vc := a.Draw(1000), b.Draw(1000), c.Draw(1000)
		assert.Equal(t, va, vb)
		assert.Less(t, va, uint64(1000))
		if va != vc {
			diverged = true
		}
	}
	assert.True(t, diverged, "length-prefixing must separate (x,y) from (xy)")
	assert.Equal(t, uint64(0), a.Draw(1))
}
