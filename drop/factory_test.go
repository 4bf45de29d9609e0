package drop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/drop"
	"github.com/tolelom/dropchain/internal/testutil"
)

func TestFactoryCreateDrop(t *testing.T) {
	f := drop.NewFactory(testutil.NewStateDB())

	seq, err := f.CreateDrop(drop.CreateParams{
		Authority: "auth", Artist: "artist", Name: "One", EditionSize: 3, Salt: "tx-1",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), seq.Index)
	assert.Equal(t, drop.StrategySequential, seq.Strategy)
	assert.Equal(t, drop.TierOwnerOnly, seq.AccessTier)
	assert.False(t, seq.RandomMintEnabled)
	assert.Nil(t, seq.Pool)

	rnd, err := f.CreateDrop(drop.CreateParams{
		Authority: "auth", Artist: "artist", EditionSize: 7, Strategy: drop.StrategyRandomized, Salt: "tx-2",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rnd.Index)
	assert.True(t, rnd.RandomMintEnabled)
	assert.NotNil(t, rnd.Pool)
	assert.NotEqual(t, seq.ID, rnd.ID)

	n, err := f.DropCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	id, err := f.GetDropAtIndex(1)
	require.NoError(t, err)
	assert.Equal(t, rnd.ID, id)

	_, err = f.GetDropAtIndex(2)
	assert.ErrorIs(t, err, core.ErrNotFound)

	eng, err := f.Open(seq.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), eng.MintLimit("anyone"))
}

func TestFactoryRejectsBadParams(t *testing.T) {
	f := drop.NewFactory(testutil.NewStateDB())
	cases := map[string]drop.CreateParams{
		"zero size":    {Authority: "a", Artist: "b"},
		"no artist":    {Authority: "a", EditionSize: 1},
		"no authority": {Artist: "b", EditionSize: 1},
		"bad strategy": {Authority: "a", Artist: "b", EditionSize: 1, Strategy: "shuffled"},
		"royalty":      {Authority: "a", Artist: "b", EditionSize: 1, RoyaltyBPS: drop.MaxRoyaltyBPS + 1},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.CreateDrop(p)
			assert.ErrorIs(t, err, drop.ErrInvalidArgument)
		})
	}
	n, err := f.DropCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDropIDIsDeterministic(t *testing.T) {
	a, err := drop.NewFactory(testutil.NewStateDB()).CreateDrop(drop.CreateParams{
		Authority: "auth", Artist: "artist", EditionSize: 1, Salt: "same",
	})
	require.NoError(t, err)
	b, err := drop.NewFactory(testutil.NewStateDB()).CreateDrop(drop.CreateParams{
		Authority: "other", Artist: "artist", EditionSize: 1, Salt: "same",
	})
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
}
