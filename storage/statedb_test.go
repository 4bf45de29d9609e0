package storage_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/drop"
	"github.com/tolelom/dropchain/internal/testutil"
	"github.com/tolelom/dropchain/storage"
)

func TestAccountDefaultsToZero(t *testing.T) {
	state := testutil.NewStateDB()
	acc, err := state.GetAccount("nobody")
	require.NoError(t, err)
	assert.Equal(t, &core.Account{Address: "nobody"}, acc)
}

func TestSnapshotRevert(t *testing.T) {
	state := testutil.NewStateDB()
	require.NoError(t, state.SetAccount(&core.Account{Address: "a", Balance: 10}))

	snap, err := state.Snapshot()
	require.NoError(t, err)
	require.NoError(t, state.SetAccount(&core.Account{Address: "a", Balance: 99}))
	require.NoError(t, state.SetDrop(&drop.Drop{ID: "d1"}))
	_, err = state.AppendDrop("d1")
	require.NoError(t, err)

	require.NoError(t, state.RevertToSnapshot(snap))

	acc, err := state.GetAccount("a")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), acc.Balance)
	_, err = state.GetDrop("d1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	n, err := state.DropCount()
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Error(t, state.RevertToSnapshot(snap), "snapshot is consumed")
}

func TestDropIndex(t *testing.T) {
	state := testutil.NewStateDB()
	for i, id := range []string{"first", "second", "third"} {
		idx, err := state.AppendDrop(id)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), idx)
	}
	n, err := state.DropCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	id, err := state.DropAtIndex(1)
	require.NoError(t, err)
	assert.Equal(t, "second", id)

	_, err = state.DropAtIndex(3)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDropRoundTrip(t *testing.T) {
	state := testutil.NewStateDB()
	d := &drop.Drop{
		ID:                "d1",
		Authority:         "auth",
		Strategy:          drop.StrategyRandomized,
		RandomMintEnabled: true,
		AccessTier:        drop.TierAllowListOnly,
		Pricing:           drop.Pricing{EditionSize: 10, AllowListPrice: 5, AllowListLimit: 2},
		AllowLists:        drop.AllowList{drop.DefaultAllowList: {"fan": true}},
		AllowListMinted:   map[string]uint64{"fan": 1},
		Pool:              drop.NewPool(),
	}
	require.NoError(t, state.SetDrop(d))

	got, err := state.GetDrop("d1")
	require.NoError(t, err)
	assert.Equal(t, d, got)
	assert.True(t, got.AllowLists.IsMember(drop.DefaultAllowList, "fan"))
}

func TestTokens(t *testing.T) {
	state := testutil.NewStateDB()
	require.NoError(t, state.SetToken(&core.Token{DropID: "d1", ID: 7, Owner: "alice"}))

	tok, err := state.GetToken("d1", 7)
	require.NoError(t, err)
	assert.Equal(t, "alice", tok.Owner)

	_, err = state.GetToken("d1", 8)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = state.GetToken("d2", 7)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestComputeRootDeterministic(t *testing.T) {
	db := testutil.NewMemDB()
	buffered := storage.NewStateDB(db)
	require.NoError(t, buffered.SetAccount(&core.Account{Address: "a", Balance: 1}))
	require.NoError(t, buffered.SetToken(&core.Token{DropID: "d", ID: 1, Owner: "a"}))
	before := buffered.ComputeRoot()

	require.NoError(t, buffered.Commit())
	assert.Equal(t, before, buffered.ComputeRoot(), "commit does not change the root")

	other := testutil.NewStateDB()
	require.NoError(t, other.SetToken(&core.Token{DropID: "d", ID: 1, Owner: "a"}))
	require.NoError(t, other.SetAccount(&core.Account{Address: "a", Balance: 1}))
	assert.Equal(t, before, other.ComputeRoot(), "write order does not matter")

	require.NoError(t, other.SetAccount(&core.Account{Address: "a", Balance: 2}))
	assert.NotEqual(t, before, other.ComputeRoot())
}

func TestCommitPersists(t *testing.T) {
	db := testutil.NewMemDB()
	state := storage.NewStateDB(db)
	require.NoError(t, state.SetAccount(&core.Account{Address: "a", Balance: 5}))
	require.NoError(t, state.Commit())

	reopened := storage.NewStateDB(db)
	acc, err := reopened.GetAccount("a")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), acc.Balance)
}

func TestDiscardSnapshotKeepsWrites(t *testing.T) {
	state := testutil.NewStateDB()
	outer, err := state.Snapshot()
	require.NoError(t, err)
	require.NoError(t, state.SetAccount(&core.Account{Address: "a", Balance: 1}))

	inner, err := state.Snapshot()
	require.NoError(t, err)
	require.NoError(t, state.SetAccount(&core.Account{Address: "b", Balance: 2}))
	require.NoError(t, state.DiscardSnapshot(inner))

	assert.Error(t, state.RevertToSnapshot(inner), "discarded snapshot is gone")
	acc, err := state.GetAccount("b")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), acc.Balance)

	require.NoError(t, state.RevertToSnapshot(outer))
	acc, err = state.GetAccount("a")
	require.NoError(t, err)
	assert.Zero(t, acc.Balance)
}

func TestCommittedViewHidesBuffer(t *testing.T) {
	state := testutil.NewStateDB()
	view := state.Committed()

	require.NoError(t, state.SetDrop(&drop.Drop{ID: "d1"}))
	_, err := view.GetDrop("d1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, state.Commit())
	got, err := view.GetDrop("d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", got.ID)

	assert.Error(t, view.Commit())
}

// Run with -race: block production writes while rpc goroutines read.
func TestConcurrentReadWrite(t *testing.T) {
	state := testutil.NewStateDB()
	view := state.Committed()
	require.NoError(t, state.SetDrop(&drop.Drop{ID: "d0"}))

	const rounds = 200
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			snap, err := state.Snapshot()
			assert.NoError(t, err)
			assert.NoError(t, state.SetDrop(&drop.Drop{ID: fmt.Sprintf("d%d", i), TotalMinted: uint64(i)}))
			if i%2 == 0 {
				assert.NoError(t, state.DiscardSnapshot(snap))
			} else {
				assert.NoError(t, state.RevertToSnapshot(snap))
			}
			if i%10 == 0 {
				state.ComputeRoot()
				assert.NoError(t, state.Commit())
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, _ = state.GetDrop("d0")
			_, _ = state.DropCount()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, _ = view.GetDrop("d0")
		}
	}()
	wg.Wait()

	_, err := state.GetDrop("d0")
	assert.NoError(t, err)
}
