package economy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/events"
	"github.com/tolelom/dropchain/internal/testutil"
	"github.com/tolelom/dropchain/vm"
	"github.com/tolelom/dropchain/wallet"

	_ "github.com/tolelom/dropchain/vm/modules/economy"
)

func TestTransfer(t *testing.T) {
	state := testutil.NewStateDB()
	emitter := events.NewEmitter()
	exec := vm.NewExecutor(state, emitter)

	sender, err := wallet.Generate()
	require.NoError(t, err)
	receiver, err := wallet.Generate()
	require.NoError(t, err)
	require.NoError(t, state.SetAccount(&core.Account{Address: sender.PubKey(), Balance: 1000}))

	var transfers []events.Event
	emitter.Subscribe(events.EventTokenTransfer, func(ev events.Event) { transfers = append(transfers, ev) })

	block := core.NewBlock(1, "0000", sender.PubKey(), nil)
	tx, err := sender.Transfer("c", receiver.PubKey(), 300, 0, 5)
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteTx(block, tx))

	from, err := state.GetAccount(sender.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(695), from.Balance)
	assert.Equal(t, uint64(1), from.Nonce)
	to, err := state.GetAccount(receiver.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(300), to.Balance)
	require.Len(t, transfers, 1)

	// Overdraft reverts the fee and nonce too.
	tx, err = sender.Transfer("c", receiver.PubKey(), 5000, 1, 5)
	require.NoError(t, err)
	assert.Error(t, exec.ExecuteTx(block, tx))
	from, err = state.GetAccount(sender.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(695), from.Balance)
	assert.Equal(t, uint64(1), from.Nonce)
	assert.Len(t, transfers, 1)

	tx, err = sender.Transfer("c", sender.PubKey(), 1, 1, 0)
	require.NoError(t, err)
	assert.Error(t, exec.ExecuteTx(block, tx))
}
