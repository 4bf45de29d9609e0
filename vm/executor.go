package vm

import (
	"fmt"
	"math"
	"strconv"

	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/drop"
	"github.com/tolelom/dropchain/events"
)

// EntropyFunc builds the entropy source a transaction's random draws use.
type EntropyFunc func(block *core.Block, tx *core.Transaction) drop.EntropySource

// ChainEntropy seeds draws from the previous block hash, height, timestamp,
// transaction ID and sender. Every input is public and a proposer controls
// ordering and timestamp, so the result is reproducible, not secret.
func ChainEntropy(block *core.Block, tx *core.Transaction) drop.EntropySource {
	return drop.NewChainEntropy(
		[]byte(block.Header.PrevHash),
		[]byte(strconv.FormatInt(block.Header.Height, 10)),
		[]byte(strconv.FormatInt(block.Header.Timestamp, 10)),
		[]byte(tx.ID),
		[]byte(tx.From),
	)
}

// Context is passed to every Handler and provides access to the chain state,
// the current block, the triggering transaction and the entropy source.
// Events recorded with Emit are delivered only if the transaction succeeds.
type Context struct {
	State   core.State
	Block   *core.Block
	Tx      *core.Transaction
	Entropy drop.EntropySource

	pending []events.Event
}

// Emit queues an event for delivery after the transaction commits.
func (c *Context) Emit(typ events.EventType, data map[string]any) {
	c.pending = append(c.pending, events.Event{
		Type:        typ,
		TxID:        c.Tx.ID,
		BlockHeight: c.Block.Header.Height,
		Data:        data,
	})
}

// Executor applies transactions to the state using the global Handler registry.
type Executor struct {
	state   core.State
	emitter *events.Emitter
	entropy EntropyFunc
}

// NewExecutor creates an Executor with the given state and event emitter.
func NewExecutor(state core.State, emitter *events.Emitter) *Executor {
	return &Executor{state: state, emitter: emitter, entropy: ChainEntropy}
}

// WithEntropy replaces the entropy source, e.g. with a deterministic one in tests.
func (e *Executor) WithEntropy(fn EntropyFunc) *Executor {
	e.entropy = fn
	return e
}

// ExecuteBlock applies all transactions in block sequentially.
// A failing transaction causes the whole block to be rejected.
// EventBlockCommit is emitted by the caller (consensus) after signing so
// the event carries the correct block hash.
func (e *Executor) ExecuteBlock(block *core.Block) error {
	for _, tx := range block.Transactions {
		if err := e.ExecuteTx(block, tx); err != nil {
			return fmt.Errorf("tx %s failed: %w", tx.ID, err)
		}
	}
	return nil
}

// ExecuteTx verifies and executes a single transaction with snapshot/rollback
// and delivers its events at once. Either every state write of the
// transaction lands or none does.
func (e *Executor) ExecuteTx(block *core.Block, tx *core.Transaction) error {
	evs, err := e.ApplyTx(block, tx)
	if err != nil {
		return err
	}
	e.Publish(evs)
	return nil
}

// ApplyTx is ExecuteTx without event delivery: it returns the events the
// transaction produced so the caller can publish them once the enclosing
// block is stored.
func (e *Executor) ApplyTx(block *core.Block, tx *core.Transaction) ([]events.Event, error) {
	if err := tx.Verify(); err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	ctx, err := e.applyTx(block, tx)
	if err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return nil, fmt.Errorf("revert snapshot after tx failure: %w (revert: %v)", err, revertErr)
		}
		return nil, err
	}
	if err := e.state.DiscardSnapshot(snapID); err != nil {
		return nil, fmt.Errorf("discard snapshot: %w", err)
	}

	return append(ctx.pending, events.Event{
		Type:        events.EventTxExecuted,
		TxID:        tx.ID,
		BlockHeight: block.Header.Height,
		Data:        map[string]any{"type": string(tx.Type), "from": tx.From},
	}), nil
}

// Publish delivers events to the emitter in order.
func (e *Executor) Publish(evs []events.Event) {
	if e.emitter == nil {
		return
	}
	for _, ev := range evs {
		e.emitter.Emit(ev)
	}
}

// applyTx deducts the fee, increments the nonce, then dispatches to the handler.
func (e *Executor) applyTx(block *core.Block, tx *core.Transaction) (*Context, error) {
	if tx.Value > 0 && !tx.Type.Payable() {
		return nil, fmt.Errorf("tx type %q does not accept a value", tx.Type)
	}
	acc, err := e.state.GetAccount(tx.From)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acc.Nonce != tx.Nonce {
		return nil, fmt.Errorf("invalid nonce: expected %d got %d", acc.Nonce, tx.Nonce)
	}
	if acc.Balance < tx.Fee {
		return nil, fmt.Errorf("insufficient balance for fee: have %d need %d", acc.Balance, tx.Fee)
	}
	if acc.Nonce == math.MaxUint64 {
		return nil, fmt.Errorf("nonce overflow for account %s", tx.From)
	}
	acc.Balance -= tx.Fee
	acc.Nonce++
	if err := e.state.SetAccount(acc); err != nil {
		return nil, err
	}

	ctx := &Context{
		State: e.state,
		Block: block,
		Tx:    tx,
	}
	if e.entropy != nil {
		ctx.Entropy = e.entropy(block, tx)
	}
	if err := globalRegistry.Execute(tx.Type, ctx, tx.Payload); err != nil {
		return nil, err
	}
	return ctx, nil
}
