// Package consensus implements Proof-of-Authority block production.
// Validators propose blocks in round-robin order. Each block is signed by
// the proposer; ValidateBlock checks the signature and linkage.
package consensus

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tolelom/dropchain/config"
	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/crypto"
	"github.com/tolelom/dropchain/events"
	"github.com/tolelom/dropchain/vm"
)

var log = logrus.WithField("component", "consensus")

const defaultMaxBlockTxs = 500

// PoA is the Proof-of-Authority consensus engine.
type PoA struct {
	cfg     *config.Config
	bc      *core.Blockchain
	state   core.State
	mempool *core.Mempool
	exec    *vm.Executor
	emitter *events.Emitter
	privKey crypto.PrivateKey
	pubKey  crypto.PublicKey
}

// New creates a PoA engine for the local validator identified by privKey.
func New(
	cfg *config.Config,
	bc *core.Blockchain,
	state core.State,
	mempool *core.Mempool,
	exec *vm.Executor,
	emitter *events.Emitter,
	privKey crypto.PrivateKey,
) *PoA {
	return &PoA{
		cfg:     cfg,
		bc:      bc,
		state:   state,
		mempool: mempool,
		exec:    exec,
		emitter: emitter,
		privKey: privKey,
		pubKey:  privKey.Public(),
	}
}

func (p *PoA) proposerFor(height int64) (string, error) {
	if len(p.cfg.Validators) == 0 {
		return "", errors.New("no validators configured")
	}
	return p.cfg.Validators[int(height)%len(p.cfg.Validators)], nil
}

// IsProposer reports whether this node should propose the next block.
func (p *PoA) IsProposer() bool {
	proposer, err := p.proposerFor(p.bc.Height() + 1)
	return err == nil && proposer == p.pubKey.Hex()
}

// ProduceBlock builds, executes, signs and commits the next block.
//
// Transactions that fail are dropped from the mempool individually instead of
// failing the block, so one rejected mint cannot stall the chain. The
// executor has already rolled back each failed transaction's writes.
func (p *PoA) ProduceBlock() (*core.Block, error) {
	if !p.IsProposer() {
		return nil, errors.New("not the proposer for this round")
	}

	limit := p.cfg.MaxBlockTxs
	if limit <= 0 {
		limit = defaultMaxBlockTxs
	}
	pending := p.mempool.Pending(limit)

	prevHash := config.GenesisHash
	nextHeight := int64(1)
	if tip := p.bc.Tip(); tip != nil {
		prevHash = tip.Hash
		nextHeight = tip.Header.Height + 1
	}

	blockSnap, err := p.state.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	block := core.NewBlock(nextHeight, prevHash, p.pubKey.Hex(), nil)
	var included []*core.Transaction
	var processed []string
	var pendingEvents []events.Event
	for _, tx := range pending {
		processed = append(processed, tx.ID)
		evs, err := p.exec.ApplyTx(block, tx)
		if err != nil {
			log.WithFields(logrus.Fields{"tx": tx.ID, "type": tx.Type}).Warnf("dropping tx: %v", err)
			continue
		}
		included = append(included, tx)
		pendingEvents = append(pendingEvents, evs...)
	}
	block.Transactions = included
	block.Header.TxRoot = core.ComputeTxRoot(included)

	// Root is computed from the write buffer BEFORE flushing so that a failed
	// AddBlock leaves nothing persisted.
	block.Header.StateRoot = p.state.ComputeRoot()
	block.Sign(p.privKey)

	if err := p.bc.AddBlock(block); err != nil {
		// Nothing of this block may leak into the next one; its txs stay in
		// the mempool for a retry.
		if revertErr := p.state.RevertToSnapshot(blockSnap); revertErr != nil {
			log.Fatalf("block %d rejected and state revert failed: %v", block.Header.Height, revertErr)
		}
		return nil, fmt.Errorf("add block: %w", err)
	}
	if err := p.state.Commit(); err != nil {
		log.Fatalf("block %d stored but state commit failed: %v", block.Header.Height, err)
	}

	p.exec.Publish(pendingEvents)

	p.emitter.Emit(events.Event{
		Type:        events.EventBlockCommit,
		BlockHeight: block.Header.Height,
		Data:        map[string]any{"hash": block.Hash, "txs": len(block.Transactions)},
	})
	p.mempool.Remove(processed)

	log.WithFields(logrus.Fields{
		"height":  block.Header.Height,
		"txs":     len(included),
		"dropped": len(processed) - len(included),
	}).Debug("block produced")
	return block, nil
}

// ValidateBlock checks that block was proposed and signed by the expected
// validator and links to the current tip.
func (p *PoA) ValidateBlock(block *core.Block) error {
	expected, err := p.proposerFor(block.Header.Height)
	if err != nil {
		return err
	}
	if block.Header.Proposer != expected {
		return fmt.Errorf("wrong proposer: got %s want %s", block.Header.Proposer, expected)
	}

	pub, err := crypto.PubKeyFromHex(block.Header.Proposer)
	if err != nil {
		return fmt.Errorf("invalid proposer pubkey: %w", err)
	}
	if err := block.Verify(pub); err != nil {
		return fmt.Errorf("block signature invalid: %w", err)
	}
	if err := block.CheckTxRoot(); err != nil {
		return err
	}

	tip := p.bc.Tip()
	switch {
	case tip == nil && !config.IsGenesisHash(block.Header.PrevHash):
		return errors.New("first block must reference genesis prev-hash")
	case tip != nil && block.Header.PrevHash != tip.Hash:
		return fmt.Errorf("prev_hash mismatch: got %s want %s", block.Header.PrevHash, tip.Hash)
	case tip != nil && block.Header.Height != tip.Header.Height+1:
		return fmt.Errorf("height mismatch: got %d want %d", block.Header.Height, tip.Header.Height+1)
	}
	return nil
}

// Run starts the block-production loop with the given interval. It blocks
// until done is closed.
func (p *PoA) Run(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if p.IsProposer() && p.mempool.Size() > 0 {
				if _, err := p.ProduceBlock(); err != nil {
					log.Errorf("produce block: %v", err)
				}
			}
		}
	}
}
