// Package edition registers the drop transactions: factory creation, the
// administrative setters, minting and proceeds withdrawal.
package edition

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/crypto"
	"github.com/tolelom/dropchain/drop"
	"github.com/tolelom/dropchain/events"
	"github.com/tolelom/dropchain/vm"
)

func init() {
	vm.Register(core.TxCreateDrop, handleCreateDrop)
	vm.Register(core.TxSetAccessTier, handleSetAccessTier)
	vm.Register(core.TxSetAllowList, handleSetAllowList)
	vm.Register(core.TxSetPricing, handleSetPricing)
	vm.Register(core.TxSetRandomMint, handleSetRandomMint)
	vm.Register(core.TxTransferDropAuthority, handleTransferDropAuthority)
	vm.Register(core.TxMintEdition, handleMintEdition)
	vm.Register(core.TxMintEditions, handleMintEditions)
	vm.Register(core.TxWithdrawDrop, handleWithdrawDrop)
}

func handleCreateDrop(ctx *vm.Context, payload json.RawMessage) error {
	var p core.CreateDropPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode create_drop payload: %w", err)
	}
	if _, err := crypto.PubKeyFromHex(p.Artist); err != nil {
		return fmt.Errorf("%w: invalid artist pubkey: %v", drop.ErrInvalidArgument, err)
	}

	strategy := drop.StrategySequential
	if p.Randomized {
		strategy = drop.StrategyRandomized
	}
	d, err := drop.NewFactory(ctx.State).CreateDrop(drop.CreateParams{
		Authority:   ctx.Tx.From,
		Artist:      p.Artist,
		Name:        p.Name,
		Symbol:      p.Symbol,
		BaseURI:     p.BaseURI,
		EditionSize: p.EditionSize,
		RoyaltyBPS:  p.RoyaltyBPS,
		Strategy:    strategy,
		Salt:        ctx.Tx.ID,
		CreatedAt:   ctx.Block.Header.Timestamp,
	})
	if err != nil {
		return err
	}

	ctx.Emit(events.EventDropCreated, map[string]any{
		"drop_id":      d.ID,
		"index":        d.Index,
		"authority":    d.Authority,
		"artist":       d.Artist,
		"edition_size": d.Pricing.EditionSize,
		"strategy":     string(d.Strategy),
	})
	return nil
}

// loadEngine fetches the drop named in a payload and wraps it.
func loadEngine(ctx *vm.Context, dropID string) (*drop.Engine, error) {
	if dropID == "" {
		return nil, fmt.Errorf("%w: drop_id required", drop.ErrInvalidArgument)
	}
	eng, err := drop.NewFactory(ctx.State).Open(dropID, ctx.Entropy)
	if err != nil {
		return nil, fmt.Errorf("drop %q: %w", dropID, err)
	}
	return eng, nil
}
