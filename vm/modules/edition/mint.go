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

func handleMintEdition(ctx *vm.Context, payload json.RawMessage) error {
	var p core.MintEditionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode mint_edition payload: %w", err)
	}
	return mint(ctx, p.DropID, []string{p.Recipient})
}

func handleMintEditions(ctx *vm.Context, payload json.RawMessage) error {
	var p core.MintEditionsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode mint_editions payload: %w", err)
	}
	return mint(ctx, p.DropID, p.Recipients)
}

// mint takes tx.Value from the sender, runs the engine, keeps the cost in
// the drop's balance and credits any excess back to the sender.
func mint(ctx *vm.Context, dropID string, recipients []string) error {
	eng, err := loadEngine(ctx, dropID)
	if err != nil {
		return err
	}

	resolved := make([]string, len(recipients))
	for i, r := range recipients {
		if r == "" {
			r = ctx.Tx.From
		} else if _, err := crypto.PubKeyFromHex(r); err != nil {
			return fmt.Errorf("%w: invalid recipient pubkey: %v", drop.ErrInvalidArgument, err)
		}
		resolved[i] = r
	}

	payer, err := ctx.State.GetAccount(ctx.Tx.From)
	if err != nil {
		return err
	}
	if payer.Balance < ctx.Tx.Value {
		return fmt.Errorf("%w: balance %d cannot cover attached value %d",
			drop.ErrInsufficientPayment, payer.Balance, ctx.Tx.Value)
	}

	receipt, err := eng.Mint(drop.MintRequest{
		Caller:     ctx.Tx.From,
		Recipients: resolved,
		Payment:    ctx.Tx.Value,
	})
	if err != nil {
		return err
	}

	payer.Balance -= ctx.Tx.Value
	payer.Balance += receipt.Refund
	if err := ctx.State.SetAccount(payer); err != nil {
		return err
	}
	d := eng.Drop()
	if err := ctx.State.SetDrop(d); err != nil {
		return err
	}

	for i, id := range receipt.IDs {
		tok := &core.Token{
			DropID:   d.ID,
			ID:       id,
			Owner:    receipt.Recipients[i],
			MintedAt: ctx.Block.Header.Timestamp,
		}
		if err := ctx.State.SetToken(tok); err != nil {
			return err
		}
		ctx.Emit(events.EventEditionTransfer, map[string]any{
			"drop_id":  d.ID,
			"from":     "",
			"to":       tok.Owner,
			"token_id": id,
		})
	}
	ctx.Emit(events.EventEditionSold, map[string]any{
		"drop_id":  d.ID,
		"quantity": len(receipt.IDs),
		"payer":    ctx.Tx.From,
		"cost":     receipt.Cost,
		"refund":   receipt.Refund,
		"tier":     receipt.Tier.String(),
	})
	return nil
}
