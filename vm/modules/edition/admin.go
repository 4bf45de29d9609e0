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

func handleSetAccessTier(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetAccessTierPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode set_access_tier payload: %w", err)
	}
	eng, err := loadEngine(ctx, p.DropID)
	if err != nil {
		return err
	}
	if err := eng.SetAccessTier(ctx.Tx.From, drop.Tier(p.Tier)); err != nil {
		return err
	}
	if err := ctx.State.SetDrop(eng.Drop()); err != nil {
		return err
	}
	ctx.Emit(events.EventAccessTierSet, map[string]any{"drop_id": p.DropID, "tier": drop.Tier(p.Tier).String()})
	return nil
}

func handleSetAllowList(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetAllowListPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode set_allow_list payload: %w", err)
	}
	eng, err := loadEngine(ctx, p.DropID)
	if err != nil {
		return err
	}
	if err := eng.SetAllowListMembers(ctx.Tx.From, p.ListID, p.Addresses, p.Included); err != nil {
		return err
	}
	if err := ctx.State.SetDrop(eng.Drop()); err != nil {
		return err
	}
	ctx.Emit(events.EventAllowListSet, map[string]any{
		"drop_id": p.DropID,
		"list_id": p.ListID,
		"count":   len(p.Addresses),
	})
	return nil
}

func handleSetPricing(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetPricingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode set_pricing payload: %w", err)
	}
	eng, err := loadEngine(ctx, p.DropID)
	if err != nil {
		return err
	}
	pricing := drop.Pricing{
		EditionSize:    p.EditionSize,
		RoyaltyBPS:     p.RoyaltyBPS,
		AllowListPrice: p.AllowListPrice,
		PublicPrice:    p.PublicPrice,
		AllowListLimit: p.AllowListLimit,
		PublicLimit:    p.GeneralLimit,
	}
	if err := eng.SetPricing(ctx.Tx.From, pricing); err != nil {
		return err
	}
	if err := ctx.State.SetDrop(eng.Drop()); err != nil {
		return err
	}
	ctx.Emit(events.EventPricingSet, map[string]any{"drop_id": p.DropID, "pricing": pricing})
	return nil
}

func handleSetRandomMint(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetRandomMintPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode set_random_mint payload: %w", err)
	}
	eng, err := loadEngine(ctx, p.DropID)
	if err != nil {
		return err
	}
	if err := eng.SetRandomMintEnabled(ctx.Tx.From, p.Enabled); err != nil {
		return err
	}
	if err := ctx.State.SetDrop(eng.Drop()); err != nil {
		return err
	}
	ctx.Emit(events.EventRandomMintSet, map[string]any{"drop_id": p.DropID, "enabled": p.Enabled})
	return nil
}

func handleTransferDropAuthority(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TransferDropAuthorityPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode transfer_drop_authority payload: %w", err)
	}
	if _, err := crypto.PubKeyFromHex(p.NewAuthority); err != nil {
		return fmt.Errorf("%w: invalid new authority pubkey: %v", drop.ErrInvalidArgument, err)
	}
	eng, err := loadEngine(ctx, p.DropID)
	if err != nil {
		return err
	}
	if err := eng.TransferAuthority(ctx.Tx.From, p.NewAuthority); err != nil {
		return err
	}
	if err := ctx.State.SetDrop(eng.Drop()); err != nil {
		return err
	}
	ctx.Emit(events.EventAuthorityChanged, map[string]any{
		"drop_id": p.DropID,
		"from":    ctx.Tx.From,
		"to":      p.NewAuthority,
	})
	return nil
}

// handleWithdrawDrop moves the drop's proceeds to the artist's account.
func handleWithdrawDrop(ctx *vm.Context, payload json.RawMessage) error {
	var p core.WithdrawDropPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode withdraw_drop payload: %w", err)
	}
	eng, err := loadEngine(ctx, p.DropID)
	if err != nil {
		return err
	}
	amount, err := eng.Withdraw(ctx.Tx.From)
	if err != nil {
		return err
	}
	d := eng.Drop()
	artist, err := ctx.State.GetAccount(d.Artist)
	if err != nil {
		return err
	}
	artist.Balance += amount
	if err := ctx.State.SetAccount(artist); err != nil {
		return err
	}
	if err := ctx.State.SetDrop(d); err != nil {
		return err
	}
	ctx.Emit(events.EventDropWithdraw, map[string]any{
		"drop_id": p.DropID,
		"artist":  d.Artist,
		"amount":  amount,
	})
	return nil
}
