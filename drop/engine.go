package drop

import (
	"errors"
	"fmt"
)

// MintRequest is one mint attempt. Payment is the amount the caller attached.
type MintRequest struct {
	Caller     string
	Recipients []string
	Payment    uint64
}

// MintReceipt describes a successful mint. IDs[i] was minted to Recipients[i].
type MintReceipt struct {
	Tier       Tier     `json:"tier"`
	IDs        []uint64 `json:"ids"`
	Recipients []string `json:"recipients"`
	Cost       uint64   `json:"cost"`
	Refund     uint64   `json:"refund"`
}

// Engine applies the access gate, pricing policy and allocator to a drop.
// Every method validates before it writes, so a returned error means the
// drop was not modified.
type Engine struct {
	drop    *Drop
	entropy EntropySource
}

// NewEngine wraps d. entropy may be nil for read-only use and for drops that
// never allocate randomly.
func NewEngine(d *Drop, entropy EntropySource) *Engine {
	return &Engine{drop: d, entropy: entropy}
}

// Drop returns the underlying record.
func (e *Engine) Drop() *Drop { return e.drop }

func (e *Engine) authorize(caller string) error {
	if caller == "" || caller != e.drop.Authority {
		return fmt.Errorf("%w: %s", ErrAuthorization, caller)
	}
	return nil
}

// SetAccessTier changes who may mint.
func (e *Engine) SetAccessTier(caller string, t Tier) error {
	if err := e.authorize(caller); err != nil {
		return err
	}
	if !t.Valid() {
		return fmt.Errorf("%w: unknown tier %d", ErrInvalidArgument, uint8(t))
	}
	e.drop.AccessTier = t
	return nil
}

// SetAllowListMembers writes a batch of membership flags to list listID.
func (e *Engine) SetAllowListMembers(caller string, listID uint64, addresses []string, flags []bool) error {
	if err := e.authorize(caller); err != nil {
		return err
	}
	if e.drop.AllowLists == nil {
		e.drop.AllowLists = make(AllowList)
	}
	return e.drop.AllowLists.SetMembers(listID, addresses, flags)
}

// SetPricing replaces the pricing policy. The edition size is frozen once
// the first unit is minted and may never be zero.
func (e *Engine) SetPricing(caller string, p Pricing) error {
	if err := e.authorize(caller); err != nil {
		return err
	}
	if err := p.validate(); err != nil {
		return err
	}
	if e.drop.TotalMinted > 0 && p.EditionSize != e.drop.Pricing.EditionSize {
		return fmt.Errorf("%w: edition size is fixed at %d once minting has started",
			ErrInvalidArgument, e.drop.Pricing.EditionSize)
	}
	e.drop.Pricing = p
	return nil
}

// SetRandomMintEnabled toggles random allocation. Only randomized drops can
// turn it on.
func (e *Engine) SetRandomMintEnabled(caller string, enabled bool) error {
	if err := e.authorize(caller); err != nil {
		return err
	}
	if enabled && e.drop.Strategy != StrategyRandomized {
		return fmt.Errorf("%w: drop %s only supports sequential minting", ErrInvalidArgument, e.drop.ID)
	}
	e.drop.RandomMintEnabled = enabled
	return nil
}

// TransferAuthority hands administrative control to next.
func (e *Engine) TransferAuthority(caller, next string) error {
	if err := e.authorize(caller); err != nil {
		return err
	}
	if next == "" {
		return fmt.Errorf("%w: new authority required", ErrInvalidArgument)
	}
	e.drop.Authority = next
	return nil
}

// Withdraw empties the proceeds balance and returns the amount, which the
// caller pays out to the artist.
func (e *Engine) Withdraw(caller string) (uint64, error) {
	if err := e.authorize(caller); err != nil {
		return 0, err
	}
	if e.drop.Balance == 0 {
		return 0, fmt.Errorf("%w: nothing to withdraw", ErrInvalidArgument)
	}
	amount := e.drop.Balance
	e.drop.Balance = 0
	return amount, nil
}

// gate evaluates the access tier for caller.
func (e *Engine) gate(caller string) error {
	d := e.drop
	if caller == d.Authority {
		return nil
	}
	switch d.AccessTier {
	case TierAllowListOnly:
		if d.AllowLists.IsMember(DefaultAllowList, caller) {
			return nil
		}
	case TierPublic:
		return nil
	}
	return ErrAccessGate
}

// Mint mints one unit per recipient.
//
// The authority skips the tier gate and the per-caller limit but still pays
// the current tier's price (zero under OwnerOnly) and is bound by supply.
func (e *Engine) Mint(req MintRequest) (*MintReceipt, error) {
	d := e.drop
	if err := e.gate(req.Caller); err != nil {
		return nil, err
	}

	q := uint64(len(req.Recipients))
	if q == 0 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", ErrInvalidArgument)
	}
	for i, r := range req.Recipients {
		if r == "" {
			return nil, fmt.Errorf("%w: empty recipient at position %d", ErrInvalidArgument, i)
		}
	}
	if q > d.Remaining() {
		return nil, fmt.Errorf("%w: requested %d, %d left", ErrSupplyExhausted, q, d.Remaining())
	}

	tier := d.AccessTier
	isAuthority := req.Caller == d.Authority
	if !isAuthority {
		limit := d.Pricing.Limit(tier)
		already := d.MintedBy(req.Caller, tier)
		if q > limit || already > limit-q {
			return nil, fmt.Errorf("%w: %d already minted, %d requested, limit %d",
				ErrQuantityLimit, already, q, limit)
		}
	}

	cost, err := d.Pricing.Cost(tier, q)
	if err != nil {
		return nil, err
	}
	if req.Payment < cost {
		return nil, fmt.Errorf("%w: have %d need %d", ErrInsufficientPayment, req.Payment, cost)
	}

	alloc, err := e.allocator()
	if err != nil {
		return nil, err
	}

	// All checks passed; from here on nothing can fail.
	ids := make([]uint64, q)
	for i := range ids {
		ids[i] = alloc.Next(d)
	}
	if !isAuthority {
		d.addMinted(req.Caller, tier, q)
	}
	d.Balance += cost

	recipients := make([]string, len(req.Recipients))
	copy(recipients, req.Recipients)
	return &MintReceipt{
		Tier:       tier,
		IDs:        ids,
		Recipients: recipients,
		Cost:       cost,
		Refund:     req.Payment - cost,
	}, nil
}

func (e *Engine) allocator() (Allocator, error) {
	if e.drop.Strategy == StrategyRandomized && e.drop.RandomMintEnabled {
		if e.entropy == nil {
			return nil, errors.New("random mint requires an entropy source")
		}
		return Randomized{Entropy: e.entropy}, nil
	}
	return Sequential{}, nil
}

// TotalMinted returns the number of units minted so far.
func (e *Engine) TotalMinted() uint64 { return e.drop.TotalMinted }

// MintLimit returns EditionSize - TotalMinted for any addr. Despite the name
// this is the drop's remaining supply, not addr's personal allowance; the
// figure is kept as is because clients already read it that way.
func (e *Engine) MintLimit(addr string) uint64 { return e.drop.Remaining() }

// AllowListMintLimit returns the per-caller ceiling for the allow-list tier.
func (e *Engine) AllowListMintLimit() uint64 { return e.drop.Pricing.AllowListLimit }

// GeneralMintLimit returns the per-caller ceiling for the public tier.
func (e *Engine) GeneralMintLimit() uint64 { return e.drop.Pricing.PublicLimit }

// IsRandomMint reports whether the next mint allocates randomly.
func (e *Engine) IsRandomMint() bool {
	return e.drop.Strategy == StrategyRandomized && e.drop.RandomMintEnabled
}
