package drop

import (
	"fmt"
	"math/bits"
)

// MaxRoyaltyBPS is 100% expressed in basis points.
const MaxRoyaltyBPS = 10_000

// Pricing is the per-drop price and quantity policy.
// RoyaltyBPS is informational; settlement happens outside the ledger.
type Pricing struct {
	EditionSize    uint64 `json:"edition_size"`
	RoyaltyBPS     uint64 `json:"royalty_bps"`
	AllowListPrice uint64 `json:"allow_list_price"`
	PublicPrice    uint64 `json:"public_price"`
	AllowListLimit uint64 `json:"allow_list_limit"`
	PublicLimit    uint64 `json:"public_limit"`
}

// UnitPrice returns the price of one unit under tier. OwnerOnly is free
// since only the authority can mint there.
func (p Pricing) UnitPrice(t Tier) uint64 {
	switch t {
	case TierAllowListOnly:
		return p.AllowListPrice
	case TierPublic:
		return p.PublicPrice
	default:
		return 0
	}
}

// Limit returns the per-caller cumulative quantity ceiling under tier.
func (p Pricing) Limit(t Tier) uint64 {
	switch t {
	case TierAllowListOnly:
		return p.AllowListLimit
	case TierPublic:
		return p.PublicLimit
	default:
		return 0
	}
}

// Cost returns q units at the tier's unit price, rejecting overflow.
func (p Pricing) Cost(t Tier, q uint64) (uint64, error) {
	hi, lo := bits.Mul64(q, p.UnitPrice(t))
	if hi != 0 {
		return 0, fmt.Errorf("%w: cost of %d units overflows", ErrInvalidArgument, q)
	}
	return lo, nil
}

func (p Pricing) validate() error {
	if p.EditionSize == 0 {
		return fmt.Errorf("%w: edition size must be > 0", ErrInvalidArgument)
	}
	if p.RoyaltyBPS > MaxRoyaltyBPS {
		return fmt.Errorf("%w: royalty %d bps exceeds %d", ErrInvalidArgument, p.RoyaltyBPS, MaxRoyaltyBPS)
	}
	return nil
}
