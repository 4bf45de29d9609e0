package drop

import "fmt"

// Tier controls who may mint from a drop.
type Tier uint8

const (
	TierOwnerOnly Tier = iota
	TierAllowListOnly
	TierPublic
)

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	return t <= TierPublic
}

func (t Tier) String() string {
	switch t {
	case TierOwnerOnly:
		return "owner_only"
	case TierAllowListOnly:
		return "allow_list_only"
	case TierPublic:
		return "public"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// Strategy selects how unit identifiers are assigned. Fixed at creation.
type Strategy string

const (
	StrategySequential Strategy = "sequential"
	StrategyRandomized Strategy = "randomized"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategySequential || s == StrategyRandomized
}
