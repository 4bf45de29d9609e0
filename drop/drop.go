// Package drop implements limited-edition drops: the tiered minting engine,
// its allow-list registry, pricing policy and identifier allocators, and the
// factory that creates and indexes drops.
package drop

import (
	"strconv"
	"strings"
)

// Drop is one limited-edition inventory. Authority is the single identity
// allowed to change administrative state; Artist is the payee for proceeds.
type Drop struct {
	ID        string `json:"id"`
	Index     uint64 `json:"index"`
	Authority string `json:"authority"` // pubkey hex
	Artist    string `json:"artist"`    // pubkey hex
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	BaseURI   string `json:"base_uri"`

	Strategy          Strategy `json:"strategy"`
	RandomMintEnabled bool     `json:"random_mint_enabled"`
	AccessTier        Tier     `json:"access_tier"`
	Pricing           Pricing  `json:"pricing"`

	TotalMinted uint64 `json:"total_minted"`
	Balance     uint64 `json:"balance"` // proceeds held until withdrawn

	AllowLists      AllowList         `json:"allow_lists"`
	AllowListMinted map[string]uint64 `json:"allow_list_minted"`
	PublicMinted    map[string]uint64 `json:"public_minted"`

	// Pool tracks the unassigned identifiers of a randomized drop.
	Pool *Pool `json:"pool,omitempty"`

	CreatedAt int64 `json:"created_at"`
}

// Remaining returns how many units can still be minted.
func (d *Drop) Remaining() uint64 {
	return d.Pricing.EditionSize - d.TotalMinted
}

// MintedBy returns how many units addr has minted under tier.
func (d *Drop) MintedBy(addr string, t Tier) uint64 {
	switch t {
	case TierAllowListOnly:
		return d.AllowListMinted[addr]
	case TierPublic:
		return d.PublicMinted[addr]
	default:
		return 0
	}
}

func (d *Drop) addMinted(addr string, t Tier, q uint64) {
	switch t {
	case TierAllowListOnly:
		if d.AllowListMinted == nil {
			d.AllowListMinted = make(map[string]uint64)
		}
		d.AllowListMinted[addr] += q
	case TierPublic:
		if d.PublicMinted == nil {
			d.PublicMinted = make(map[string]uint64)
		}
		d.PublicMinted[addr] += q
	}
}

// TokenURI expands the base URI for unit id. A "{id}" placeholder is
// substituted; otherwise the id is appended.
func (d *Drop) TokenURI(id uint64) string {
	s := strconv.FormatUint(id, 10)
	if strings.Contains(d.BaseURI, "{id}") {
		return strings.Replace(d.BaseURI, "{id}", s, 1)
	}
	return d.BaseURI + s
}
