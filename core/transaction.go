package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tolelom/dropchain/crypto"
)

// TxType identifies the kind of operation a transaction performs.
type TxType string

const (
	TxTransfer              TxType = "transfer"
	TxCreateDrop            TxType = "create_drop"
	TxSetAccessTier         TxType = "set_access_tier"
	TxSetAllowList          TxType = "set_allow_list"
	TxSetPricing            TxType = "set_pricing"
	TxSetRandomMint         TxType = "set_random_mint"
	TxTransferDropAuthority TxType = "transfer_drop_authority"
	TxMintEdition           TxType = "mint_edition"
	TxMintEditions          TxType = "mint_editions"
	TxWithdrawDrop          TxType = "withdraw_drop"
)

// Payable reports whether a transaction of this type may carry a Value.
func (t TxType) Payable() bool {
	return t == TxMintEdition || t == TxMintEditions
}

// Transaction is the atomic unit of work on the chain.
// From holds the sender's full hex-encoded ed25519 public key (64 chars).
// Value is the payment attached to a mint. Signature covers all fields
// except ID and Signature.
type Transaction struct {
	ID        string          `json:"id"`
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"` // hex-encoded ed25519 public key
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Value     uint64          `json:"value"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// signingBody holds the fields that are covered by the signature.
type signingBody struct {
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Value     uint64          `json:"value"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Hash returns a deterministic hash of the transaction (sans Signature).
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (tx *Transaction) Hash() string {
	body := signingBody{
		ChainID:   tx.ChainID,
		Type:      tx.Type,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Fee:       tx.Fee,
		Value:     tx.Value,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign computes the signature and sets ID.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	hash := tx.Hash()
	tx.Signature = crypto.Sign(priv, []byte(hash))
	tx.ID = hash
}

// Verify checks the signature and that From is a valid public key.
func (tx *Transaction) Verify() error {
	if tx.From == "" {
		return errors.New("missing from field")
	}
	pub, err := crypto.PubKeyFromHex(tx.From)
	if err != nil {
		return fmt.Errorf("invalid from (must be ed25519 pubkey hex): %w", err)
	}
	return crypto.Verify(pub, []byte(tx.Hash()), tx.Signature)
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(chainID string, typ TxType, from string, nonce, fee, value uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Transaction{
		ChainID:   chainID,
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Fee:       fee,
		Value:     value,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// TransferPayload transfers native tokens.
type TransferPayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// CreateDropPayload asks the factory for a new drop. The sender becomes the
// drop's authority. Randomized selects the randomized-capable engine.
type CreateDropPayload struct {
	Artist      string `json:"artist"` // pubkey hex
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	BaseURI     string `json:"base_uri"`
	EditionSize uint64 `json:"edition_size"`
	RoyaltyBPS  uint64 `json:"royalty_bps"`
	Randomized  bool   `json:"randomized"`
}

// SetAccessTierPayload: 0 owner only, 1 allow-list only, 2 public.
type SetAccessTierPayload struct {
	DropID string `json:"drop_id"`
	Tier   uint8  `json:"tier"`
}

// SetAllowListPayload sets membership flags on one allow-list.
type SetAllowListPayload struct {
	DropID    string   `json:"drop_id"`
	ListID    uint64   `json:"list_id"`
	Addresses []string `json:"addresses"`
	Included  []bool   `json:"included"`
}

// SetPricingPayload replaces a drop's pricing policy.
type SetPricingPayload struct {
	DropID         string `json:"drop_id"`
	EditionSize    uint64 `json:"edition_size"`
	RoyaltyBPS     uint64 `json:"royalty_bps"`
	AllowListPrice uint64 `json:"allow_list_price"`
	PublicPrice    uint64 `json:"public_price"`
	AllowListLimit uint64 `json:"allow_list_limit"`
	GeneralLimit   uint64 `json:"general_limit"`
}

// SetRandomMintPayload toggles random allocation on a drop.
type SetRandomMintPayload struct {
	DropID  string `json:"drop_id"`
	Enabled bool   `json:"enabled"`
}

// TransferDropAuthorityPayload hands control of a drop to NewAuthority.
type TransferDropAuthorityPayload struct {
	DropID       string `json:"drop_id"`
	NewAuthority string `json:"new_authority"` // pubkey hex
}

// MintEditionPayload mints one unit to Recipient (sender when empty).
type MintEditionPayload struct {
	DropID    string `json:"drop_id"`
	Recipient string `json:"recipient"`
}

// MintEditionsPayload mints one unit to each recipient.
type MintEditionsPayload struct {
	DropID     string   `json:"drop_id"`
	Recipients []string `json:"recipients"`
}

// WithdrawDropPayload pays a drop's proceeds out to its artist.
type WithdrawDropPayload struct {
	DropID string `json:"drop_id"`
}
