package wallet

import (
	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/crypto"
)

// Wallet holds a key pair and provides transaction-building helpers.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex-encoded ed25519 public key (used as "from" address).
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// Address returns the short human-readable address (first 20 bytes of SHA-256(pubkey)).
func (w *Wallet) Address() string {
	return w.pub.Address()
}

// NewTx creates a signed transaction. chainID must match the target network
// and nonce the account's current nonce. value is only accepted by mints.
func (w *Wallet) NewTx(chainID string, typ core.TxType, nonce, fee, value uint64, payload any) (*core.Transaction, error) {
	tx, err := core.NewTransaction(chainID, typ, w.pub.Hex(), nonce, fee, value, payload)
	if err != nil {
		return nil, err
	}
	tx.Sign(w.priv)
	return tx, nil
}

// Transfer creates a signed transfer transaction.
func (w *Wallet) Transfer(chainID, to string, amount, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxTransfer, nonce, fee, 0, core.TransferPayload{
		To:     to,
		Amount: amount,
	})
}

// CreateDrop creates a signed create_drop transaction; the wallet becomes
// the drop's authority.
func (w *Wallet) CreateDrop(chainID string, p core.CreateDropPayload, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxCreateDrop, nonce, fee, 0, p)
}

// SetAccessTier creates a signed set_access_tier transaction.
func (w *Wallet) SetAccessTier(chainID, dropID string, tier uint8, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxSetAccessTier, nonce, fee, 0, core.SetAccessTierPayload{
		DropID: dropID,
		Tier:   tier,
	})
}

// SetAllowListMembers creates a signed set_allow_list transaction.
func (w *Wallet) SetAllowListMembers(chainID, dropID string, listID uint64, addresses []string, included []bool, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxSetAllowList, nonce, fee, 0, core.SetAllowListPayload{
		DropID:    dropID,
		ListID:    listID,
		Addresses: addresses,
		Included:  included,
	})
}

// SetPricing creates a signed set_pricing transaction.
func (w *Wallet) SetPricing(chainID string, p core.SetPricingPayload, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxSetPricing, nonce, fee, 0, p)
}

// SetRandomMint creates a signed set_random_mint transaction.
func (w *Wallet) SetRandomMint(chainID, dropID string, enabled bool, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxSetRandomMint, nonce, fee, 0, core.SetRandomMintPayload{
		DropID:  dropID,
		Enabled: enabled,
	})
}

// MintEdition creates a signed mint_edition transaction paying value.
func (w *Wallet) MintEdition(chainID, dropID, recipient string, value, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxMintEdition, nonce, fee, value, core.MintEditionPayload{
		DropID:    dropID,
		Recipient: recipient,
	})
}

// MintEditions creates a signed mint_editions transaction paying value.
func (w *Wallet) MintEditions(chainID, dropID string, recipients []string, value, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxMintEditions, nonce, fee, value, core.MintEditionsPayload{
		DropID:     dropID,
		Recipients: recipients,
	})
}

// WithdrawDrop creates a signed withdraw_drop transaction.
func (w *Wallet) WithdrawDrop(chainID, dropID string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxWithdrawDrop, nonce, fee, 0, core.WithdrawDropPayload{DropID: dropID})
}

// TransferDropAuthority creates a signed transfer_drop_authority transaction.
func (w *Wallet) TransferDropAuthority(chainID, dropID, newAuthority string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxTransferDropAuthority, nonce, fee, 0, core.TransferDropAuthorityPayload{
		DropID:       dropID,
		NewAuthority: newAuthority,
	})
}
