package core

import "github.com/tolelom/dropchain/drop"

// Account holds a participant's token balance and replay-protection nonce.
// Address is the hex-encoded ed25519 public key.
type Account struct {
	Address string `json:"address"` // pubkey hex
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// Token is the ownership record of one minted unit of a drop.
type Token struct {
	DropID   string `json:"drop_id"`
	ID       uint64 `json:"id"`
	Owner    string `json:"owner"` // pubkey hex
	MintedAt int64  `json:"minted_at"`
}

// State is the full ledger state interface. Implementations must be
// snapshot-able so the executor can roll back failed transactions.
type State interface {
	// Accounts
	GetAccount(address string) (*Account, error)
	SetAccount(account *Account) error

	// Drops and the factory index
	drop.Store

	// Tokens
	GetToken(dropID string, id uint64) (*Token, error)
	SetToken(t *Token) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// DiscardSnapshot forgets snapshot id and later ones, keeping all writes.
	DiscardSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing. Call this before signing a block.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	// Always call ComputeRoot() first to obtain the root for the block header.
	Commit() error
}
