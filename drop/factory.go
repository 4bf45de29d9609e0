package drop

import (
	"fmt"

	"github.com/tolelom/dropchain/crypto"
)

// Store persists drops and the factory's creation-ordered index.
type Store interface {
	GetDrop(id string) (*Drop, error)
	SetDrop(d *Drop) error
	// DropCount returns the number of drops created so far.
	DropCount() (uint64, error)
	// DropAtIndex returns the ID of the i-th created drop.
	DropAtIndex(i uint64) (string, error)
	// AppendDrop adds id to the end of the index and returns its position.
	AppendDrop(id string) (uint64, error)
}

// CreateParams are the immutable fields of a new drop. Salt makes the drop
// ID unique; the ledger passes the creating transaction's ID.
type CreateParams struct {
	Authority   string
	Artist      string
	Name        string
	Symbol      string
	BaseURI     string
	EditionSize uint64
	RoyaltyBPS  uint64
	Strategy    Strategy
	Salt        string
	CreatedAt   int64
}

// Factory creates drops and indexes them in creation order.
type Factory struct {
	store Store
}

// NewFactory returns a Factory over store.
func NewFactory(store Store) *Factory {
	return &Factory{store: store}
}

// CreateDrop instantiates a drop with AccessTier OwnerOnly and appends it to
// the index. Randomized drops start with random minting enabled.
func (f *Factory) CreateDrop(p CreateParams) (*Drop, error) {
	if p.EditionSize == 0 {
		return nil, fmt.Errorf("%w: edition size must be > 0", ErrInvalidArgument)
	}
	if p.Artist == "" {
		return nil, fmt.Errorf("%w: artist required", ErrInvalidArgument)
	}
	if p.Authority == "" {
		return nil, fmt.Errorf("%w: authority required", ErrInvalidArgument)
	}
	if p.Strategy == "" {
		p.Strategy = StrategySequential
	}
	if !p.Strategy.Valid() {
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidArgument, p.Strategy)
	}
	pricing := Pricing{EditionSize: p.EditionSize, RoyaltyBPS: p.RoyaltyBPS}
	if err := pricing.validate(); err != nil {
		return nil, err
	}

	index, err := f.store.DropCount()
	if err != nil {
		return nil, fmt.Errorf("drop count: %w", err)
	}

	d := &Drop{
		ID:              crypto.Hash([]byte(fmt.Sprintf("%s:drop:%d", p.Salt, index))),
		Index:           index,
		Authority:       p.Authority,
		Artist:          p.Artist,
		Name:            p.Name,
		Symbol:          p.Symbol,
		BaseURI:         p.BaseURI,
		Strategy:        p.Strategy,
		AccessTier:      TierOwnerOnly,
		Pricing:         pricing,
		AllowLists:      make(AllowList),
		AllowListMinted: make(map[string]uint64),
		PublicMinted:    make(map[string]uint64),
		CreatedAt:       p.CreatedAt,
	}
	if p.Strategy == StrategyRandomized {
		d.RandomMintEnabled = true
		d.Pool = NewPool()
	}

	if err := f.store.SetDrop(d); err != nil {
		return nil, err
	}
	got, err := f.store.AppendDrop(d.ID)
	if err != nil {
		return nil, fmt.Errorf("index drop: %w", err)
	}
	if got != index {
		return nil, fmt.Errorf("drop index mismatch: got %d want %d", got, index)
	}
	return d, nil
}

// GetDropAtIndex returns the ID of the drop created i-th (0-based).
func (f *Factory) GetDropAtIndex(i uint64) (string, error) {
	return f.store.DropAtIndex(i)
}

// DropCount returns how many drops exist.
func (f *Factory) DropCount() (uint64, error) {
	return f.store.DropCount()
}

// Open loads drop id and wraps it in an Engine.
func (f *Factory) Open(id string, entropy EntropySource) (*Engine, error) {
	d, err := f.store.GetDrop(id)
	if err != nil {
		return nil, err
	}
	return NewEngine(d, entropy), nil
}
