package drop

// Allocator assigns the next unit identifier and advances TotalMinted.
// Callers check Remaining() > 0 beforehand; Next never fails.
type Allocator interface {
	Next(d *Drop) uint64
}

// Sequential hands out identifiers in increasing order. On a randomized drop
// that had random mints before the toggle was switched off it returns the
// lowest identifier still unassigned.
type Sequential struct{}

func (Sequential) Next(d *Drop) uint64 {
	var id uint64
	if d.Pool != nil {
		id = d.Pool.takeLowest(d.Remaining())
	} else {
		id = d.TotalMinted + 1
	}
	d.TotalMinted++
	return id
}

// Randomized draws uniformly from the identifiers not yet assigned.
//
// The draw is only as unpredictable as its EntropySource. The chain source is
// derived from block and transaction context, which anyone who orders
// transactions can observe and influence; do not rely on it where the
// outcome must resist such a party.
type Randomized struct {
	Entropy EntropySource
}

func (r Randomized) Next(d *Drop) uint64 {
	if d.Pool == nil {
		d.Pool = NewPool()
	}
	remaining := d.Remaining()
	id := d.Pool.take(r.Entropy.Draw(remaining), remaining)
	d.TotalMinted++
	return id
}

// Pool is a sparse Fisher-Yates table over {1..EditionSize}. Slot i holds
// i+1 unless overridden in Slots; the first `remaining` slots are the
// unassigned identifiers. Positions is the inverse mapping. An identifier
// whose position is at or past `remaining` has been assigned.
type Pool struct {
	Slots     map[uint64]uint64 `json:"slots"`
	Positions map[uint64]uint64 `json:"positions"`
	Cursor    uint64            `json:"cursor"` // every id <= Cursor is assigned
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		Slots:     make(map[uint64]uint64),
		Positions: make(map[uint64]uint64),
	}
}

func (p *Pool) slot(i uint64) uint64 {
	if id, ok := p.Slots[i]; ok {
		return id
	}
	return i + 1
}

func (p *Pool) position(id uint64) uint64 {
	if pos, ok := p.Positions[id]; ok {
		return pos
	}
	return id - 1
}

// Assigned reports whether id has been handed out.
func (p *Pool) Assigned(id, remaining uint64) bool {
	return p.position(id) >= remaining
}

// take removes the identifier at slot i by moving the last unassigned one
// into its place.
func (p *Pool) take(i, remaining uint64) uint64 {
	if p.Slots == nil {
		p.Slots = make(map[uint64]uint64)
	}
	if p.Positions == nil {
		p.Positions = make(map[uint64]uint64)
	}
	id := p.slot(i)
	last := remaining - 1
	if i != last {
		moved := p.slot(last)
		p.Slots[i] = moved
		p.Positions[moved] = i
	}
	delete(p.Slots, last)
	p.Positions[id] = last
	return id
}

func (p *Pool) takeLowest(remaining uint64) uint64 {
	id := p.Cursor + 1
	for p.Assigned(id, remaining) {
		id++
	}
	p.Cursor = id
	return p.take(p.position(id), remaining)
}
