package events

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "events")

// EventType labels what happened.
type EventType string

const (
	EventBlockCommit      EventType = "block_commit"
	EventTxExecuted       EventType = "tx_executed"
	EventTokenTransfer    EventType = "token_transfer"
	EventDropCreated      EventType = "drop_created"
	EventAccessTierSet    EventType = "access_tier_set"
	EventAllowListSet     EventType = "allow_list_set"
	EventPricingSet       EventType = "pricing_set"
	EventRandomMintSet    EventType = "random_mint_set"
	EventAuthorityChanged EventType = "authority_changed"
	EventEditionTransfer  EventType = "edition_transfer"
	EventEditionSold      EventType = "edition_sold"
	EventDropWithdraw     EventType = "drop_withdraw"
)

// Event carries a typed payload emitted after a state change.
type Event struct {
	Type        EventType      `json:"type"`
	TxID        string         `json:"tx_id"`
	BlockHeight int64          `json:"block_height"`
	Data        map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// Emit delivers ev to all subscribers for ev.Type synchronously.
// A panicking subscriber is logged and skipped.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := e.handlers[ev.Type]
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(logrus.Fields{"event": ev.Type, "tx": ev.TxID}).
						Errorf("handler panicked: %v", r)
				}
			}()
			h(ev)
		}()
	}
}
