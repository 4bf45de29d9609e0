// Package indexer maintains secondary indexes over committed transactions so
// clients can look up editions by owner and drops by artist without scanning
// full state.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/events"
	"github.com/tolelom/dropchain/storage"
)

var log = logrus.WithField("component", "indexer")

const (
	prefixOwnerTokens = "idx:owner:token:"
	prefixArtistDrops = "idx:artist:drop:"
)

// TokenRef names one unit of one drop.
type TokenRef struct {
	DropID  string `json:"drop_id"`
	TokenID uint64 `json:"token_id"`
}

// Indexer subscribes to chain events and updates secondary lookup tables.
type Indexer struct {
	db storage.DB
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db}
	emitter.Subscribe(events.EventEditionTransfer, idx.onEditionTransfer)
	emitter.Subscribe(events.EventDropCreated, idx.onDropCreated)
	return idx
}

// GetTokensByOwner returns every edition held by the given pubkey.
func (idx *Indexer) GetTokensByOwner(owner string) ([]TokenRef, error) {
	var refs []TokenRef
	if err := idx.getList(prefixOwnerTokens+owner, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// GetDropsByArtist returns the IDs of every drop naming artist as payee.
func (idx *Indexer) GetDropsByArtist(artist string) ([]string, error) {
	var ids []string
	if err := idx.getList(prefixArtistDrops+artist, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ---- event handlers ----

func (idx *Indexer) onEditionTransfer(ev events.Event) {
	to, _ := ev.Data["to"].(string)
	dropID, _ := ev.Data["drop_id"].(string)
	tokenID, ok := ev.Data["token_id"].(uint64)
	if to == "" || dropID == "" || !ok {
		return
	}
	var refs []TokenRef
	if err := idx.getList(prefixOwnerTokens+to, &refs); err != nil {
		log.WithError(err).Warn("read owner index")
		return
	}
	refs = append(refs, TokenRef{DropID: dropID, TokenID: tokenID})
	if err := idx.putList(prefixOwnerTokens+to, refs); err != nil {
		log.WithError(err).Warn("write owner index")
	}
}

func (idx *Indexer) onDropCreated(ev events.Event) {
	artist, _ := ev.Data["artist"].(string)
	dropID, _ := ev.Data["drop_id"].(string)
	if artist == "" || dropID == "" {
		return
	}
	var ids []string
	if err := idx.getList(prefixArtistDrops+artist, &ids); err != nil {
		log.WithError(err).Warn("read artist index")
		return
	}
	ids = append(ids, dropID)
	if err := idx.putList(prefixArtistDrops+artist, ids); err != nil {
		log.WithError(err).Warn("write artist index")
	}
}

// ---- list helpers ----

func (idx *Indexer) getList(key string, out any) error {
	data, err := idx.db.Get([]byte(key))
	if errors.Is(err, core.ErrNotFound) {
		return nil // empty list
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("indexer unmarshal: %w", err)
	}
	return nil
}

func (idx *Indexer) putList(key string, list any) error {
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
