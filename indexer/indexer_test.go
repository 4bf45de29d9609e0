package indexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/dropchain/events"
	"github.com/tolelom/dropchain/indexer"
	"github.com/tolelom/dropchain/internal/testutil"
)

func TestTokensByOwner(t *testing.T) {
	emitter := events.NewEmitter()
	idx := indexer.New(testutil.NewMemDB(), emitter)

	for _, id := range []uint64{4, 9} {
		emitter.Emit(events.Event{Type: events.EventEditionTransfer, Data: map[string]any{
			"drop_id": "d1", "from": "", "to": "alice", "token_id": id,
		}})
	}
	emitter.Emit(events.Event{Type: events.EventEditionTransfer, Data: map[string]any{
		"drop_id": "d2", "from": "", "to": "bob", "token_id": uint64(1),
	}})
	// Malformed events are ignored.
	emitter.Emit(events.Event{Type: events.EventEditionTransfer, Data: map[string]any{
		"drop_id": "d2", "to": "alice", "token_id": "one",
	}})

	refs, err := idx.GetTokensByOwner("alice")
	require.NoError(t, err)
	assert.Equal(t, []indexer.TokenRef{{DropID: "d1", TokenID: 4}, {DropID: "d1", TokenID: 9}}, refs)

	refs, err = idx.GetTokensByOwner("carol")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestDropsByArtist(t *testing.T) {
	emitter := events.NewEmitter()
	idx := indexer.New(testutil.NewMemDB(), emitter)

	emitter.Emit(events.Event{Type: events.EventDropCreated, Data: map[string]any{"drop_id": "d1", "artist": "ana"}})
	emitter.Emit(events.Event{Type: events.EventDropCreated, Data: map[string]any{"drop_id": "d2", "artist": "ana"}})
	emitter.Emit(events.Event{Type: events.EventDropCreated, Data: map[string]any{"drop_id": "d3", "artist": "ben"}})

	ids, err := idx.GetDropsByArtist("ana")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, ids)
}
