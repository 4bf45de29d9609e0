package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/crypto"
	"github.com/tolelom/dropchain/drop"
)

// registerPrefix records a state-key prefix into statePrefixes so that
// ComputeRoot() always covers it.  All prefix constants must be declared
// via this function; manually editing statePrefixes is not required.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

// statePrefixes is populated automatically by registerPrefix() below.
// ComputeRoot() iterates these prefixes to build the full world-state view.
var statePrefixes []string

var (
	prefixAccount   = registerPrefix("acct:")
	prefixDrop      = registerPrefix("drop:")
	prefixDropIndex = registerPrefix("dropidx:")
	prefixDropMeta  = registerPrefix("dropmeta:")
	prefixToken     = registerPrefix("token:")
)

var keyDropCount = prefixDropMeta + "count"

// StateDB implements core.State on top of a DB with an in-memory write
// buffer, snapshot/rollback, and deterministic state-root computation.
// Ledger state is append/overwrite only, so the buffer never records deletes.
// It is safe for concurrent use; block production is the only writer.
type StateDB struct {
	mu        sync.RWMutex
	db        DB
	dirty     map[string][]byte
	snapshots []map[string][]byte
	readOnly  bool
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{
		db:    db,
		dirty: make(map[string][]byte),
	}
}

// Committed returns a view that reads only what has been flushed to the
// underlying DB. Queries served from it never observe a block that is still
// being produced. Writes to the view stay in its own buffer and Commit fails.
func (s *StateDB) Committed() *StateDB {
	v := NewStateDB(s.db)
	v.readOnly = true
	return v
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	s.mu.RLock()
	v, ok := s.dirty[key]
	s.mu.RUnlock()
	if ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) set(key string, val []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[key] = val
}

func copyBuffer(src map[string][]byte) map[string][]byte {
	dst := make(map[string][]byte, len(src))
	for k, v := range src {
		cp := make([]byte, len(v))
		copy(cp, v)
		dst[k] = cp
	}
	return dst
}

// ---- Account ----

func (s *StateDB) GetAccount(address string) (*core.Account, error) {
	data, err := s.get(prefixAccount + address)
	if errors.Is(err, core.ErrNotFound) {
		return &core.Account{Address: address}, nil // zero-value account
	}
	if err != nil {
		return nil, err
	}
	var acc core.Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *StateDB) SetAccount(acc *core.Account) error {
	data, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	s.set(prefixAccount+acc.Address, data)
	return nil
}

// ---- Drop ----

func (s *StateDB) GetDrop(id string) (*drop.Drop, error) {
	data, err := s.get(prefixDrop + id)
	if err != nil {
		return nil, err
	}
	var d drop.Drop
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *StateDB) SetDrop(d *drop.Drop) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	s.set(prefixDrop+d.ID, data)
	return nil
}

// ---- Factory index ----

func dropIndexKey(i uint64) string {
	// Zero-padded so the index iterates in creation order.
	return fmt.Sprintf("%s%020d", prefixDropIndex, i)
}

func (s *StateDB) DropCount() (uint64, error) {
	data, err := s.get(keyDropCount)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(data), 10, 64)
}

func (s *StateDB) DropAtIndex(i uint64) (string, error) {
	data, err := s.get(dropIndexKey(i))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *StateDB) AppendDrop(id string) (uint64, error) {
	n, err := s.DropCount()
	if err != nil {
		return 0, err
	}
	s.set(dropIndexKey(n), []byte(id))
	s.set(keyDropCount, []byte(strconv.FormatUint(n+1, 10)))
	return n, nil
}

// ---- Token ----

func tokenKey(dropID string, id uint64) string {
	return fmt.Sprintf("%s%s:%020d", prefixToken, dropID, id)
}

func (s *StateDB) GetToken(dropID string, id uint64) (*core.Token, error) {
	data, err := s.get(tokenKey(dropID, id))
	if err != nil {
		return nil, err
	}
	var t core.Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *StateDB) SetToken(t *core.Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	s.set(tokenKey(t.DropID, t.ID), data)
	return nil
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves the current write buffer and returns a snapshot ID.
func (s *StateDB) Snapshot() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, copyBuffer(s.dirty))
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot restores the write buffer to a previously saved snapshot
// and discards it together with every later one.
func (s *StateDB) RevertToSnapshot(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	s.dirty = s.snapshots[id]
	s.snapshots = s.snapshots[:id]
	return nil
}

// DiscardSnapshot drops snapshot id and every later one while keeping the
// current buffer. Earlier snapshots stay valid.
func (s *StateDB) DiscardSnapshot(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeRoot returns the deterministic hash of the complete ledger state:
// persisted entries under every registered prefix overlaid with the write
// buffer, sorted by key and hashed with length-prefix encoding. It does not
// flush, so it is safe to call before signing a block.
func (s *StateDB) ComputeRoot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			v := make([]byte, len(it.Value()))
			copy(v, it.Value())
			merged[string(it.Key())] = v
		}
		it.Release()
	}
	for k, v := range s.dirty {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := merged[k]
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(k)))
		buf.Write(lenBuf[:])
		buf.WriteString(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	return crypto.Hash(buf.Bytes())
}

// Commit flushes the write buffer to the underlying DB in one batch and
// clears it. Call ComputeRoot() before signing the block, then Commit()
// once the block is safely stored.
func (s *StateDB) Commit() error {
	if s.readOnly {
		return errors.New("commit on a read-only state view")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.dirty = make(map[string][]byte)
	s.snapshots = nil
	return nil
}
