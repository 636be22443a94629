package statedb

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"

	"github.com/bramblechain/bramble/core/types"
)

// ErrUnknownRoot is returned by Read when no snapshot is registered under
// the requested state root.
var ErrUnknownRoot = errors.New("statedb: unknown state root")

// memSnapshot is the concrete StateHandle produced by MemDatabase: an
// immutable copy-on-write key/value view of world state, identified by its
// post-state root.
type memSnapshot struct {
	root common.Hash
	kv   map[string][]byte
}

// Get reads a key out of the snapshot.
func (s *memSnapshot) Get(key string) ([]byte, bool) {
	v, ok := s.kv[key]
	return v, ok
}

// Clone returns a deep, independent copy of the snapshot for mutation by
// the executor.
func (s *memSnapshot) Clone() *memSnapshot {
	cpy := make(map[string][]byte, len(s.kv))
	for k, v := range s.kv {
		cpy[k] = common.CopyBytes(v)
	}
	return &memSnapshot{root: s.root, kv: cpy}
}

// WithRoot implements types.Rootable: it returns a snapshot sharing this
// one's contents but tagged with a new root, letting the executor stamp the
// block's computed state root onto the handle it returns once execution
// (which, in this in-memory stand-in, never actually touches kv) closes.
func (s *memSnapshot) WithRoot(root common.Hash) types.StateHandle {
	return &memSnapshot{root: root, kv: s.kv}
}

// MemDatabase is an in-memory Database implementation used by tests and the
// cmd/bramblesim demo harness. It is not a production state store: there is
// no trie, no disk persistence and no pruning, only a root-keyed table of
// snapshots, in the spirit of go-ethereum's rawdb.NewMemoryDatabase used
// pervasively across the teacher's test suite.
type MemDatabase struct {
	mu        sync.RWMutex
	snapshots map[common.Hash]*memSnapshot
	hot       types.StateHandle
}

// NewMemDatabase creates an empty in-memory state database seeded with the
// empty root.
func NewMemDatabase() *MemDatabase {
	empty := &memSnapshot{root: common.Hash{}, kv: map[string][]byte{}}
	return &MemDatabase{
		snapshots: map[common.Hash]*memSnapshot{common.Hash{}: empty},
	}
}

// Seed registers a snapshot at the given root directly, bypassing journal.
// Used by tests to pre-populate genesis state.
func (db *MemDatabase) Seed(root common.Hash, kv map[string][]byte) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cpy := make(map[string][]byte, len(kv))
	for k, v := range kv {
		cpy[k] = common.CopyBytes(v)
	}
	db.snapshots[root] = &memSnapshot{root: root, kv: cpy}
}

// Read implements Database.
func (db *MemDatabase) Read(root common.Hash) (types.StateHandle, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	snap, ok := db.snapshots[root]
	if !ok {
		return nil, ErrUnknownRoot
	}
	return snap.Clone(), nil
}

// JournalUnder implements Database. The in-memory store has no real trie to
// prune, so journaling is simply registering the post-state snapshot under
// its root; batch/number are accepted for interface compatibility with a
// persistent implementation that would key deltas by block number.
func (db *MemDatabase) JournalUnder(state types.StateHandle, _ ethdb.Batch, _ uint64) error {
	snap, ok := state.(*memSnapshot)
	if !ok {
		return errors.New("statedb: foreign state handle")
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.snapshots[snap.root] = snap
	return nil
}

// OverrideState implements Database.
func (db *MemDatabase) OverrideState(state types.StateHandle) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.hot = state
	return nil
}

// Hot returns the state currently installed as the canonical tip's cache,
// for test assertions.
func (db *MemDatabase) Hot() types.StateHandle {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.hot
}
