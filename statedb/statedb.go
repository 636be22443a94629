// Package statedb models the journaled state trie store (spec §4.5,
// component C5). The execution engine itself is an external collaborator
// (spec §1); this package only defines the snapshot/journal/override
// contract the chain store and executor rely on.
package statedb

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"

	"github.com/bramblechain/bramble/core/types"
)

// Database is a journaled state store: readers snapshot at a root, writers
// serialize through the import lock and journal deltas into the caller's
// batch before the chain store commits.
type Database interface {
	// Read returns a state snapshot cloneable at the given root. The
	// returned handle is owned by the caller and must not be shared across
	// concurrent writers.
	Read(root common.Hash) (types.StateHandle, error)

	// JournalUnder writes the trie deltas accumulated since the snapshot
	// was opened into batch, keyed by block number so that a later pruning
	// pass can reclaim non-canonical branches. Must be called before the
	// chain store's InsertBlock within the same write batch (spec §4.4
	// step 3).
	JournalUnder(state types.StateHandle, batch ethdb.Batch, number uint64) error

	// OverrideState installs state as the hot cache for the new canonical
	// tip. Must only be called when the just-committed block's hash equals
	// the new best-block hash (spec §4.5).
	OverrideState(state types.StateHandle) error
}
