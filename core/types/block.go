package types

import "github.com/ethereum/go-ethereum/common"

// PreverifiedBlock is a block whose intrinsic (non-contextual) checks have
// already passed in the upstream verification queue: encoding, signature,
// proof-of-work/seal well-formedness. It still needs family, external and
// final verification plus execution before it can be committed.
type PreverifiedBlock struct {
	Header       *Header
	Transactions []*Transaction

	// Bytes is the canonical serialized form of the whole block, as handed
	// to the chain store for storage and re-derivable hash checks.
	Bytes []byte
}

// Hash is a convenience accessor over the embedded header.
func (b *PreverifiedBlock) Hash() common.Hash { return b.Header.Hash() }

// NumberU64 is a convenience accessor over the embedded header, used by the
// verification queues to order drained candidates by height.
func (b *PreverifiedBlock) NumberU64() uint64 { return b.Header.NumberU64() }

// StateHandle is an opaque reference to a finalized world-state snapshot.
// Its concrete type belongs to the state DB (C5); the import core and the
// executor never look inside it, only pass it along.
type StateHandle interface{}

// Rootable is an optional capability a StateHandle's concrete type may
// implement: return a handle to the same state tagged with a given state
// root. The executor uses it,
// where available, to stamp the newly computed state root onto the handle
// it hands back in LockedBlock, the same way a real trie-backed state
// object's root changes in place as execution proceeds. A StateHandle
// implementation that tracks its root by some other means (e.g. a
// trie.Database keyed externally) need not implement this.
type Rootable interface {
	WithRoot(root common.Hash) StateHandle
}

// LockedBlock is the result of executing a PreverifiedBlock's transactions
// against parent state: state-finalized but not yet committed to the chain
// store. It exists only between the executor (C3) and the chain store (C4)
// and is consumed exactly once by commit.
type LockedBlock struct {
	// Header is the closed, state-rooted header resulting from execution.
	// It may differ from the candidate's header only in state_root/receipts
	// fields that the candidate declared but the executor recomputes for
	// comparison during final verification.
	Header *Header

	// State is the finalized state handle produced by applying this
	// block's transactions.
	State StateHandle

	Receipts []*Receipt
}
