// Package executor implements the block executor (spec §4.3, component
// C3): applying a block's transactions to parent state and closing the
// resulting header. It is pure with respect to its declared inputs; the
// actual transaction semantics live in the injected consensus.Engine.
package executor

import (
	"fmt"

	"github.com/bramblechain/bramble/consensus"
	"github.com/bramblechain/bramble/core/types"
)

// Error kinds returned by Enact. All of them are candidate-invalid per spec
// §7 kind 1: the caller marks the candidate (and its descendants) bad and
// moves on, never aborting the pass.
var (
	ErrExecutionFault    = fmtErr("executor: transaction execution fault")
	ErrResourceLimit     = fmtErr("executor: resource limit exceeded")
	ErrStateRootMismatch = fmtErr("executor: state root mismatch")
)

func fmtErr(msg string) error { return &execError{msg} }

type execError struct{ msg string }

func (e *execError) Error() string { return e.msg }

// Enact applies header's transactions against parentState (itself opened at
// parent's declared state root by the caller) and returns the resulting
// LockedBlock. It is the only place the per-transaction transition function
// is invoked.
func Enact(
	header *types.Header,
	txs []*types.Transaction,
	engine consensus.Engine,
	parentState types.StateHandle,
	parent *types.Header,
) (*types.LockedBlock, error) {
	receipts := make([]*types.Receipt, 0, len(txs))
	for i, tx := range txs {
		receipt, err := engine.Finalize(header, parentState, tx)
		if err != nil {
			return nil, fmt.Errorf("%w: tx %d (%s): %v", ErrExecutionFault, i, tx.Hash(), err)
		}
		receipts = append(receipts, receipt)
	}

	closed, err := engine.CloseBlock(header, parentState, receipts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResourceLimit, err)
	}

	// The candidate's declared state root must match what execution
	// actually produced; a mismatch here is the spec's scenario 6.
	if header.StateRoot != closed.StateRoot {
		return nil, fmt.Errorf("%w: declared %s, computed %s", ErrStateRootMismatch, header.StateRoot, closed.StateRoot)
	}

	state := parentState
	if rootable, ok := parentState.(types.Rootable); ok {
		state = rootable.WithRoot(closed.StateRoot)
	}

	return &types.LockedBlock{
		Header:   closed,
		State:    state,
		Receipts: receipts,
	}, nil
}
