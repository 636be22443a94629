// Package noop implements a minimal consensus.Engine suitable for tests and
// for driving the import pipelines without a real proof-of-work or
// proof-of-stake backend. Its family rule is pure height/timestamp
// monotonicity and its weight is a constant 1 per block, so the chain
// store's fork-choice reduces to "longest chain wins", useful for
// exercising the reorg machinery deterministically.
package noop

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/bramblechain/bramble/consensus"
	"github.com/bramblechain/bramble/core/types"
	"github.com/bramblechain/bramble/params"
)

var (
	// ErrInvalidNumber is returned when a candidate's number does not
	// immediately follow its parent's.
	ErrInvalidNumber = errors.New("noop: invalid block number")

	// ErrInvalidTimestamp is returned when a candidate's timestamp does not
	// strictly exceed its parent's.
	ErrInvalidTimestamp = errors.New("noop: non-increasing timestamp")
)

// commonParams is the empty engine-parameter registry entry this engine
// hands back from CommonParams; it carries no fields because the engine has
// no tunable parameters.
type commonParams struct{}

// Engine is the noop consensus engine.
type Engine struct{}

// New returns a ready-to-use Engine.
func New() *Engine { return &Engine{} }

// VerifyFamily checks only number and timestamp monotonicity; ctx is never
// consulted since this engine has no transaction-aware family rules.
func (e *Engine) VerifyFamily(header, parent *types.Header, _ *consensus.FamilyContext, _ params.CommonParams) error {
	if header.NumberU64() != parent.NumberU64()+1 {
		return ErrInvalidNumber
	}
	if header.Timestamp <= parent.Timestamp {
		return ErrInvalidTimestamp
	}
	return nil
}

// VerifyExternal never rejects: this engine has no seal to check.
func (e *Engine) VerifyExternal(*types.Header) error { return nil }

// VerifyFinal requires the executed header to match the candidate's
// declared state root exactly; executor.Enact already checked this, so in
// practice this never fails when called after a successful Enact.
func (e *Engine) VerifyFinal(header, executed *types.Header) error {
	if header.StateRoot != executed.StateRoot {
		return errors.New("noop: executed state root diverges from candidate")
	}
	return nil
}

// CommonParams always returns the same empty registry entry.
func (e *Engine) CommonParams(*types.Header) (params.CommonParams, error) {
	return commonParams{}, nil
}

// Weight is a constant 1: chain score is simply chain length.
func (e *Engine) Weight(*types.Header) *big.Int { return big.NewInt(1) }

// Finalize produces a trivial success receipt without touching state; this
// engine has no notion of transaction execution beyond bookkeeping.
func (e *Engine) Finalize(header *types.Header, _ types.StateHandle, tx *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{TxHash: tx.Hash(), Status: 1, GasUsed: 0}, nil
}

// CloseBlock derives a deterministic state root from the header's
// non-state-root fields and its receipts, so that distinct transaction sets
// produce distinct roots without implementing a real trie.
func (e *Engine) CloseBlock(header *types.Header, _ types.StateHandle, receipts []*types.Receipt) (*types.Header, error) {
	root, err := ComputeStateRoot(header, receipts)
	if err != nil {
		return nil, err
	}
	closed := header.Copy()
	closed.StateRoot = root
	return closed, nil
}

// ComputeStateRoot computes the state root CloseBlock will assign to a
// block with the given header (ignoring its declared StateRoot) and
// receipts. Callers constructing candidate headers for this engine call it
// ahead of time to declare a StateRoot that will in fact match, the same
// way a real engine's caller would derive a root from actually executing
// the block before sealing it.
func ComputeStateRoot(header *types.Header, receipts []*types.Receipt) (common.Hash, error) {
	buf, err := rlp.EncodeToBytes(struct {
		ParentHash       common.Hash
		Number           *big.Int
		Timestamp        uint64
		Author           common.Address
		TransactionsRoot common.Hash
		Receipts         []*types.Receipt
	}{
		ParentHash:       header.ParentHash,
		Number:           header.Number,
		Timestamp:        header.Timestamp,
		Author:           header.Author,
		TransactionsRoot: header.TransactionsRoot,
		Receipts:         receipts,
	})
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(buf), nil
}

// APIs exposes no RPC surface.
func (e *Engine) APIs(consensus.ChainHeaderReader) []rpc.API { return nil }
