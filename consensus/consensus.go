// Package consensus defines the engine contract consulted by the family
// verifier (C2) and the executor (C3): the algorithm-agnostic rules a
// candidate header or block must satisfy, plus the transaction-transition
// hook used to close a block's state.
package consensus

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/bramblechain/bramble/core/types"
	"github.com/bramblechain/bramble/params"
)

// ChainHeaderReader defines the chain-query surface the engine needs during
// header verification.
type ChainHeaderReader interface {
	Config() *params.ChainConfig
	CurrentHeader() *types.Header
	GetHeader(hash common.Hash, number uint64) *types.Header
	GetHeaderByNumber(number uint64) *types.Header
	GetHeaderByHash(hash common.Hash) *types.Header
}

// BlockProvider is the full-block-only chain-query surface (spec §4.2,
// FullFamilyParams' block_provider): family verification of a complete
// block may additionally need to look up sibling/ommer bodies.
type BlockProvider interface {
	ChainHeaderReader
	GetBody(hash common.Hash, number uint64) *types.Body
}

// FamilyContext carries the fields available only when verifying a full
// block (as opposed to a bare header): the block's bytes, its decoded
// transactions, and handles to the body provider and to the client for
// chain queries. Spec §4.2 "Full-context (present only for full blocks)".
type FamilyContext struct {
	BlockBytes   []byte
	Transactions []*types.Transaction
	BlockReader  BlockProvider
	Client       ChainHeaderReader
}

// Engine is an algorithm-agnostic consensus engine: the source of family,
// external and final verification predicates (spec §4.2) and of the
// transaction-transition semantics consulted by the executor (spec §4.3).
type Engine interface {
	// VerifyFamily checks header against parent using rules that require
	// chain context: timestamp/number monotonicity, gas/size limits,
	// engine-specific seal-vs-family rules. ctx is non-nil only when
	// verifying a full block.
	VerifyFamily(header, parent *types.Header, ctx *FamilyContext, cp params.CommonParams) error

	// VerifyExternal checks engine-specific rules that do not require a
	// parent (e.g. seal well-formedness against accumulated engine
	// parameters).
	VerifyExternal(header *types.Header) error

	// VerifyFinal checks that header is observably identical to the header
	// the executor actually produced, on every consensus-relevant field.
	VerifyFinal(header, executed *types.Header) error

	// CommonParams retrieves the engine-parameter registry entry in effect
	// for a child of parent (spec §4.7).
	CommonParams(parent *types.Header) (params.CommonParams, error)

	// Weight returns header's own incremental contribution to chain score
	// (a proof-of-work difficulty, a fixed 1 for simple height-based
	// engines, or any other engine-defined measure). The chain store
	// accumulates these along a chain into a running total used to decide
	// which of two competing forks is canonical, generalizing Ethereum's
	// total-difficulty fork-choice rule to an arbitrary engine.
	Weight(header *types.Header) *big.Int

	// Finalize applies a transaction against the in-progress block state,
	// returning the receipt it produced. Pure w.r.t. its declared inputs;
	// the state mutation happens through state, whose concrete type is
	// owned by the state DB.
	Finalize(header *types.Header, state types.StateHandle, tx *types.Transaction) (*types.Receipt, error)

	// CloseBlock finalizes the header (state root, receipts root, ...)
	// after every transaction in the block has been applied.
	CloseBlock(header *types.Header, state types.StateHandle, receipts []*types.Receipt) (*types.Header, error)

	// APIs returns the RPC APIs this consensus engine provides. The import
	// core never calls these; they exist so Engine mirrors the real
	// interface an embedding node would expose over RPC.
	APIs(chain ChainHeaderReader) []rpc.API
}
