package importer

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/bramblechain/bramble/chainstore"
	"github.com/bramblechain/bramble/consensus"
	"github.com/bramblechain/bramble/core/types"
	"github.com/bramblechain/bramble/executor"
	"github.com/bramblechain/bramble/importlock"
	"github.com/bramblechain/bramble/route"
	"github.com/bramblechain/bramble/statedb"
)

// ErrMissingParentHeader is the fatal condition of spec kind 3: a header
// reached the header-import pipeline without its parent already being
// known locally. A header should never be queued for import before its
// ancestor chain is locally known, so this is an invariant violation, not
// an ordinary candidate-invalid error.
var ErrMissingParentHeader = errors.New("importer: parent of importing header must already exist")

var (
	importedHeadersMeter = metrics.NewRegisteredMeter("importer/headers/imported", nil)
	badHeadersMeter      = metrics.NewRegisteredMeter("importer/headers/bad", nil)
	importedBlocksMeter  = metrics.NewRegisteredMeter("importer/blocks/imported", nil)
	badBlocksMeter       = metrics.NewRegisteredMeter("importer/blocks/bad", nil)
)

// flusher is implemented by database backends that buffer writes and need
// an explicit call to force durability. ethdb.Database itself does not
// require one; this is an optional-capability check in the same vein as
// io.ReaderFrom, so backends that are already durable on Write need not
// implement it.
type flusher interface {
	Flush() error
}

func flushDB(db ethdb.Database) error {
	if f, ok := db.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Importer drives the header and block import pipelines (components C6 and
// C7): it owns the import lock, the two verification queues, and the
// collaborators (chain store, state DB, consensus engine); each pass
// commits through.
type Importer struct {
	lock   *importlock.Lock
	store  *chainstore.Store
	state  statedb.Database
	engine consensus.Engine
	db     ethdb.Database

	headerQueue *Queue[*types.Header]
	blockQueue  *Queue[*types.PreverifiedBlock]

	notifier *Notifier
	config   Config
}

// New constructs an Importer over the given collaborators. notifier may be
// nil, in which case pass outcomes are simply not delivered anywhere (the
// queues and chain store still mutate normally).
func New(db ethdb.Database, store *chainstore.Store, state statedb.Database, engine consensus.Engine, notifier *Notifier, config Config) *Importer {
	if notifier == nil {
		notifier = NewNotifier(nil, nil)
	}
	return &Importer{
		lock:        importlock.New(),
		store:       store,
		state:       state,
		engine:      engine,
		db:          db,
		headerQueue: NewQueue[*types.Header](),
		blockQueue:  NewQueue[*types.PreverifiedBlock](),
		notifier:    notifier,
		config:      config.withDefaults(),
	}
}

// HeaderQueue returns the queue producers push verified header candidates
// onto.
func (im *Importer) HeaderQueue() *Queue[*types.Header] { return im.headerQueue }

// BlockQueue returns the queue producers push verified block candidates
// onto.
func (im *Importer) BlockQueue() *Queue[*types.PreverifiedBlock] { return im.blockQueue }

// ImportVerifiedHeadersFromQueue is triggered when the header queue signals
// it has candidates ready. It drains up to the pass's batch size and
// imports them under a freshly acquired import lock, flushing the database
// once the pass completes (spec §4.6 step 6). A header-only/fast-follow
// pass never touches the block pipeline, which flushes separately, so this
// is the only flush point for this path.
func (im *Importer) ImportVerifiedHeadersFromQueue() int {
	tok := im.lock.Acquire()
	defer im.lock.Release(tok)

	headers := im.headerQueue.Drain(im.config.MaxHeadersPerPass)
	if len(headers) == 0 {
		return 0
	}
	n := im.importVerifiedHeaders(tok, headers)

	if err := flushDB(im.db); err != nil {
		log.Crit("Database flush failed", "err", err)
	}
	return n
}

// importVerifiedHeaders runs the header-import algorithm under an
// already-held import-lock token. It is the shared core of
// ImportVerifiedHeadersFromQueue and the header pass embedded at the start
// of ImportVerifiedBlocksFromQueue, which passes its own held token by
// reference rather than acquiring a second one. The lock is a phase lock,
// not a per-call one, and is not reentrant.
//
// headers need not have come from the header queue at all: when called
// from the block pipeline they are the headers of the blocks just drained
// from the block queue. The bad set is local to this call; its contents
// are still reported to the header queue's MarkAsBad, matching the
// upstream behavior this is ported from.
func (im *Importer) importVerifiedHeaders(_ importlock.Token, headers []*types.Header) int {
	prevBestProposal := im.store.BestProposalHeader().Hash()

	bad := badSet()
	var imported []common.Hash
	var routes []route.ImportRoute

	for _, header := range headers {
		hash := header.Hash()
		if bad.Contains(hash) || bad.Contains(header.ParentHash) {
			bad.Add(hash)
			continue
		}
		if im.store.HasHeader(hash, header.NumberU64()) {
			// Already imported: not counted, not re-notified.
			continue
		}

		parent := im.store.Header(header.ParentHash)
		if parent == nil {
			log.Crit("Parent of importing header must exist",
				"number", header.NumberU64(), "hash", hash, "parentHash", header.ParentHash,
				"err", ErrMissingParentHeader)
			continue
		}

		if im.checkHeader(header, parent) {
			imported = append(imported, hash)
			routes = append(routes, im.commitHeader(header))
		} else {
			bad.Add(hash)
		}
	}

	badHashes := bad.ToSlice()
	im.headerQueue.MarkAsBad(badHashes)

	enacted, retracted := route.Aggregate(routes)

	newBestProposal := im.store.BestProposalHeader().Hash()
	var changed *common.Hash
	if newBestProposal != prevBestProposal {
		changed = &newBestProposal
	}
	im.notifier.notifyHeaders(imported, badHashes, enacted, retracted, changed)

	importedHeadersMeter.Mark(int64(len(imported)))
	badHeadersMeter.Mark(int64(len(badHashes)))

	return len(imported)
}

// checkHeader runs stage-3 family verification for the header-only import
// path. It calls the engine directly instead of going through the fuller
// verification context check_and_close_block builds for full blocks. The
// upstream importer carries a "FIXME: self.verifier.verify_block_family"
// comment at exactly this call site, suggesting header-only family
// verification may have been meant to run through a dedicated verifier
// rather than the engine directly. Whether that was an oversight or
// deliberate (engine-level checks being a strict subset sufficient for a
// header-only flow) is unresolved; both call sites, this one and the one
// in checkAndCloseBlock, are preserved as found.
func (im *Importer) checkHeader(header, parent *types.Header) bool {
	cp, err := im.engine.CommonParams(parent)
	if err != nil {
		log.Warn("Stage 3 header verification failed: no engine params",
			"number", header.NumberU64(), "hash", header.Hash(), "err", err)
		return false
	}
	if err := im.engine.VerifyFamily(header, parent, nil, cp); err != nil {
		log.Warn("Stage 3 header verification failed",
			"number", header.NumberU64(), "hash", header.Hash(), "err", err)
		return false
	}
	return true
}

// commitHeader opens a batch, inserts header into the chain store, writes
// the batch buffered and commits, returning the resulting route.
func (im *Importer) commitHeader(header *types.Header) route.ImportRoute {
	batch := im.db.NewBatch()
	r, err := im.store.InsertHeader(batch, header)
	if err != nil {
		log.Crit("Header commit failed", "number", header.NumberU64(), "hash", header.Hash(), "err", err)
	}
	if err := batch.Write(); err != nil {
		log.Crit("Database write failed committing header", "hash", header.Hash(), "err", err)
	}
	im.store.Commit()
	return r
}

// ImportVerifiedBlocksFromQueue is triggered when the block queue signals
// it has candidates ready. It drains up to the pass's batch size, imports
// the drained blocks' headers first under the same lock, then checks,
// executes and commits each block in turn.
func (im *Importer) ImportVerifiedBlocksFromQueue() int {
	tok := im.lock.Acquire()
	defer im.lock.Release(tok)

	blocks := im.blockQueue.Drain(im.config.MaxBlocksPerPass)
	if len(blocks) == 0 {
		return 0
	}

	headers := make([]*types.Header, len(blocks))
	for i, block := range blocks {
		headers[i] = block.Header
	}
	im.importVerifiedHeaders(tok, headers)

	bad := badSet()
	var imported []common.Hash
	var routes []route.ImportRoute

	for _, block := range blocks {
		header := block.Header
		hash := header.Hash()

		log.Trace("Importing block", "number", header.NumberU64(), "hash", hash)

		if bad.Contains(header.ParentHash) {
			bad.Add(hash)
			continue
		}
		if im.store.Body(hash, header.NumberU64()) != nil {
			// Already imported: not counted, not re-notified (spec
			// idempotence property, scenario 4).
			continue
		}

		locked, err := im.checkAndCloseBlock(block)
		if err != nil {
			log.Warn("Block import failed", "number", header.NumberU64(), "hash", hash, "err", err)
			bad.Add(hash)
			continue
		}

		imported = append(imported, hash)
		routes = append(routes, im.commitBlock(locked, header, block))
	}

	badHashes := bad.ToSlice()
	if len(badHashes) > 0 {
		im.blockQueue.MarkAsBad(badHashes)
	}
	queueEmpty := im.blockQueue.MarkAsGood(imported)

	if len(imported) > 0 {
		if !queueEmpty {
			log.Trace("Notifying new blocks even though the block verification queue is not empty")
		}
		enacted, retracted := route.Aggregate(routes)
		im.notifier.notifyBlocks(imported, badHashes, enacted, retracted)
	}

	if err := flushDB(im.db); err != nil {
		log.Crit("Database flush failed", "err", err)
	}

	importedBlocksMeter.Mark(int64(len(imported)))
	badBlocksMeter.Mark(int64(len(badHashes)))

	return len(imported)
}

// checkAndCloseBlock runs stages 3 through 5 of block verification (family,
// external, final) around execution: looking up parent header and body,
// verifying family and external rules, executing the block's transactions
// against parent state, and verifying the executed header matches the
// candidate on every consensus-relevant field.
func (im *Importer) checkAndCloseBlock(block *types.PreverifiedBlock) (*types.LockedBlock, error) {
	header := block.Header

	parent := im.store.Header(header.ParentHash)
	if parent == nil {
		return nil, fmt.Errorf("parent not found (%s)", header.ParentHash)
	}
	if im.store.Body(header.ParentHash, parent.NumberU64()) == nil {
		return nil, fmt.Errorf("parent block body not found (%s)", header.ParentHash)
	}

	cp, err := im.engine.CommonParams(parent)
	if err != nil {
		return nil, fmt.Errorf("common params: %w", err)
	}

	ctx := &consensus.FamilyContext{
		BlockBytes:   block.Bytes,
		Transactions: block.Transactions,
		BlockReader:  im.store,
		Client:       im.store,
	}
	if err := im.engine.VerifyFamily(header, parent, ctx, cp); err != nil {
		return nil, fmt.Errorf("stage 3 family verification: %w", err)
	}
	if err := im.engine.VerifyExternal(header); err != nil {
		return nil, fmt.Errorf("stage 4 external verification: %w", err)
	}

	parentState, err := im.state.Read(parent.StateRoot)
	if err != nil {
		return nil, fmt.Errorf("reading parent state at %s: %w", parent.StateRoot, err)
	}

	locked, err := executor.Enact(header, block.Transactions, im.engine, parentState, parent)
	if err != nil {
		return nil, fmt.Errorf("enact: %w", err)
	}

	if err := im.engine.VerifyFinal(header, locked.Header); err != nil {
		return nil, fmt.Errorf("stage 5 final verification: %w", err)
	}

	return locked, nil
}

// commitBlock journals the executed state, inserts the block's body and
// receipts into the chain store, writes the batch buffered and commits,
// warming the hot-state cache if this block became the new best block.
//
// header is the block's original, sealed header, distinct from
// locked.Header, which may differ on fields the executor recomputes only
// for the stage-5 comparison already performed by the caller.
func (im *Importer) commitBlock(locked *types.LockedBlock, header *types.Header, block *types.PreverifiedBlock) route.ImportRoute {
	hash := header.Hash()
	number := header.NumberU64()

	batch := im.db.NewBatch()
	if err := im.state.JournalUnder(locked.State, batch, number); err != nil {
		log.Crit("State journal failed", "number", number, "hash", hash, "err", err)
	}

	r, err := im.store.InsertBlock(batch, block, locked.Receipts, header)
	if err != nil {
		log.Crit("Block commit failed", "number", number, "hash", hash, "err", err)
	}
	if err := batch.Write(); err != nil {
		log.Crit("Database write failed committing block", "hash", hash, "err", err)
	}
	im.store.Commit()

	if hash == im.store.BestBlockHash() {
		if err := im.state.OverrideState(locked.State); err != nil {
			log.Error("Overriding hot state cache failed", "number", number, "hash", hash, "err", err)
		}
	}

	return r
}
