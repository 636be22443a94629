// Package chainstore implements the mutable chain index and body store
// (spec §4.4, component C4): insert_header/insert_block, hash/number
// lookups, the best-block and best-proposal-header pointers, and the
// per-insert ImportRoute computation.
package chainstore

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/bramblechain/bramble/consensus"
	"github.com/bramblechain/bramble/core/rawdb"
	"github.com/bramblechain/bramble/core/types"
	"github.com/bramblechain/bramble/params"
	"github.com/bramblechain/bramble/route"
)

const (
	headerCacheLimit   = 512
	numberCacheLimit   = 2048
	bodyCacheLimit     = 256
	receiptsCacheLimit = 256
	scoreCacheLimit    = 2048
)

var (
	headBlockGauge    = metrics.NewRegisteredGauge("chainstore/head/block", nil)
	headProposalGauge = metrics.NewRegisteredGauge("chainstore/head/proposal", nil)

	headerInsertTimer = metrics.NewRegisteredTimer("chainstore/insert/header", nil)
	blockInsertTimer  = metrics.NewRegisteredTimer("chainstore/insert/block", nil)
	reorgMeter        = metrics.NewRegisteredMeter("chainstore/reorg", nil)

	// ErrNoGenesis is returned by NewStore when no genesis header is
	// supplied, whether or not the database already holds one.
	ErrNoGenesis = errors.New("chainstore: no genesis header")

	// ErrUnknownAncestor is returned when a header/block's parent cannot be
	// found in the store. The importer treats it as fatal on both the
	// header and the block commit path; the block pipeline rejects a block
	// with a missing parent as candidate-invalid earlier, before InsertBlock
	// is reached.
	ErrUnknownAncestor = errors.New("chainstore: unknown ancestor")
)

// Store is the mutable chain index and body store. It is not safe for
// concurrent writers; callers serialize writes through importlock.Lock.
// Lookups may run concurrently with a writer. The head pointers change only
// on Commit, but InsertHeader and InsertBlock fill the header, number, body
// and receipt caches at insert time, so hash lookups can return an entry
// before its batch has been written and committed.
type Store struct {
	db     ethdb.Database
	config *params.ChainConfig
	engine consensus.Engine

	headerCache   *lru.Cache[common.Hash, *types.Header]
	numberCache   *lru.Cache[common.Hash, uint64]
	bodyCache     *lru.Cache[common.Hash, *types.Body]
	receiptsCache *lru.Cache[common.Hash, []*types.Receipt]
	scoreCache    *lru.Cache[common.Hash, *big.Int]

	genesis *types.Header

	// Published head pointers. Readers access these lock-free; only
	// Commit publishes a new value.
	currentBlockHeader    atomic.Pointer[types.Header]
	currentProposalHeader atomic.Pointer[types.Header]

	// Pending head pointers for the in-flight batch. insert_* mutates
	// these; Commit promotes them to the published atomics above. This is
	// the buffering spec §4.4 requires so that "commit can only succeed
	// after write" - the caller's write-then-commit ordering controls when
	// these become visible, not a lock on Commit itself.
	pendingMu       sync.Mutex
	pendingBlock    *types.Header
	pendingProposal *types.Header
}

// NewStore opens (or initializes, if empty) the chain store.
func NewStore(db ethdb.Database, config *params.ChainConfig, engine consensus.Engine, genesis *types.Header) (*Store, error) {
	if genesis == nil {
		return nil, ErrNoGenesis
	}
	s := &Store{
		db:            db,
		config:        config,
		engine:        engine,
		headerCache:   lru.NewCache[common.Hash, *types.Header](headerCacheLimit),
		numberCache:   lru.NewCache[common.Hash, uint64](numberCacheLimit),
		bodyCache:     lru.NewCache[common.Hash, *types.Body](bodyCacheLimit),
		receiptsCache: lru.NewCache[common.Hash, []*types.Receipt](receiptsCacheLimit),
		scoreCache:    lru.NewCache[common.Hash, *big.Int](scoreCacheLimit),
		genesis:       genesis,
	}

	if existing := rawdb.ReadCanonicalHash(db, genesis.NumberU64()); existing == (common.Hash{}) {
		batch := db.NewBatch()
		rawdb.WriteHeader(batch, genesis)
		rawdb.WriteCanonicalHash(batch, genesis.Hash(), genesis.NumberU64())
		rawdb.WriteHeadHeaderHash(batch, genesis.Hash())
		rawdb.WriteHeadBlockHash(batch, genesis.Hash())
		// Genesis gets an (empty) body and receipt set too, the same as any
		// other block, so the first real extension's parent-body lookup in
		// stage-3 family verification finds something there.
		rawdb.WriteBody(batch, genesis.Hash(), genesis.NumberU64(), &types.Body{})
		rawdb.WriteReceipts(batch, genesis.Hash(), genesis.NumberU64(), nil)
		if err := batch.Write(); err != nil {
			return nil, fmt.Errorf("chainstore: writing genesis: %w", err)
		}
		s.currentProposalHeader.Store(genesis)
		s.currentBlockHeader.Store(genesis)
		return s, nil
	}

	headBlockHash := rawdb.ReadHeadBlockHash(db)
	headProposalHash := rawdb.ReadHeadHeaderHash(db)
	headBlock := s.headerByHash(headBlockHash)
	headProposal := s.headerByHash(headProposalHash)
	if headBlock == nil || headProposal == nil {
		return nil, errors.New("chainstore: corrupt database, missing head header")
	}
	s.currentBlockHeader.Store(headBlock)
	s.currentProposalHeader.Store(headProposal)
	return s, nil
}

// Genesis returns the chain's genesis header.
func (s *Store) Genesis() *types.Header { return s.genesis }

// Config returns the chain configuration the store was opened with,
// completing the consensus.ChainHeaderReader surface.
func (s *Store) Config() *params.ChainConfig { return s.config }

// CurrentHeader returns the best proposal header, i.e. the deepest header
// known regardless of whether its body has arrived yet.
func (s *Store) CurrentHeader() *types.Header { return s.BestProposalHeader() }

// GetHeader is the consensus.ChainHeaderReader-shaped alias of
// HeaderByNumberHash.
func (s *Store) GetHeader(hash common.Hash, number uint64) *types.Header {
	return s.HeaderByNumberHash(number, hash)
}

// GetHeaderByNumber is the consensus.ChainHeaderReader-shaped alias of
// HeaderByNumber.
func (s *Store) GetHeaderByNumber(number uint64) *types.Header {
	return s.HeaderByNumber(number)
}

// GetHeaderByHash is the consensus.ChainHeaderReader-shaped alias of
// Header.
func (s *Store) GetHeaderByHash(hash common.Hash) *types.Header {
	return s.Header(hash)
}

// GetBody is the consensus.BlockProvider-shaped alias of Body, completing
// the interface the family verifier uses to look up sibling bodies.
func (s *Store) GetBody(hash common.Hash, number uint64) *types.Body {
	return s.Body(hash, number)
}

// BestBlockHash returns the hash of the deepest fully-executed canonical
// tip.
func (s *Store) BestBlockHash() common.Hash {
	return s.currentBlockHeader.Load().Hash()
}

// BestBlock returns the header of the deepest fully-executed canonical tip.
func (s *Store) BestBlock() *types.Header {
	return s.currentBlockHeader.Load()
}

// BestProposalHeader returns the deepest known header, possibly ahead of
// bodies during fast-follow sync.
func (s *Store) BestProposalHeader() *types.Header {
	return s.currentProposalHeader.Load()
}

// HasHeader reports whether a header with the given hash/number is known.
func (s *Store) HasHeader(hash common.Hash, number uint64) bool {
	if s.headerCache.Contains(hash) {
		return true
	}
	return rawdb.HasHeader(s.db, hash, number)
}

// Header looks up a header by hash, consulting the number cache to find
// its number.
func (s *Store) Header(hash common.Hash) *types.Header {
	if h, ok := s.headerCache.Get(hash); ok {
		return h
	}
	number := s.GetNumber(hash)
	if number == nil {
		return nil
	}
	return s.HeaderByNumberHash(*number, hash)
}

// HeaderByNumberHash looks up a header by its exact (number, hash) pair.
func (s *Store) HeaderByNumberHash(number uint64, hash common.Hash) *types.Header {
	if h, ok := s.headerCache.Get(hash); ok {
		return h
	}
	h := rawdb.ReadHeader(s.db, hash, number)
	if h == nil {
		return nil
	}
	s.headerCache.Add(hash, h)
	s.numberCache.Add(hash, number)
	return h
}

// GetNumber returns the number assigned to hash, if known.
func (s *Store) GetNumber(hash common.Hash) *uint64 {
	if n, ok := s.numberCache.Get(hash); ok {
		return &n
	}
	n := rawdb.ReadHeaderNumber(s.db, hash)
	if n != nil {
		s.numberCache.Add(hash, *n)
	}
	return n
}

// HeaderByNumber returns the canonical header at number, if any.
func (s *Store) HeaderByNumber(number uint64) *types.Header {
	hash := rawdb.ReadCanonicalHash(s.db, number)
	if hash == (common.Hash{}) {
		return nil
	}
	return s.HeaderByNumberHash(number, hash)
}

// Body returns the stored body for hash, if any.
func (s *Store) Body(hash common.Hash, number uint64) *types.Body {
	if b, ok := s.bodyCache.Get(hash); ok {
		return b
	}
	b := rawdb.ReadBody(s.db, hash, number)
	if b != nil {
		s.bodyCache.Add(hash, b)
	}
	return b
}

// Receipts returns the stored receipts for hash, if any.
func (s *Store) Receipts(hash common.Hash, number uint64) []*types.Receipt {
	if r, ok := s.receiptsCache.Get(hash); ok {
		return r
	}
	r := rawdb.ReadReceipts(s.db, hash, number)
	if r != nil {
		s.receiptsCache.Add(hash, r)
	}
	return r
}

// headerByHash is an internal helper used during startup, before the number
// cache is warm.
func (s *Store) headerByHash(hash common.Hash) *types.Header {
	number := s.GetNumber(hash)
	if number == nil {
		return nil
	}
	return s.HeaderByNumberHash(*number, hash)
}

// scoreOf returns header's cumulative chain score (its own Weight plus its
// ancestors'), caching results as it walks.
func (s *Store) scoreOf(header *types.Header) (*big.Int, error) {
	hash := header.Hash()
	if sc, ok := s.scoreCache.Get(hash); ok {
		return sc, nil
	}
	if hash == s.genesis.Hash() {
		sc := s.engine.Weight(header)
		s.scoreCache.Add(hash, sc)
		return sc, nil
	}
	parent := s.Header(header.ParentHash)
	if parent == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAncestor, header.ParentHash)
	}
	parentScore, err := s.scoreOf(parent)
	if err != nil {
		return nil, err
	}
	sc := new(big.Int).Add(parentScore, s.engine.Weight(header))
	s.scoreCache.Add(hash, sc)
	return sc, nil
}

// routeBetween walks back from oldTip and newTip to their common ancestor,
// returning the blocks that leave (retracted, old tip down to ancestor) and
// the blocks that join (enacted, ancestor up to new tip) the canonical
// chain (spec §4.4). A simple extension (newTip.ParentHash == oldTip)
// short-circuits to {enacted: [newTip], retracted: []}.
func (s *Store) routeBetween(oldTip common.Hash, newTip *types.Header) (route.ImportRoute, error) {
	if oldTip == (common.Hash{}) {
		return route.ImportRoute{Enacted: []common.Hash{newTip.Hash()}}, nil
	}
	if newTip.ParentHash == oldTip {
		return route.ImportRoute{Enacted: []common.Hash{newTip.Hash()}}, nil
	}

	oldHeader := s.Header(oldTip)
	if oldHeader == nil {
		return route.ImportRoute{}, fmt.Errorf("%w: old tip %s", ErrUnknownAncestor, oldTip)
	}

	var enacted, retracted []common.Hash
	a, b := newTip, oldHeader
	for a.NumberU64() > b.NumberU64() {
		enacted = append(enacted, a.Hash())
		a = s.Header(a.ParentHash)
		if a == nil {
			return route.ImportRoute{}, fmt.Errorf("%w: walking new chain", ErrUnknownAncestor)
		}
	}
	for b.NumberU64() > a.NumberU64() {
		retracted = append(retracted, b.Hash())
		b = s.Header(b.ParentHash)
		if b == nil {
			return route.ImportRoute{}, fmt.Errorf("%w: walking old chain", ErrUnknownAncestor)
		}
	}
	for a.Hash() != b.Hash() {
		enacted = append(enacted, a.Hash())
		retracted = append(retracted, b.Hash())
		a = s.Header(a.ParentHash)
		b = s.Header(b.ParentHash)
		if a == nil || b == nil {
			return route.ImportRoute{}, fmt.Errorf("%w: walking to common ancestor", ErrUnknownAncestor)
		}
	}
	if len(retracted) > 0 {
		reorgMeter.Mark(1)
	}
	reverse(enacted)
	return route.ImportRoute{Enacted: enacted, Retracted: retracted}, nil
}

func reverse(hashes []common.Hash) {
	for i, j := 0, len(hashes)-1; i < j; i, j = i+1, j-1 {
		hashes[i], hashes[j] = hashes[j], hashes[i]
	}
}

// InsertHeader stores header, computes its ImportRoute against the current
// best proposal header, and, if header becomes the new proposal head,
// rewrites the canonical hash mapping for the affected range. All writes go
// into batch; no published state changes until Commit is called.
func (s *Store) InsertHeader(batch ethdb.Batch, header *types.Header) (route.ImportRoute, error) {
	defer headerInsertTimer.UpdateSince(time.Now())
	rawdb.WriteHeader(batch, header)
	s.headerCache.Add(header.Hash(), header)
	s.numberCache.Add(header.Hash(), header.NumberU64())

	score, err := s.scoreOf(header)
	if err != nil {
		return route.ImportRoute{}, err
	}

	s.pendingMu.Lock()
	proposal := s.pendingProposal
	if proposal == nil {
		proposal = s.currentProposalHeader.Load()
	}
	s.pendingMu.Unlock()

	proposalScore, err := s.scoreOf(proposal)
	if err != nil {
		return route.ImportRoute{}, err
	}
	if score.Cmp(proposalScore) <= 0 {
		// Side branch: known, but not (yet) better than the existing
		// proposal head.
		return route.ImportRoute{Omitted: []common.Hash{header.Hash()}}, nil
	}

	r, err := s.routeBetween(proposal.Hash(), header)
	if err != nil {
		return route.ImportRoute{}, err
	}
	for _, h := range r.Retracted {
		old := s.Header(h)
		rawdb.DeleteCanonicalHash(batch, old.NumberU64())
	}
	for _, h := range r.Enacted {
		eh := s.Header(h)
		rawdb.WriteCanonicalHash(batch, eh.Hash(), eh.NumberU64())
	}
	rawdb.WriteHeadHeaderHash(batch, header.Hash())

	s.pendingMu.Lock()
	s.pendingProposal = header
	s.pendingMu.Unlock()

	return r, nil
}

// InsertBlock stores a block's body and receipts and advances the best-
// block pointer if this block out-scores the current one. The caller must
// have already inserted the block's header (via InsertHeader, directly or
// through the embedded header pipeline) in this same pass.
func (s *Store) InsertBlock(batch ethdb.Batch, block *types.PreverifiedBlock, receipts []*types.Receipt, header *types.Header) (route.ImportRoute, error) {
	defer blockInsertTimer.UpdateSince(time.Now())
	hash := header.Hash()
	number := header.NumberU64()

	body := &types.Body{Transactions: block.Transactions}
	rawdb.WriteBody(batch, hash, number, body)
	rawdb.WriteReceipts(batch, hash, number, receipts)
	s.bodyCache.Add(hash, body)
	s.receiptsCache.Add(hash, receipts)

	score, err := s.scoreOf(header)
	if err != nil {
		return route.ImportRoute{}, err
	}

	s.pendingMu.Lock()
	best := s.pendingBlock
	if best == nil {
		best = s.currentBlockHeader.Load()
	}
	s.pendingMu.Unlock()

	bestScore, err := s.scoreOf(best)
	if err != nil {
		return route.ImportRoute{}, err
	}
	if score.Cmp(bestScore) <= 0 {
		return route.ImportRoute{Omitted: []common.Hash{hash}}, nil
	}

	r, err := s.routeBetween(best.Hash(), header)
	if err != nil {
		return route.ImportRoute{}, err
	}
	rawdb.WriteHeadBlockHash(batch, hash)

	s.pendingMu.Lock()
	s.pendingBlock = header
	s.pendingMu.Unlock()

	return r, nil
}

// Commit publishes any pending head-pointer changes accumulated by
// InsertHeader/InsertBlock since the last Commit. Callers must write their
// batch to the database before calling Commit (spec §4.4 steps 4-5).
func (s *Store) Commit() {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if s.pendingProposal != nil {
		s.currentProposalHeader.Store(s.pendingProposal)
		headProposalGauge.Update(int64(s.pendingProposal.NumberU64()))
		s.pendingProposal = nil
	}
	if s.pendingBlock != nil {
		s.currentBlockHeader.Store(s.pendingBlock)
		headBlockGauge.Update(int64(s.pendingBlock.NumberU64()))
		s.pendingBlock = nil
		log.Debug("Published new best block", "number", s.currentBlockHeader.Load().NumberU64(), "hash", s.currentBlockHeader.Load().Hash())
	}
}
