package chainstore

import (
	"math/big"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	gethrawdb "github.com/ethereum/go-ethereum/core/rawdb"

	"github.com/bramblechain/bramble/consensus/noop"
	"github.com/bramblechain/bramble/core/types"
	"github.com/bramblechain/bramble/params"
	"github.com/bramblechain/bramble/route"
)

func testGenesis() *types.Header {
	return &types.Header{Number: big.NewInt(0), Timestamp: 1}
}

func newTestStore(t *testing.T) (*Store, *types.Header) {
	t.Helper()
	genesis := testGenesis()
	db := gethrawdb.NewMemoryDatabase()
	store, err := NewStore(db, &params.ChainConfig{ChainID: big.NewInt(1)}, noop.New(), genesis)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, genesis
}

func child(t *testing.T, parent *types.Header, timestampOffset uint64) *types.Header {
	t.Helper()
	h := &types.Header{
		ParentHash: parent.Hash(),
		Number:     new(big.Int).Add(parent.Number, big.NewInt(1)),
		Timestamp:  parent.Timestamp + 1 + timestampOffset,
	}
	root, err := noop.ComputeStateRoot(h, nil)
	if err != nil {
		t.Fatalf("ComputeStateRoot: %v", err)
	}
	h.StateRoot = root
	return h
}

func insertHeaderAndBlock(t *testing.T, store *Store, h *types.Header) {
	t.Helper()
	batch := store.db.NewBatch()
	if _, err := store.InsertHeader(batch, h); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}
	block := &types.PreverifiedBlock{Header: h}
	if _, err := store.InsertBlock(batch, block, nil, h); err != nil {
		t.Fatalf("InsertBlock: %v", err)
	}
	if err := batch.Write(); err != nil {
		t.Fatalf("batch.Write: %v", err)
	}
	store.Commit()
}

func TestNewStoreWritesGenesis(t *testing.T) {
	store, genesis := newTestStore(t)
	if got := store.BestBlockHash(); got != genesis.Hash() {
		t.Errorf("BestBlockHash = %s, want genesis %s", got, genesis.Hash())
	}
	if got := store.BestProposalHeader().Hash(); got != genesis.Hash() {
		t.Errorf("BestProposalHeader = %s, want genesis %s", got, genesis.Hash())
	}
	if !store.HasHeader(genesis.Hash(), genesis.NumberU64()) {
		t.Errorf("HasHeader(genesis) = false, want true")
	}
}

func TestLinearExtensionAdvancesBothHeads(t *testing.T) {
	store, genesis := newTestStore(t)
	a := child(t, genesis, 0)
	insertHeaderAndBlock(t, store, a)

	if got := store.BestBlockHash(); got != a.Hash() {
		t.Errorf("BestBlockHash = %s, want %s", got, a.Hash())
	}
	if got := store.BestProposalHeader().Hash(); got != a.Hash() {
		t.Errorf("BestProposalHeader = %s, want %s", got, a.Hash())
	}
	if got := store.HeaderByNumber(1); got == nil || got.Hash() != a.Hash() {
		t.Errorf("HeaderByNumber(1) = %v, want %s", got, a.Hash())
	}
}

func TestReorgSwapsCanonicalChain(t *testing.T) {
	store, genesis := newTestStore(t)

	a := child(t, genesis, 0)
	insertHeaderAndBlock(t, store, a)
	b := child(t, a, 0)
	insertHeaderAndBlock(t, store, b)

	// A strictly longer competing branch off genesis must become canonical:
	// the noop engine scores purely by chain length.
	aPrime := child(t, genesis, 1000)
	bPrime := child(t, aPrime, 0)
	cPrime := child(t, bPrime, 0)
	insertHeaderAndBlock(t, store, aPrime)
	insertHeaderAndBlock(t, store, bPrime)
	insertHeaderAndBlock(t, store, cPrime)

	if got := store.BestBlockHash(); got != cPrime.Hash() {
		t.Errorf("BestBlockHash = %s, want new tip %s", got, cPrime.Hash())
	}
	if got := store.HeaderByNumber(1); got == nil || got.Hash() != aPrime.Hash() {
		t.Errorf("HeaderByNumber(1) = %v, want reorged %s", got, aPrime.Hash())
	}
	// The old branch's blocks remain retrievable by hash even though they
	// are no longer canonical.
	if got := store.Header(a.Hash()); got == nil {
		t.Errorf("Header(a) = nil, want retained old-branch header")
	}
}

func TestInsertHeaderSideBranchOmitted(t *testing.T) {
	store, genesis := newTestStore(t)
	a := child(t, genesis, 0)
	insertHeaderAndBlock(t, store, a)

	side := child(t, genesis, 1)
	batch := store.db.NewBatch()
	r, err := store.InsertHeader(batch, side)
	if err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}
	want := route.ImportRoute{Omitted: []common.Hash{side.Hash()}}
	if !reflect.DeepEqual(r, want) {
		t.Fatalf("side branch route mismatch\ngot:  %s\nwant: %s", spew.Sdump(r), spew.Sdump(want))
	}
	if got := store.BestProposalHeader().Hash(); got != a.Hash() {
		t.Errorf("BestProposalHeader changed to side branch: got %s, want %s", got, a.Hash())
	}
}

func TestUnknownAncestorErrors(t *testing.T) {
	store, genesis := newTestStore(t)
	orphan := &types.Header{
		ParentHash: common.HexToHash("0xdead"),
		Number:     new(big.Int).Add(genesis.Number, big.NewInt(1)),
		Timestamp:  genesis.Timestamp + 1,
	}
	batch := store.db.NewBatch()
	if _, err := store.InsertHeader(batch, orphan); err == nil {
		t.Fatalf("InsertHeader(orphan) succeeded, want ErrUnknownAncestor")
	}
}
