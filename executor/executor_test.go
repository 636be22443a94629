package executor_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bramblechain/bramble/consensus/noop"
	"github.com/bramblechain/bramble/core/types"
	"github.com/bramblechain/bramble/executor"
	"github.com/bramblechain/bramble/statedb"
)

func TestEnactStampsComputedRootOntoReturnedState(t *testing.T) {
	engine := noop.New()
	db := statedb.NewMemDatabase()

	genesis := &types.Header{Number: big.NewInt(0), Timestamp: 1}
	parentState, err := db.Read(genesis.StateRoot)
	if err != nil {
		t.Fatalf("Read(genesis root): %v", err)
	}

	child := &types.Header{
		ParentHash: genesis.Hash(),
		Number:     big.NewInt(1),
		Timestamp:  2,
	}
	root, err := noop.ComputeStateRoot(child, nil)
	if err != nil {
		t.Fatalf("ComputeStateRoot: %v", err)
	}
	child.StateRoot = root

	locked, err := executor.Enact(child, nil, engine, parentState, genesis)
	if err != nil {
		t.Fatalf("Enact: %v", err)
	}

	if _, ok := locked.State.(types.Rootable); !ok {
		t.Fatalf("locked.State does not implement types.Rootable")
	}

	if err := db.JournalUnder(locked.State, nil, child.NumberU64()); err != nil {
		t.Fatalf("JournalUnder: %v", err)
	}

	// The whole point of the Rootable stamp: a grandchild must be able to
	// read state at this block's own root, not its parent's.
	if _, err := db.Read(child.StateRoot); err != nil {
		t.Fatalf("Read(child.StateRoot) after JournalUnder failed: %v (state was journaled under the wrong root)", err)
	}
}

func TestEnactRejectsStateRootMismatch(t *testing.T) {
	engine := noop.New()
	db := statedb.NewMemDatabase()

	genesis := &types.Header{Number: big.NewInt(0), Timestamp: 1}
	parentState, err := db.Read(genesis.StateRoot)
	if err != nil {
		t.Fatalf("Read(genesis root): %v", err)
	}

	child := &types.Header{
		ParentHash: genesis.Hash(),
		Number:     big.NewInt(1),
		Timestamp:  2,
		StateRoot:  common.HexToHash("0xbad"),
	}

	if _, err := executor.Enact(child, nil, engine, parentState, genesis); err == nil {
		t.Fatalf("Enact succeeded with a mismatched declared state root, want error")
	}
}

func TestEnactChainsAcrossTwoGenerations(t *testing.T) {
	engine := noop.New()
	db := statedb.NewMemDatabase()

	genesis := &types.Header{Number: big.NewInt(0), Timestamp: 1}

	parentState, err := db.Read(genesis.StateRoot)
	if err != nil {
		t.Fatalf("Read(genesis root): %v", err)
	}

	a := &types.Header{ParentHash: genesis.Hash(), Number: big.NewInt(1), Timestamp: 2}
	aRoot, err := noop.ComputeStateRoot(a, nil)
	if err != nil {
		t.Fatalf("ComputeStateRoot(a): %v", err)
	}
	a.StateRoot = aRoot

	lockedA, err := executor.Enact(a, nil, engine, parentState, genesis)
	if err != nil {
		t.Fatalf("Enact(a): %v", err)
	}
	if err := db.JournalUnder(lockedA.State, nil, a.NumberU64()); err != nil {
		t.Fatalf("JournalUnder(a): %v", err)
	}

	// Read back a's state purely by its own root, as a second block import
	// pass would when using a as the new parent.
	aState, err := db.Read(a.StateRoot)
	if err != nil {
		t.Fatalf("Read(a.StateRoot): %v", err)
	}

	b := &types.Header{ParentHash: a.Hash(), Number: big.NewInt(2), Timestamp: 3}
	bRoot, err := noop.ComputeStateRoot(b, nil)
	if err != nil {
		t.Fatalf("ComputeStateRoot(b): %v", err)
	}
	b.StateRoot = bRoot

	lockedB, err := executor.Enact(b, nil, engine, aState, a)
	if err != nil {
		t.Fatalf("Enact(b): %v", err)
	}
	if err := db.JournalUnder(lockedB.State, nil, b.NumberU64()); err != nil {
		t.Fatalf("JournalUnder(b): %v", err)
	}
	if _, err := db.Read(b.StateRoot); err != nil {
		t.Fatalf("Read(b.StateRoot): %v", err)
	}
}
