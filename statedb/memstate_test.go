package statedb

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestReadUnknownRootFails(t *testing.T) {
	db := NewMemDatabase()
	if _, err := db.Read(common.HexToHash("0xdead")); err != ErrUnknownRoot {
		t.Fatalf("Read(unknown root) err = %v, want %v", err, ErrUnknownRoot)
	}
}

func TestSeedThenRead(t *testing.T) {
	db := NewMemDatabase()
	root := common.HexToHash("0x01")
	db.Seed(root, map[string][]byte{"k": []byte("v")})

	handle, err := db.Read(root)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	snap := handle.(*memSnapshot)
	if v, ok := snap.Get("k"); !ok || string(v) != "v" {
		t.Errorf("Get(k) = (%q, %v), want (\"v\", true)", v, ok)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	db := NewMemDatabase()
	root := common.HexToHash("0x01")
	db.Seed(root, map[string][]byte{"k": []byte("v")})

	a, _ := db.Read(root)
	b, _ := db.Read(root)
	aSnap := a.(*memSnapshot)
	bSnap := b.(*memSnapshot)
	aSnap.kv["k"] = []byte("mutated")

	if v, _ := bSnap.Get("k"); string(v) != "v" {
		t.Errorf("mutating one clone leaked into another: Get(k) = %q, want \"v\"", v)
	}
}

func TestWithRootPreservesContentsUnderNewRoot(t *testing.T) {
	db := NewMemDatabase()
	oldRoot := common.HexToHash("0x01")
	db.Seed(oldRoot, map[string][]byte{"k": []byte("v")})

	handle, _ := db.Read(oldRoot)
	snap := handle.(*memSnapshot)

	newRoot := common.HexToHash("0x02")
	restamped := snap.WithRoot(newRoot).(*memSnapshot)

	if restamped.root != newRoot {
		t.Errorf("WithRoot root = %s, want %s", restamped.root, newRoot)
	}
	if v, ok := restamped.Get("k"); !ok || string(v) != "v" {
		t.Errorf("WithRoot dropped contents: Get(k) = (%q, %v)", v, ok)
	}
}

func TestJournalUnderThenReadByNewRoot(t *testing.T) {
	db := NewMemDatabase()
	genesis, _ := db.Read(common.Hash{})
	snap := genesis.(*memSnapshot)

	newRoot := common.HexToHash("0x03")
	stamped := snap.WithRoot(newRoot)

	if err := db.JournalUnder(stamped, nil, 1); err != nil {
		t.Fatalf("JournalUnder: %v", err)
	}
	if _, err := db.Read(newRoot); err != nil {
		t.Fatalf("Read(newRoot) after JournalUnder: %v", err)
	}
}

func TestJournalUnderRejectsForeignHandle(t *testing.T) {
	db := NewMemDatabase()
	if err := db.JournalUnder(struct{}{}, nil, 1); err == nil {
		t.Fatalf("JournalUnder(foreign handle) succeeded, want error")
	}
}

func TestOverrideStateAndHot(t *testing.T) {
	db := NewMemDatabase()
	handle, _ := db.Read(common.Hash{})
	if err := db.OverrideState(handle); err != nil {
		t.Fatalf("OverrideState: %v", err)
	}
	if db.Hot() != handle {
		t.Errorf("Hot() did not return the overridden handle")
	}
}
