package types

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func sampleHeader() *Header {
	return &Header{
		ParentHash:       common.HexToHash("0x01"),
		Number:           big.NewInt(7),
		Timestamp:        1000,
		Author:           common.HexToAddress("0x02"),
		StateRoot:        common.HexToHash("0x03"),
		TransactionsRoot: common.HexToHash("0x04"),
		Seal:             [][]byte{{0xaa}, {0xbb}},
		Extra:            []byte("extra"),
	}
}

func TestHashIsDeterministic(t *testing.T) {
	a := sampleHeader()
	b := sampleHeader()
	if a.Hash() != b.Hash() {
		t.Errorf("two structurally identical headers hashed differently: %s vs %s", a.Hash(), b.Hash())
	}
}

func TestHashIsMemoized(t *testing.T) {
	h := sampleHeader()
	first := h.Hash()
	// Mutate a field directly (bypassing Copy) after the hash has been
	// cached: the memoized value must not change, matching the documented
	// "headers are immutable once constructed" contract.
	h.Timestamp = 9999
	if second := h.Hash(); second != first {
		t.Errorf("Hash() changed after post-cache mutation: %s vs %s", second, first)
	}
}

func TestHashDiffersOnFieldChange(t *testing.T) {
	base := sampleHeader()
	baseHash := base.Hash()

	// Each variant differs from the base header in exactly one field.
	variants := []*Header{sampleHeader(), sampleHeader(), sampleHeader()}
	variants[0].ParentHash = common.HexToHash("0xff")
	variants[1].Number = big.NewInt(8)
	variants[2].Timestamp = 1001
	for i, v := range variants {
		if v.Hash() == baseHash {
			t.Errorf("variant %d: hash collided with base header", i)
		}
	}
}

func TestCopyIsIndependentAndRehashes(t *testing.T) {
	h := sampleHeader()
	originalHash := h.Hash()

	cpy := h.Copy()
	if cpy.Hash() != originalHash {
		t.Errorf("Copy() hash = %s, want %s (unmodified copy)", cpy.Hash(), originalHash)
	}

	cpy.Seal[0][0] = 0xff
	if h.Seal[0][0] == 0xff {
		t.Errorf("mutating copy's Seal leaked into original")
	}

	cpy.Number.SetInt64(42)
	if h.Number.Int64() == 42 {
		t.Errorf("mutating copy's Number leaked into original")
	}

	cpy.Timestamp = 123456
	if cpy.Hash() == originalHash {
		t.Errorf("Copy() with a changed field still hashes the same as the original")
	}
}

func TestNumberU64(t *testing.T) {
	h := &Header{Number: big.NewInt(123456789)}
	if got := h.NumberU64(); got != 123456789 {
		t.Errorf("NumberU64() = %d, want 123456789", got)
	}
}
