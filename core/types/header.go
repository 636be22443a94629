// Package types defines the domain value types shared by the block-import
// core: headers, transactions, and the pre/post-execution block wrappers
// that flow between the verification queues, the executor and the chain
// store.
package types

import (
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Header is a block header candidate as it arrives from the upstream
// verification queues. Its intrinsic checks (encoding, proof-of-work
// difficulty, signature) have already passed; only chain-context checks
// (family, external, final) remain.
type Header struct {
	ParentHash       common.Hash    `json:"parentHash"       gencodec:"required"`
	Number           *big.Int       `json:"number"           gencodec:"required"`
	Timestamp        uint64         `json:"timestamp"        gencodec:"required"`
	Author           common.Address `json:"author"           gencodec:"required"`
	StateRoot        common.Hash    `json:"stateRoot"        gencodec:"required"`
	TransactionsRoot common.Hash    `json:"transactionsRoot" gencodec:"required"`
	Seal             [][]byte       `json:"seal"             gencodec:"required"`
	Extra            []byte         `json:"extraData"`

	// hash caches the computed hash of this header. Headers are immutable
	// once constructed, so the hash is content-addressed and memoized
	// exactly once.
	hash atomic.Pointer[common.Hash]
}

// headerForHash is the RLP shape used to compute a header's hash. Seal
// fields participate in the hash: unlike Ethereum's PoW nonce/mixDigest,
// consensus engines for this chain may stuff arbitrary seal data (e.g. a
// committee signature) that must be content-addressed along with everything
// else.
type headerForHash struct {
	ParentHash       common.Hash
	Number           *big.Int
	Timestamp        uint64
	Author           common.Address
	StateRoot        common.Hash
	TransactionsRoot common.Hash
	Seal             [][]byte
	Extra            []byte
}

// Hash returns the deterministic, content-addressed digest of the header.
// It is computed once and cached; callers must not mutate a Header after
// its Hash has been taken.
func (h *Header) Hash() common.Hash {
	if cached := h.hash.Load(); cached != nil {
		return *cached
	}
	data, err := rlp.EncodeToBytes(&headerForHash{
		ParentHash:       h.ParentHash,
		Number:           h.Number,
		Timestamp:        h.Timestamp,
		Author:           h.Author,
		StateRoot:        h.StateRoot,
		TransactionsRoot: h.TransactionsRoot,
		Seal:             h.Seal,
		Extra:            h.Extra,
	})
	if err != nil {
		// Header fields are all RLP-safe concrete types; encoding can only
		// fail on a programming error.
		panic("types: header RLP encoding failed: " + err.Error())
	}
	hash := crypto.Keccak256Hash(data)
	h.hash.Store(&hash)
	return hash
}

// NumberU64 returns the block number as a uint64.
func (h *Header) NumberU64() uint64 {
	return h.Number.Uint64()
}

// Copy returns a deep copy of the header with a fresh, uncached hash.
func (h *Header) Copy() *Header {
	cpy := *h
	cpy.hash = atomic.Pointer[common.Hash]{}
	cpy.Number = new(big.Int).Set(h.Number)
	cpy.Seal = make([][]byte, len(h.Seal))
	for i, s := range h.Seal {
		cpy.Seal[i] = common.CopyBytes(s)
	}
	cpy.Extra = common.CopyBytes(h.Extra)
	return &cpy
}
