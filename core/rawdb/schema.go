// Package rawdb implements the on-disk key-value schema for the chain
// store: headers, bodies, canonical number->hash mappings and the head
// pointers. The underlying key-value store itself (durability, batching) is
// an external collaborator (spec §1); this package only defines the key
// layout and encode/decode glue around it, the way
// core/rawdb/accessors_chain.go does for go-ethereum.
package rawdb

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// Key prefixes/suffixes, mirroring the teacher's accessor schema.
var (
	headBlockKey        = []byte("LastBlock")        // -> best_block_hash
	headBestProposalKey = []byte("LastBestProposal") // -> best_proposal_header_hash
	headerPrefix        = []byte("h")                // headerPrefix + num (8 bytes big endian) + hash -> header
	headerHashSuffix    = []byte("n")                // headerPrefix + num + headerHashSuffix -> hash
	headerNumberPrefix  = []byte("H")                // headerNumberPrefix + hash -> num (8 bytes big endian)
	blockBodyPrefix     = []byte("b")                // blockBodyPrefix + num + hash -> block body
	blockReceiptsPrefix = []byte("r")                // blockReceiptsPrefix + num + hash -> receipts
)

func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// headerKey = headerPrefix + num (8 bytes big endian) + hash.
func headerKey(number uint64, hash common.Hash) []byte {
	return append(append(headerPrefix, encodeBlockNumber(number)...), hash.Bytes()...)
}

// headerHashKey = headerPrefix + num (8 bytes big endian) + headerHashSuffix.
func headerHashKey(number uint64) []byte {
	return append(append(headerPrefix, encodeBlockNumber(number)...), headerHashSuffix...)
}

// headerNumberKey = headerNumberPrefix + hash.
func headerNumberKey(hash common.Hash) []byte {
	return append(headerNumberPrefix, hash.Bytes()...)
}

// blockBodyKey = blockBodyPrefix + num (8 bytes big endian) + hash.
func blockBodyKey(number uint64, hash common.Hash) []byte {
	return append(append(blockBodyPrefix, encodeBlockNumber(number)...), hash.Bytes()...)
}

// blockReceiptsKey = blockReceiptsPrefix + num (8 bytes big endian) + hash.
func blockReceiptsKey(number uint64, hash common.Hash) []byte {
	return append(append(blockReceiptsPrefix, encodeBlockNumber(number)...), hash.Bytes()...)
}
