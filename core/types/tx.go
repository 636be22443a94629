package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Transaction is an opaque, already-decoded transaction. The engine that
// knows how to interpret and apply its payload is an external collaborator
// (spec §1, "transaction execution engine ... treated as a pure function");
// the import core only needs to move it around and hash it.
type Transaction struct {
	Raw []byte
}

// Hash returns the transaction's content hash.
func (tx *Transaction) Hash() common.Hash {
	return crypto.Keccak256Hash(tx.Raw)
}

// Log is a single event emitted during transaction execution.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// Receipt is the spec's "invoice": the record of one transaction's
// execution outcome, produced by the executor and carried by a LockedBlock
// until it is committed alongside the block body.
type Receipt struct {
	TxHash  common.Hash
	Status  uint64 // 1 = success, 0 = failure
	GasUsed uint64
	Logs    []*Log
}

// Body groups a block's transactions, the unit stored separately from its
// header so that header-only (fast-follow) sync never has to fetch bodies.
type Body struct {
	Transactions []*Transaction
}
