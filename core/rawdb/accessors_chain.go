package rawdb

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/bramblechain/bramble/core/types"
)

// ReadHeaderNumber returns the header number assigned to a hash, or nil if
// the hash is not known.
func ReadHeaderNumber(db ethdb.KeyValueReader, hash common.Hash) *uint64 {
	data, _ := db.Get(headerNumberKey(hash))
	if len(data) != 8 {
		return nil
	}
	number := bigEndianToU64(data)
	return &number
}

// WriteHeaderNumber stores the hash->number mapping for a header.
func WriteHeaderNumber(db ethdb.KeyValueWriter, hash common.Hash, number uint64) {
	if err := db.Put(headerNumberKey(hash), encodeBlockNumber(number)); err != nil {
		log.Crit("Failed to store header number", "err", err)
	}
}

// ReadCanonicalHash returns the canonical hash at the given number, or the
// zero hash if no canonical block occupies that number.
func ReadCanonicalHash(db ethdb.KeyValueReader, number uint64) common.Hash {
	data, _ := db.Get(headerHashKey(number))
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

// WriteCanonicalHash marks hash as the canonical block at number.
func WriteCanonicalHash(db ethdb.KeyValueWriter, hash common.Hash, number uint64) {
	if err := db.Put(headerHashKey(number), hash.Bytes()); err != nil {
		log.Crit("Failed to store canonical hash", "err", err)
	}
}

// DeleteCanonicalHash removes the canonical mapping at number.
func DeleteCanonicalHash(db ethdb.KeyValueWriter, number uint64) {
	if err := db.Delete(headerHashKey(number)); err != nil {
		log.Crit("Failed to delete canonical hash", "err", err)
	}
}

// WriteHeader stores a header and its hash->number mapping.
func WriteHeader(db ethdb.KeyValueWriter, header *types.Header) {
	var (
		hash   = header.Hash()
		number = header.NumberU64()
	)
	WriteHeaderNumber(db, hash, number)

	data, err := rlp.EncodeToBytes(header)
	if err != nil {
		log.Crit("Failed to RLP encode header", "err", err)
	}
	if err := db.Put(headerKey(number, hash), data); err != nil {
		log.Crit("Failed to store header", "err", err)
	}
}

// ReadHeader retrieves a header by hash and number.
func ReadHeader(db ethdb.KeyValueReader, hash common.Hash, number uint64) *types.Header {
	data, _ := db.Get(headerKey(number, hash))
	if len(data) == 0 {
		return nil
	}
	header := new(types.Header)
	if err := rlp.DecodeBytes(data, header); err != nil {
		log.Error("Invalid header RLP", "hash", hash, "err", err)
		return nil
	}
	return header
}

// HasHeader reports whether a header with the given hash/number is stored.
func HasHeader(db ethdb.KeyValueReader, hash common.Hash, number uint64) bool {
	ok, _ := db.Has(headerKey(number, hash))
	return ok
}

// WriteBody stores a block body keyed by hash and number.
func WriteBody(db ethdb.KeyValueWriter, hash common.Hash, number uint64, body *types.Body) {
	data, err := rlp.EncodeToBytes(body)
	if err != nil {
		log.Crit("Failed to RLP encode body", "err", err)
	}
	if err := db.Put(blockBodyKey(number, hash), data); err != nil {
		log.Crit("Failed to store block body", "err", err)
	}
}

// ReadBody retrieves a block body by hash and number.
func ReadBody(db ethdb.KeyValueReader, hash common.Hash, number uint64) *types.Body {
	data, _ := db.Get(blockBodyKey(number, hash))
	if len(data) == 0 {
		return nil
	}
	body := new(types.Body)
	if err := rlp.DecodeBytes(data, body); err != nil {
		log.Error("Invalid body RLP", "hash", hash, "err", err)
		return nil
	}
	return body
}

// WriteReceipts stores the receipts produced by executing a block.
func WriteReceipts(db ethdb.KeyValueWriter, hash common.Hash, number uint64, receipts []*types.Receipt) {
	data, err := rlp.EncodeToBytes(receipts)
	if err != nil {
		log.Crit("Failed to RLP encode receipts", "err", err)
	}
	if err := db.Put(blockReceiptsKey(number, hash), data); err != nil {
		log.Crit("Failed to store receipts", "err", err)
	}
}

// ReadReceipts retrieves the receipts for a block.
func ReadReceipts(db ethdb.KeyValueReader, hash common.Hash, number uint64) []*types.Receipt {
	data, _ := db.Get(blockReceiptsKey(number, hash))
	if len(data) == 0 {
		return nil
	}
	var receipts []*types.Receipt
	if err := rlp.DecodeBytes(data, &receipts); err != nil {
		log.Error("Invalid receipts RLP", "hash", hash, "err", err)
		return nil
	}
	return receipts
}

// ReadHeadHeaderHash returns the hash of the current best proposal header.
func ReadHeadHeaderHash(db ethdb.KeyValueReader) common.Hash {
	data, _ := db.Get(headBestProposalKey)
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

// WriteHeadHeaderHash stores the hash of the current best proposal header.
func WriteHeadHeaderHash(db ethdb.KeyValueWriter, hash common.Hash) {
	if err := db.Put(headBestProposalKey, hash.Bytes()); err != nil {
		log.Crit("Failed to store last best-proposal header hash", "err", err)
	}
}

// ReadHeadBlockHash returns the hash of the current best (fully-executed)
// block.
func ReadHeadBlockHash(db ethdb.KeyValueReader) common.Hash {
	data, _ := db.Get(headBlockKey)
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

// WriteHeadBlockHash stores the hash of the current best block.
func WriteHeadBlockHash(db ethdb.KeyValueWriter, hash common.Hash) {
	if err := db.Put(headBlockKey, hash.Bytes()); err != nil {
		log.Crit("Failed to store last block hash", "err", err)
	}
}

func bigEndianToU64(data []byte) uint64 {
	var n uint64
	for _, b := range data {
		n = n<<8 | uint64(b)
	}
	return n
}
