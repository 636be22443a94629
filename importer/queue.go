// Package importer implements the header and block import pipelines (spec
// §4.6/§4.7, components C6/C7): draining the upstream verification queues,
// running family/external/final verification and execution, committing
// through the chain store under the import lock, and notifying
// subscribers with the aggregated ImportRoute.
package importer

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/prque"
)

// Numbered is the minimal shape a verification-queue candidate must offer:
// a content hash and a height, the latter used to order draining so that
// parents are never handed out after their children within the same batch.
type Numbered interface {
	Hash() common.Hash
	NumberU64() uint64
}

// Queue is a generic pending-candidate queue mirroring the external
// BlockQueue/HeaderQueue collaborators described in spec §6: producers
// push verified candidates, the import pipeline drains up to N at a time,
// and reports each drained candidate back as good or bad once the pass
// concludes.
//
// The queue itself is internally thread-safe (spec §5 "Queues: internally
// thread-safe; drain atomically removes up to N"); it is not responsible
// for any consensus-level validation.
type Queue[T Numbered] struct {
	mu       sync.Mutex
	pending  *prque.Prque[int64, T]
	inFlight map[common.Hash]T
}

// NewQueue returns an empty queue.
func NewQueue[T Numbered]() *Queue[T] {
	return &Queue[T]{
		pending:  prque.New[int64, T](nil),
		inFlight: make(map[common.Hash]T),
	}
}

// Push enqueues a verified candidate. Candidates drain in ascending height
// order regardless of push order.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending.Push(item, -int64(item.NumberU64()))
}

// Drain atomically removes up to n candidates, in ascending height order,
// moving them into the queue's in-flight set until MarkAsBad/MarkAsGood is
// called for each.
func (q *Queue[T]) Drain(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, 0, n)
	for i := 0; i < n && !q.pending.Empty(); i++ {
		item, _ := q.pending.Pop()
		q.inFlight[item.Hash()] = item
		out = append(out, item)
	}
	return out
}

// MarkAsBad removes hashes from the in-flight set, recording that the
// pipeline rejected them this pass.
func (q *Queue[T]) MarkAsBad(hashes []common.Hash) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, h := range hashes {
		delete(q.inFlight, h)
	}
}

// MarkAsGood removes hashes from the in-flight set, recording that the
// pipeline committed them this pass. It returns whether the queue (pending
// plus in-flight) is now empty; per spec §9 this is used only for an
// informational trace, never as a correctness signal.
func (q *Queue[T]) MarkAsGood(hashes []common.Hash) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, h := range hashes {
		delete(q.inFlight, h)
	}
	return q.pending.Empty() && len(q.inFlight) == 0
}

// Len reports the number of candidates currently pending (not yet drained).
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Size()
}

// badSet is a convenience constructor for the per-pass invalid-hash set
// (spec §3 "Invalid set"), named at the call site rather than imported
// inline so every pipeline uses the same set implementation.
func badSet() mapset.Set[common.Hash] {
	return mapset.NewThreadUnsafeSet[common.Hash]()
}
