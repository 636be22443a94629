// Package route implements the import-route model and aggregator (spec
// §3 "ImportRoute", §4.8 component C8).
package route

import "github.com/ethereum/go-ethereum/common"

// ImportRoute describes the chain-reorganization delta produced by a single
// chain-store insert: which blocks moved onto (Enacted) or off of
// (Retracted) the canonical chain because of this insert. Omitted hashes
// are blocks that were considered but never entered the canonical chain at
// all (e.g. a side-chain extension that didn't become the new head); they
// are never aggregated into observer notifications.
type ImportRoute struct {
	Enacted   []common.Hash
	Retracted []common.Hash
	Omitted   []common.Hash
}

// Invert returns the route that exactly undoes r: enacted and retracted
// swap places. Used by the round-trip aggregation property (spec §8).
func (r ImportRoute) Invert() ImportRoute {
	return ImportRoute{Enacted: r.Retracted, Retracted: r.Enacted, Omitted: r.Omitted}
}

// Aggregate collapses a sequence of per-insert ImportRoutes, in insertion
// order, into the net (enacted, retracted) pair describing the whole
// batch's effect on the canonical chain (spec §4.8).
//
// A block enacted by insert k may be retracted by insert k+1 (and vice
// versa) within the same pass; only the final label, after folding every
// route in order, is observable to subscribers. The fold uses a plain map
// because insertion order within it is irrelevant: only "last label wins"
// matters, which the sequential fold already guarantees.
func Aggregate(routes []ImportRoute) (enacted, retracted []common.Hash) {
	label := make(map[common.Hash]bool, len(routes))
	// order preserves first-seen insertion order for deterministic output,
	// matching the teacher's convention of stable gauge/log ordering.
	var order []common.Hash
	mark := func(hash common.Hash, isEnacted bool) {
		if _, seen := label[hash]; !seen {
			order = append(order, hash)
		}
		label[hash] = isEnacted
	}
	for _, r := range routes {
		for _, h := range r.Enacted {
			mark(h, true)
		}
		for _, h := range r.Retracted {
			mark(h, false)
		}
	}
	for _, hash := range order {
		if label[hash] {
			enacted = append(enacted, hash)
		} else {
			retracted = append(retracted, hash)
		}
	}
	return enacted, retracted
}
