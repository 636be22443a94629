package importer

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// Client is the downstream chain-observer surface (spec §6 "Downstream
// (produced)"): RPC subscriptions, peer propagation and anything else that
// cares about the net effect of an import pass.
type Client interface {
	// NewBlocks reports the outcome of a block-import pass. sealed is
	// always empty from the importer itself; it exists only so the
	// interface mirrors what a miner-augmented client also reports.
	NewBlocks(imported, invalid, enacted, retracted, sealed []common.Hash)

	// NewHeaders reports the outcome of a header-import pass.
	// bestProposalHeaderChanged is nil unless the pass moved the best
	// proposal header, in which case it holds the new header's hash.
	NewHeaders(imported, invalid, enacted, retracted []common.Hash, bestProposalHeaderChanged *common.Hash)
}

// Miner is the downstream sealing-loop surface: it needs to know about a
// completed block-import pass so it can decide whether to restart sealing
// work on a new parent.
type Miner interface {
	ChainNewBlocks(client Client, imported, invalid, enacted, retracted []common.Hash)
}

// BlocksEvent and HeadersEvent are the event.Feed payloads published
// alongside the direct Client/Miner calls, for subscribers that prefer a
// channel over an interface implementation, the same dual surface the
// teacher's core.BlockChain exposes via ChainEvent/ChainHeadEvent feeds
// next to its direct hooks.
type BlocksEvent struct {
	Imported, Invalid, Enacted, Retracted, Sealed []common.Hash
}

type HeadersEvent struct {
	Imported, Invalid, Enacted, Retracted []common.Hash
	BestProposalHeaderChanged             *common.Hash
}

// Notifier fans a pass's outcome out to an optional Client/Miner pair and to
// any event.Feed subscribers, in the order spec §4.7 requires: after the
// batch has been committed in memory and written buffered to the store.
type Notifier struct {
	client Client
	miner  Miner

	blocksFeed  event.Feed
	headersFeed event.Feed
	scope       event.SubscriptionScope
}

// NewNotifier returns a Notifier. client and miner may be nil; a nil
// Client/Miner simply receives no direct call, feed subscribers are
// unaffected. The miner is called only when a client is also set, since
// ChainNewBlocks receives the client.
func NewNotifier(client Client, miner Miner) *Notifier {
	return &Notifier{client: client, miner: miner}
}

// SubscribeBlocks registers a channel subscription for block-import pass
// outcomes.
func (n *Notifier) SubscribeBlocks(ch chan<- BlocksEvent) event.Subscription {
	return n.scope.Track(n.blocksFeed.Subscribe(ch))
}

// SubscribeHeaders registers a channel subscription for header-import pass
// outcomes.
func (n *Notifier) SubscribeHeaders(ch chan<- HeadersEvent) event.Subscription {
	return n.scope.Track(n.headersFeed.Subscribe(ch))
}

// Close stops delivering to every channel subscriber.
func (n *Notifier) Close() { n.scope.Close() }

func (n *Notifier) notifyBlocks(imported, invalid, enacted, retracted []common.Hash) {
	var sealed []common.Hash
	if n.miner != nil && n.client != nil {
		n.miner.ChainNewBlocks(n.client, imported, invalid, enacted, retracted)
	}
	if n.client != nil {
		n.client.NewBlocks(imported, invalid, enacted, retracted, sealed)
	}
	n.blocksFeed.Send(BlocksEvent{Imported: imported, Invalid: invalid, Enacted: enacted, Retracted: retracted, Sealed: sealed})
}

func (n *Notifier) notifyHeaders(imported, invalid, enacted, retracted []common.Hash, bestProposalHeaderChanged *common.Hash) {
	if n.client != nil {
		n.client.NewHeaders(imported, invalid, enacted, retracted, bestProposalHeaderChanged)
	}
	n.headersFeed.Send(HeadersEvent{
		Imported: imported, Invalid: invalid, Enacted: enacted, Retracted: retracted,
		BestProposalHeaderChanged: bestProposalHeaderChanged,
	})
}
