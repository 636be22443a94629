package importer

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type recordingClient struct {
	blocksCalls  int
	headersCalls int
	lastChanged  *common.Hash
}

func (c *recordingClient) NewBlocks(imported, invalid, enacted, retracted, sealed []common.Hash) {
	c.blocksCalls++
}

func (c *recordingClient) NewHeaders(imported, invalid, enacted, retracted []common.Hash, changed *common.Hash) {
	c.headersCalls++
	c.lastChanged = changed
}

type recordingMiner struct {
	calls int
}

func (m *recordingMiner) ChainNewBlocks(_ Client, imported, invalid, enacted, retracted []common.Hash) {
	m.calls++
}

func TestNotifierDirectCalls(t *testing.T) {
	client := &recordingClient{}
	miner := &recordingMiner{}
	n := NewNotifier(client, miner)

	n.notifyBlocks(nil, nil, nil, nil)
	if client.blocksCalls != 1 {
		t.Errorf("client.blocksCalls = %d, want 1", client.blocksCalls)
	}
	if miner.calls != 1 {
		t.Errorf("miner.calls = %d, want 1", miner.calls)
	}

	hash := common.HexToHash("0x01")
	n.notifyHeaders(nil, nil, nil, nil, &hash)
	if client.headersCalls != 1 {
		t.Errorf("client.headersCalls = %d, want 1", client.headersCalls)
	}
	if client.lastChanged == nil || *client.lastChanged != hash {
		t.Errorf("lastChanged = %v, want %s", client.lastChanged, hash)
	}
}

func TestNotifierNilClientAndMinerDontPanic(t *testing.T) {
	n := NewNotifier(nil, nil)
	n.notifyBlocks(nil, nil, nil, nil)
	n.notifyHeaders(nil, nil, nil, nil, nil)
}

func TestNotifierFeedSubscription(t *testing.T) {
	n := NewNotifier(nil, nil)
	defer n.Close()

	ch := make(chan BlocksEvent, 1)
	sub := n.SubscribeBlocks(ch)
	defer sub.Unsubscribe()

	imported := []common.Hash{common.HexToHash("0x01")}
	n.notifyBlocks(imported, nil, nil, nil)

	select {
	case ev := <-ch:
		if len(ev.Imported) != 1 || ev.Imported[0] != imported[0] {
			t.Errorf("feed event Imported = %v, want %v", ev.Imported, imported)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for feed event")
	}
}

func TestNotifierCloseStopsDelivery(t *testing.T) {
	n := NewNotifier(nil, nil)
	ch := make(chan HeadersEvent, 1)
	n.SubscribeHeaders(ch)
	n.Close()

	n.notifyHeaders(nil, nil, nil, nil, nil)

	select {
	case ev := <-ch:
		t.Fatalf("received event after Close: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
