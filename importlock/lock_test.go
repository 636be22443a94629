package importlock

import (
	"testing"
	"time"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	l := New()
	tok := l.Acquire()
	l.Release(tok)
}

func TestAcquireBlocksUntilReleased(t *testing.T) {
	l := New()
	tok := l.Acquire()

	acquired := make(chan struct{})
	go func() {
		second := l.Acquire()
		defer l.Release(second)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire returned before the first Release")
	case <-time.After(50 * time.Millisecond):
	}

	l.Release(tok)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire never returned after Release")
	}
}
