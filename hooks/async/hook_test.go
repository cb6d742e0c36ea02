package asynchook

import (
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/casredis"
)

type counting struct {
	casredis.NopHooks
	mu    sync.Mutex
	ops   int
	block chan struct{}
}

func (c *counting) Op(string, time.Duration, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.ops++
	c.mu.Unlock()
}

func TestForwardsAndDrainsOnClose(t *testing.T) {
	inner := &counting{}
	h := New(inner, 2, 16)
	for i := 0; i < 10; i++ {
		h.Op("get", time.Millisecond, nil)
	}
	h.Close()

	if inner.ops != 10 {
		t.Fatalf("ops=%d, want 10", inner.ops)
	}
	h.Op("get", 0, nil)
	if h.Dropped() != 1 {
		t.Fatalf("event after Close not dropped: %d", h.Dropped())
	}
}

func TestDropsWhenFull(t *testing.T) {
	inner := &counting{block: make(chan struct{})}
	h := New(inner, 1, 1)

	// one event parked in the worker, one in the queue, the rest dropped
	for i := 0; i < 5; i++ {
		h.Op("get", 0, nil)
		time.Sleep(5 * time.Millisecond)
	}
	close(inner.block)
	h.Close()

	if got := inner.ops + int(h.Dropped()); got != 5 {
		t.Fatalf("delivered+dropped=%d, want 5", got)
	}
	if h.Dropped() == 0 {
		t.Fatalf("nothing dropped")
	}
}
