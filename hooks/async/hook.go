// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{DecodeFailedEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	c, _ := casredis.New(casredis.Options{Client: rdb, Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/casredis"
)

// Hooks forwards events to inner from a bounded queue. Events are dropped
// when the queue is full.
type Hooks struct {
	inner   casredis.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ casredis.Hooks = (*Hooks)(nil)

func New(inner casredis.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped counts events lost to a full queue or a closed wrapper.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	if h.closed.Load() {
		h.dropped.Add(1)
		return
	}
	defer func() {
		// lost the race with Close
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Op(op string, took time.Duration, err error) {
	h.try(func() { h.inner.Op(op, took, err) })
}
func (h *Hooks) Read(s casredis.State)            { h.try(func() { h.inner.Read(s) }) }
func (h *Hooks) DecodeFailed(k string, err error) { h.try(func() { h.inner.DecodeFailed(k, err) }) }
func (h *Hooks) ScriptsLoaded(n int)              { h.try(func() { h.inner.ScriptsLoaded(n) }) }
func (h *Hooks) ScriptsReset(reason string)       { h.try(func() { h.inner.ScriptsReset(reason) }) }
func (h *Hooks) FlushNode(r casredis.NodeResult)  { h.try(func() { h.inner.FlushNode(r) }) }
