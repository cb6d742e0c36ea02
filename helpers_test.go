package casredis

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func newTestClient(t *testing.T, opts Options) (*Client, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	opts.Client = rdb
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, mr, rdb
}

// deadClient points at a closed server and never retries.
func deadClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

type recHooks struct {
	mu      sync.Mutex
	ops     map[string]int
	reads   map[State]int
	decodes int
	loaded  int
	resets  []string
	flushed []NodeResult
}

func newRecHooks() *recHooks {
	return &recHooks{ops: map[string]int{}, reads: map[State]int{}}
}

func (h *recHooks) Op(op string, _ time.Duration, _ error) {
	h.mu.Lock()
	h.ops[op]++
	h.mu.Unlock()
}

func (h *recHooks) Read(s State) {
	h.mu.Lock()
	h.reads[s]++
	h.mu.Unlock()
}

func (h *recHooks) DecodeFailed(string, error) {
	h.mu.Lock()
	h.decodes++
	h.mu.Unlock()
}

func (h *recHooks) ScriptsLoaded(int) {
	h.mu.Lock()
	h.loaded++
	h.mu.Unlock()
}

func (h *recHooks) ScriptsReset(reason string) {
	h.mu.Lock()
	h.resets = append(h.resets, reason)
	h.mu.Unlock()
}

func (h *recHooks) FlushNode(r NodeResult) {
	h.mu.Lock()
	h.flushed = append(h.flushed, r)
	h.mu.Unlock()
}

type recLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recLogger) Debug(string, Fields) {}
func (l *recLogger) Info(string, Fields)  {}
func (l *recLogger) Error(string, Fields) {}
func (l *recLogger) Warn(msg string, _ Fields) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
