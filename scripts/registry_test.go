package scripts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/casredis/topology"
)

func newRegistry(t *testing.T, opts Options) (*Registry, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRegistry(rdb, opts), mr, rdb
}

func TestEnsureLoadedRecordsHandlePerPrimary(t *testing.T) {
	r, mr, _ := newRegistry(t, Options{})
	if r.Loaded() {
		t.Fatalf("fresh registry must not be loaded")
	}
	if err := r.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("EnsureLoaded: %v", err)
	}
	if !r.Loaded() {
		t.Fatalf("loaded flag not set")
	}
	for _, s := range All() {
		hs := r.Handles(s.Name)
		if hs[mr.Addr()] != s.Hash() {
			t.Fatalf("%s: handles=%v want %s", s.Name, hs, s.Hash())
		}
	}
}

func TestEnsureLoadedConcurrentCallersLoadOnce(t *testing.T) {
	var loads atomic.Int32
	r, _, _ := newRegistry(t, Options{OnLoaded: func(int) { loads.Add(1) }})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.EnsureLoaded(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("EnsureLoaded: %v", err)
		}
	}
	if got := loads.Load(); got != 1 {
		t.Fatalf("loads=%d, want 1", got)
	}
}

func TestEnsureLoadedFailureLeavesUnloaded(t *testing.T) {
	r, mr, _ := newRegistry(t, Options{})
	mr.Close()

	err := r.EnsureLoaded(context.Background())
	if err == nil {
		t.Fatalf("expected error with server down")
	}
	if r.Loaded() {
		t.Fatalf("loaded flag set after failure")
	}

	if err := mr.Restart(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := r.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("retry after restart: %v", err)
	}
	if !r.Loaded() {
		t.Fatalf("retry did not load")
	}
}

func TestEnsureLoadedWrapsScriptFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	other := miniredis.RunT(t)
	addr := other.Addr()
	other.Close()
	dead := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	t.Cleanup(func() { _ = dead.Close() })

	r := NewRegistry(rdb, Options{Discover: func(context.Context, redis.UniversalClient) ([]topology.Node, error) {
		return []topology.Node{
			{Addr: mr.Addr(), Role: topology.Primary, Client: rdb},
			{Addr: addr, Role: topology.Primary, Client: dead},
		}, nil
	}})

	err := r.EnsureLoaded(context.Background())
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("err=%v, want *LoadError", err)
	}
	if le.Node != addr {
		t.Fatalf("LoadError.Node=%q, want %q", le.Node, addr)
	}
	if r.Loaded() {
		t.Fatalf("partial load must not set the flag")
	}
}

func TestEnsureLoadedSkipsReplicas(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := NewRegistry(rdb, Options{Discover: func(context.Context, redis.UniversalClient) ([]topology.Node, error) {
		return []topology.Node{
			{Addr: mr.Addr(), Role: topology.Primary, Client: rdb},
			{Addr: "replica:6379", Role: topology.Replica},
		}, nil
	}})
	if err := r.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("EnsureLoaded: %v", err)
	}
	hs := r.Handles(RemoveIfEqualName)
	if len(hs) != 1 {
		t.Fatalf("handles=%v, want only the primary", hs)
	}
}

func TestEnsureLoadedNoPrimary(t *testing.T) {
	r, _, _ := newRegistry(t, Options{Discover: func(context.Context, redis.UniversalClient) ([]topology.Node, error) {
		return []topology.Node{{Addr: "r", Role: topology.Replica}}, nil
	}})
	if err := r.EnsureLoaded(context.Background()); !errors.Is(err, topology.ErrNoPrimary) {
		t.Fatalf("err=%v, want ErrNoPrimary", err)
	}
}

func TestEnsureLoadedCancelledWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	r, _, _ := newRegistry(t, Options{})
	r.opts.Discover = func(ctx context.Context, rdb redis.UniversalClient) ([]topology.Node, error) {
		close(entered)
		<-release
		return topology.Discover(ctx, rdb)
	}

	done := make(chan error, 1)
	go func() { done <- r.EnsureLoaded(context.Background()) }()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.EnsureLoaded(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("waiter err=%v, want deadline exceeded", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("loader: %v", err)
	}
	if !r.Loaded() {
		t.Fatalf("loader did not finish")
	}
}

func TestRemoveIfEqual(t *testing.T) {
	r, mr, _ := newRegistry(t, Options{})
	ctx := context.Background()
	mr.Set("k", "v1")

	ok, err := r.RemoveIfEqual(ctx, "k", []byte("other"))
	if err != nil || ok {
		t.Fatalf("mismatch: ok=%v err=%v", ok, err)
	}
	if !mr.Exists("k") {
		t.Fatalf("mismatch removed the key")
	}

	ok, err = r.RemoveIfEqual(ctx, "k", []byte("v1"))
	if err != nil || !ok {
		t.Fatalf("match: ok=%v err=%v", ok, err)
	}
	if mr.Exists("k") {
		t.Fatalf("key still present")
	}

	ok, err = r.RemoveIfEqual(ctx, "k", []byte("v1"))
	if err != nil || ok {
		t.Fatalf("absent: ok=%v err=%v", ok, err)
	}
}

func TestReplaceIfEqual(t *testing.T) {
	r, mr, _ := newRegistry(t, Options{})
	ctx := context.Background()
	mr.Set("k", "v1")

	ok, err := r.ReplaceIfEqual(ctx, "k", []byte("v2"), []byte("nope"), time.Minute)
	if err != nil || ok {
		t.Fatalf("mismatch: ok=%v err=%v", ok, err)
	}
	if got, _ := mr.Get("k"); got != "v1" {
		t.Fatalf("mismatch changed value to %q", got)
	}

	ok, err = r.ReplaceIfEqual(ctx, "k", []byte("v2"), []byte("v1"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("match: ok=%v err=%v", ok, err)
	}
	if got, _ := mr.Get("k"); got != "v2" {
		t.Fatalf("value=%q, want v2", got)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Fatalf("ttl=%v, want 1m", ttl)
	}

	ok, err = r.ReplaceIfEqual(ctx, "k", []byte("v3"), []byte("v2"), 0)
	if err != nil || !ok {
		t.Fatalf("no ttl: ok=%v err=%v", ok, err)
	}
	if ttl := mr.TTL("k"); ttl != 0 {
		t.Fatalf("ttl=%v, want none", ttl)
	}

	ok, err = r.ReplaceIfEqual(ctx, "absent", []byte("x"), []byte("y"), time.Minute)
	if err != nil || ok {
		t.Fatalf("absent: ok=%v err=%v", ok, err)
	}
}

func TestExecReloadsAfterScriptFlush(t *testing.T) {
	var resets []string
	r, mr, rdb := newRegistry(t, Options{OnReset: func(reason string) { resets = append(resets, reason) }})
	ctx := context.Background()

	if err := r.EnsureLoaded(ctx); err != nil {
		t.Fatalf("EnsureLoaded: %v", err)
	}
	if err := rdb.ScriptFlush(ctx).Err(); err != nil {
		t.Fatalf("SCRIPT FLUSH: %v", err)
	}
	mr.Set("k", "v")

	ok, err := r.RemoveIfEqual(ctx, "k", []byte("v"))
	if err != nil || !ok {
		t.Fatalf("after flush: ok=%v err=%v", ok, err)
	}
	if len(resets) != 1 || resets[0] != "noscript" {
		t.Fatalf("resets=%v", resets)
	}
	if !r.Loaded() {
		t.Fatalf("registry not re-armed")
	}
}

func TestResetClearsHandles(t *testing.T) {
	r, _, _ := newRegistry(t, Options{})
	if err := r.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("EnsureLoaded: %v", err)
	}
	r.Reset("manual")
	if r.Loaded() || r.Handles(RemoveIfEqualName) != nil {
		t.Fatalf("reset left state behind")
	}
}

func TestIsNoScript(t *testing.T) {
	if isNoScript(nil) || isNoScript(errors.New("NOSCRIPT plain error")) {
		t.Fatalf("non-redis errors are not NOSCRIPT")
	}
}
