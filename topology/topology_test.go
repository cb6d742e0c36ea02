package topology

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDiscoverSingleNode(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	nodes, err := Discover(context.Background(), rdb)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Addr != mr.Addr() || nodes[0].Role != Primary {
		t.Fatalf("got %+v", nodes)
	}
	if nodes[0].Client != rdb {
		t.Fatalf("single node must reuse the caller's client")
	}
}

func TestDiscoverRingListsEveryShard(t *testing.T) {
	a, b := miniredis.RunT(t), miniredis.RunT(t)
	ring := redis.NewRing(&redis.RingOptions{Addrs: map[string]string{"a": a.Addr(), "b": b.Addr()}})
	t.Cleanup(func() { _ = ring.Close() })

	nodes, err := Discover(context.Background(), ring)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("want 2 nodes, got %+v", nodes)
	}
	if nodes[0].Addr > nodes[1].Addr {
		t.Fatalf("nodes not sorted: %+v", nodes)
	}
	seen := map[string]bool{}
	for _, n := range nodes {
		if n.Role != Primary {
			t.Fatalf("ring shard must be primary: %+v", n)
		}
		seen[n.Addr] = true
	}
	if !seen[a.Addr()] || !seen[b.Addr()] {
		t.Fatalf("missing shard: %+v", nodes)
	}
}

func TestDiscoverUnreachableNode(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	if _, err := Discover(context.Background(), rdb); err == nil {
		t.Fatalf("expected transport error")
	}
}

type wrapped struct{ *redis.Client }

func TestDiscoverUnsupportedClient(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	_, err := Discover(context.Background(), wrapped{rdb})
	if !errors.Is(err, ErrUnsupportedClient) {
		t.Fatalf("err=%v, want ErrUnsupportedClient", err)
	}
}

func TestPrimaries(t *testing.T) {
	in := []Node{{Addr: "a", Role: Primary}, {Addr: "b", Role: Replica}, {Addr: "c", Role: Primary}}
	got := Primaries(in)
	if len(got) != 2 || got[0].Addr != "a" || got[1].Addr != "c" {
		t.Fatalf("got %+v", got)
	}
	if Replica.String() != "replica" || Primary.String() != "primary" {
		t.Fatalf("role strings")
	}
}

func TestLAddr(t *testing.T) {
	info := "id=3 addr=10.0.0.9:51234 laddr=10.0.0.5:6379 fd=8 name= age=0 db=0\n"
	if got := laddr(info); got != "10.0.0.5:6379" {
		t.Fatalf("laddr = %q", got)
	}
	if got := laddr("id=3 addr=10.0.0.9:51234"); got != "" {
		t.Fatalf("missing laddr = %q", got)
	}
}

func TestClientAddrKeepsConfiguredAddr(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	if got := clientAddr(context.Background(), rdb); got != mr.Addr() {
		t.Fatalf("clientAddr = %q", got)
	}
}

func TestDiscoverFailoverClient(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: failoverAddr,
		Dialer: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, mr.Addr())
		},
	})
	t.Cleanup(func() { _ = rdb.Close() })

	nodes, err := Discover(context.Background(), rdb)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Role != Primary || nodes[0].Addr == "" {
		t.Fatalf("got %+v", nodes)
	}
}
