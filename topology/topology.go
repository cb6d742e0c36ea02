// Package topology enumerates the Redis nodes behind a go-redis client and
// classifies them as primary or replica.
//
// Nothing is cached: nodes are discovered on every call because the topology
// (failover, resharding) can change between operations.
package topology

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

type Role uint8

const (
	Primary Role = iota
	Replica
)

func (r Role) String() string {
	if r == Replica {
		return "replica"
	}
	return "primary"
}

// Node is a single reachable Redis server.
type Node struct {
	Addr   string
	Role   Role
	Client *redis.Client
}

var (
	ErrUnsupportedClient = errors.New("topology: unsupported redis client type")
	ErrNoPrimary         = errors.New("topology: no primary node")
)

// Discover returns the nodes behind rdb sorted by address.
//
//   - *redis.Client (single node or sentinel failover): one node, role from ROLE.
//   - *redis.Ring: every shard, all primaries.
//   - *redis.ClusterClient: masters and replicas from the cluster state.
func Discover(ctx context.Context, rdb redis.UniversalClient) ([]Node, error) {
	var nodes []Node
	switch c := rdb.(type) {
	case *redis.Client:
		role, err := probeRole(ctx, c)
		if err != nil {
			return nil, err
		}
		return []Node{{Addr: clientAddr(ctx, c), Role: role, Client: c}}, nil
	case *redis.Ring:
		col := collector{role: Primary}
		if err := c.ForEachShard(ctx, col.add); err != nil {
			return nil, err
		}
		nodes = col.nodes
	case *redis.ClusterClient:
		primaries := collector{role: Primary}
		if err := c.ForEachMaster(ctx, primaries.add); err != nil {
			return nil, err
		}
		replicas := collector{role: Replica}
		if err := c.ForEachSlave(ctx, replicas.add); err != nil {
			return nil, err
		}
		nodes = append(primaries.nodes, replicas.nodes...)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedClient, rdb)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Addr < nodes[j].Addr })
	return nodes, nil
}

// Primaries filters nodes down to primaries, keeping order.
func Primaries(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Role == Primary {
			out = append(out, n)
		}
	}
	return out
}

// collector gathers nodes from go-redis ForEach* callbacks, which run concurrently.
type collector struct {
	role  Role
	mu    sync.Mutex
	nodes []Node
}

func (c *collector) add(_ context.Context, client *redis.Client) error {
	c.mu.Lock()
	c.nodes = append(c.nodes, Node{Addr: client.Options().Addr, Role: c.role, Client: client})
	c.mu.Unlock()
	return nil
}

// failoverAddr is the Options.Addr go-redis gives a sentinel failover client.
const failoverAddr = "FailoverClient"

// clientAddr returns the server address of c. A failover client only knows
// its current master once connected, so ask the server which local address
// the connection landed on; the placeholder is kept if that fails.
func clientAddr(ctx context.Context, c *redis.Client) string {
	addr := c.Options().Addr
	if addr != failoverAddr {
		return addr
	}
	info, err := c.Do(ctx, "CLIENT", "INFO").Text()
	if err != nil {
		return addr
	}
	if la := laddr(info); la != "" {
		return la
	}
	return addr
}

// laddr extracts the laddr field of a CLIENT INFO line.
func laddr(info string) string {
	for _, f := range strings.Fields(info) {
		if v, ok := strings.CutPrefix(f, "laddr="); ok {
			return v
		}
	}
	return ""
}

// probeRole asks a standalone node for its replication role. Servers that
// reject ROLE (old versions, proxies, emulators) are treated as primaries.
func probeRole(ctx context.Context, c *redis.Client) (Role, error) {
	res, err := c.Do(ctx, "ROLE").Slice()
	if err != nil {
		var rerr redis.Error
		if errors.As(err, &rerr) {
			return Primary, nil
		}
		return Primary, err
	}
	if len(res) > 0 {
		if s, ok := res[0].(string); ok && (strings.EqualFold(s, "slave") || strings.EqualFold(s, "replica")) {
			return Replica, nil
		}
	}
	return Primary, nil
}
