package casredis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/casredis/internal/keys"
	"github.com/unkn0wn-root/casredis/topology"
)

// FlushMethod is how a node was cleared.
type FlushMethod string

const (
	FlushDB      FlushMethod = "flushdb" // DBSIZE + FLUSHDB
	FlushScan    FlushMethod = "scan"    // SCAN + DEL
	FlushSkipped FlushMethod = "skipped"
)

// NodeResult is the outcome of flushing one node. Removed may be non-zero
// alongside Err when a scan failed part way.
type NodeResult struct {
	Addr    string
	Role    topology.Role
	Method  FlushMethod
	Removed int64
	Err     error
}

// FlushReport lists every discovered node in address order.
type FlushReport struct {
	Nodes []NodeResult
}

// Removed sums keys deleted across nodes.
func (r FlushReport) Removed() int64 {
	var n int64
	for _, nr := range r.Nodes {
		n += nr.Removed
	}
	return n
}

// Failed returns the nodes that reported an error.
func (r FlushReport) Failed() []NodeResult {
	var out []NodeResult
	for _, nr := range r.Nodes {
		if nr.Err != nil {
			out = append(out, nr)
		}
	}
	return out
}

// RemoveAll deletes ks in one batch and returns how many existed. Empty keys
// are skipped. A nil ks flushes everything (see FlushAll) and returns the
// best-effort total.
func (c *Client) RemoveAll(ctx context.Context, ks []string) (n int64, err error) {
	if ks == nil {
		rep, err := c.FlushAll(ctx)
		return rep.Removed(), err
	}
	defer c.observe("remove_all", time.Now(), &err)
	if !c.enabled {
		return 0, nil
	}
	live := make([]string, 0, len(ks))
	for _, k := range ks {
		if k != "" {
			live = append(live, k)
		}
	}
	if len(live) == 0 {
		return 0, nil
	}
	sks := keys.StorageAll(c.prefix, live)
	defer c.nearDel(sks...)

	if !c.multiShard() {
		n, err = c.rdb.Del(ctx, sks...).Result()
		if err != nil {
			return 0, c.storeErr("remove_all", "", err)
		}
		return n, nil
	}
	// per-key DEL avoids CROSSSLOT on cluster and misrouting on ring
	cmds := make([]*redis.IntCmd, len(sks))
	_, err = c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, sk := range sks {
			cmds[i] = p.Del(ctx, sk)
		}
		return nil
	})
	if err != nil {
		return 0, c.storeErr("remove_all", "", err)
	}
	for _, cmd := range cmds {
		n += cmd.Val()
	}
	return n, nil
}

// FlushAll clears every primary. Without a prefix each node gets FLUSHDB,
// falling back to SCAN + DEL when FLUSHDB is refused; with a prefix only keys
// under it are scanned and deleted. Replicas are listed as skipped. A failing
// node does not stop the others; err is set only when nodes cannot be discovered.
func (c *Client) FlushAll(ctx context.Context) (rep FlushReport, err error) {
	defer c.observe("flush_all", time.Now(), &err)
	if !c.enabled {
		return rep, nil
	}
	nodes, err := topology.Discover(ctx, c.rdb)
	if err != nil {
		return rep, c.storeErr("flush_all", "", err)
	}
	rep = c.flushNodes(ctx, nodes)
	if c.near != nil {
		c.near.Clear()
	}
	return rep, nil
}

func (c *Client) flushNodes(ctx context.Context, nodes []topology.Node) FlushReport {
	rep := FlushReport{Nodes: make([]NodeResult, 0, len(nodes))}
	for _, n := range nodes {
		nr := NodeResult{Addr: n.Addr, Role: n.Role, Method: FlushSkipped}
		if n.Role == topology.Primary {
			nr = c.flushNode(ctx, n)
		}
		if nr.Err != nil {
			c.log.Warn("flush node failed", Fields{
				"addr": nr.Addr, "method": string(nr.Method), "removed": nr.Removed, "err": nr.Err,
			})
		}
		c.hooks.FlushNode(nr)
		rep.Nodes = append(rep.Nodes, nr)
	}
	return rep
}

func (c *Client) flushNode(ctx context.Context, n topology.Node) NodeResult {
	nr := NodeResult{Addr: n.Addr, Role: n.Role}
	if c.prefix == "" {
		size, err := n.Client.DBSize(ctx).Result()
		if err == nil {
			err = n.Client.FlushDB(ctx).Err()
		}
		if err == nil {
			nr.Method, nr.Removed = FlushDB, size
			return nr
		}
		if ctx.Err() != nil {
			nr.Method, nr.Err = FlushDB, err
			return nr
		}
		c.log.Debug("flushdb refused, scanning", Fields{"addr": n.Addr, "err": err})
	}
	nr.Method = FlushScan
	nr.Removed, nr.Err = scanDelete(ctx, n.Client, keys.Pattern(c.prefix))
	return nr
}

// scanDelete deletes every key matching pattern, one SCAN page at a time.
// Keys go out as individual DELs so cluster nodes never see CROSSSLOT.
func scanDelete(ctx context.Context, rdb *redis.Client, pattern string) (int64, error) {
	var (
		removed int64
		cursor  uint64
	)
	for {
		page, next, err := rdb.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return removed, err
		}
		if len(page) > 0 {
			cmds, err := rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
				for _, k := range page {
					p.Del(ctx, k)
				}
				return nil
			})
			for _, cmd := range cmds {
				if ic, ok := cmd.(*redis.IntCmd); ok {
					removed += ic.Val()
				}
			}
			if err != nil {
				return removed, err
			}
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
