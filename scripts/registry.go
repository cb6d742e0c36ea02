package scripts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/unkn0wn-root/casredis/topology"
)

// LoadError reports a script that could not be registered on a primary.
type LoadError struct {
	Script string
	Node   string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("scripts: load %s on %s: %v", e.Script, e.Node, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DiscoverFunc enumerates nodes. topology.Discover is the default.
type DiscoverFunc func(ctx context.Context, rdb redis.UniversalClient) ([]topology.Node, error)

type Options struct {
	Discover DiscoverFunc
	// OnLoaded runs after a successful load with the number of primaries covered.
	OnLoaded func(primaries int)
	// OnReset runs whenever the registry is re-armed.
	OnReset func(reason string)
}

// handles maps script name -> node address -> SHA1 returned by SCRIPT LOAD.
type handles map[string]map[string]string

// Registry loads the CAS scripts on every primary the first time they are
// needed. Handles are written once per load and read without locking.
type Registry struct {
	rdb    redis.UniversalClient
	opts   Options
	sem    *semaphore.Weighted
	loaded atomic.Bool
	hs     atomic.Pointer[handles]
}

func NewRegistry(rdb redis.UniversalClient, opts Options) *Registry {
	if opts.Discover == nil {
		opts.Discover = topology.Discover
	}
	return &Registry{rdb: rdb, opts: opts, sem: semaphore.NewWeighted(1)}
}

func (r *Registry) Loaded() bool { return r.loaded.Load() }

// EnsureLoaded registers every script on every primary. Concurrent callers
// wait for a single load; a failed or cancelled load leaves the registry
// unloaded so a later call tries again.
func (r *Registry) EnsureLoaded(ctx context.Context) error {
	if r.loaded.Load() {
		return nil
	}
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.sem.Release(1)
	if r.loaded.Load() {
		return nil
	}

	nodes, err := r.opts.Discover(ctx, r.rdb)
	if err != nil {
		return err
	}
	primaries := topology.Primaries(nodes)
	if len(primaries) == 0 {
		return topology.ErrNoPrimary
	}

	all := All()
	// one slot per (script, primary); goroutines write disjoint indexes
	shas := make([]string, len(all)*len(primaries))
	g, gctx := errgroup.WithContext(ctx)
	for pi, n := range primaries {
		for si, s := range all {
			idx := si*len(primaries) + pi
			g.Go(func() error {
				sha, err := s.script.Load(gctx, n.Client).Result()
				if err != nil {
					return &LoadError{Script: s.Name, Node: n.Addr, Err: err}
				}
				shas[idx] = sha
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	hs := make(handles, len(all))
	for si, s := range all {
		byNode := make(map[string]string, len(primaries))
		for pi, n := range primaries {
			byNode[n.Addr] = shas[si*len(primaries)+pi]
		}
		hs[s.Name] = byNode
	}
	r.hs.Store(&hs)
	r.loaded.Store(true)
	if r.opts.OnLoaded != nil {
		r.opts.OnLoaded(len(primaries))
	}
	return nil
}

// Reset drops the loaded handles; the next CAS call reloads them.
func (r *Registry) Reset(reason string) {
	r.loaded.Store(false)
	r.hs.Store(nil)
	if r.opts.OnReset != nil {
		r.opts.OnReset(reason)
	}
}

// Handles returns a copy of the per-node handles of one script, or nil when
// the registry is not loaded.
func (r *Registry) Handles(name string) map[string]string {
	hs := r.hs.Load()
	if hs == nil {
		return nil
	}
	byNode := (*hs)[name]
	out := make(map[string]string, len(byNode))
	for k, v := range byNode {
		out[k] = v
	}
	return out
}

// RemoveIfEqual deletes key when its stored value equals expected.
func (r *Registry) RemoveIfEqual(ctx context.Context, key string, expected []byte) (bool, error) {
	return r.exec(ctx, RemoveIfEqual, key, expected)
}

// ReplaceIfEqual stores value at key when the stored value equals expected.
// ttl <= 0 stores without expiry.
func (r *Registry) ReplaceIfEqual(ctx context.Context, key string, value, expected []byte, ttl time.Duration) (bool, error) {
	px := ""
	if ttl > 0 {
		ms := ttl.Milliseconds()
		if ms == 0 {
			ms = 1
		}
		px = strconv.FormatInt(ms, 10)
	}
	return r.exec(ctx, ReplaceIfEqual, key, value, expected, px)
}

func (r *Registry) exec(ctx context.Context, s Script, key string, args ...any) (bool, error) {
	if err := r.EnsureLoaded(ctx); err != nil {
		return false, err
	}
	n, err := r.evalSha(ctx, s, key, args)
	if isNoScript(err) {
		// node restarted, failed over or had its script cache flushed
		r.Reset("noscript")
		if err := r.EnsureLoaded(ctx); err != nil {
			return false, err
		}
		n, err = r.evalSha(ctx, s, key, args)
	}
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// evalSha runs the script by hash. The hash is the same on every node so
// go-redis can route by key on ring and cluster clients.
func (r *Registry) evalSha(ctx context.Context, s Script, key string, args []any) (int64, error) {
	return r.rdb.EvalSha(ctx, r.sha(s), []string{key}, args...).Int64()
}

func (r *Registry) sha(s Script) string {
	if hs := r.hs.Load(); hs != nil {
		for _, sha := range (*hs)[s.Name] {
			return sha
		}
	}
	return s.Hash()
}

func isNoScript(err error) bool {
	if err == nil {
		return false
	}
	var rerr redis.Error
	return errors.As(err, &rerr) && strings.HasPrefix(rerr.Error(), "NOSCRIPT")
}
