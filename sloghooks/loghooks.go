package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/casredis"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	DecodeFailedEvery uint64
	// Log operations slower than this at Warn; 0 disables.
	SlowOp time.Duration
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

// Hooks logs high-signal cache events to slog. Reads are not logged.
type Hooks struct {
	l    *slog.Logger
	opts Options

	decodeCtr atomic.Uint64
}

var _ casredis.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Op(op string, took time.Duration, err error) {
	if h.l == nil {
		return
	}
	if err != nil {
		h.l.Debug("casredis.op_error", "op", op, "took", took, "err", err)
		return
	}
	if h.opts.SlowOp > 0 && took >= h.opts.SlowOp {
		h.l.Warn("casredis.slow_op", "op", op, "took", took)
	}
}

func (h *Hooks) Read(casredis.State) {}

func (h *Hooks) DecodeFailed(key string, err error) {
	if h.l == nil || !sample(h.opts.DecodeFailedEvery, &h.decodeCtr) {
		return
	}
	h.l.Warn("casredis.decode_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) ScriptsLoaded(primaries int) {
	if h.l == nil {
		return
	}
	h.l.Info("casredis.scripts_loaded", "primaries", primaries)
}

func (h *Hooks) ScriptsReset(reason string) {
	if h.l == nil {
		return
	}
	h.l.Info("casredis.scripts_reset", "reason", reason)
}

func (h *Hooks) FlushNode(r casredis.NodeResult) {
	if h.l == nil {
		return
	}
	if r.Err != nil {
		h.l.Error("casredis.flush_node_failed",
			"addr", r.Addr,
			"method", string(r.Method),
			"removed", r.Removed,
			"err", r.Err)
		return
	}
	h.l.Info("casredis.flush_node",
		"addr", r.Addr,
		"method", string(r.Method),
		"removed", r.Removed)
}
