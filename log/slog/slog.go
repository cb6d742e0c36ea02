// Package slog adapts a *slog.Logger to casredis.Logger.
//
// Fields become attributes in map order. Flush failures carry an "err"
// attribute holding the node error, and NOSCRIPT reloads log at Warn with
// reason=noscript, so a handler filtering on Warn sees every degraded path.
package slog

import (
	"context"
	stdslog "log/slog"

	"github.com/unkn0wn-root/casredis"
)

var _ casredis.Logger = Logger{}

// Logger writes casredis events through L with a background context.
type Logger struct{ L *stdslog.Logger }

func (s Logger) Debug(msg string, f casredis.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelDebug, msg, attrs(f)...)
}
func (s Logger) Info(msg string, f casredis.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelInfo, msg, attrs(f)...)
}
func (s Logger) Warn(msg string, f casredis.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelWarn, msg, attrs(f)...)
}
func (s Logger) Error(msg string, f casredis.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelError, msg, attrs(f)...)
}

func attrs(f casredis.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	out := make([]stdslog.Attr, 0, len(f))
	for k, v := range f {
		out = append(out, stdslog.Any(k, v))
	}
	return out
}
