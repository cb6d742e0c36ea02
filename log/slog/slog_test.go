package slog

import (
	"bytes"
	"encoding/json"
	stdslog "log/slog"
	"testing"

	"github.com/unkn0wn-root/casredis"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewJSONHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelDebug}))}

	l.Error("flush node failed", casredis.Fields{"addr": "10.0.0.1:6379"})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["level"] != "ERROR" || rec["msg"] != "flush node failed" || rec["addr"] != "10.0.0.1:6379" {
		t.Fatalf("record %v", rec)
	}
}
