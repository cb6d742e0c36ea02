package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setup(t *testing.T) (*miniredis.Miniredis, string) {
	t.Helper()
	mr := miniredis.RunT(t)
	p := filepath.Join(t.TempDir(), "casredis.yaml")
	body := "redis:\n  addrs: [\"" + mr.Addr() + "\"]\nlog:\n  level: error\n"
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return mr, p
}

func runCmd(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"-config", cfg}, args...), &out)
	return strings.TrimSpace(out.String()), err
}

func TestCommands(t *testing.T) {
	mr, cfg := setup(t)

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"get", "k"}, "(miss)"},
		{[]string{"set", "k", "v1", "1m"}, "true"},
		{[]string{"get", "k"}, "v1"},
		{[]string{"exists", "k"}, "true"},
		{[]string{"ttl", "k"}, "1m0s"},
		{[]string{"cas-set", "k", "v2", "nope"}, "false"},
		{[]string{"cas-set", "k", "v2", "v1", "30s"}, "true"},
		{[]string{"ttl", "k"}, "30s"},
		{[]string{"cas-del", "k", "v1"}, "false"},
		{[]string{"cas-del", "k", "v2"}, "true"},
		{[]string{"ttl", "k"}, "(none)"},
		{[]string{"set", "a", "1"}, "true"},
		{[]string{"set", "b", "2"}, "true"},
		{[]string{"del", "a", "b", "c"}, "2"},
		{[]string{"set", "x", "1"}, "true"},
		{[]string{"expire", "x", "-1s"}, "true"},
		{[]string{"del", "x"}, "false"},
	}
	for _, s := range steps {
		got, err := runCmd(t, cfg, s.args...)
		if err != nil {
			t.Fatalf("%v: %v", s.args, err)
		}
		if got != s.want {
			t.Fatalf("%v: got %q, want %q", s.args, got, s.want)
		}
	}

	mr.Set("y", "1")
	got, err := runCmd(t, cfg, "flush")
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !strings.HasSuffix(got, "removed 1") || !strings.Contains(got, "flushdb") {
		t.Fatalf("flush output %q", got)
	}
}

func TestUsageErrors(t *testing.T) {
	_, cfg := setup(t)
	for _, args := range [][]string{
		{},
		{"nope"},
		{"get"},
		{"set", "k"},
		{"expire", "k", "soon"},
	} {
		if _, err := runCmd(t, cfg, args...); !errors.Is(err, errUsage) {
			t.Fatalf("%v: err=%v, want usage error", args, err)
		}
	}
}
