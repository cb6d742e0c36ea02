// Command casredis runs a single cache operation against the configured Redis.
//
//	casredis [-config casredis.yaml] [-timeout 5s] <command> [args]
//
//	get <key>                       print value, or (null) / (miss)
//	set <key> <value> [ttl]         Add
//	del <key> [key...]              Remove / RemoveAll
//	exists <key>
//	ttl <key>                       remaining TTL, or (none)
//	expire <key> <ttl>              negative ttl deletes
//	cas-del <key> <expected>        RemoveIfEquals
//	cas-set <key> <new> <expected> [ttl]
//	flush                           FlushAll, one line per node
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/casredis"
	"github.com/unkn0wn-root/casredis/config"
	zaplog "github.com/unkn0wn-root/casredis/log/zap"
)

var errUsage = errors.New("usage: casredis [-config file] [-timeout d] <get|set|del|exists|ttl|expire|cas-del|cas-set|flush> [args]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("casredis", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfgPath := fs.String("config", "", "config file (default: casredis.yaml in . or ./config)")
	timeout := fs.Duration("timeout", 5*time.Second, "per-command timeout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	zl, err := zaplog.NewLogger(zaplog.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	rdb, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	opts, err := cfg.Cache.Options(rdb, zaplog.ZapLogger{L: zl})
	if err != nil {
		_ = rdb.Close()
		return err
	}
	opts.CloseClient = true
	client, err := casredis.New(opts)
	if err != nil {
		_ = rdb.Close()
		return err
	}
	defer func() { _ = client.Close(context.Background()) }()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	zl.Debug("running command", zap.String("cmd", cmd), zap.Strings("args", rest))
	return dispatch(ctx, client, cmd, rest, out)
}

func dispatch(ctx context.Context, c *casredis.Client, cmd string, args []string, out io.Writer) error {
	s := casredis.For[string](c)
	switch cmd {
	case "get":
		if err := nargs(args, 1, 1); err != nil {
			return err
		}
		it, err := s.GetWithExpiration(ctx, args[0])
		if err != nil {
			return err
		}
		switch it.State {
		case casredis.Found:
			fmt.Fprintln(out, it.Value)
		case casredis.FoundNull:
			fmt.Fprintln(out, "(null)")
		default:
			fmt.Fprintln(out, "(miss)")
		}
		return nil

	case "set":
		if err := nargs(args, 2, 3); err != nil {
			return err
		}
		ttl, err := optTTL(args, 2)
		if err != nil {
			return err
		}
		ok, err := s.Add(ctx, args[0], args[1], ttl)
		return printBool(out, ok, err)

	case "del":
		if err := nargs(args, 1, -1); err != nil {
			return err
		}
		if len(args) == 1 {
			ok, err := c.Remove(ctx, args[0])
			return printBool(out, ok, err)
		}
		n, err := c.RemoveAll(ctx, args)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, n)
		return nil

	case "exists":
		if err := nargs(args, 1, 1); err != nil {
			return err
		}
		ok, err := c.Exists(ctx, args[0])
		return printBool(out, ok, err)

	case "ttl":
		if err := nargs(args, 1, 1); err != nil {
			return err
		}
		d, ok, err := c.GetExpiration(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "(none)")
			return nil
		}
		fmt.Fprintln(out, d)
		return nil

	case "expire":
		if err := nargs(args, 2, 2); err != nil {
			return err
		}
		ttl, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("%w: ttl: %v", errUsage, err)
		}
		ok, err := c.SetExpiration(ctx, args[0], ttl)
		return printBool(out, ok, err)

	case "cas-del":
		if err := nargs(args, 2, 2); err != nil {
			return err
		}
		ok, err := s.RemoveIfEquals(ctx, args[0], args[1])
		return printBool(out, ok, err)

	case "cas-set":
		if err := nargs(args, 3, 4); err != nil {
			return err
		}
		ttl, err := optTTL(args, 3)
		if err != nil {
			return err
		}
		ok, err := s.ReplaceIfEquals(ctx, args[0], args[1], args[2], ttl)
		return printBool(out, ok, err)

	case "flush":
		if err := nargs(args, 0, 0); err != nil {
			return err
		}
		rep, err := c.FlushAll(ctx)
		if err != nil {
			return err
		}
		for _, n := range rep.Nodes {
			line := fmt.Sprintf("%s\t%s\t%s\t%d", n.Addr, n.Role, n.Method, n.Removed)
			if n.Err != nil {
				line += "\t" + n.Err.Error()
			}
			fmt.Fprintln(out, line)
		}
		fmt.Fprintf(out, "removed %d\n", rep.Removed())
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

// nargs checks lo <= len(args) <= hi; hi < 0 means unbounded.
func nargs(args []string, lo, hi int) error {
	if len(args) < lo || (hi >= 0 && len(args) > hi) {
		return fmt.Errorf("%w: wrong number of arguments", errUsage)
	}
	return nil
}

func optTTL(args []string, i int) (time.Duration, error) {
	if len(args) <= i {
		return 0, nil
	}
	d, err := time.ParseDuration(args[i])
	if err != nil {
		return 0, fmt.Errorf("%w: ttl: %v", errUsage, err)
	}
	return d, nil
}

func printBool(out io.Writer, ok bool, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(out, ok)
	return nil
}
