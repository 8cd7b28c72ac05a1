// Command idxtable inspects and edits index tables stored in a local Bolt or
// Pebble database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/andreyvit/idxtable"
	"github.com/andreyvit/idxtable/store"
	"github.com/andreyvit/idxtable/store/pebblestore"
)

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "idxtable: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	backend, closeBackend, err := openBackend(cfg)
	if err != nil {
		logger.Error("cannot open database", "db", cfg.DB, "backend", cfg.Backend, "err", err)
		os.Exit(1)
	}
	err = run(ctx, cfg, backend, os.Stdout, logger)
	if cerr := closeBackend(); cerr != nil {
		logger.Error("cannot close database", "err", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "idxtable: %v\n", err)
		os.Exit(1)
	}
}

func openBackend(cfg *Config) (store.Backend, func() error, error) {
	var backend store.Backend
	var closer func() error
	switch cfg.Backend {
	case "pebble":
		s, err := pebblestore.Open(cfg.DB, pebblestore.Options{})
		if err != nil {
			return nil, nil, err
		}
		backend, closer = s, s.Close
	default:
		s, err := store.OpenBolt(cfg.DB, store.BoltOptions{})
		if err != nil {
			return nil, nil, err
		}
		backend, closer = s, s.Close
	}

	c, err := store.ParseCompression(cfg.Compress)
	if err != nil {
		closer()
		return nil, nil, err
	}
	if c != store.NoCompression {
		cb, err := store.Compress(backend, c)
		if err != nil {
			closer()
			return nil, nil, err
		}
		closeStore := closer
		backend, closer = cb, func() error {
			return errors.Join(cb.Close(), closeStore())
		}
	}
	return store.Instrument(backend, cfg.Backend), closer, nil
}

func run(ctx context.Context, cfg *Config, backend store.Backend, w io.Writer, logger *slog.Logger) error {
	typ, err := idxtable.Define(cfg.Table, cfg.Columns, cfg.Order)
	if err != nil {
		return err
	}

	if cfg.Command == "list" {
		ids, err := store.ListIDs(ctx, backend, typ.Name())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(w, id)
		}
		return nil
	}

	if len(cfg.Args) == 0 {
		return fmt.Errorf("%s: missing index key", cfg.Command)
	}
	id, err := idxtable.ParseID(cfg.Args[0])
	if err != nil {
		return err
	}
	args := cfg.Args[1:]

	tbl, err := idxtable.Open(ctx, backend, typ, id, idxtable.Options{Logger: logger})
	if err != nil {
		return err
	}

	switch cfg.Command {
	case "dump":
		fmt.Fprint(w, tbl.Dump())
		return nil

	case "count":
		fmt.Fprintln(w, tbl.Count())
		return nil

	case "append":
		rec := make(idxtable.Record, len(args))
		for i, s := range args {
			rec[i], err = idxtable.ParseValue(s)
			if err != nil {
				return err
			}
		}
		ok, err := tbl.Append(rec)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(w, "key %v already present, nothing to do\n", rec[0])
			return nil
		}

	case "remove":
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("remove: expected <col> <val> [limit]")
		}
		col, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("remove: invalid column %q", args[0])
		}
		val, err := idxtable.ParseValue(args[1])
		if err != nil {
			return err
		}
		var limit int
		if len(args) == 3 {
			limit, err = strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("remove: invalid limit %q", args[2])
			}
		}
		n, err := tbl.RemoveByColumn(col, val, limit)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "removed %d rows\n", n)
		if n == 0 {
			return nil
		}

	case "clean":
		tbl.Clean()

	case "destroy":
		return tbl.Destroy(ctx)

	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}

	return tbl.Commit(ctx, 0)
}
