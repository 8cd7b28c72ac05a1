package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

type Config struct {
	DB       string
	Backend  string
	Table    string
	Columns  int
	Order    int
	Compress string
	LogLevel slog.Level
	Command  string
	Args     []string
}

const usage = `usage: idxtable [flags] <command> [args]

commands:
  list                             list stored index keys
  dump    <id>                     print all rows
  count   <id>                     print the number of rows
  append  <id> <v0> <v1> ...       add a row and commit
  remove  <id> <col> <val> [limit] remove rows by column value and commit
  clean   <id>                     remove all rows and commit
  destroy <id>                     delete the stored index

flags:
`

func parseConfig(args []string, getenv func(string) string, output io.Writer) (*Config, error) {
	cfg := &Config{}
	var logLevel string

	fs := flag.NewFlagSet("idxtable", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.DB, "db", envStr(getenv, "IDXTABLE_DB", "idxtable.db"), "database file (bolt) or directory (pebble)")
	fs.StringVar(&cfg.Backend, "backend", envStr(getenv, "IDXTABLE_BACKEND", "bolt"), "storage backend: bolt or pebble")
	fs.StringVar(&cfg.Table, "table", envStr(getenv, "IDXTABLE_TABLE", ""), "index type (table) name")
	fs.IntVar(&cfg.Columns, "columns", envInt(getenv, "IDXTABLE_COLUMNS", 2), "number of columns")
	fs.IntVar(&cfg.Order, "order", envInt(getenv, "IDXTABLE_ORDER", 1), "order column")
	fs.StringVar(&cfg.Compress, "compress", envStr(getenv, "IDXTABLE_COMPRESS", "none"), "blob compression: none, zstd or lz4")
	fs.StringVar(&logLevel, "log-level", envStr(getenv, "IDXTABLE_LOG_LEVEL", "warn"), "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid -log-level %q", logLevel)
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("-table is required")
	}
	switch strings.ToLower(cfg.Backend) {
	case "bolt", "pebble":
		cfg.Backend = strings.ToLower(cfg.Backend)
	default:
		return nil, fmt.Errorf("unknown -backend %q", cfg.Backend)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return nil, fmt.Errorf("no command given")
	}
	cfg.Command, cfg.Args = rest[0], rest[1:]
	return cfg, nil
}

func envStr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(getenv func(string) string, key string, fallback int) int {
	if v := getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
