// Command voxjot-mcp serves the journal to MCP hosts over stdio. It is
// read-only: assistants can list, search, and fetch records but never mutate
// them. Logs go to stderr; stdout belongs to the MCP transport.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxjot/voxjot/internal/config"
	"github.com/voxjot/voxjot/internal/journal"
	"github.com/voxjot/voxjot/internal/mcpserver"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxjot-mcp: %v\n", err)
		return 1
	}

	if !cfg.MCP.Enabled {
		fmt.Fprintln(os.Stderr, "voxjot-mcp: mcp.enabled is false in the configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open journal store", "err", err)
		return 1
	}
	defer closeStore()

	j := journal.NewSync(store, journal.WithSyncLogger(logger))
	if err := j.Load(ctx); err != nil {
		logger.Error("failed to load journal", "err", err)
		return 1
	}
	logger.Info("journal loaded", "records", len(j.List()), "storage", cfg.Storage.Backend)

	srv := mcpserver.New(j, version, mcpserver.WithLogger(logger))
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server error", "err", err)
		return 1
	}
	return 0
}

// openStore builds the journal store per config. A memory backend serves an
// empty journal, which is still a valid MCP surface.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (journal.Store, func(), error) {
	if cfg.Storage.Backend != config.StoragePostgres {
		return journal.NewMemStore(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := journal.NewPostgresStore(pool,
		journal.WithStorageKey(cfg.Storage.StorageKey),
		journal.WithPostgresLogger(logger),
	)
	return store, pool.Close, nil
}
