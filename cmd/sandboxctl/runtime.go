package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"basegraph.app/sandbox/common/id"
	"basegraph.app/sandbox/common/logger"
	"basegraph.app/sandbox/core/config"
	"basegraph.app/sandbox/core/db"
	"basegraph.app/sandbox/core/docdb"
	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/service"
	"basegraph.app/sandbox/internal/store"
)

// app holds the connections of the commands that talk to live stores.
type app struct {
	database *db.DB
	docs     *docdb.Client
	stores   *store.Stores
	engine   *engine.Engine
	services *service.Services
}

func connect(ctx context.Context) (*app, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	// Logs go to stderr so command output stays machine-readable.
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(logger.NewTraceHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))))

	if err := id.Init(cfg.SnowflakeNodeID); err != nil {
		return nil, fmt.Errorf("initializing id generator: %w", err)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	docs, err := docdb.Connect(ctx, cfg.Mongo)
	if err != nil {
		database.Close()
		return nil, err
	}

	stores := store.NewStores(docs)
	eng := engine.New(database.Pool())
	return &app{
		database: database,
		docs:     docs,
		stores:   stores,
		engine:   eng,
		services: service.NewServices(stores, eng, nil),
	}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.docs.Close(ctx); err != nil {
		slog.WarnContext(ctx, "mongodb disconnect failed", "error", err)
	}
	a.database.Close()
}

func parseWorkspaceID(s string) (int64, error) {
	v, err := id.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid workspace id %q: %w", s, err)
	}
	return v, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
