package app

import (
	"context"
	"fmt"
	"log/slog"

	"timetracker/internal/config"
	"timetracker/internal/store"
	"timetracker/internal/tracker"
)

// App wires the store and the tracker engine.
type App struct {
	Engine *tracker.Engine

	log *slog.Logger
	kv  store.KV
}

// New opens the configured store and loads persisted state into a fresh
// engine.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	c, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	defer cancel()

	kv, err := store.Open(c, cfg.Store, log)
	if err != nil {
		return nil, err
	}

	engine := tracker.New(kv,
		tracker.WithLogger(log),
		tracker.WithLocation(cfg.Tracker.Location),
		tracker.WithWriteTimeout(cfg.Store.Timeout),
	)
	if err := engine.Load(c); err != nil {
		kv.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}

	return &App{Engine: engine, log: log, kv: kv}, nil
}

func (a *App) Close() error {
	a.log.Info("closing store")
	return a.kv.Close()
}
