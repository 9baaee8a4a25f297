// Package store provides key-value backends for persisted tracker state.
//
// Every backend maps a small set of string keys to opaque blobs. A key that
// was never saved, or was deleted, loads as absent.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"timetracker/internal/config"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("store: unknown driver")

// KV is a persistent key-value store.
type KV interface {
	// Load returns the blob saved under key and whether it exists.
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open creates the backend named by cfg.Driver and prepares its table.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (KV, error) {
	log = log.With("component", "store", "driver", cfg.Driver)

	var (
		kv  KV
		err error
	)
	switch cfg.Driver {
	case "memory":
		kv = NewMemory()
	case "sqlite":
		kv, err = NewSQLite(ctx, cfg, log)
	case "mysql":
		kv, err = NewMySQL(ctx, cfg, log)
	case "postgres":
		kv, err = NewPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Driver, err)
	}
	log.Info("store opened", slog.String("table", cfg.Table))
	return kv, nil
}
