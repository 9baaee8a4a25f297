package store

import (
	"context"
	"database/sql"
	"log/slog"

	"timetracker/internal/config"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	create: `
	CREATE TABLE IF NOT EXISTS %s (
		kv_key TEXT PRIMARY KEY,
		kv_value BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)
	`,
	upsert: `
	INSERT INTO %s (kv_key, kv_value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(kv_key) DO UPDATE SET
		kv_value = excluded.kv_value,
		updated_at = excluded.updated_at
	`,
}

// NewSQLite opens the sqlite file named by cfg.DSN, creating it if needed.
func NewSQLite(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*SQL, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return newSQL(ctx, db, cfg.Table, sqliteDialect, log)
}
