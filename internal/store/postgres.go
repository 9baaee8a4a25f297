package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timetracker/internal/config"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Postgres is a KV backed by a single PostgreSQL table.
type Postgres struct {
	pool  *pgxpool.Pool
	log   *slog.Logger
	table string
}

// NewPostgres creates a connection pool from cfg.DSN, pings it and ensures
// the table exists.
func NewPostgres(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	c, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := pool.Ping(c); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{pool: pool, log: log, table: cfg.Table}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		kv_key TEXT PRIMARY KEY,
		kv_value BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`, p.table)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create table %s: %w", p.table, err)
	}
	return p, nil
}

func (p *Postgres) Load(ctx context.Context, key string) ([]byte, bool, error) {
	q, args, err := psql.Select("kv_value").From(p.table).Where(squirrel.Eq{"kv_key": key}).ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build load: %w", err)
	}

	var blob []byte
	err = p.pool.QueryRow(ctx, q, args...).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %q: %w", key, err)
	}
	return blob, true, nil
}

func (p *Postgres) Save(ctx context.Context, key string, blob []byte) error {
	q, args, err := psql.Insert(p.table).
		Columns("kv_key", "kv_value", "updated_at").
		Values(key, blob, time.Now().UTC()).
		Suffix("ON CONFLICT (kv_key) DO UPDATE SET kv_value = EXCLUDED.kv_value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build save: %w", err)
	}
	if _, err := p.pool.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	p.log.Debug("saved key", slog.String("key", key), slog.Int("bytes", len(blob)))
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	q, args, err := psql.Delete(p.table).Where(squirrel.Eq{"kv_key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := p.pool.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	p.log.Debug("deleted key", slog.String("key", key))
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
