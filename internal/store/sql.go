package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// dialect holds the statements that differ between database/sql drivers.
// %s is replaced with the table name.
type dialect struct {
	create string
	upsert string
}

// SQL is a KV backed by a single table in a database/sql database.
type SQL struct {
	db    *sql.DB
	log   *slog.Logger
	table string
	d     dialect
}

func newSQL(ctx context.Context, db *sql.DB, table string, d dialect, log *slog.Logger) (*SQL, error) {
	s := &SQL{db: db, log: log, table: table, d: d}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQL) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(s.d.create, s.table)); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *SQL) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var blob []byte
	q := fmt.Sprintf("SELECT kv_value FROM %s WHERE kv_key = ?", s.table)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %q: %w", key, err)
	}
	return blob, true, nil
}

func (s *SQL) Save(ctx context.Context, key string, blob []byte) error {
	q := fmt.Sprintf(s.d.upsert, s.table)
	if _, err := s.db.ExecContext(ctx, q, key, blob, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	s.log.Debug("saved key", slog.String("key", key), slog.Int("bytes", len(blob)))
	return nil
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE kv_key = ?", s.table)
	if _, err := s.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	s.log.Debug("deleted key", slog.String("key", key))
	return nil
}

func (s *SQL) Close() error { return s.db.Close() }
