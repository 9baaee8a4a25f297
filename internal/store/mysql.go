package store

import (
	"context"
	"database/sql"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"

	"timetracker/internal/config"
)

var mysqlDialect = dialect{
	create: `CREATE TABLE IF NOT EXISTS %s (
		kv_key VARCHAR(64) PRIMARY KEY,
		kv_value LONGBLOB NOT NULL,
		updated_at VARCHAR(40) NOT NULL
	) ENGINE=InnoDB;`,
	upsert: `
INSERT INTO %s (kv_key, kv_value, updated_at)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  kv_value=VALUES(kv_value),
  updated_at=VALUES(updated_at);
`,
}

// NewMySQL opens a MySQL connection using cfg.DSN.
// Example DSN: user:pass@tcp(host:3306)/dbname
func NewMySQL(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*SQL, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	c, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	return newSQL(ctx, db, cfg.Table, mysqlDialect, log)
}
