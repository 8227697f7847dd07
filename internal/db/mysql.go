package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"grade-import-service/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

const pingTimeout = 5 * time.Second

// NewConnection opens the grade store pool and verifies reachability before
// handing it out, so startup fails fast on a bad DSN or unreachable server.
func NewConnection(cfg *config.Config) (*sql.DB, error) {
	pool, err := sql.Open("mysql", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open grade store: %w", err)
	}

	pool.SetMaxOpenConns(cfg.Database.MaxConnections)
	pool.SetMaxIdleConns(cfg.Database.MaxIdleConnections)
	pool.SetConnMaxLifetime(cfg.Database.ConnectionLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach grade store: %w", err)
	}

	return pool, nil
}
