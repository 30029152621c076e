// Package repository persists finished games in PostgreSQL.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reversus/reversus-server-go/internal/config"
	"go.uber.org/zap"
)

// DB wraps the connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB opens a pool and verifies the connection.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &DB{Pool: pool, logger: logger}, nil
}

// Migrate creates the results tables when they are missing.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Stats returns pool statistics.
func (db *DB) Stats() *pgxpool.Stat {
	return db.Pool.Stat()
}

// Close releases every connection.
func (db *DB) Close() {
	db.Pool.Close()
	db.logger.Info("database connection closed")
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS game_results (
		game_id      UUID PRIMARY KEY,
		mode         TEXT NOT NULL,
		seed         BIGINT NOT NULL,
		winning_team TEXT NOT NULL DEFAULT '',
		winners      TEXT[] NOT NULL DEFAULT '{}',
		reason       TEXT NOT NULL,
		rounds       INTEGER NOT NULL,
		audit        JSONB NOT NULL DEFAULT '[]',
		finished_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS game_standings (
		game_id     UUID NOT NULL REFERENCES game_results(game_id) ON DELETE CASCADE,
		participant TEXT NOT NULL,
		team        TEXT NOT NULL,
		position    INTEGER NOT NULL,
		laps        INTEGER NOT NULL DEFAULT 0,
		eliminated  BOOLEAN NOT NULL DEFAULT false,
		PRIMARY KEY (game_id, participant)
	)`,
}
