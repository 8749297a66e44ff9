package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/duynhne/user-management/config"
)

// usersTableDDL bootstraps the single table the service owns.
const usersTableDDL = `CREATE TABLE IF NOT EXISTS users (
	id         BIGSERIAL PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL,
	email      TEXT NOT NULL,
	phone      TEXT,
	company    TEXT,
	role       TEXT,
	country    TEXT
)`

// DB owns the process-wide connection pool. It is opened once in main and
// handed to the repositories that need it.
type DB struct {
	pool *pgxpool.Pool
	sql  *sql.DB
}

// Open establishes the connection pool using pgx/v5 and exposes it through
// database/sql so repositories can acquire scoped connections with Conn.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newDB(pool, cfg.MaxConnections), nil
}

// poolConfig parses the DSN and applies the pool limits.
//
// SimpleProtocol mode and a disabled statement cache keep the pool usable
// behind transaction-mode poolers (PgCat/PgBouncer).
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.BuildDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	poolCfg.ConnConfig.StatementCacheCapacity = 0
	poolCfg.ConnConfig.DescriptionCacheCapacity = 0
	return poolCfg, nil
}

// newDB wraps pool in a database/sql view capped at maxConns. Callers beyond
// the cap queue inside database/sql until a connection is released or their
// context ends.
func newDB(pool *pgxpool.Pool, maxConns int) *DB {
	sqlDB := stdlib.OpenDBFromPool(pool)
	sqlDB.SetMaxOpenConns(maxConns)
	return &DB{pool: pool, sql: sqlDB}
}

// SQL returns the database/sql handle backed by the pool.
func (d *DB) SQL() *sql.DB {
	return d.sql
}

// EnsureSchema creates the users table when it does not exist yet.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.sql.ExecContext(ctx, usersTableDDL); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// Stats reports pool utilisation for the metrics collector.
func (d *DB) Stats() *pgxpool.Stat {
	return d.pool.Stat()
}

// Close releases the sql view first, then the underlying pool.
func (d *DB) Close() error {
	err := d.sql.Close()
	d.pool.Close()
	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
