package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/user-management/config"
)

func testDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Backend:        config.BackendPostgres,
		Host:           "127.0.0.1",
		Port:           "5432",
		Name:           "users_db",
		User:           "postgres",
		SSLMode:        "disable",
		MaxConnections: 3,
	}
}

func TestOpen_InvalidDSN(t *testing.T) {
	cfg := testDatabaseConfig()
	cfg.Port = "not-a-port"

	db, err := Open(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "failed to parse database config")
}

func TestPoolConfig(t *testing.T) {
	poolCfg, err := poolConfig(testDatabaseConfig())
	require.NoError(t, err)

	assert.Equal(t, int32(3), poolCfg.MaxConns)
	assert.Equal(t, pgx.QueryExecModeSimpleProtocol, poolCfg.ConnConfig.DefaultQueryExecMode)
	assert.Zero(t, poolCfg.ConnConfig.StatementCacheCapacity)
	assert.Equal(t, "users_db", poolCfg.ConnConfig.Database)
}

// The pool is lazy, so no server is needed until a query runs.
func TestNewDB_CapsOpenConnections(t *testing.T) {
	poolCfg, err := poolConfig(testDatabaseConfig())
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	require.NoError(t, err)

	db := newDB(pool, 3)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, 3, db.SQL().Stats().MaxOpenConnections)
	assert.Equal(t, int32(3), db.Stats().MaxConns())
}
