package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum_go/internal/core/config"
)

func openSQLite(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	return &config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "forum.db"),
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	conn, err := Open(openSQLite(t))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, Migrate(conn))
	require.NoError(t, Migrate(conn))

	var tables []string
	require.NoError(t, conn.Select(&tables,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != 'schema_migrations' ORDER BY name"))
	assert.Equal(t, []string{"replies", "tags", "thread_tags", "threads", "users"}, tables)
}

func TestMigrateDown(t *testing.T) {
	conn, err := Open(openSQLite(t))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, Migrate(conn))
	require.NoError(t, MigrateDown(conn))

	var count int
	require.NoError(t, conn.Get(&count, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'threads'"))
	assert.Zero(t, count)
}

func TestForeignKeysEnabled(t *testing.T) {
	conn, err := Open(openSQLite(t))
	require.NoError(t, err)
	defer conn.Close()

	var on int
	require.NoError(t, conn.Get(&on, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, on)
}

func TestDriverName(t *testing.T) {
	assert.Equal(t, "mysql", DriverName("mysql"))
	assert.Equal(t, "postgres", DriverName("postgres"))
	assert.Equal(t, "sqlite", DriverName("sqlite"))
	assert.Equal(t, "mysql", DriverName(""))
}
