package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, Init(dir))
	c := Get()

	assert.Equal(t, "mysql", c.Database.Driver)
	assert.Equal(t, "null", c.Search.Engine)
	assert.Equal(t, "permissive", c.Forum.Policy)
	assert.Equal(t, 25, c.Forum.DefaultPageSize)
	assert.Equal(t, "0.0.0.0:8080", c.App.GetServerAddr())
}

func TestInitFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := []byte(`
database:
  driver: sqlite
  path: /tmp/forum.db
search:
  engine: meilisearch
  meili:
    url: http://search:7700/
    timeout: 2s
forum:
  policy: owner
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Setenv("FORUM_JWT_SECRET", "from-env")

	require.NoError(t, Init(dir))
	c := Get()

	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.Contains(t, c.Database.GetDSN(), "file:/tmp/forum.db?")
	assert.Contains(t, c.Database.GetDSN(), "foreign_keys(1)")
	assert.Equal(t, "meilisearch", c.Search.Engine)
	assert.Equal(t, "http://search:7700", c.Search.Meili.URL)
	assert.Equal(t, "2s", c.Search.Meili.Timeout.String())
	assert.Equal(t, "owner", c.Forum.Policy)
	assert.Equal(t, "from-env", c.JWT.Secret)
}

func TestInitDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FORUM_SEARCH_ENGINE=meilisearch\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("FORUM_SEARCH_ENGINE") })

	require.NoError(t, Init(dir))
	assert.Equal(t, "meilisearch", Get().Search.Engine)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "postgres"},
			Search:   SearchConfig{Engine: "null"},
			Forum:    ForumConfig{Policy: "permissive", DefaultPageSize: 10, MaxPageSize: 50},
		}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.Database.Driver = "oracle"
	assert.Error(t, c.Validate())

	c = base()
	c.Search.Engine = "redis"
	assert.Error(t, c.Validate(), "redis engine without redis client")
	c.Redis.Enabled = true
	assert.NoError(t, c.Validate())

	c = base()
	c.Forum.MaxPageSize = 5
	assert.Error(t, c.Validate())
}

func TestPostgresDSN(t *testing.T) {
	c := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, Username: "u", Password: "p@ss", Name: "forum", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/forum?sslmode=disable", c.GetDSN())
}
