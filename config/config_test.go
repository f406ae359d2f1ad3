package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	c, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "8000", c.AppPort)
	assert.Equal(t, 10, c.PostsPerPage)
	assert.Equal(t, 20, c.IndexCacheSeconds)
	assert.Equal(t, "memory", c.CacheBackend)
	assert.Equal(t, "local", c.MediaBackend)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"AppPort": "9000", "PostsPerPage": 5, "AdminUsernames": ["root"]},
		"database": {"Driver": "postgres", "DBName": "blog"},
		"cache": {"Backend": "redis", "IndexSeconds": 30},
		"log": {"Level": "debug", "Compress": true}
	}`), 0o600))

	t.Setenv("GIN_MODE", "release")
	t.Setenv("APP_PORT", "9100")
	t.Setenv("ADMIN_USERNAMES", "alice, bob")
	t.Setenv("INDEX_CACHE_SECONDS", "45")

	c, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", c.AppPort)
	assert.Equal(t, 5, c.PostsPerPage)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, "5432", c.DBPort)
	assert.Equal(t, "blog", c.DBName)
	assert.Equal(t, "redis", c.CacheBackend)
	assert.Equal(t, 45, c.IndexCacheSeconds)
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.LogCompress)
	assert.Equal(t, []string{"alice", "bob"}, c.AdminUsernames)
	assert.True(t, c.IsAdmin("Alice"))
	assert.False(t, c.IsAdmin(""))
}

func TestLoadFrom_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := LoadFrom(path)
	assert.Error(t, err)
}
