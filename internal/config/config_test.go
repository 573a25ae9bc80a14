package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("BOOKMARKER_PORT", "8080")
	t.Setenv("BOOKMARKER_DATABASE_CONNECTIONSTRING", validDSN)
	t.Setenv("BOOKMARKER_DATABASE_MAXRETRYCOUNT", "5")
	t.Setenv("BOOKMARKER_DATABASE_COMMANDTIMEOUT", "60")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, "0.0.0.0:9000", cfg.GRPCAddr())
	assert.Equal(t, validDSN, cfg.Database.ConnectionString)
	assert.Equal(t, 5, cfg.Database.MaxRetryCount)
	assert.Equal(t, 60, cfg.Database.CommandTimeout)
	assert.Equal(t, DefaultPoolSize, cfg.Database.PoolSize)
	assert.True(t, cfg.Database.AutoMigrateOnStartup)
	assert.False(t, cfg.Database.EnableDetailedErrors)
}

func TestNewConfigRefusesInvalidDatabaseOptions(t *testing.T) {
	t.Setenv("BOOKMARKER_DATABASE_CONNECTIONSTRING", validDSN)
	t.Setenv("BOOKMARKER_DATABASE_MAXRETRYCOUNT", "5")
	t.Setenv("BOOKMARKER_DATABASE_COMMANDTIMEOUT", "30")

	_, err := NewConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CommandTimeout")
}

func TestNewConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarker.yaml")
	content := `
Database:
  ConnectionString: "host=db.internal dbname=bookmarks"
  PoolSize: 25
  AutoMigrateOnStartup: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("BOOKMARKER_CONFIG", path)

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "host=db.internal dbname=bookmarks", cfg.Database.ConnectionString)
	assert.Equal(t, 25, cfg.Database.PoolSize)
	assert.False(t, cfg.Database.AutoMigrateOnStartup)
	assert.Equal(t, DefaultMaxRetryCount, cfg.Database.MaxRetryCount)
}
