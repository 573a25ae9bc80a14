// Package dbtest opens throwaway SQLite stores for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/db"
)

func Options() config.DatabaseOptions {
	opts := config.DefaultDatabaseOptions()
	opts.PoolSize = 1
	opts.EnableDetailedErrors = true
	return opts
}

// Open returns a migrated store in a temp directory, closed when the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bookmarker.db")
	gdb, err := db.Open(sqlite.Open(path+"?_foreign_keys=1&_busy_timeout=5000"), Options(), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}
