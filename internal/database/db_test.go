// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/oliverandrich/volunteerhub/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db interface {
	Get(dest any, query string, args ...any) error
}, name string) bool {
	t.Helper()
	var count int64
	err := db.Get(&count, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", name)
	require.NoError(t, err)
	return count == 1
}

func TestOpen_InMemory(t *testing.T) {
	db, err := database.Open(":memory:")

	require.NoError(t, err)
	require.NotNil(t, db)
	require.NoError(t, db.Close())
}

func TestOpen_DefaultDSN(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	_ = os.Chdir(tmpDir)
	defer func() {
		_ = os.Chdir(oldWd)
	}()

	db, err := database.Open("")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	_, err = os.Stat(filepath.Join(tmpDir, "data", "volunteerhub.db"))
	assert.NoError(t, err)
}

func TestOpen_MigrationsApplied(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	for _, table := range []string{"admins", "users", "project_owners", "account_tokens", "projects"} {
		assert.True(t, tableExists(t, db, table), "table %s should exist", table)
	}

	version, err := database.Version(db.DB)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
}

func TestOpen_ForeignKeysEnabled(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	var enabled int
	require.NoError(t, db.Get(&enabled, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, enabled)
}

func TestOpenWithoutMigrations(t *testing.T) {
	db, err := database.OpenWithoutMigrations(":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	assert.False(t, tableExists(t, db, "projects"))
}

func TestMigrate_DownAndReset(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	require.NoError(t, database.Migrate(db.DB, database.Down))
	assert.False(t, tableExists(t, db, "projects"))
	assert.True(t, tableExists(t, db, "users"))

	require.NoError(t, database.Migrate(db.DB, database.Reset))
	assert.False(t, tableExists(t, db, "users"))

	require.NoError(t, database.Migrate(db.DB, database.Up))
	assert.True(t, tableExists(t, db, "projects"))
}

func TestMigrate_UnknownDirection(t *testing.T) {
	db, err := database.OpenWithoutMigrations(":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	err = database.Migrate(db.DB, database.Direction("sideways"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration direction")
}

func TestOpen_FileDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "test.db")

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	assert.True(t, tableExists(t, db, "projects"))
}
