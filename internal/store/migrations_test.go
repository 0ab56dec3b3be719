package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MigratesV1Index(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE tasks (
		file TEXT NOT NULL, line INTEGER NOT NULL, task_id TEXT, title TEXT NOT NULL,
		done INTEGER NOT NULL, section TEXT, meta TEXT, PRIMARY KEY(file, line))`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tasks VALUES ('tasks.md', 1, '1', 'Old', 0, '', '')`)
	require.NoError(t, err)
	assert.Equal(t, 1, GetSchemaVersion(db))
	require.NoError(t, db.Close())

	idx, err := Open(path)
	require.NoError(t, err)
	defer idx.Close()

	assert.True(t, columnExists(idx.db, "tasks", "status"))
	assert.Equal(t, CurrentSchemaVersion, GetSchemaVersion(idx.db))

	counts, err := idx.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"open": 1}, counts)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	idx, err := Open(":memory:")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, RunMigrations(idx.db))
	require.NoError(t, RunMigrations(idx.db))
	assert.Equal(t, CurrentSchemaVersion, GetSchemaVersion(idx.db))
}

func TestGetSchemaVersion_Empty(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 0, GetSchemaVersion(db))
}

func TestCountByStatus(t *testing.T) {
	idx := newIndex(t)

	counts, err := idx.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"open": 3, "done": 1}, counts)
}
