package localstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pos/backend/internal/domain/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_CreatesFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminal.db")

	store, err := Open(path, nil, nil)
	require.NoError(t, err)
	defer store.Close()

	assert.False(t, store.Degraded)
	assert.True(t, store.DB.Migrator().HasTable(&TransactionModel{}))
	assert.True(t, store.DB.Migrator().HasTable(&TillModel{}))
}

func TestOpen_FallsBackToMemory(t *testing.T) {
	// A directory is not a valid database file.
	store, err := Open(t.TempDir(), nil, nil)
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, store.Degraded)
	assert.True(t, store.DB.Migrator().HasTable(&TransactionModel{}))
}

func TestOpen_RefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminal.db")

	store, err := open(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.DB.Save(&SchemaInfoModel{ID: 1, Version: schemaVersion + 5}).Error)
	require.NoError(t, store.Close())

	_, err = open(path, nil)
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "SCHEMA_TOO_NEW", domainErr.Code)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminal.db")

	store, err := Open(path, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path, nil, nil)
	require.NoError(t, err)
	defer store.Close()
	assert.False(t, store.Degraded)
}
