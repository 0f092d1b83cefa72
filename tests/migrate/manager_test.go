package migrate_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-ai/recall-go/pkg/migrate"
	"github.com/lumina-ai/recall-go/pkg/storage"
	sqliteStore "github.com/lumina-ai/recall-go/pkg/storage/sqlite"
)

func setupMigrateTest(t *testing.T) (storage.Store, func()) {
	t.Helper()

	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "test_migrate.db"),
	})
	require.NoError(t, err)

	cleanup := func() {
		_ = store.Close()
	}
	return store, cleanup
}

// driftStore wraps a real store but reports a tampered migration list.
type driftStore struct {
	storage.Store
	list []storage.Migration
}

func (d *driftStore) Migrations() []storage.Migration {
	return d.list
}

func TestManager_UpAppliesAllPending(t *testing.T) {
	store, cleanup := setupMigrateTest(t)
	defer cleanup()

	ctx := context.Background()
	mgr := migrate.NewManager(store, nil)

	n, err := mgr.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(store.Migrations()), n)

	// Second run is a no-op.
	n, err = mgr.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	statuses, err := mgr.Statuses(ctx)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.True(t, s.Applied, "migration %s should be applied", s.ID)
		assert.False(t, s.Drifted)
	}

	pending, err := mgr.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

func TestManager_ChecksumMismatchRefusesApply(t *testing.T) {
	store, cleanup := setupMigrateTest(t)
	defer cleanup()

	ctx := context.Background()
	_, err := migrate.NewManager(store, nil).Up(ctx)
	require.NoError(t, err)

	// Tamper with an applied migration's SQL.
	tampered := make([]storage.Migration, len(store.Migrations()))
	copy(tampered, store.Migrations())
	tampered[0].UpSQL = []string{"CREATE TABLE something_else (id INTEGER)"}

	drifted := migrate.NewManager(&driftStore{Store: store, list: tampered}, nil)
	_, err = drifted.Up(ctx)
	assert.ErrorIs(t, err, migrate.ErrChecksumMismatch)

	statuses, err := drifted.Statuses(ctx)
	require.NoError(t, err)
	assert.True(t, statuses[0].Drifted)
}

func TestManager_DownOnlyMostRecent(t *testing.T) {
	store, cleanup := setupMigrateTest(t)
	defer cleanup()

	ctx := context.Background()
	mgr := migrate.NewManager(store, nil)
	_, err := mgr.Up(ctx)
	require.NoError(t, err)

	migs := store.Migrations()
	first := migs[0].ID
	latest := migs[len(migs)-1].ID

	err = mgr.Down(ctx, first)
	assert.ErrorIs(t, err, migrate.ErrOutOfOrderRollback)

	require.NoError(t, mgr.Down(ctx, latest))

	pending, err := mgr.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	// An empty id targets whatever is now latest.
	require.NoError(t, mgr.Down(ctx, ""))
	pending, err = mgr.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
}

func TestManager_DownEmptyHistory(t *testing.T) {
	store, cleanup := setupMigrateTest(t)
	defer cleanup()

	err := migrate.NewManager(store, nil).Down(context.Background(), "")
	assert.ErrorIs(t, err, migrate.ErrNotFound)
}

func TestChecksum_CoversBothDirections(t *testing.T) {
	m := storage.Migration{
		ID:      "20240101000000",
		Name:    "example",
		UpSQL:   []string{"CREATE TABLE t (id INTEGER)"},
		DownSQL: []string{"DROP TABLE t"},
	}
	original := migrate.Checksum(m)

	m.DownSQL = []string{"DROP TABLE IF EXISTS t"}
	assert.NotEqual(t, original, migrate.Checksum(m))
}
