package mysql

import (
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-ai/recall-go/pkg/storage"
)

func factHashMigration(t *testing.T) storage.Migration {
	t.Helper()
	for _, m := range migrations {
		if m.ID == "20240205151000" {
			return m
		}
	}
	t.Fatal("fact_hash migration not registered")
	return storage.Migration{}
}

// MySQL has no partial unique indexes, so active-fact uniqueness rides on a
// stored generated column that is NULL for inactive rows. This guards the
// schema against regressing to a plain (non-unique) index, which would let
// two racing inserts of the same fact both commit as active rows.
func TestMigrations_ActiveFactUniqueIndex(t *testing.T) {
	mig := factHashMigration(t)
	up := strings.Join(mig.UpSQL, "\n")

	assert.Contains(t, up, "GENERATED ALWAYS")
	assert.Contains(t, up, "STORED")
	assert.Contains(t, up, "is_active = 1 AND fact_hash <> ''")
	assert.Contains(t, up, "CREATE UNIQUE INDEX idx_memory_records_active_fact")
	assert.Contains(t, up, "(user_id, active_hash)")
}

func TestMigrations_FactHashDownReversesUp(t *testing.T) {
	mig := factHashMigration(t)
	down := strings.Join(mig.DownSQL, "\n")

	assert.Contains(t, down, "DROP INDEX idx_memory_records_active_fact")
	assert.Contains(t, down, "DROP COLUMN active_hash")
	assert.Contains(t, down, "DROP COLUMN fact_hash")
}

func TestMapError_ConflictNumbers(t *testing.T) {
	for _, number := range []uint16{1062, 1213, 1205} {
		err := mapError(&mysql.MySQLError{Number: number})
		assert.ErrorIs(t, err, storage.ErrConflict, "error %d", number)
	}

	other := &mysql.MySQLError{Number: 1146}
	require.NotErrorIs(t, mapError(other), storage.ErrConflict)
	assert.NoError(t, mapError(nil))
}
