package postgres

import "github.com/lumina-ai/recall-go/pkg/storage"

// migrations is the ordered PostgreSQL migration list. Same IDs and
// semantics as the other backends; only the DDL dialect differs.
var migrations = []storage.Migration{
	{
		ID:   "20240110120000",
		Name: "create_memory_records",
		UpSQL: []string{`
			CREATE TABLE IF NOT EXISTS memory_records (
				id BIGINT PRIMARY KEY,
				user_id TEXT NOT NULL,
				memory_type TEXT NOT NULL,
				category TEXT,
				fact TEXT NOT NULL,
				subject_name TEXT,
				relationship TEXT,
				importance_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
				confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
				embedding TEXT,
				embedding_model TEXT,
				version BIGINT NOT NULL DEFAULT 1,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				duplicate_of BIGINT REFERENCES memory_records(id),
				source_conversation_id TEXT,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_memory_records_user_active
				ON memory_records(user_id, is_active)`,
			`CREATE INDEX IF NOT EXISTS idx_memory_records_user_type
				ON memory_records(user_id, memory_type)`,
		},
		DownSQL: []string{
			`DROP INDEX IF EXISTS idx_memory_records_user_type`,
			`DROP INDEX IF EXISTS idx_memory_records_user_active`,
			`DROP TABLE IF EXISTS memory_records`,
		},
	},
	{
		ID:   "20240117093000",
		Name: "create_memory_snapshots",
		UpSQL: []string{`
			CREATE TABLE IF NOT EXISTS memory_snapshots (
				id TEXT PRIMARY KEY,
				backup_type TEXT NOT NULL,
				scope_user_id TEXT,
				status TEXT NOT NULL,
				payload BYTEA,
				checksum TEXT NOT NULL DEFAULT '',
				record_count BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL,
				completed_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS idx_memory_snapshots_type
				ON memory_snapshots(backup_type, created_at)`,
		},
		DownSQL: []string{
			`DROP INDEX IF EXISTS idx_memory_snapshots_type`,
			`DROP TABLE IF EXISTS memory_snapshots`,
		},
	},
	{
		ID:   "20240205151000",
		Name: "add_fact_hash_unique_index",
		UpSQL: []string{
			`ALTER TABLE memory_records ADD COLUMN fact_hash TEXT NOT NULL DEFAULT ''`,
			// Partial unique index: two racing inserts of the same
			// normalized fact cannot both become active rows.
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_memory_records_active_fact
				ON memory_records(user_id, fact_hash)
				WHERE is_active = TRUE AND fact_hash <> ''`,
		},
		DownSQL: []string{
			`DROP INDEX IF EXISTS idx_memory_records_active_fact`,
			`ALTER TABLE memory_records DROP COLUMN fact_hash`,
		},
	},
}
