package sqlite

import "github.com/lumina-ai/recall-go/pkg/storage"

// migrations is the ordered SQLite migration list. IDs are timestamps and
// must never be reordered or edited once released; the migration manager
// refuses to run when a released definition drifts from its recorded
// checksum.
var migrations = []storage.Migration{
	{
		ID:   "20240110120000",
		Name: "create_memory_records",
		UpSQL: []string{`
			CREATE TABLE IF NOT EXISTS memory_records (
				id INTEGER PRIMARY KEY,
				user_id TEXT NOT NULL,
				memory_type TEXT NOT NULL,
				category TEXT,
				fact TEXT NOT NULL,
				subject_name TEXT,
				relationship TEXT,
				importance_score REAL NOT NULL DEFAULT 0.5,
				confidence_score REAL NOT NULL DEFAULT 0.5,
				embedding TEXT,
				embedding_model TEXT,
				version INTEGER NOT NULL DEFAULT 1,
				is_active INTEGER NOT NULL DEFAULT 1,
				duplicate_of INTEGER REFERENCES memory_records(id),
				source_conversation_id TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
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
				payload BLOB,
				checksum TEXT NOT NULL DEFAULT '',
				record_count INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				completed_at DATETIME
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
				WHERE is_active = 1 AND fact_hash <> ''`,
		},
		DownSQL: []string{
			`DROP INDEX IF EXISTS idx_memory_records_active_fact`,
			`ALTER TABLE memory_records DROP COLUMN fact_hash`,
		},
	},
}
