package mysql

import "github.com/lumina-ai/recall-go/pkg/storage"

// migrations is the ordered MySQL migration list. Same IDs and semantics
// as the other backends; only the DDL dialect differs. MySQL lacks partial
// unique indexes, so the fact_hash migration derives a stored generated
// column that is NULL for inactive or hashless rows and puts the unique
// index on that; NULLs never collide, so only active rows are constrained.
var migrations = []storage.Migration{
	{
		ID:   "20240110120000",
		Name: "create_memory_records",
		UpSQL: []string{`
			CREATE TABLE IF NOT EXISTS memory_records (
				id BIGINT PRIMARY KEY,
				user_id VARCHAR(128) NOT NULL,
				memory_type VARCHAR(32) NOT NULL,
				category VARCHAR(255),
				fact TEXT NOT NULL,
				subject_name VARCHAR(255),
				relationship VARCHAR(255),
				importance_score DOUBLE NOT NULL DEFAULT 0.5,
				confidence_score DOUBLE NOT NULL DEFAULT 0.5,
				embedding LONGTEXT,
				embedding_model VARCHAR(128),
				version BIGINT NOT NULL DEFAULT 1,
				is_active TINYINT(1) NOT NULL DEFAULT 1,
				duplicate_of BIGINT,
				source_conversation_id VARCHAR(128),
				created_at DATETIME(6) NOT NULL,
				updated_at DATETIME(6) NOT NULL,
				INDEX idx_memory_records_user_active (user_id, is_active),
				INDEX idx_memory_records_user_type (user_id, memory_type)
			)`,
		},
		DownSQL: []string{
			`DROP TABLE IF EXISTS memory_records`,
		},
	},
	{
		ID:   "20240117093000",
		Name: "create_memory_snapshots",
		UpSQL: []string{`
			CREATE TABLE IF NOT EXISTS memory_snapshots (
				id VARCHAR(64) PRIMARY KEY,
				backup_type VARCHAR(32) NOT NULL,
				scope_user_id VARCHAR(128),
				status VARCHAR(32) NOT NULL,
				payload LONGBLOB,
				checksum VARCHAR(64) NOT NULL DEFAULT '',
				record_count BIGINT NOT NULL DEFAULT 0,
				created_at DATETIME(6) NOT NULL,
				completed_at DATETIME(6),
				INDEX idx_memory_snapshots_type (backup_type, created_at)
			)`,
		},
		DownSQL: []string{
			`DROP TABLE IF EXISTS memory_snapshots`,
		},
	},
	{
		ID:   "20240205151000",
		Name: "add_fact_hash_unique_index",
		UpSQL: []string{
			`ALTER TABLE memory_records ADD COLUMN fact_hash VARCHAR(64) NOT NULL DEFAULT ''`,
			`ALTER TABLE memory_records ADD COLUMN active_hash VARCHAR(64)
				GENERATED ALWAYS AS (CASE WHEN is_active = 1 AND fact_hash <> '' THEN fact_hash ELSE NULL END) STORED`,
			`CREATE UNIQUE INDEX idx_memory_records_active_fact ON memory_records(user_id, active_hash)`,
		},
		DownSQL: []string{
			`DROP INDEX idx_memory_records_active_fact ON memory_records`,
			`ALTER TABLE memory_records DROP COLUMN active_hash`,
			`ALTER TABLE memory_records DROP COLUMN fact_hash`,
		},
	},
}
