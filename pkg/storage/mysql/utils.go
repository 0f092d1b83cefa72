package mysql

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lumina-ai/recall-go/pkg/storage"
)

const selectRecordSQL = `
	SELECT id, user_id, memory_type, category, fact, fact_hash, subject_name,
	       relationship, importance_score, confidence_score, embedding,
	       embedding_model, version, is_active, duplicate_of,
	       source_conversation_id, created_at, updated_at
	FROM memory_records`

const selectSnapshotSQL = `
	SELECT id, backup_type, scope_user_id, status, payload, checksum,
	       record_count, created_at, completed_at
	FROM memory_snapshots`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a memory record from a database row or rows.
func scanRecord(scanner rowScanner) (*storage.Record, error) {
	var rec storage.Record
	var category, subjectName, relationship, embeddingModel, sourceConversationID sql.NullString
	var embedding sql.NullString
	var duplicateOf sql.NullInt64
	var isActive int

	err := scanner.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.MemoryType,
		&category,
		&rec.Fact,
		&rec.FactHash,
		&subjectName,
		&relationship,
		&rec.ImportanceScore,
		&rec.ConfidenceScore,
		&embedding,
		&embeddingModel,
		&rec.Version,
		&isActive,
		&duplicateOf,
		&sourceConversationID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Category = category.String
	rec.SubjectName = subjectName.String
	rec.Relationship = relationship.String
	rec.EmbeddingModel = embeddingModel.String
	rec.SourceConversationID = sourceConversationID.String
	rec.IsActive = isActive != 0

	if duplicateOf.Valid {
		v := duplicateOf.Int64
		rec.DuplicateOf = &v
	}

	if embedding.Valid && embedding.String != "" {
		if err := json.Unmarshal([]byte(embedding.String), &rec.Embedding); err != nil {
			return nil, fmt.Errorf("parse embedding: %w", err)
		}
	}

	return &rec, nil
}

// scanSnapshot scans a snapshot from a database row or rows.
func scanSnapshot(scanner rowScanner) (*storage.Snapshot, error) {
	var snap storage.Snapshot
	var scopeUserID sql.NullString
	var completedAt sql.NullTime

	err := scanner.Scan(
		&snap.ID,
		&snap.BackupType,
		&scopeUserID,
		&snap.Status,
		&snap.Payload,
		&snap.Checksum,
		&snap.RecordCount,
		&snap.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	snap.ScopeUserID = scopeUserID.String
	if completedAt.Valid {
		snap.CompletedAt = &completedAt.Time
	}

	return &snap, nil
}

// buildListQuery assembles the record listing query for the given options.
func buildListQuery(opts *storage.ListOptions) (string, []interface{}) {
	query := selectRecordSQL
	var args []interface{}

	switch {
	case opts.UserID != "" && opts.ActiveOnly:
		query += " WHERE user_id = ? AND is_active = 1"
		args = append(args, opts.UserID)
	case opts.UserID != "":
		query += " WHERE user_id = ?"
		args = append(args, opts.UserID)
	case opts.ActiveOnly:
		query += " WHERE is_active = 1"
	}

	query += " ORDER BY updated_at DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	return query, args
}

// marshalEmbedding serializes a vector as JSON, or NULL when absent.
func marshalEmbedding(embedding []float64) (interface{}, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}
	return string(data), nil
}

// nullString maps the empty string to NULL.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullInt64 maps a nil pointer to NULL.
func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// boolToInt stores booleans as 0/1.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
