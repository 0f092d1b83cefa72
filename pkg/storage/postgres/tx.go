package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lumina-ai/recall-go/pkg/storage"
)

// tx implements storage.Tx over a PostgreSQL transaction.
type tx struct {
	ctx context.Context
	tx  *sql.Tx
}

// ListActive returns the user's active records, newest first.
func (t *tx) ListActive(userID string) ([]*storage.Record, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		selectRecordSQL+" WHERE user_id = $1 AND is_active = TRUE ORDER BY updated_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetRecord returns a record by id.
func (t *tx) GetRecord(id int64) (*storage.Record, error) {
	row := t.tx.QueryRowContext(t.ctx, selectRecordSQL+" WHERE id = $1", id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetRecord: %w", err)
	}

	return rec, nil
}

// InsertRecord inserts a new record.
func (t *tx) InsertRecord(rec *storage.Record) error {
	if err := t.insertFull(rec); err != nil {
		return fmt.Errorf("InsertRecord: %w", err)
	}
	return nil
}

func (t *tx) insertFull(rec *storage.Record) error {
	embedding, err := marshalEmbedding(rec.Embedding)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO memory_records
		(id, user_id, memory_type, category, fact, fact_hash, subject_name,
		 relationship, importance_score, confidence_score, embedding,
		 embedding_model, version, is_active, duplicate_of,
		 source_conversation_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		rec.ID,
		rec.UserID,
		rec.MemoryType,
		nullString(rec.Category),
		rec.Fact,
		rec.FactHash,
		nullString(rec.SubjectName),
		nullString(rec.Relationship),
		rec.ImportanceScore,
		rec.ConfidenceScore,
		embedding,
		nullString(rec.EmbeddingModel),
		rec.Version,
		rec.IsActive,
		nullInt64(rec.DuplicateOf),
		nullString(rec.SourceConversationID),
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapError(err)
	}

	return nil
}

// ReinforceRecord applies a duplicate merge to the canonical record.
func (t *tx) ReinforceRecord(id int64, increment, confidence float64) (*storage.Record, error) {
	result, err := t.tx.ExecContext(t.ctx, `
		UPDATE memory_records
		SET importance_score = LEAST(1.0, importance_score + $1),
		    confidence_score = GREATEST(confidence_score, $2),
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4 AND is_active = TRUE
	`, increment, confidence, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("ReinforceRecord: %w", mapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("ReinforceRecord: %w", err)
	}
	if affected == 0 {
		return nil, storage.ErrNotFound
	}

	return t.GetRecord(id)
}

// UpdateEmbedding stores a vector and its model tag on a record.
func (t *tx) UpdateEmbedding(id int64, vec []float64, model string) error {
	embedding, err := marshalEmbedding(vec)
	if err != nil {
		return fmt.Errorf("UpdateEmbedding: %w", err)
	}

	result, err := t.tx.ExecContext(t.ctx, `
		UPDATE memory_records
		SET embedding = $1, embedding_model = $2, updated_at = $3
		WHERE id = $4
	`, embedding, nullString(model), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("UpdateEmbedding: %w", mapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateEmbedding: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// MarkDuplicate soft-deletes a record as merged into canonicalID.
func (t *tx) MarkDuplicate(id, canonicalID int64) error {
	if id == canonicalID {
		return storage.ErrInvalidDuplicateTarget
	}

	canonical, err := t.GetRecord(canonicalID)
	if err != nil {
		return fmt.Errorf("MarkDuplicate: %w", err)
	}
	if canonical.DuplicateOf != nil {
		return storage.ErrInvalidDuplicateTarget
	}

	result, err := t.tx.ExecContext(t.ctx, `
		UPDATE memory_records
		SET is_active = FALSE, duplicate_of = $1, updated_at = $2
		WHERE id = $3
	`, canonicalID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("MarkDuplicate: %w", mapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkDuplicate: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// RepointDuplicates redirects duplicate_of references from fromID to toID.
func (t *tx) RepointDuplicates(fromID, toID int64) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE memory_records
		SET duplicate_of = $1, updated_at = $2
		WHERE duplicate_of = $3
	`, toID, time.Now().UTC(), fromID)
	if err != nil {
		return fmt.Errorf("RepointDuplicates: %w", mapError(err))
	}

	return nil
}

// SoftDeleteRecord deactivates a record for quota eviction.
func (t *tx) SoftDeleteRecord(id int64) error {
	result, err := t.tx.ExecContext(t.ctx, `
		UPDATE memory_records
		SET is_active = FALSE, updated_at = $1
		WHERE id = $2 AND is_active = TRUE
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("SoftDeleteRecord: %w", mapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("SoftDeleteRecord: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// CountActive returns the number of active records for the user.
func (t *tx) CountActive(userID string) (int, error) {
	var count int
	err := t.tx.QueryRowContext(t.ctx,
		"SELECT COUNT(*) FROM memory_records WHERE user_id = $1 AND is_active = TRUE",
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountActive: %w", mapError(err))
	}

	return count, nil
}

// EvictionCandidate returns the lowest-importance active record, ties
// broken by oldest updated_at.
func (t *tx) EvictionCandidate(userID string) (*storage.Record, error) {
	row := t.tx.QueryRowContext(t.ctx,
		selectRecordSQL+` WHERE user_id = $1 AND is_active = TRUE
		ORDER BY importance_score ASC, updated_at ASC, id ASC
		LIMIT 1`,
		userID,
	)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("EvictionCandidate: %w", err)
	}

	return rec, nil
}
