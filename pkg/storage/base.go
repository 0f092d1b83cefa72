// Package storage provides interfaces and types for memory record
// persistence backends.
//
// It defines the Store interface that all backends must satisfy, the row
// types shared across backends, and the transactional surface that keeps a
// duplicate-merge, a quota eviction, and an insert atomic.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Predefined errors shared by all backends.
var (
	// ErrNotFound indicates that a requested row does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrConflict indicates a concurrent-write conflict (unique violation,
	// serialization failure, busy database). Callers may retry.
	ErrConflict = errors.New("storage: write conflict")

	// ErrInvalidDuplicateTarget indicates an attempt to mark a record as a
	// duplicate of a record that is itself a duplicate. Duplicate chains
	// are flattened to one level at this layer, not by convention.
	ErrInvalidDuplicateTarget = errors.New("storage: duplicate target is itself a duplicate")
)

// Record is a memory record row.
//
// This type is defined in the storage package to avoid circular dependencies
// with the core package. It mirrors the core.MemoryRecord structure, plus
// the FactHash column used for exact-duplicate indexing.
type Record struct {
	// ID is the unique identifier of the record.
	ID int64 `json:"id"`

	// UserID identifies the user who owns this record.
	UserID string `json:"user_id"`

	// MemoryType classifies the fact.
	MemoryType string `json:"memory_type"`

	// Category is a free-text refinement of the type.
	Category string `json:"category,omitempty"`

	// Fact is the canonical text of the memory.
	Fact string `json:"fact"`

	// FactHash is the hash of the normalized fact text. A partial unique
	// index over (user_id, fact_hash) for active rows turns a racing
	// duplicate insert into a conflict instead of a second active row.
	FactHash string `json:"fact_hash"`

	// SubjectName names the person the fact is about.
	SubjectName string `json:"subject_name,omitempty"`

	// Relationship describes how the subject relates to the user.
	Relationship string `json:"relationship,omitempty"`

	// ImportanceScore is the retention/ranking weight in [0,1].
	ImportanceScore float64 `json:"importance_score"`

	// ConfidenceScore is the extractor certainty in [0,1].
	ConfidenceScore float64 `json:"confidence_score"`

	// Embedding is the optional vector, stored as JSON text.
	Embedding []float64 `json:"embedding,omitempty"`

	// EmbeddingModel records which model produced the embedding.
	EmbeddingModel string `json:"embedding_model,omitempty"`

	// Version starts at 1 and strictly increases.
	Version int64 `json:"version"`

	// IsActive is false for soft-deleted or merged records.
	IsActive bool `json:"is_active"`

	// DuplicateOf points at the canonical record after a merge.
	DuplicateOf *int64 `json:"duplicate_of,omitempty"`

	// SourceConversationID is the provenance link.
	SourceConversationID string `json:"source_conversation_id,omitempty"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt changes on any mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is a backup snapshot row.
type Snapshot struct {
	// ID is the snapshot identifier (UUID).
	ID string `json:"id"`

	// BackupType is the schedule tier (daily, weekly, monthly, manual,
	// pre_migration).
	BackupType string `json:"backup_type"`

	// ScopeUserID limits the snapshot to one user. Empty means full.
	ScopeUserID string `json:"scope_user_id,omitempty"`

	// Status is in_progress, completed, or failed.
	Status string `json:"status"`

	// Payload is the serialized records.
	Payload []byte `json:"-"`

	// Checksum is the SHA-256 hex digest of the payload.
	Checksum string `json:"checksum"`

	// RecordCount is the number of records in the payload, recorded for
	// post-restore verification.
	RecordCount int64 `json:"record_count"`

	// CreatedAt is when the snapshot row was created.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt is when the snapshot finished (nil while in progress).
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot statuses.
const (
	SnapshotInProgress = "in_progress"
	SnapshotCompleted  = "completed"
	SnapshotFailed     = "failed"
)

// Migration is a versioned, checksummed schema change. Each backend exposes
// its own ordered list with dialect-appropriate SQL.
type Migration struct {
	// ID is the timestamped migration identifier, e.g. "20240115093000".
	ID string

	// Name describes the change, e.g. "create_memory_records".
	Name string

	// UpSQL applies the migration.
	UpSQL []string

	// DownSQL reverses the migration.
	DownSQL []string
}

// ListOptions filters record listing.
type ListOptions struct {
	// UserID limits results to one user. Empty means all users.
	UserID string

	// ActiveOnly limits results to active records.
	ActiveOnly bool

	// Limit bounds the number of results (0 = no limit).
	Limit int

	// Offset skips results for pagination.
	Offset int
}

// Tx is the transactional surface for the ingest path. All methods operate
// inside the transaction opened by RunInTx; a failure anywhere rolls back
// every change.
type Tx interface {
	// ListActive returns the user's active records.
	ListActive(userID string) ([]*Record, error)

	// GetRecord returns a record by id. ErrNotFound if missing.
	GetRecord(id int64) (*Record, error)

	// InsertRecord inserts a new record. ErrConflict on a unique violation.
	InsertRecord(rec *Record) error

	// ReinforceRecord applies a duplicate merge to the canonical record:
	// importance is increased by increment (clamped to 1.0), confidence is
	// raised to at least confidence, version is bumped, updated_at is set.
	// Returns the updated record.
	ReinforceRecord(id int64, increment, confidence float64) (*Record, error)

	// UpdateEmbedding stores a vector and its model tag on a record.
	// Used to backfill a canonical record that has no vector when a merge
	// supplies one; the version is not bumped, the fact text is unchanged.
	UpdateEmbedding(id int64, embedding []float64, model string) error

	// MarkDuplicate soft-deletes a record as merged into canonicalID.
	// Fails with ErrInvalidDuplicateTarget if canonicalID is itself a
	// duplicate, keeping duplicate chains one level deep.
	MarkDuplicate(id, canonicalID int64) error

	// RepointDuplicates redirects records whose duplicate_of is fromID to
	// toID, preserving the one-level invariant after a canonical record is
	// merged away.
	RepointDuplicates(fromID, toID int64) error

	// SoftDeleteRecord deactivates a record without marking it a duplicate
	// (quota eviction).
	SoftDeleteRecord(id int64) error

	// CountActive returns the number of active records for the user.
	CountActive(userID string) (int, error)

	// EvictionCandidate returns the active record with the lowest
	// importance score (ties broken by oldest updated_at), or ErrNotFound
	// when the user has no active records.
	EvictionCandidate(userID string) (*Record, error)
}

// Store is the persistence interface all backends implement.
type Store interface {
	// RunInTx executes fn inside a single transaction. Either every
	// mutation fn performs commits, or none do.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	// GetRecord returns a record by id. ErrNotFound if missing.
	GetRecord(ctx context.Context, id int64) (*Record, error)

	// ListRecords returns records matching opts, newest first.
	ListRecords(ctx context.Context, opts *ListOptions) ([]*Record, error)

	// ListUserIDs returns the distinct user ids with at least one active
	// record.
	ListUserIDs(ctx context.Context) ([]string, error)

	// HardDeleteInactiveBefore physically removes inactive records whose
	// updated_at is older than cutoff. Active records are never touched.
	HardDeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// ReplaceRecords destructively replaces the record set for the given
	// scope (all records when scopeUserID is empty) in one transaction.
	// Used only by restore.
	ReplaceRecords(ctx context.Context, scopeUserID string, recs []*Record) error

	// InsertSnapshot creates a snapshot row.
	InsertSnapshot(ctx context.Context, snap *Snapshot) error

	// CompleteSnapshot finalizes a snapshot with its payload, checksum,
	// record count, and terminal status.
	CompleteSnapshot(ctx context.Context, id, status string, payload []byte, checksum string, count int64) error

	// GetSnapshot returns a snapshot by id. ErrNotFound if missing.
	GetSnapshot(ctx context.Context, id string) (*Snapshot, error)

	// ListSnapshots returns snapshots, newest first, optionally filtered
	// by backup type.
	ListSnapshots(ctx context.Context, backupType string) ([]*Snapshot, error)

	// DeleteSnapshot removes a snapshot row.
	DeleteSnapshot(ctx context.Context, id string) error

	// Migrations returns the backend's ordered migration list.
	Migrations() []Migration

	// DB exposes the underlying connection for the migration manager.
	DB() *sql.DB

	// Dialect identifies the SQL dialect ("sqlite", "postgres", "mysql").
	Dialect() string

	// Close closes the backend.
	Close() error
}
