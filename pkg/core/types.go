// Package core provides the Recall client and the user memory store it fronts.
package core

import "time"

// MemoryType classifies what kind of personal fact a record holds.
//
// The extractor upstream labels every candidate with one of these types;
// the store rejects anything outside the set.
type MemoryType string

const (
	// TypePerson describes a person in the user's life (family, friends, colleagues).
	TypePerson MemoryType = "person"

	// TypePreference describes something the user likes or dislikes.
	TypePreference MemoryType = "preference"

	// TypeEvent describes something that happened to the user.
	TypeEvent MemoryType = "event"

	// TypeTopic describes a subject the user talks about.
	TypeTopic MemoryType = "topic"

	// TypeFact is a general factual statement about the user.
	TypeFact MemoryType = "fact"

	// TypeEmotion captures an emotional state or pattern.
	TypeEmotion MemoryType = "emotion"
)

// Valid reports whether t is one of the allowed memory types.
func (t MemoryType) Valid() bool {
	switch t {
	case TypePerson, TypePreference, TypeEvent, TypeTopic, TypeFact, TypeEmotion:
		return true
	}
	return false
}

// MemoryRecord is one remembered fact about a user.
//
// Records are versioned: every content-changing update bumps Version and
// UpdatedAt. Soft-deleted or merged records keep their row with
// IsActive=false; only Cleanup removes rows physically.
//
// Example:
//
//	record := &core.MemoryRecord{
//	    UserID:     "user_001",
//	    MemoryType: core.TypePerson,
//	    Category:   "family",
//	    Fact:       "User's sister is named Priya",
//	}
type MemoryRecord struct {
	// ID is the unique identifier of the record. Immutable.
	ID int64 `json:"id"`

	// UserID identifies the user who owns this record. Every operation
	// is scoped to it.
	UserID string `json:"user_id"`

	// MemoryType classifies the fact (person, preference, event, ...).
	MemoryType MemoryType `json:"memory_type"`

	// Category is a free-text refinement of the type (e.g. "friend", "food").
	Category string `json:"category,omitempty"`

	// Fact is the canonical text of the memory. Required, non-empty.
	Fact string `json:"fact"`

	// SubjectName names the person the fact is about (person-type records).
	SubjectName string `json:"subject_name,omitempty"`

	// Relationship describes how the subject relates to the user
	// (person-type records, e.g. "sister", "coworker").
	Relationship string `json:"relationship,omitempty"`

	// ImportanceScore is a retention/ranking weight in [0,1]. Higher means
	// more likely to be retrieved and retained.
	ImportanceScore float64 `json:"importance_score"`

	// ConfidenceScore reflects the upstream extractor's certainty, in [0,1].
	ConfidenceScore float64 `json:"confidence_score"`

	// Embedding is the optional vector for the fact text.
	// Omitted from JSON to reduce payload size.
	Embedding []float64 `json:"embedding,omitempty"`

	// EmbeddingModel records which model produced the embedding so vectors
	// from different models are never compared.
	EmbeddingModel string `json:"embedding_model,omitempty"`

	// Version starts at 1 and strictly increases on every content change.
	Version int64 `json:"version"`

	// IsActive is false for soft-deleted or merged records.
	IsActive bool `json:"is_active"`

	// DuplicateOf points at the record this one was merged into.
	// Always nil for active records; never points at a record that is
	// itself a duplicate.
	DuplicateOf *int64 `json:"duplicate_of,omitempty"`

	// SourceConversationID links back to the conversation turn the fact
	// was extracted from.
	SourceConversationID string `json:"source_conversation_id,omitempty"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt changes on any mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// IngestStatus tells the caller what Ingest did with a candidate.
type IngestStatus string

const (
	// StatusCreated means a new active record was inserted.
	StatusCreated IngestStatus = "created"

	// StatusMerged means the candidate reinforced an existing record.
	StatusMerged IngestStatus = "merged"
)

// IngestResult is the outcome of a single Ingest call.
type IngestResult struct {
	// Status is created or merged.
	Status IngestStatus `json:"status"`

	// RecordID is the id of the inserted record, or of the existing record
	// the candidate was merged into.
	RecordID int64 `json:"record_id"`

	// Version is the record's version after the operation.
	Version int64 `json:"version"`
}

// DedupResult summarizes a batch deduplication sweep.
type DedupResult struct {
	// Found is the number of near-duplicate pairs detected.
	Found int `json:"found"`

	// Merged is the number of records merged into a canonical record.
	// Running the sweep again with no new data yields zero.
	Merged int `json:"merged"`
}

// RetrievedFact is the summary form of a record returned to the prompt
// builder by Retrieve. It carries only what the response generator needs.
type RetrievedFact struct {
	// RecordID identifies the underlying record.
	RecordID int64 `json:"record_id"`

	// Fact is the memory text.
	Fact string `json:"fact"`

	// MemoryType is the record's type.
	MemoryType MemoryType `json:"memory_type"`

	// Category is the record's category.
	Category string `json:"category,omitempty"`

	// ImportanceScore is the record's importance weight.
	ImportanceScore float64 `json:"importance_score"`

	// Score is the combined relevance score the ranking produced.
	Score float64 `json:"score"`
}

// BackupType tags a snapshot with the schedule tier that produced it.
type BackupType string

const (
	// BackupDaily is a scheduled daily snapshot.
	BackupDaily BackupType = "daily"

	// BackupWeekly is a scheduled weekly snapshot.
	BackupWeekly BackupType = "weekly"

	// BackupMonthly is a scheduled monthly snapshot.
	BackupMonthly BackupType = "monthly"

	// BackupManual is an operator-requested snapshot. Never pruned.
	BackupManual BackupType = "manual"

	// BackupPreMigration is taken automatically before schema migrations.
	BackupPreMigration BackupType = "pre_migration"
)

// Valid reports whether t is one of the known backup types.
func (t BackupType) Valid() bool {
	switch t {
	case BackupDaily, BackupWeekly, BackupMonthly, BackupManual, BackupPreMigration:
		return true
	}
	return false
}

// BackupInfo summarizes a completed snapshot.
type BackupInfo struct {
	// ID is the snapshot identifier.
	ID string `json:"id"`

	// Type is the snapshot tier.
	Type BackupType `json:"type"`

	// ScopeUserID is the user the snapshot covers; empty means full.
	ScopeUserID string `json:"scope_user_id,omitempty"`

	// RecordCount is the number of records in the snapshot.
	RecordCount int64 `json:"record_count"`

	// Checksum is the SHA-256 hex digest of the snapshot payload.
	Checksum string `json:"checksum"`

	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time `json:"created_at"`
}
