package core

// IngestOption is a function type for configuring Ingest operations.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type IngestOption func(*IngestOptions)

// IngestOptions contains configuration options for Ingest operations.
type IngestOptions struct {
	// Category is a free-text refinement of the memory type.
	Category string

	// SubjectName names the person the fact is about.
	SubjectName string

	// Relationship describes how the subject relates to the user.
	Relationship string

	// Importance is the extractor's importance hint. Negative means no
	// hint; the store scores the fact itself.
	Importance float64

	// Confidence is the extractor's confidence hint. Negative means no
	// hint; the default of 0.5 is used.
	Confidence float64

	// Embedding is a precomputed vector for the fact text. When absent
	// and an embedder is configured, the store embeds the fact itself.
	Embedding []float64

	// SourceConversationID links the fact to the conversation it was
	// extracted from.
	SourceConversationID string
}

// WithCategory sets the category for Ingest operations.
//
// Example:
//
//	result, _ := client.Ingest(ctx, "user_001", core.TypePerson,
//	    "User's sister is named Priya", core.WithCategory("family"))
func WithCategory(category string) IngestOption {
	return func(opts *IngestOptions) {
		opts.Category = category
	}
}

// WithSubject sets the subject name and relationship for Ingest operations.
func WithSubject(name, relationship string) IngestOption {
	return func(opts *IngestOptions) {
		opts.SubjectName = name
		opts.Relationship = relationship
	}
}

// WithImportance sets the importance hint for Ingest operations.
// The value is clamped to [0,1] on write.
func WithImportance(score float64) IngestOption {
	return func(opts *IngestOptions) {
		opts.Importance = score
	}
}

// WithConfidence sets the confidence hint for Ingest operations.
// The value is clamped to [0,1] on write.
func WithConfidence(score float64) IngestOption {
	return func(opts *IngestOptions) {
		opts.Confidence = score
	}
}

// WithEmbedding supplies a precomputed embedding for the fact text.
func WithEmbedding(vec []float64) IngestOption {
	return func(opts *IngestOptions) {
		opts.Embedding = vec
	}
}

// WithSourceConversation links the fact to its source conversation.
func WithSourceConversation(id string) IngestOption {
	return func(opts *IngestOptions) {
		opts.SourceConversationID = id
	}
}

// RetrieveOption is a function type for configuring Retrieve operations.
type RetrieveOption func(*RetrieveOptions)

// RetrieveOptions contains configuration options for Retrieve operations.
type RetrieveOptions struct {
	// Limit is the maximum number of facts to return. Zero means the
	// configured default.
	Limit int
}

// WithLimit sets the result limit for Retrieve operations.
//
// Example:
//
//	facts, _ := client.Retrieve(ctx, "user_001", "family", core.WithLimit(10))
func WithLimit(limit int) RetrieveOption {
	return func(opts *RetrieveOptions) {
		opts.Limit = limit
	}
}

// BackupOption is a function type for configuring CreateBackup operations.
type BackupOption func(*BackupOptions)

// BackupOptions contains configuration options for CreateBackup operations.
type BackupOptions struct {
	// Type is the snapshot tier. Defaults to BackupManual.
	Type BackupType

	// ScopeUserID limits the snapshot to one user. Empty means full.
	ScopeUserID string
}

// WithBackupType sets the snapshot tier for CreateBackup operations.
func WithBackupType(t BackupType) BackupOption {
	return func(opts *BackupOptions) {
		opts.Type = t
	}
}

// WithBackupScope limits a snapshot to one user's records.
func WithBackupScope(userID string) BackupOption {
	return func(opts *BackupOptions) {
		opts.ScopeUserID = userID
	}
}

func newIngestOptions(opts []IngestOption) *IngestOptions {
	o := &IngestOptions{Importance: -1, Confidence: -1}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newRetrieveOptions(opts []RetrieveOption) *RetrieveOptions {
	o := &RetrieveOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newBackupOptions(opts []BackupOption) *BackupOptions {
	o := &BackupOptions{Type: BackupManual}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
