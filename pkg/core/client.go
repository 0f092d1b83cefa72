package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/lumina-ai/recall-go/pkg/backup"
	"github.com/lumina-ai/recall-go/pkg/embedder"
	"github.com/lumina-ai/recall-go/pkg/embedder/openai"
	"github.com/lumina-ai/recall-go/pkg/intelligence"
	"github.com/lumina-ai/recall-go/pkg/logging"
	"github.com/lumina-ai/recall-go/pkg/migrate"
	"github.com/lumina-ai/recall-go/pkg/retrieval"
	"github.com/lumina-ai/recall-go/pkg/storage"
	"github.com/lumina-ai/recall-go/pkg/storage/mysql"
	"github.com/lumina-ai/recall-go/pkg/storage/postgres"
	"github.com/lumina-ai/recall-go/pkg/storage/sqlite"
)

// Ingest conflict retries. A losing writer re-reads the user's records and
// usually resolves into a merge on the next attempt.
const (
	maxIngestRetries = 3
	retryBackoff     = 50 * time.Millisecond
)

// defaultConfidence is assigned when the extractor supplies no hint.
const defaultConfidence = 0.5

// Client is the user memory store.
//
// It fronts a SQL backend with duplicate detection, importance scoring,
// quota enforcement, ranked retrieval, schema migrations, and snapshot
// backup/restore. A Client is safe for concurrent use.
//
// Example:
//
//	client, err := core.NewClient(core.DefaultConfig("./recall.db"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Ingest(ctx, "user_001", core.TypePerson,
//	    "User's sister is named Priya", core.WithCategory("family"))
type Client struct {
	config   *Config
	store    storage.Store
	embedder embedder.Provider
	node     *snowflake.Node
	dedup    *intelligence.DedupManager
	scorer   *intelligence.ImportanceScorer
	engine   *retrieval.Engine
	backups  *backup.Manager
	migrator *migrate.Manager
	logger   *slog.Logger

	// restoring tracks in-flight restore scopes; the empty key is a full
	// restore. Ingestion into a covered scope is rejected.
	restoreMu sync.Mutex
	restoring map[string]bool
}

// ClientOption adjusts a Client beyond what Config expresses.
type ClientOption func(*Client)

// WithEmbedderProvider replaces the embedding provider the configuration
// would build. An explicit provider wins over the Embedder config section.
func WithEmbedderProvider(p embedder.Provider) ClientOption {
	return func(c *Client) {
		c.embedder = p
	}
}

// NewClient creates a Client from the given configuration.
//
// The storage backend is opened, and when AutoMigrate is set, pending schema
// migrations are applied before the client is returned.
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		return nil, NewStoreError("NewClient", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(config.LogLevel, os.Stderr)

	store, err := openStore(config)
	if err != nil {
		return nil, NewStoreError("NewClient", fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		store.Close()
		return nil, NewStoreError("NewClient", err)
	}

	var provider embedder.Provider
	if config.Embedder.Provider == "openai" {
		oa, err := openai.NewClient(&openai.Config{
			APIKey:     config.Embedder.APIKey,
			Model:      config.Embedder.Model,
			BaseURL:    config.Embedder.BaseURL,
			Dimensions: config.Embedder.Dimensions,
		})
		if err != nil {
			store.Close()
			return nil, NewStoreError("NewClient", err)
		}
		cached, err := embedder.NewCached(oa, config.Embedder.CacheSize)
		if err != nil {
			store.Close()
			return nil, NewStoreError("NewClient", err)
		}
		provider = cached
	}

	client := &Client{
		config:    config,
		store:     store,
		embedder:  provider,
		node:      node,
		dedup:     intelligence.NewDedupManager(config.Dedup.Threshold, config.Dedup.Reinforcement),
		scorer:    intelligence.NewImportanceScorer(),
		engine:    retrieval.NewEngine(),
		backups:   backup.NewManager(store, logger),
		migrator:  migrate.NewManager(store, logger),
		logger:    logger,
		restoring: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(client)
	}

	if config.AutoMigrate {
		if _, err := client.MigrateUp(context.Background()); err != nil {
			client.Close()
			return nil, err
		}
	}

	return client, nil
}

func openStore(config *Config) (storage.Store, error) {
	switch config.Storage.Provider {
	case "sqlite":
		return sqlite.NewClient(&sqlite.Config{DBPath: config.Storage.DBPath})
	case "postgres":
		return postgres.NewClient(&postgres.Config{
			Host:     config.Storage.Host,
			Port:     config.Storage.Port,
			User:     config.Storage.User,
			Password: config.Storage.Password,
			DBName:   config.Storage.Database,
			SSLMode:  config.Storage.SSLMode,
		})
	case "mysql":
		return mysql.NewClient(&mysql.Config{
			Host:     config.Storage.Host,
			Port:     config.Storage.Port,
			User:     config.Storage.User,
			Password: config.Storage.Password,
			DBName:   config.Storage.Database,
		})
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", config.Storage.Provider)
	}
}

// Ingest stores a candidate fact for a user.
//
// If the candidate duplicates an existing active record (exact normalized
// match, or similarity at or above the configured threshold), no new record
// is created: the existing record's importance is reinforced, its version is
// bumped, and the result is StatusMerged with the existing record's id.
// Otherwise a new record is inserted; if the user is at quota, the
// lowest-importance active record is evicted first.
func (c *Client) Ingest(ctx context.Context, userID string, memoryType MemoryType, fact string, opts ...IngestOption) (*IngestResult, error) {
	fact = strings.TrimSpace(fact)
	if userID == "" {
		return nil, NewStoreError("Ingest", fmt.Errorf("%w: user id is required", ErrValidation))
	}
	if fact == "" {
		return nil, NewStoreError("Ingest", fmt.Errorf("%w: fact text is required", ErrValidation))
	}
	if !memoryType.Valid() {
		return nil, NewStoreError("Ingest", fmt.Errorf("%w: unknown memory type %q", ErrValidation, memoryType))
	}
	if err := c.checkRestoring(userID); err != nil {
		return nil, NewStoreError("Ingest", err)
	}

	o := newIngestOptions(opts)

	embedding := o.Embedding
	embeddingModel := ""
	if len(embedding) == 0 && c.embedder != nil {
		vec, err := c.embedder.Embed(ctx, fact)
		if err != nil {
			// Dedup and retrieval degrade to lexical similarity.
			c.logger.Warn("embedding failed, storing without vector",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		} else {
			embedding = vec
			embeddingModel = c.embedder.Model()
		}
	}

	importance := o.Importance
	if importance < 0 {
		importance = c.scorer.Score(string(memoryType), fact)
	}
	importance = intelligence.Clamp(importance)

	confidence := o.Confidence
	if confidence < 0 {
		confidence = defaultConfidence
	}
	confidence = intelligence.Clamp(confidence)

	var result *IngestResult
	var lastErr error
	for attempt := 0; attempt < maxIngestRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, NewStoreError("Ingest", ctx.Err())
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}

		err := c.store.RunInTx(ctx, func(tx storage.Tx) error {
			active, err := tx.ListActive(userID)
			if err != nil {
				return err
			}

			if match := c.dedup.FindDuplicate(fact, embedding, active); match != nil {
				updated, err := tx.ReinforceRecord(match.Record.ID, c.dedup.Reinforcement(), confidence)
				if err != nil {
					return err
				}
				// A merge that arrives with a vector upgrades a
				// vectorless canonical record in passing.
				if len(embedding) > 0 && len(match.Record.Embedding) == 0 {
					if err := tx.UpdateEmbedding(updated.ID, embedding, embeddingModel); err != nil {
						return err
					}
				}
				c.logger.Debug("fact merged into existing record",
					slog.String("user_id", userID),
					slog.Int64("record_id", updated.ID),
					slog.Float64("score", match.Score),
					slog.String("strategy", match.Strategy))
				result = &IngestResult{Status: StatusMerged, RecordID: updated.ID, Version: updated.Version}
				return nil
			}

			if len(active) >= c.config.MaxActiveMemories {
				victim, err := tx.EvictionCandidate(userID)
				if err != nil {
					if errors.Is(err, storage.ErrNotFound) {
						return ErrQuotaExceeded
					}
					return err
				}
				if err := tx.SoftDeleteRecord(victim.ID); err != nil {
					return err
				}
				c.logger.Info("evicted lowest-importance record at quota",
					slog.String("user_id", userID),
					slog.Int64("record_id", victim.ID),
					slog.Float64("importance", victim.ImportanceScore))
			}

			now := time.Now().UTC()
			rec := &storage.Record{
				ID:                   c.node.Generate().Int64(),
				UserID:               userID,
				MemoryType:           string(memoryType),
				Category:             o.Category,
				Fact:                 fact,
				FactHash:             intelligence.FactHash(fact),
				SubjectName:          o.SubjectName,
				Relationship:         o.Relationship,
				ImportanceScore:      importance,
				ConfidenceScore:      confidence,
				Embedding:            embedding,
				EmbeddingModel:       embeddingModel,
				Version:              1,
				IsActive:             true,
				SourceConversationID: o.SourceConversationID,
				CreatedAt:            now,
				UpdatedAt:            now,
			}
			if err := tx.InsertRecord(rec); err != nil {
				return err
			}
			result = &IngestResult{Status: StatusCreated, RecordID: rec.ID, Version: 1}
			return nil
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !errors.Is(err, storage.ErrConflict) {
			return nil, NewStoreError("Ingest", mapStorageErr(err))
		}
		c.logger.Debug("ingest conflict, retrying",
			slog.String("user_id", userID),
			slog.Int("attempt", attempt+1))
	}
	return nil, NewStoreError("Ingest", fmt.Errorf("%w: %v", ErrTransactionConflict, lastErr))
}

// Retrieve returns the user's most relevant facts for a query, best first.
//
// Relevance combines similarity to the query with the record's importance
// and recency. An unknown user or a user with no active records yields an
// empty slice, never an error.
func (c *Client) Retrieve(ctx context.Context, userID, query string, opts ...RetrieveOption) ([]*RetrievedFact, error) {
	if userID == "" {
		return nil, NewStoreError("Retrieve", fmt.Errorf("%w: user id is required", ErrValidation))
	}
	o := newRetrieveOptions(opts)
	limit := o.Limit
	if limit <= 0 {
		limit = c.config.RetrieveLimit
	}

	records, err := c.store.ListRecords(ctx, &storage.ListOptions{UserID: userID, ActiveOnly: true})
	if err != nil {
		return nil, NewStoreError("Retrieve", err)
	}

	// A user with no active records needs no query embedding.
	var queryEmbedding []float64
	if c.embedder != nil && query != "" && len(records) > 0 {
		vec, err := c.embedder.Embed(ctx, query)
		if err != nil {
			c.logger.Warn("query embedding failed, ranking lexically",
				slog.String("error", err.Error()))
		} else {
			queryEmbedding = vec
		}
	}

	ranked := c.engine.Rank(query, queryEmbedding, records, limit)
	facts := make([]*RetrievedFact, len(ranked))
	for i, r := range ranked {
		facts[i] = &RetrievedFact{
			RecordID:        r.Record.ID,
			Fact:            r.Record.Fact,
			MemoryType:      MemoryType(r.Record.MemoryType),
			Category:        r.Record.Category,
			ImportanceScore: r.Record.ImportanceScore,
			Score:           r.Score,
		}
	}
	return facts, nil
}

// Get returns one record by id.
func (c *Client) Get(ctx context.Context, id int64) (*MemoryRecord, error) {
	rec, err := c.store.GetRecord(ctx, id)
	if err != nil {
		return nil, NewStoreError("Get", mapStorageErr(err))
	}
	return fromStorage(rec), nil
}

// ListMemories returns all of the user's active records, newest first.
func (c *Client) ListMemories(ctx context.Context, userID string) ([]*MemoryRecord, error) {
	if userID == "" {
		return nil, NewStoreError("ListMemories", fmt.Errorf("%w: user id is required", ErrValidation))
	}
	recs, err := c.store.ListRecords(ctx, &storage.ListOptions{UserID: userID, ActiveOnly: true})
	if err != nil {
		return nil, NewStoreError("ListMemories", err)
	}
	return fromStorageList(recs), nil
}

// Deduplicate runs a batch duplicate sweep over the user's active records.
//
// Pairs scoring at or above the threshold are merged: the lower-importance
// record is marked a duplicate of the higher-importance one (older record
// wins a tie) and the canonical record is reinforced. The sweep is
// idempotent; a second run with no new data merges nothing.
func (c *Client) Deduplicate(ctx context.Context, userID string) (*DedupResult, error) {
	if userID == "" {
		return nil, NewStoreError("Deduplicate", fmt.Errorf("%w: user id is required", ErrValidation))
	}

	result := &DedupResult{}
	err := c.store.RunInTx(ctx, func(tx storage.Tx) error {
		active, err := tx.ListActive(userID)
		if err != nil {
			return err
		}
		plan := c.dedup.PlanMerges(active)
		result.Found = len(plan)
		for _, pair := range plan {
			if _, err := tx.ReinforceRecord(pair.Canonical.ID, c.dedup.Reinforcement(), pair.Duplicate.ConfidenceScore); err != nil {
				return err
			}
			if err := tx.MarkDuplicate(pair.Duplicate.ID, pair.Canonical.ID); err != nil {
				return err
			}
			if err := tx.RepointDuplicates(pair.Duplicate.ID, pair.Canonical.ID); err != nil {
				return err
			}
			result.Merged++
		}
		return nil
	})
	if err != nil {
		return nil, NewStoreError("Deduplicate", mapStorageErr(err))
	}
	if result.Merged > 0 {
		c.logger.Info("dedup sweep merged records",
			slog.String("user_id", userID),
			slog.Int("found", result.Found),
			slog.Int("merged", result.Merged))
	}
	return result, nil
}

// Cleanup physically removes inactive records that have been inactive for
// longer than olderThanDays. A negative value uses the configured retention
// window. Active records are never touched. Returns the number of rows
// removed.
func (c *Client) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays < 0 {
		olderThanDays = c.config.RetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	n, err := c.store.HardDeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		return 0, NewStoreError("Cleanup", err)
	}
	if n > 0 {
		c.logger.Info("cleanup removed inactive records", slog.Int64("removed", n))
	}
	return n, nil
}

// CreateBackup takes a snapshot of the memory store.
func (c *Client) CreateBackup(ctx context.Context, opts ...BackupOption) (*BackupInfo, error) {
	o := newBackupOptions(opts)
	if !o.Type.Valid() {
		return nil, NewStoreError("CreateBackup", fmt.Errorf("%w: unknown backup type %q", ErrValidation, o.Type))
	}
	snap, err := c.backups.Create(ctx, string(o.Type), o.ScopeUserID)
	if err != nil {
		return nil, NewStoreError("CreateBackup", err)
	}
	return &BackupInfo{
		ID:          snap.ID,
		Type:        BackupType(snap.BackupType),
		ScopeUserID: snap.ScopeUserID,
		RecordCount: snap.RecordCount,
		Checksum:    snap.Checksum,
		CreatedAt:   snap.CreatedAt,
	}, nil
}

// VerifyBackupIntegrity checks a snapshot's payload against its checksum.
func (c *Client) VerifyBackupIntegrity(ctx context.Context, id string) error {
	if err := c.backups.Verify(ctx, id); err != nil {
		return NewStoreError("VerifyBackupIntegrity", mapStorageErr(err))
	}
	return nil
}

// RestoreBackup replaces the snapshot's scope with its contents. The restore
// verifies the snapshot first; a corrupt snapshot leaves current data
// untouched. While the restore runs, ingestion into the covered scope is
// rejected with ErrRestoreInProgress.
func (c *Client) RestoreBackup(ctx context.Context, id string) (int64, error) {
	snap, err := c.store.GetSnapshot(ctx, id)
	if err != nil {
		return 0, NewStoreError("RestoreBackup", mapStorageErr(err))
	}

	if err := c.beginRestore(snap.ScopeUserID); err != nil {
		return 0, NewStoreError("RestoreBackup", err)
	}
	defer c.endRestore(snap.ScopeUserID)

	n, err := c.backups.Restore(ctx, id)
	if err != nil {
		return 0, NewStoreError("RestoreBackup", mapStorageErr(err))
	}
	return n, nil
}

// PruneBackups deletes snapshots beyond the configured retention policy.
func (c *Client) PruneBackups(ctx context.Context) (int, error) {
	n, err := c.backups.Prune(ctx, c.config.Backup.Retention)
	if err != nil {
		return n, NewStoreError("PruneBackups", err)
	}
	return n, nil
}

// MigrateUp applies pending schema migrations. When pre-migration backups
// are enabled and the schema already exists, a snapshot is taken first.
func (c *Client) MigrateUp(ctx context.Context) (int, error) {
	if c.config.Backup.PreMigration {
		statuses, err := c.migrator.Statuses(ctx)
		if err != nil {
			return 0, NewStoreError("MigrateUp", err)
		}
		pending, applied := 0, 0
		for _, s := range statuses {
			if s.Applied {
				applied++
			} else {
				pending++
			}
		}
		// Nothing to snapshot before the very first migration.
		if pending > 0 && applied > 0 {
			if _, err := c.backups.Create(ctx, string(BackupPreMigration), ""); err != nil {
				return 0, NewStoreError("MigrateUp", err)
			}
		}
	}

	n, err := c.migrator.Up(ctx)
	if err != nil {
		return n, NewStoreError("MigrateUp", err)
	}
	return n, nil
}

// MigrateDown rolls back the most recently applied migration. An empty id
// targets whatever migration is latest.
func (c *Client) MigrateDown(ctx context.Context, id string) error {
	if err := c.migrator.Down(ctx, id); err != nil {
		return NewStoreError("MigrateDown", err)
	}
	return nil
}

// MigrationStatus lists every migration with its applied state.
func (c *Client) MigrationStatus(ctx context.Context) ([]migrate.Status, error) {
	statuses, err := c.migrator.Statuses(ctx)
	if err != nil {
		return nil, NewStoreError("MigrationStatus", err)
	}
	return statuses, nil
}

// ListUserIDs returns every user with at least one active record.
func (c *Client) ListUserIDs(ctx context.Context) ([]string, error) {
	ids, err := c.store.ListUserIDs(ctx)
	if err != nil {
		return nil, NewStoreError("ListUserIDs", err)
	}
	return ids, nil
}

// Close closes the storage backend and the embedding provider.
func (c *Client) Close() error {
	var errs []error
	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Client) checkRestoring(userID string) error {
	c.restoreMu.Lock()
	defer c.restoreMu.Unlock()
	if c.restoring[""] || c.restoring[userID] {
		return ErrRestoreInProgress
	}
	return nil
}

func (c *Client) beginRestore(scopeUserID string) error {
	c.restoreMu.Lock()
	defer c.restoreMu.Unlock()
	if c.restoring[scopeUserID] || c.restoring[""] {
		return ErrRestoreInProgress
	}
	c.restoring[scopeUserID] = true
	return nil
}

func (c *Client) endRestore(scopeUserID string) {
	c.restoreMu.Lock()
	defer c.restoreMu.Unlock()
	delete(c.restoring, scopeUserID)
}

// mapStorageErr translates storage sentinels into the client's error
// taxonomy; everything else passes through.
func mapStorageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %v", ErrTransactionConflict, err)
	default:
		return err
	}
}
