package core_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-ai/recall-go/pkg/core"
	"github.com/lumina-ai/recall-go/pkg/intelligence"
	"github.com/lumina-ai/recall-go/pkg/storage"
	sqliteStore "github.com/lumina-ai/recall-go/pkg/storage/sqlite"
)

func setupClient(t *testing.T, mutate func(*core.Config)) *core.Client {
	t.Helper()

	cfg := core.DefaultConfig(filepath.Join(t.TempDir(), "test_client.db"))
	cfg.LogLevel = "error"
	if mutate != nil {
		mutate(cfg)
	}

	client, err := core.NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_IngestAndRetrieve(t *testing.T) {
	client := setupClient(t, nil)
	ctx := context.Background()

	result, err := client.Ingest(ctx, "user_001", core.TypePreference,
		"Allergic to peanuts and shellfish", core.WithCategory("health"))
	require.NoError(t, err)
	assert.Equal(t, core.StatusCreated, result.Status)
	assert.Equal(t, int64(1), result.Version)
	assert.NotZero(t, result.RecordID)

	_, err = client.Ingest(ctx, "user_001", core.TypeFact,
		"Works remotely from a coastal village")
	require.NoError(t, err)

	facts, err := client.Retrieve(ctx, "user_001", "peanut reaction")
	require.NoError(t, err)
	require.NotEmpty(t, facts)
	assert.Equal(t, result.RecordID, facts[0].RecordID)
	assert.Equal(t, "health", facts[0].Category)
	assert.Greater(t, facts[0].Score, facts[len(facts)-1].Score)
}

func TestClient_IngestSameFactTwiceMerges(t *testing.T) {
	client := setupClient(t, nil)
	ctx := context.Background()

	first, err := client.Ingest(ctx, "user_001", core.TypeFact,
		"Works remotely from a coastal village")
	require.NoError(t, err)
	require.Equal(t, core.StatusCreated, first.Status)

	second, err := client.Ingest(ctx, "user_001", core.TypeFact,
		"Works remotely from a coastal village")
	require.NoError(t, err)
	assert.Equal(t, core.StatusMerged, second.Status)
	assert.Equal(t, first.RecordID, second.RecordID)
	assert.Equal(t, int64(2), second.Version)

	active, err := client.ListMemories(ctx, "user_001")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestClient_IngestParaphraseReinforces(t *testing.T) {
	client := setupClient(t, nil)
	ctx := context.Background()

	first, err := client.Ingest(ctx, "user_001", core.TypePerson,
		"User's sister is named Priya",
		core.WithCategory("family"),
		core.WithImportance(0.6))
	require.NoError(t, err)
	require.Equal(t, core.StatusCreated, first.Status)

	second, err := client.Ingest(ctx, "user_001", core.TypePerson,
		"My sister's name is Priya")
	require.NoError(t, err)
	assert.Equal(t, core.StatusMerged, second.Status)
	assert.Equal(t, first.RecordID, second.RecordID)
	assert.Equal(t, int64(2), second.Version)

	rec, err := client.Get(ctx, first.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "User's sister is named Priya", rec.Fact)
	assert.InDelta(t, 0.7, rec.ImportanceScore, 1e-9)
	assert.True(t, rec.IsActive)
}

func TestClient_IngestValidation(t *testing.T) {
	client := setupClient(t, nil)
	ctx := context.Background()

	_, err := client.Ingest(ctx, "", core.TypeFact, "Works remotely")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = client.Ingest(ctx, "user_001", core.TypeFact, "   ")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = client.Ingest(ctx, "user_001", core.MemoryType("mood"), "Feels upbeat")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = client.Retrieve(ctx, "", "anything")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestClient_QuotaEvictsLowestImportance(t *testing.T) {
	client := setupClient(t, func(cfg *core.Config) {
		cfg.MaxActiveMemories = 3
	})
	ctx := context.Background()

	_, err := client.Ingest(ctx, "user_001", core.TypePreference,
		"Allergic to peanuts and shellfish", core.WithImportance(0.9))
	require.NoError(t, err)
	victim, err := client.Ingest(ctx, "user_001", core.TypeTopic,
		"Paints watercolor landscapes every weekend", core.WithImportance(0.2))
	require.NoError(t, err)
	_, err = client.Ingest(ctx, "user_001", core.TypeFact,
		"Works remotely from a coastal village", core.WithImportance(0.8))
	require.NoError(t, err)

	// Fourth fact lands at quota; the 0.2 record gives way.
	result, err := client.Ingest(ctx, "user_001", core.TypePreference,
		"Favorite movie involves time travel", core.WithImportance(0.7))
	require.NoError(t, err)
	assert.Equal(t, core.StatusCreated, result.Status)

	active, err := client.ListMemories(ctx, "user_001")
	require.NoError(t, err)
	assert.Len(t, active, 3)

	evicted, err := client.Get(ctx, victim.RecordID)
	require.NoError(t, err)
	assert.False(t, evicted.IsActive)
}

func TestClient_RetrieveUnknownUserIsEmpty(t *testing.T) {
	client := setupClient(t, nil)

	facts, err := client.Retrieve(context.Background(), "nobody", "anything")
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestClient_GetMissing(t *testing.T) {
	client := setupClient(t, nil)

	_, err := client.Get(context.Background(), 404404)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestClient_DeduplicateSweep(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_sweep.db")
	cfg := core.DefaultConfig(dbPath)
	cfg.LogLevel = "error"

	client, err := core.NewClient(cfg)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	ctx := context.Background()

	// Seed two paraphrases directly so the write path's dedup cannot
	// collapse them first.
	seed, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: dbPath})
	require.NoError(t, err)
	defer func() { _ = seed.Close() }()

	now := time.Now().UTC()
	insert := func(id int64, fact string, importance float64, created time.Time) {
		err := seed.RunInTx(ctx, func(tx storage.Tx) error {
			return tx.InsertRecord(&storage.Record{
				ID:              id,
				UserID:          "user_001",
				MemoryType:      "fact",
				Fact:            fact,
				FactHash:        intelligence.FactHash(fact),
				ImportanceScore: importance,
				ConfidenceScore: 0.5,
				Version:         1,
				IsActive:        true,
				CreatedAt:       created,
				UpdatedAt:       created,
			})
		})
		require.NoError(t, err)
	}
	insert(1, "User loves hiking in the mountains", 0.8, now.Add(-time.Hour))
	insert(2, "The user loves hiking in mountains", 0.4, now)

	result, err := client.Deduplicate(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 1, result.Merged)

	canonical, err := client.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, canonical.IsActive)
	assert.InDelta(t, 0.9, canonical.ImportanceScore, 1e-9)
	assert.Equal(t, int64(2), canonical.Version)

	dup, err := client.Get(ctx, 2)
	require.NoError(t, err)
	assert.False(t, dup.IsActive)
	require.NotNil(t, dup.DuplicateOf)
	assert.Equal(t, int64(1), *dup.DuplicateOf)

	// The sweep is idempotent.
	again, err := client.Deduplicate(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Found)
	assert.Equal(t, 0, again.Merged)
}

func TestClient_CleanupRemovesOnlyInactive(t *testing.T) {
	client := setupClient(t, func(cfg *core.Config) {
		cfg.MaxActiveMemories = 1
	})
	ctx := context.Background()

	victim, err := client.Ingest(ctx, "user_001", core.TypePreference,
		"Allergic to peanuts and shellfish", core.WithImportance(0.2))
	require.NoError(t, err)

	// Second ingest at quota 1 evicts the first.
	keep, err := client.Ingest(ctx, "user_001", core.TypeFact,
		"Works remotely from a coastal village", core.WithImportance(0.8))
	require.NoError(t, err)

	evicted, err := client.Get(ctx, victim.RecordID)
	require.NoError(t, err)
	require.False(t, evicted.IsActive)

	time.Sleep(5 * time.Millisecond)
	n, err := client.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = client.Get(ctx, victim.RecordID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = client.Get(ctx, keep.RecordID)
	assert.NoError(t, err)
}

func TestClient_BackupRestoreRoundtrip(t *testing.T) {
	client := setupClient(t, nil)
	ctx := context.Background()

	_, err := client.Ingest(ctx, "user_001", core.TypePreference,
		"Allergic to peanuts and shellfish")
	require.NoError(t, err)
	_, err = client.Ingest(ctx, "user_001", core.TypeFact,
		"Works remotely from a coastal village")
	require.NoError(t, err)

	info, err := client.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.BackupManual, info.Type)
	assert.Equal(t, int64(2), info.RecordCount)
	assert.NotEmpty(t, info.Checksum)

	require.NoError(t, client.VerifyBackupIntegrity(ctx, info.ID))

	late, err := client.Ingest(ctx, "user_001", core.TypeTopic,
		"Paints watercolor landscapes every weekend")
	require.NoError(t, err)

	n, err := client.RestoreBackup(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	active, err := client.ListMemories(ctx, "user_001")
	require.NoError(t, err)
	assert.Len(t, active, 2)
	_, err = client.Get(ctx, late.RecordID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestClient_ScopedBackup(t *testing.T) {
	client := setupClient(t, nil)
	ctx := context.Background()

	_, err := client.Ingest(ctx, "user_001", core.TypeFact,
		"Works remotely from a coastal village")
	require.NoError(t, err)
	_, err = client.Ingest(ctx, "user_002", core.TypePreference,
		"Allergic to peanuts and shellfish")
	require.NoError(t, err)

	info, err := client.CreateBackup(ctx,
		core.WithBackupType(core.BackupDaily),
		core.WithBackupScope("user_001"))
	require.NoError(t, err)
	assert.Equal(t, core.BackupDaily, info.Type)
	assert.Equal(t, "user_001", info.ScopeUserID)
	assert.Equal(t, int64(1), info.RecordCount)
}

func TestClient_CreateBackupRejectsUnknownType(t *testing.T) {
	client := setupClient(t, nil)

	_, err := client.CreateBackup(context.Background(),
		core.WithBackupType(core.BackupType("hourly")))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestClient_ListUserIDs(t *testing.T) {
	client := setupClient(t, nil)
	ctx := context.Background()

	_, err := client.Ingest(ctx, "user_b", core.TypeFact,
		"Works remotely from a coastal village")
	require.NoError(t, err)
	_, err = client.Ingest(ctx, "user_a", core.TypePreference,
		"Allergic to peanuts and shellfish")
	require.NoError(t, err)

	ids, err := client.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_a", "user_b"}, ids)
}

func TestClient_MigrationStatus(t *testing.T) {
	client := setupClient(t, nil)

	statuses, err := client.MigrationStatus(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, statuses)
	for _, s := range statuses {
		assert.True(t, s.Applied, "migration %s should be applied by AutoMigrate", s.ID)
		assert.False(t, s.Drifted)
	}
}

func TestNewClient_RejectsNilAndInvalidConfig(t *testing.T) {
	_, err := core.NewClient(nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = core.NewClient(&core.Config{
		Storage: core.StorageConfig{Provider: "oracle"},
	})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

// stubEmbedder is a deterministic in-process embedding provider.
type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	s.calls++
	return []float64{0.1, 0.2, 0.3}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) Model() string   { return "stub-embed" }
func (s *stubEmbedder) Close() error    { return nil }

func TestClient_RetrieveSkipsQueryEmbeddingForEmptyUsers(t *testing.T) {
	stub := &stubEmbedder{}
	cfg := core.DefaultConfig(filepath.Join(t.TempDir(), "test_embed.db"))
	cfg.LogLevel = "error"
	client, err := core.NewClient(cfg, core.WithEmbedderProvider(stub))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	ctx := context.Background()

	// No records means no provider round trip for the query.
	facts, err := client.Retrieve(ctx, "nobody", "anything")
	require.NoError(t, err)
	assert.Empty(t, facts)
	assert.Zero(t, stub.calls)

	_, err = client.Ingest(ctx, "user_001", core.TypeFact,
		"Works remotely from a coastal village")
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)

	_, err = client.Retrieve(ctx, "user_001", "remote work")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls)
}

func TestClient_MergeBackfillsCanonicalEmbedding(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_backfill.db")
	ctx := context.Background()

	// First client has no embedder; the canonical record is stored without
	// a vector.
	cfg := core.DefaultConfig(dbPath)
	cfg.LogLevel = "error"
	plain, err := core.NewClient(cfg)
	require.NoError(t, err)

	first, err := plain.Ingest(ctx, "user_001", core.TypePerson,
		"User's sister is named Priya")
	require.NoError(t, err)
	require.NoError(t, plain.Close())

	rejoined := core.DefaultConfig(dbPath)
	rejoined.LogLevel = "error"
	client, err := core.NewClient(rejoined, core.WithEmbedderProvider(&stubEmbedder{}))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	second, err := client.Ingest(ctx, "user_001", core.TypePerson,
		"My sister's name is Priya")
	require.NoError(t, err)
	require.Equal(t, core.StatusMerged, second.Status)
	require.Equal(t, first.RecordID, second.RecordID)

	rec, err := client.Get(ctx, first.RecordID)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, rec.Embedding)
	assert.Equal(t, "stub-embed", rec.EmbeddingModel)
}
