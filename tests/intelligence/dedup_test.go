package intelligence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-ai/recall-go/pkg/intelligence"
	"github.com/lumina-ai/recall-go/pkg/storage"
)

func record(id int64, memoryType, category, fact string, importance float64, createdAt time.Time) *storage.Record {
	return &storage.Record{
		ID:              id,
		UserID:          "user_001",
		MemoryType:      memoryType,
		Category:        category,
		Fact:            fact,
		FactHash:        intelligence.FactHash(fact),
		ImportanceScore: importance,
		ConfidenceScore: 0.5,
		Version:         1,
		IsActive:        true,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func TestFactHash_NormalizedEquality(t *testing.T) {
	assert.Equal(t,
		intelligence.FactHash("User's sister is named Priya"),
		intelligence.FactHash("user sister is named priya!"))
	assert.NotEqual(t,
		intelligence.FactHash("User likes tea"),
		intelligence.FactHash("User likes coffee"))
}

func TestFindDuplicate_ExactMatch(t *testing.T) {
	dm := intelligence.NewDedupManager(0.85, 0.1)
	now := time.Now()

	active := []*storage.Record{
		record(1, "person", "family", "User's sister is named Priya", 0.6, now),
		record(2, "preference", "food", "User loves spicy Thai food", 0.4, now),
	}

	match := dm.FindDuplicate("User's sister is named Priya", nil, active)
	require.NotNil(t, match)
	assert.Equal(t, int64(1), match.Record.ID)
	assert.Equal(t, "exact", match.Strategy)
	assert.Equal(t, 1.0, match.Score)
}

func TestFindDuplicate_Paraphrase(t *testing.T) {
	dm := intelligence.NewDedupManager(0.85, 0.1)
	now := time.Now()

	active := []*storage.Record{
		record(1, "person", "family", "User's sister is named Priya", 0.6, now),
	}

	match := dm.FindDuplicate("My sister's name is Priya", nil, active)
	require.NotNil(t, match)
	assert.Equal(t, int64(1), match.Record.ID)
	assert.GreaterOrEqual(t, match.Score, 0.85)
}

func TestFindDuplicate_NoMatch(t *testing.T) {
	dm := intelligence.NewDedupManager(0.85, 0.1)
	now := time.Now()

	active := []*storage.Record{
		record(1, "person", "family", "User's sister is named Priya", 0.6, now),
	}

	assert.Nil(t, dm.FindDuplicate("User plays piano every weekend", nil, active))
	assert.Nil(t, dm.FindDuplicate("User plays piano", nil, nil))
}

func TestFindDuplicate_VectorPrecedence(t *testing.T) {
	dm := intelligence.NewDedupManager(0.85, 0.1)
	now := time.Now()

	// Identical text but orthogonal embeddings: the vector comparison wins
	// and reports no duplicate. The exact normalized-text check still
	// catches byte-equal re-ingestion first, so the texts differ here.
	rec := record(1, "fact", "", "User enjoys quiet evenings", 0.5, now)
	rec.Embedding = []float64{1, 0}

	match := dm.FindDuplicate("The user enjoys a quiet evening", []float64{0, 1}, []*storage.Record{rec})
	assert.Nil(t, match)
}

func TestPlanMerges_CanonicalSelection(t *testing.T) {
	dm := intelligence.NewDedupManager(0.85, 0.1)
	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	active := []*storage.Record{
		record(1, "person", "family", "User's sister is named Priya", 0.6, older),
		record(2, "person", "family", "My sister's name is Priya", 0.3, newer),
	}

	plan := dm.PlanMerges(active)
	require.Len(t, plan, 1)
	assert.Equal(t, int64(1), plan[0].Canonical.ID)
	assert.Equal(t, int64(2), plan[0].Duplicate.ID)
}

func TestPlanMerges_TieGoesToOlder(t *testing.T) {
	dm := intelligence.NewDedupManager(0.85, 0.1)
	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	active := []*storage.Record{
		record(1, "person", "family", "My sister's name is Priya", 0.5, newer),
		record(2, "person", "family", "User's sister is named Priya", 0.5, older),
	}

	plan := dm.PlanMerges(active)
	require.Len(t, plan, 1)
	assert.Equal(t, int64(2), plan[0].Canonical.ID)
}

func TestPlanMerges_BlockedByTypeAndCategory(t *testing.T) {
	dm := intelligence.NewDedupManager(0.85, 0.1)
	now := time.Now()

	// Same text but different blocks are never compared.
	active := []*storage.Record{
		record(1, "person", "family", "Priya visits every summer", 0.5, now),
		record(2, "event", "family", "Priya visits every summer", 0.5, now),
		record(3, "person", "friends", "Priya visits every summer", 0.5, now),
	}

	assert.Empty(t, dm.PlanMerges(active))
}

func TestPlanMerges_ChainsStayFlat(t *testing.T) {
	dm := intelligence.NewDedupManager(0.85, 0.1)
	now := time.Now()

	// Three phrasings of one fact: both duplicates merge into the same
	// canonical record rather than forming a chain.
	active := []*storage.Record{
		record(1, "person", "family", "User's sister is named Priya", 0.8, now),
		record(2, "person", "family", "My sister's name is Priya", 0.5, now),
		record(3, "person", "family", "The user has a sister named Priya", 0.4, now),
	}

	plan := dm.PlanMerges(active)
	require.Len(t, plan, 2)
	for _, pair := range plan {
		assert.Equal(t, int64(1), pair.Canonical.ID)
	}
}

func TestImportanceScorer(t *testing.T) {
	scorer := intelligence.NewImportanceScorer()

	family := scorer.Score("person", "User's sister is named Priya")
	chatter := scorer.Score("topic", "User mentioned the weather")
	assert.Greater(t, family, chatter)

	// Scores always land in [0,1], even with every keyword class present.
	loaded := scorer.Score("emotion",
		"Always remember this is important: user is scared they will miss their mother and best friend terribly")
	assert.GreaterOrEqual(t, loaded, 0.0)
	assert.LessOrEqual(t, loaded, 1.0)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, intelligence.Clamp(-0.5))
	assert.Equal(t, 1.0, intelligence.Clamp(1.5))
	assert.Equal(t, 0.7, intelligence.Clamp(0.7))
}
