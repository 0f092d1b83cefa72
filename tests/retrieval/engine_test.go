package retrieval_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-ai/recall-go/pkg/retrieval"
	"github.com/lumina-ai/recall-go/pkg/storage"
)

func record(id int64, fact string, importance float64, updatedAt time.Time) *storage.Record {
	return &storage.Record{
		ID:              id,
		UserID:          "user_001",
		MemoryType:      "fact",
		Fact:            fact,
		ImportanceScore: importance,
		ConfidenceScore: 0.5,
		Version:         1,
		IsActive:        true,
		CreatedAt:       updatedAt,
		UpdatedAt:       updatedAt,
	}
}

func TestRank_SimilarityDominates(t *testing.T) {
	engine := retrieval.NewEngine()
	now := time.Now().UTC()

	records := []*storage.Record{
		record(1, "User loves spicy Thai food", 0.4, now),
		record(2, "User's sister is named Priya", 0.4, now),
	}

	results := engine.Rank("tell me about my sister", nil, records, 5)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Record.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRank_ImportanceBreaksTies(t *testing.T) {
	engine := retrieval.NewEngine()
	now := time.Now().UTC()

	// Equally relevant to the query; importance decides.
	records := []*storage.Record{
		record(1, "User plays piano every weekend", 0.2, now),
		record(2, "User practices piano daily", 0.9, now),
	}

	results := engine.Rank("piano", nil, records, 5)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Record.ID)
}

func TestRank_RecencyBreaksTies(t *testing.T) {
	engine := retrieval.NewEngine()
	now := time.Now().UTC()

	records := []*storage.Record{
		record(1, "User plays piano every weekend", 0.5, now.Add(-90*24*time.Hour)),
		record(2, "User plays piano every weekend sometimes", 0.5, now),
	}

	results := engine.Rank("piano", nil, records, 5)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Record.ID)
}

func TestRank_LimitAndDefault(t *testing.T) {
	engine := retrieval.NewEngine()
	now := time.Now().UTC()

	var records []*storage.Record
	facts := []string{
		"User loves spicy Thai food",
		"User plays piano every weekend",
		"User has a dog named Bruno",
		"User works as a teacher",
		"User collects vinyl records",
		"User brews their own coffee",
		"User is learning Portuguese",
	}
	for i, fact := range facts {
		records = append(records, record(int64(i+1), fact, 0.5, now))
	}

	assert.Len(t, engine.Rank("user", nil, records, 0), retrieval.DefaultLimit)
	assert.Len(t, engine.Rank("user", nil, records, 3), 3)
	assert.Len(t, engine.Rank("user", nil, records, 100), len(facts))
}

func TestRank_EmptyRecords(t *testing.T) {
	engine := retrieval.NewEngine()

	results := engine.Rank("anything", nil, nil, 5)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRank_UsesQueryEmbedding(t *testing.T) {
	engine := retrieval.NewEngine()
	now := time.Now().UTC()

	aligned := record(1, "completely different words here", 0.5, now)
	aligned.Embedding = []float64{1, 0}
	orthogonal := record(2, "completely different words here too", 0.5, now)
	orthogonal.Embedding = []float64{0, 1}

	results := engine.Rank("query", []float64{1, 0}, []*storage.Record{orthogonal, aligned}, 5)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].Record.ID)
}
