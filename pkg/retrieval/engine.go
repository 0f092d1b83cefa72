// Package retrieval ranks a user's active memories against a query for
// prompt construction.
package retrieval

import (
	"math"
	"sort"
	"time"

	"github.com/lumina-ai/recall-go/pkg/similarity"
	"github.com/lumina-ai/recall-go/pkg/storage"
)

// DefaultLimit is the number of facts returned when the caller does not ask
// for a specific count.
const DefaultLimit = 5

// Ranking weights. Similarity dominates; importance and recency break the
// field apart when several memories match the query about equally.
const (
	weightSimilarity = 0.60
	weightImportance = 0.25
	weightRecency    = 0.15

	// recencyHalfLife is the age at which the recency component of a
	// record's score has decayed to one half.
	recencyHalfLife = 30 * 24 * time.Hour
)

// Result pairs a record with its combined relevance score.
type Result struct {
	// Record is the matched record.
	Record *storage.Record

	// Score is the combined relevance score in [0.0, 1.0].
	Score float64
}

// Engine scores and ranks records.
type Engine struct {
	selector *similarity.Selector
	now      func() time.Time
}

// NewEngine creates a retrieval engine.
func NewEngine() *Engine {
	return &Engine{
		selector: similarity.NewSelector(),
		now:      time.Now,
	}
}

// Rank scores every record against the query and returns the top limit
// results, best first. A zero or negative limit falls back to DefaultLimit.
// An empty record set ranks to an empty (never nil) slice.
//
// queryEmbedding is optional; when present, records that carry an embedding
// are scored by cosine similarity and the rest by lexical overlap.
func (e *Engine) Rank(query string, queryEmbedding []float64, records []*storage.Record, limit int) []Result {
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := similarity.Fact{Text: query, Embedding: queryEmbedding}
	now := e.now().UTC()

	results := make([]Result, 0, len(records))
	for _, rec := range records {
		f := similarity.Fact{Text: rec.Fact, Embedding: rec.Embedding}
		sim := e.selector.Score(q, f)
		score := weightSimilarity*sim +
			weightImportance*rec.ImportanceScore +
			weightRecency*recency(now, rec.UpdatedAt)
		results = append(results, Result{Record: rec, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.UpdatedAt.After(results[j].Record.UpdatedAt)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// recency maps the age of a record's last update to (0, 1] with exponential
// decay: 1.0 when just touched, 0.5 at the half life.
func recency(now, updatedAt time.Time) float64 {
	age := now.Sub(updatedAt)
	if age <= 0 {
		return 1.0
	}
	return math.Exp2(-float64(age) / float64(recencyHalfLife))
}
