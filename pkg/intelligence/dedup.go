// Package intelligence provides duplicate detection and importance scoring
// for memory records.
package intelligence

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/lumina-ai/recall-go/pkg/similarity"
	"github.com/lumina-ai/recall-go/pkg/storage"
)

// Default dedup parameters.
const (
	// DefaultThreshold is the similarity score at or above which two facts
	// are considered duplicates.
	DefaultThreshold = 0.85

	// DefaultReinforcement is the importance increment applied to a record
	// when a duplicate of it is ingested.
	DefaultReinforcement = 0.1
)

// FactHash returns the hex SHA-256 digest of the normalized fact text.
// Two phrasings that normalize identically hash identically, which lets an
// index catch exact re-ingestion without a text comparison.
func FactHash(text string) string {
	sum := sha256.Sum256([]byte(similarity.NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// Match is the result of a duplicate lookup.
type Match struct {
	// Record is the existing record the candidate duplicates.
	Record *storage.Record

	// Score is the similarity score that triggered the match (1.0 for an
	// exact normalized-text match).
	Score float64

	// Strategy names the comparison that produced the score ("exact",
	// "lexical", or "vector").
	Strategy string
}

// MergePair is one planned merge from a batch sweep: Duplicate is folded
// into Canonical.
type MergePair struct {
	Canonical *storage.Record
	Duplicate *storage.Record
	Score     float64
}

// DedupManager detects duplicate facts.
//
// Detection is two-phase: an exact match on normalized text short-circuits,
// otherwise every active record is scored with the applicable similarity
// strategy and the best score at or above the threshold wins.
type DedupManager struct {
	selector      *similarity.Selector
	threshold     float64
	reinforcement float64
}

// NewDedupManager creates a dedup manager. Non-positive threshold or
// reinforcement values fall back to the defaults.
func NewDedupManager(threshold, reinforcement float64) *DedupManager {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if reinforcement <= 0 {
		reinforcement = DefaultReinforcement
	}
	return &DedupManager{
		selector:      similarity.NewSelector(),
		threshold:     threshold,
		reinforcement: reinforcement,
	}
}

// Threshold returns the configured similarity threshold.
func (d *DedupManager) Threshold() float64 { return d.threshold }

// Reinforcement returns the importance increment applied on merge.
func (d *DedupManager) Reinforcement() float64 { return d.reinforcement }

// FindDuplicate returns the best duplicate of the candidate among the given
// active records, or nil when nothing scores at or above the threshold.
func (d *DedupManager) FindDuplicate(fact string, embedding []float64, active []*storage.Record) *Match {
	hash := FactHash(fact)
	for _, rec := range active {
		if rec.FactHash != "" && rec.FactHash == hash {
			return &Match{Record: rec, Score: 1.0, Strategy: "exact"}
		}
		if similarity.NormalizeText(rec.Fact) == similarity.NormalizeText(fact) {
			return &Match{Record: rec, Score: 1.0, Strategy: "exact"}
		}
	}

	candidate := similarity.Fact{Text: fact, Embedding: embedding}
	var best *Match
	for _, rec := range active {
		other := similarity.Fact{Text: rec.Fact, Embedding: rec.Embedding}
		strategy := d.selector.For(candidate, other)
		score := strategy.Score(candidate, other)
		if score < d.threshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &Match{Record: rec, Score: score, Strategy: strategy.Name()}
		}
	}
	return best
}

// PlanMerges computes the merge pairs for a batch sweep over a user's active
// records. Comparisons are blocked by memory_type+category to bound the
// pairwise work; records in different blocks are never compared.
//
// Within a matching pair the canonical record is the one with the higher
// importance score; on a tie, the older created_at wins. A record already
// chosen as a duplicate in this plan is not merged into again, so applying
// the plan keeps duplicate chains one level deep and re-running the sweep on
// the result yields an empty plan.
func (d *DedupManager) PlanMerges(active []*storage.Record) []MergePair {
	blocks := make(map[string][]*storage.Record)
	for _, rec := range active {
		key := rec.MemoryType + "\x00" + rec.Category
		blocks[key] = append(blocks[key], rec)
	}

	keys := make([]string, 0, len(blocks))
	for k := range blocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var plan []MergePair
	merged := make(map[int64]bool)
	for _, key := range keys {
		recs := blocks[key]
		sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
		for i := 0; i < len(recs); i++ {
			for j := i + 1; j < len(recs); j++ {
				a, b := recs[i], recs[j]
				if merged[a.ID] || merged[b.ID] {
					continue
				}
				fa := similarity.Fact{Text: a.Fact, Embedding: a.Embedding}
				fb := similarity.Fact{Text: b.Fact, Embedding: b.Embedding}
				score := d.selector.Score(fa, fb)
				if score < d.threshold {
					continue
				}
				canonical, duplicate := pickCanonical(a, b)
				plan = append(plan, MergePair{Canonical: canonical, Duplicate: duplicate, Score: score})
				merged[duplicate.ID] = true
			}
		}
	}
	return plan
}

// pickCanonical chooses which of two duplicates survives: higher importance
// wins, ties go to the older record.
func pickCanonical(a, b *storage.Record) (canonical, duplicate *storage.Record) {
	switch {
	case a.ImportanceScore > b.ImportanceScore:
		return a, b
	case b.ImportanceScore > a.ImportanceScore:
		return b, a
	case a.CreatedAt.After(b.CreatedAt):
		return b, a
	default:
		return a, b
	}
}
