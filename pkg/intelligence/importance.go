package intelligence

import (
	"math"
	"strings"
)

// ImportanceScorer assigns a default importance score to a fact when the
// extractor upstream supplies no hint.
//
// Scoring is rule-based: a base weight per memory type, keyword classes for
// explicitly-flagged and emotionally-loaded content, and a small length
// factor. The result is always in [0.0, 1.0].
type ImportanceScorer struct {
	typeWeights map[string]float64
}

// NewImportanceScorer creates a scorer with the default type weights.
//
// Person and emotion facts start higher than topical chatter: knowing who the
// user's sister is matters more to a companion than what they talked about
// yesterday.
func NewImportanceScorer() *ImportanceScorer {
	return &ImportanceScorer{
		typeWeights: map[string]float64{
			"person":     0.5,
			"emotion":    0.45,
			"preference": 0.4,
			"event":      0.35,
			"fact":       0.35,
			"topic":      0.25,
		},
	}
}

var (
	flaggedKeywords = []string{
		"important", "remember", "always", "never forget", "critical",
	}
	emotionalKeywords = []string{
		"love", "hate", "scared", "afraid", "worried", "anxious",
		"excited", "happy", "sad", "angry", "miss", "grateful",
	}
	relationKeywords = []string{
		"mother", "father", "mom", "dad", "sister", "brother",
		"wife", "husband", "partner", "daughter", "son", "best friend",
	}
)

// Score returns the importance of a fact in [0.0, 1.0].
func (s *ImportanceScorer) Score(memoryType, fact string) float64 {
	score, ok := s.typeWeights[memoryType]
	if !ok {
		score = 0.3
	}
	lower := strings.ToLower(fact)

	for _, kw := range flaggedKeywords {
		if strings.Contains(lower, kw) {
			score += 0.15
			break
		}
	}
	for _, kw := range emotionalKeywords {
		if strings.Contains(lower, kw) {
			score += 0.1
			break
		}
	}
	for _, kw := range relationKeywords {
		if strings.Contains(lower, kw) {
			score += 0.1
			break
		}
	}

	// Longer facts tend to carry more context worth keeping.
	if len(fact) > 120 {
		score += 0.1
	} else if len(fact) > 60 {
		score += 0.05
	}

	return Clamp(score)
}

// Clamp bounds a score to [0.0, 1.0].
func Clamp(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
