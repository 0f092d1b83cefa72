// Package similarity provides pluggable text similarity strategies for
// duplicate detection and retrieval ranking.
//
// Two strategies are implemented: lexical token-set similarity for plain
// text, and cosine similarity for embedding vectors. The Selector picks
// between them based on whether both sides carry an embedding.
package similarity

// Fact is the comparable view of a memory: its text and, when available,
// its embedding vector.
type Fact struct {
	// Text is the fact text.
	Text string

	// Embedding is the optional vector for the text.
	Embedding []float64
}

// Strategy scores the similarity of two facts.
//
// All implementations return values in [0.0, 1.0], where 1.0 means
// the facts are equivalent.
type Strategy interface {
	// Score returns the similarity of a and b in [0.0, 1.0].
	Score(a, b Fact) float64

	// Name identifies the strategy ("lexical" or "vector").
	Name() string
}

// Selector chooses a strategy per comparison.
//
// Vector similarity wins whenever both facts carry embeddings of the same
// dimension; lexical token-set similarity is the fallback.
type Selector struct {
	lexical Strategy
	vector  Strategy
}

// NewSelector creates a Selector with the default lexical and vector
// strategies.
func NewSelector() *Selector {
	return &Selector{
		lexical: NewLexical(),
		vector:  NewVector(),
	}
}

// For returns the strategy that applies to the given pair.
func (s *Selector) For(a, b Fact) Strategy {
	if len(a.Embedding) > 0 && len(b.Embedding) > 0 && len(a.Embedding) == len(b.Embedding) {
		return s.vector
	}
	return s.lexical
}

// Score scores a pair with the applicable strategy.
func (s *Selector) Score(a, b Fact) float64 {
	return s.For(a, b).Score(a, b)
}
