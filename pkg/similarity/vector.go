package similarity

import "math"

// Vector scores facts by cosine similarity of their embeddings.
//
// Raw cosine similarity ranges from -1 to 1; Score clamps negative values
// to 0 so the strategy honors the [0,1] contract shared with Lexical.
type Vector struct{}

// NewVector creates the vector cosine strategy.
func NewVector() *Vector {
	return &Vector{}
}

// Name returns "vector".
func (v *Vector) Name() string {
	return "vector"
}

// Score returns the cosine similarity of the two embeddings, clamped to
// [0.0, 1.0]. Facts with missing or mismatched vectors score 0.
func (v *Vector) Score(a, b Fact) float64 {
	sim := CosineSimilarity(a.Embedding, b.Embedding)
	if sim < 0 {
		return 0
	}
	return sim
}

// CosineSimilarity calculates the cosine similarity between two vectors.
//
// The formula is: similarity = (A · B) / (||A|| * ||B||)
//
// Returns a value between -1.0 and 1.0, or 0.0 if the vectors have
// different dimensions or zero norm.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
