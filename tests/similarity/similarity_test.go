package similarity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumina-ai/recall-go/pkg/similarity"
)

func TestLexical_ParaphrasedFact(t *testing.T) {
	lex := similarity.NewLexical()

	// Two conversational phrasings of the same fact must clear the dedup
	// threshold.
	score := lex.Score(
		similarity.Fact{Text: "User's sister is named Priya"},
		similarity.Fact{Text: "My sister's name is Priya"},
	)
	assert.GreaterOrEqual(t, score, 0.85)
}

func TestLexical_IdenticalText(t *testing.T) {
	lex := similarity.NewLexical()

	score := lex.Score(
		similarity.Fact{Text: "User loves spicy Thai food"},
		similarity.Fact{Text: "User loves spicy Thai food"},
	)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestLexical_UnrelatedFacts(t *testing.T) {
	lex := similarity.NewLexical()

	score := lex.Score(
		similarity.Fact{Text: "User plays piano every weekend"},
		similarity.Fact{Text: "Bruno the dog chased a squirrel"},
	)
	assert.Less(t, score, 0.85)
}

func TestLexical_EmptyText(t *testing.T) {
	lex := similarity.NewLexical()

	assert.Equal(t, 0.0, lex.Score(
		similarity.Fact{Text: ""},
		similarity.Fact{Text: "User likes coffee"},
	))
	assert.Equal(t, 1.0, lex.Score(
		similarity.Fact{Text: ""},
		similarity.Fact{Text: ""},
	))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "user sister is named priya",
		similarity.NormalizeText("User's sister is named Priya!"))
	assert.Equal(t, "that is priya",
		similarity.NormalizeText("That is Priya's"))
}

func TestTokenSet_StemsInflections(t *testing.T) {
	pairs := [][2]string{
		{"likes", "liked"},
		{"named", "names"},
		{"cities", "city"},
	}
	for _, p := range pairs {
		assert.Equal(t, similarity.TokenSet(p[0]), similarity.TokenSet(p[1]),
			"%q and %q should stem to the same token", p[0], p[1])
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, similarity.CosineSimilarity(
		[]float64{1, 0, 0}, []float64{1, 0, 0}), 1e-9)
	assert.InDelta(t, 0.0, similarity.CosineSimilarity(
		[]float64{1, 0, 0}, []float64{0, 1, 0}), 1e-9)
	assert.Equal(t, 0.0, similarity.CosineSimilarity(nil, []float64{1}))
}

func TestVector_ClampsNegative(t *testing.T) {
	vec := similarity.NewVector()
	score := vec.Score(
		similarity.Fact{Text: "a", Embedding: []float64{1, 0}},
		similarity.Fact{Text: "b", Embedding: []float64{-1, 0}},
	)
	assert.Equal(t, 0.0, score)
}

func TestSelector_PrefersVectorWhenBothEmbedded(t *testing.T) {
	sel := similarity.NewSelector()

	a := similarity.Fact{Text: "User likes tea", Embedding: []float64{1, 0}}
	b := similarity.Fact{Text: "User likes tea", Embedding: []float64{0, 1}}
	assert.Equal(t, "vector", sel.For(a, b).Name())

	// Orthogonal vectors override the identical text.
	assert.InDelta(t, 0.0, sel.Score(a, b), 1e-9)
}

func TestSelector_FallsBackToLexical(t *testing.T) {
	sel := similarity.NewSelector()

	a := similarity.Fact{Text: "User likes tea", Embedding: []float64{1, 0}}
	b := similarity.Fact{Text: "User likes tea"}
	assert.Equal(t, "lexical", sel.For(a, b).Name())

	// Mismatched dimensions also fall back.
	c := similarity.Fact{Text: "User likes tea", Embedding: []float64{1, 0, 0}}
	assert.Equal(t, "lexical", sel.For(a, c).Name())
}
