package similarity

import (
	"strings"
	"unicode"
)

// Lexical scores facts by normalized token-set overlap.
//
// Texts are lower-cased, possessives and punctuation are stripped, tokens
// are lightly stemmed, and very short tokens are dropped. The score is the
// overlap coefficient: |A ∩ B| / min(|A|, |B|). Compared to plain Jaccard
// this does not punish one fact for being wordier than the other, which
// matters for conversational phrasings of the same fact ("User's sister is
// named Priya" vs "My sister's name is Priya").
type Lexical struct{}

// NewLexical creates the lexical token-set strategy.
func NewLexical() *Lexical {
	return &Lexical{}
}

// Name returns "lexical".
func (l *Lexical) Name() string {
	return "lexical"
}

// Score returns the token-set overlap of the two fact texts in [0.0, 1.0].
func (l *Lexical) Score(a, b Fact) float64 {
	ta := TokenSet(a.Text)
	tb := TokenSet(b.Text)

	if len(ta) == 0 || len(tb) == 0 {
		if NormalizeText(a.Text) == NormalizeText(b.Text) {
			return 1.0
		}
		return 0.0
	}

	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}

	minSize := len(ta)
	if len(tb) < minSize {
		minSize = len(tb)
	}

	return float64(intersection) / float64(minSize)
}

// NormalizeText lower-cases s, removes possessive suffixes, and replaces
// every non-alphanumeric rune with a space. Used both for token extraction
// and for exact-text duplicate matching.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "'s ", " ")
	s = strings.ReplaceAll(s, "’s ", " ")
	if strings.HasSuffix(s, "'s") || strings.HasSuffix(s, "’s") {
		s = s[:len(s)-2]
	}

	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// TokenSet extracts the normalized, stemmed token set of s.
// Tokens shorter than three runes are dropped.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(NormalizeText(s)) {
		w = stem(w)
		if len(w) < 3 {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// stem applies a minimal suffix reduction so trivially inflected forms of
// the same word compare equal ("likes"/"like", "named"/"name"). This is not
// a linguistic stemmer; it only needs to map both sides of a comparison to
// the same key.
func stem(w string) string {
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "ing") && len(w) > 5:
		return w[:len(w)-3]
	case strings.HasSuffix(w, "ed") && len(w) > 4:
		// Dropping only the trailing "d" keeps e-final stems intact
		// ("named" -> "name"); both sides pass through the same rule.
		return w[:len(w)-1]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && len(w) > 3:
		return w[:len(w)-1]
	}
	return w
}
