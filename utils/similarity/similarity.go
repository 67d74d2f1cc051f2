package similarity

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"github.com/mozillazg/go-unidecode"
)

// Similarity returns how alike two titles are, from 0.0 (unrelated) to 1.0 (identical),
// based on Levenshtein distance over transliterated, lower-cased text.
//
// A title that is a word-boundary suffix of the other and covers most of it
// ("Claymation Christmas" in "Will Vinton's Claymation Christmas") scores high.
func Similarity(s1, s2 string) float64 {
	s1 = Normalize(s1)
	s2 = Normalize(s2)

	if s1 == s2 {
		return 1.0
	}
	if s1 == "" || s2 == "" {
		return 0.0
	}

	if score := suffixContainmentScore(s1, s2); score > 0 {
		return score
	}

	score, err := edlib.StringsSimilarity(s1, s2, edlib.Levenshtein)
	if err != nil {
		return 0.0
	}
	return float64(score)
}

// suffixContainmentScore returns 0 unless the shorter string is a suffix of the
// longer one starting at a word boundary and covering at least 60% of it.
func suffixContainmentScore(s1, s2 string) float64 {
	longer, shorter := s1, s2
	if len(s1) < len(s2) {
		longer, shorter = s2, s1
	}

	if !strings.HasSuffix(longer, shorter) {
		return 0
	}
	prefixLen := len(longer) - len(shorter)
	if prefixLen != 0 && longer[prefixLen-1] != ' ' {
		return 0
	}
	ratio := float64(len(shorter)) / float64(len(longer))
	if ratio < 0.6 {
		return 0
	}
	// 60% containment -> 0.96, 100% -> 1.0
	return 0.90 + ratio*0.10
}

// Normalize transliterates to ASCII, lower-cases, maps "&" to "and" and collapses
// punctuation into single spaces.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "&", " and ")
	s = unidecode.Unidecode(s)

	var result strings.Builder
	result.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			result.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-' || r == '_' || r == ':':
			result.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(result.String()), " ")
}
