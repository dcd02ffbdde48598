package trends

import (
	"math"
	"strings"
	"unicode"
)

// SimilarityThreshold is the fraction of the shorter token set that must be
// shared for two titles to count as the same trend.
const SimilarityThreshold = 0.5

// StopWords is a set of lowercase tokens ignored when comparing titles.
type StopWords map[string]struct{}

// NewStopWords builds a set from the given words, lowercased.
func NewStopWords(words ...string) StopWords {
	s := make(StopWords, len(words))
	for _, w := range words {
		s[strings.ToLower(w)] = struct{}{}
	}
	return s
}

// Contains reports whether w is a stop word.
func (s StopWords) Contains(w string) bool {
	_, ok := s[w]
	return ok
}

// DefaultStopWords holds English articles, common prepositions and
// conjunctions. The list is fixed so grouping results are reproducible.
var DefaultStopWords = NewStopWords(
	// articles
	"a", "an", "the",
	// prepositions
	"about", "above", "across", "after", "against", "along", "amid", "among",
	"around", "as", "at", "before", "behind", "below", "beneath", "beside",
	"between", "beyond", "by", "despite", "down", "during", "except", "for",
	"from", "in", "inside", "into", "near", "of", "off", "on", "onto", "out",
	"outside", "over", "past", "per", "since", "than", "through", "throughout",
	"to", "toward", "towards", "under", "until", "up", "upon", "via", "with",
	"within", "without",
	// conjunctions
	"and", "but", "or", "nor", "so", "yet", "if", "because", "although",
	"though", "while", "whereas", "unless", "whether", "either", "neither",
	"both", "once", "when", "where",
)

// Tokenize lowercases title, splits it on runs of non-word characters and
// returns the distinct tokens that are not stop words, in first-seen order.
// Word characters are Unicode letters, digits and underscore.
func Tokenize(title string, stop StopWords) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" || stop.Contains(f) {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// AreTitlesSimilar reports whether a and b share at least half of the tokens
// of the shorter title. Titles with no tokens are never similar to anything.
func AreTitlesSimilar(a, b string, stop StopWords) bool {
	return tokensSimilar(Tokenize(a, stop), Tokenize(b, stop))
}

func tokensSimilar(a, b []string) bool {
	minLen := min(len(a), len(b))
	if minLen == 0 {
		return false
	}

	set := make(map[string]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	common := 0
	for _, t := range a {
		if _, ok := set[t]; ok {
			common++
		}
	}
	return common >= int(math.Ceil(float64(minLen)*SimilarityThreshold))
}
