package trends

import "sort"

// DefaultMaxResults is the default cap on a ranked list.
const DefaultMaxResults = 25

// Deduplicate merges trends whose names are similar. Trends are processed in
// order; a later trend replaces an earlier similar one in place only when its
// relevance is strictly higher, otherwise it is dropped.
func Deduplicate(trends []EnrichedTrend, stop StopWords) []EnrichedTrend {
	var unique []EnrichedTrend
	var nameTokens [][]string

	for _, t := range trends {
		tokens := Tokenize(t.Name, stop)

		found := -1
		for i := range unique {
			if tokensSimilar(nameTokens[i], tokens) {
				found = i
				break
			}
		}

		switch {
		case found < 0:
			unique = append(unique, t)
			nameTokens = append(nameTokens, tokens)
		case t.Relevance > unique[found].Relevance:
			unique[found] = t
			nameTokens[found] = tokens
		}
	}
	return unique
}

// Rank deduplicates trends, sorts them by descending relevance keeping arrival
// order among ties, and truncates to maxResults.
func Rank(trends []EnrichedTrend, stop StopWords, maxResults int) RankedTrendList {
	unique := Deduplicate(trends, stop)
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Relevance > unique[j].Relevance
	})
	if maxResults > 0 && len(unique) > maxResults {
		unique = unique[:maxResults]
	}
	return RankedTrendList(unique)
}
