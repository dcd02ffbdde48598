package trends

// GroupArticles partitions articles into clusters in a single greedy pass.
// Each article joins the first cluster, in creation order, whose
// representative title is similar to its own; otherwise it starts a new
// cluster. Input order therefore affects the result.
func GroupArticles(articles []Article, stop StopWords) []TrendCluster {
	var clusters []TrendCluster
	var repTokens [][]string

	for _, a := range articles {
		tokens := Tokenize(a.Title, stop)

		matched := false
		for i := range clusters {
			if tokensSimilar(tokens, repTokens[i]) {
				clusters[i].Members = append(clusters[i].Members, a)
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		clusters = append(clusters, TrendCluster{
			RepresentativeTitle: a.Title,
			Members:             []Article{a},
		})
		repTokens = append(repTokens, tokens)
	}

	return clusters
}

// ChunkClusters splits clusters into consecutive chunks of at most size
// clusters. Each chunk is a copy so enrichers cannot mutate grouping state.
func ChunkClusters(clusters []TrendCluster, size int) [][]TrendCluster {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var chunks [][]TrendCluster
	for start := 0; start < len(clusters); start += size {
		end := min(start+size, len(clusters))
		chunk := make([]TrendCluster, 0, end-start)
		for _, c := range clusters[start:end] {
			chunk = append(chunk, TrendCluster{
				RepresentativeTitle: c.RepresentativeTitle,
				Members:             append([]Article(nil), c.Members...),
			})
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
