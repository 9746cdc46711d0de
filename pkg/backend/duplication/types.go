package duplication

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Pair is one detected duplicate file pair. FileA sorts before FileB so a
// pair has exactly one representation regardless of comparison order.
type Pair struct {
	FileA string `json:"file_a"`
	FileB string `json:"file_b"`

	// Similarity is shared/total in [0,1].
	Similarity float64 `json:"similarity"`

	// SharedLines is the number of distinct lines both files contain.
	SharedLines int `json:"shared_lines"`

	// TotalLines is the larger distinct-line count of the two files.
	TotalLines int `json:"total_lines"`
}

// Stats summarizes the similarity distribution over detected pairs.
type Stats struct {
	Pairs          int     `json:"pairs"`
	MeanSimilarity float64 `json:"mean_similarity"`
	P95Similarity  float64 `json:"p95_similarity"`
}

// computeStats derives distribution stats from the detected pairs.
func computeStats(pairs []Pair) Stats {
	if len(pairs) == 0 {
		return Stats{}
	}
	sims := make([]float64, len(pairs))
	for i, p := range pairs {
		sims[i] = p.Similarity
	}
	sort.Float64s(sims)
	return Stats{
		Pairs:          len(pairs),
		MeanSimilarity: stat.Mean(sims, nil),
		P95Similarity:  stat.Quantile(0.95, stat.Empirical, sims, nil),
	}
}

// sortPairs orders pairs by descending similarity, then by file names, for
// deterministic output.
func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].Similarity != pairs[b].Similarity {
			return pairs[a].Similarity > pairs[b].Similarity
		}
		if pairs[a].FileA != pairs[b].FileA {
			return pairs[a].FileA < pairs[b].FileA
		}
		return pairs[a].FileB < pairs[b].FileB
	})
}
