package topsis

import "sort"

// CompetitionRank assigns standard competition ranks ("1224") to scores in
// descending order. Equal scores share the lowest rank of their group and the
// next distinct score skips by the size of the group. Ties use exact float
// equality.
func CompetitionRank(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	ranks := make([]int, len(scores))
	for pos, i := range idx {
		if pos > 0 && scores[i] == scores[idx[pos-1]] {
			ranks[i] = ranks[idx[pos-1]]
			continue
		}
		ranks[i] = pos + 1
	}
	return ranks
}
