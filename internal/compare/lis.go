package compare

import "sort"

type pair struct{ left, right int }

// longestNonCrossing returns the longest subsequence of pairs that is
// strictly increasing in both indices. Pairs must be sorted by left index.
// Patience sorting, O(k log k).
func longestNonCrossing(pairs []pair) []pair {
	if len(pairs) == 0 {
		return nil
	}
	var tails, tailIdx []int
	prev := make([]int, len(pairs))
	for i, p := range pairs {
		pos := sort.SearchInts(tails, p.right)
		if pos == len(tails) {
			tails = append(tails, p.right)
			tailIdx = append(tailIdx, i)
		} else {
			tails[pos] = p.right
			tailIdx[pos] = i
		}
		prev[i] = -1
		if pos > 0 {
			prev[i] = tailIdx[pos-1]
		}
	}

	out := make([]pair, len(tails))
	k := tailIdx[len(tailIdx)-1]
	for n := len(out) - 1; n >= 0; n-- {
		out[n] = pairs[k]
		k = prev[k]
	}
	return out
}
