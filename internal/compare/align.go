package compare

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/22adi66/pdf-consolidation-system/internal/similarity"
)

const tieTolerance = 1e-9

// similarityMatrix scores every (a, b) pair. Rows are filled concurrently by
// at most workers goroutines.
func similarityMatrix(scorer *similarity.Scorer, a, b []string, workers int) [][]float64 {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	sim := make([][]float64, len(a))
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range a {
		sim[i] = make([]float64, len(b))
		g.Go(func() error {
			for j := range b {
				sim[i][j] = scorer.Score(a[i], b[j])
			}
			return nil
		})
	}
	_ = g.Wait()
	return sim
}

// align solves the global alignment of rows against columns that maximises
// the summed similarity without crossings, and returns the diagonal steps of
// the backtrack in increasing order. During backtrack a diagonal move wins any
// tie, then up, then left.
func align(sim [][]float64) []pair {
	n := len(sim)
	if n == 0 || len(sim[0]) == 0 {
		return nil
	}
	m := len(sim[0])

	dp := make([][]float64, n+1)
	for i := range dp {
		dp[i] = make([]float64, m+1)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			dp[i][j] = max(dp[i-1][j-1]+sim[i-1][j-1], dp[i-1][j], dp[i][j-1])
		}
	}

	var steps []pair
	i, j := n, m
	for i > 0 && j > 0 {
		cur := dp[i][j]
		switch {
		case math.Abs(cur-(dp[i-1][j-1]+sim[i-1][j-1])) < tieTolerance:
			steps = append(steps, pair{i - 1, j - 1})
			i, j = i-1, j-1
		case math.Abs(cur-dp[i-1][j]) < tieTolerance:
			i--
		default:
			j--
		}
	}
	for l, r := 0, len(steps)-1; l < r; l, r = l+1, r-1 {
		steps[l], steps[r] = steps[r], steps[l]
	}
	return steps
}
