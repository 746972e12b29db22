// Package compare maps the pages of one revision onto the pages of the next.
//
// Matching runs three passes in order, each only seeing what the previous
// ones left unmatched:
//
//  1. identical normalized text, reduced to the longest non-crossing subset;
//  2. section and label agreement within a small window around the page;
//  3. a global alignment over everything that remains.
//
// Pages of the left revision that end up unmatched are deleted, unmatched
// pages of the right revision are added.
package compare

import (
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/22adi66/pdf-consolidation-system/internal/document"
	"github.com/22adi66/pdf-consolidation-system/internal/similarity"
)

// Pass names the matching pass that committed a match.
type Pass string

const (
	PassIdentical Pass = "identical"
	PassHeuristic Pass = "heuristic"
	PassGlobal    Pass = "global"
)

// Options tune the matching passes.
type Options struct {
	// HeuristicThreshold is the minimum similarity for a pass 2 match.
	HeuristicThreshold float64
	// GlobalThreshold is the minimum similarity for a pass 3 match.
	GlobalThreshold float64
	// Window is how far, in pages, pass 2 looks around a left page.
	Window int
	// Workers bounds the goroutines filling the pass 3 matrix; 0 means
	// GOMAXPROCS.
	Workers int
	// Scorer is shared by all passes. A fresh one is used when nil.
	Scorer *similarity.Scorer
	Logger *slog.Logger
}

// DefaultOptions returns the standard thresholds and window.
func DefaultOptions() Options {
	return Options{
		HeuristicThreshold: 0.5,
		GlobalThreshold:    0.6,
		Window:             2,
	}
}

// Match is a committed page correspondence. Left and Right are 0-based page
// indices.
type Match struct {
	Left  int     `json:"left"`
	Right int     `json:"right"`
	Score float64 `json:"score"`
	Pass  Pass    `json:"pass"`
}

// Identical reports whether the pages carry the same normalized content.
func (m Match) Identical() bool { return m.Score >= 1.0 }

// Report is the outcome of comparing two revisions.
type Report struct {
	LeftID     string  `json:"left"`
	RightID    string  `json:"right"`
	LeftPages  int     `json:"left_pages"`
	RightPages int     `json:"right_pages"`
	Matches    []Match `json:"matches"`
	// Deleted holds left indices without a match, ascending.
	Deleted []int `json:"deleted"`
	// Added holds right indices without a match, ascending.
	Added []int `json:"added"`
}

type state struct {
	left, right *document.Revision
	opts        Options
	leftDone    []bool
	rightDone   []bool
	matches     []Match
}

func (s *state) commit(i, j int, score float64, pass Pass) {
	s.leftDone[i] = true
	s.rightDone[j] = true
	s.matches = append(s.matches, Match{Left: i, Right: j, Score: score, Pass: pass})
}

// Compare runs the three matching passes over left and right.
func Compare(left, right *document.Revision, opts Options) *Report {
	if opts.Scorer == nil {
		opts.Scorer = similarity.NewScorer()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Window < 0 {
		opts.Window = 0
	}

	st := &state{
		left:      left,
		right:     right,
		opts:      opts,
		leftDone:  make([]bool, left.PageCount()),
		rightDone: make([]bool, right.PageCount()),
	}
	log := opts.Logger.With("left", left.ID, "right", right.ID)

	n1 := st.identicalPass()
	log.Debug("pass complete", "pass", PassIdentical, "matches", n1)
	n2 := st.heuristicPass()
	log.Debug("pass complete", "pass", PassHeuristic, "matches", n2)
	n3 := st.globalPass()
	log.Debug("pass complete", "pass", PassGlobal, "matches", n3)

	rep := &Report{
		LeftID:     left.ID,
		RightID:    right.ID,
		LeftPages:  left.PageCount(),
		RightPages: right.PageCount(),
		Matches:    st.matches,
		Deleted:    unmatched(st.leftDone),
		Added:      unmatched(st.rightDone),
	}
	sort.Slice(rep.Matches, func(a, b int) bool { return rep.Matches[a].Left < rep.Matches[b].Left })
	return rep
}

func unmatched(done []bool) []int {
	out := []int{}
	for i, d := range done {
		if !d {
			out = append(out, i)
		}
	}
	return out
}

// identicalPass pairs every left page with the first still-free right page
// holding the same normalized text, then keeps the longest non-crossing
// subset of those pairs.
func (s *state) identicalPass() int {
	byText := make(map[string][]int)
	for j, p := range s.right.Pages {
		if !s.rightDone[j] {
			byText[p.NormalizedText] = append(byText[p.NormalizedText], j)
		}
	}
	var candidates []pair
	for i, p := range s.left.Pages {
		if s.leftDone[i] {
			continue
		}
		if js := byText[p.NormalizedText]; len(js) > 0 {
			candidates = append(candidates, pair{i, js[0]})
			byText[p.NormalizedText] = js[1:]
		}
	}
	kept := longestNonCrossing(candidates)
	for _, p := range kept {
		s.commit(p.left, p.right, 1.0, PassIdentical)
	}
	return len(kept)
}

func compatible(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// heuristicPass matches left pages to nearby right pages that agree on
// section title and label. No ordering constraint is applied against the
// other passes.
func (s *state) heuristicPass() int {
	count := 0
	w := s.opts.Window
	for i, lp := range s.left.Pages {
		if s.leftDone[i] || lp.SectionTitle == document.NoSection || lp.Label == "" {
			continue
		}
		bestJ, bestScore := -1, 0.0
		lo, hi := max(0, i-w), min(len(s.right.Pages), i+w+1)
		for j := lo; j < hi; j++ {
			rp := s.right.Pages[j]
			if s.rightDone[j] || rp.SectionTitle == document.NoSection || rp.Label == "" {
				continue
			}
			if !compatible(lp.SectionTitle, rp.SectionTitle) || !compatible(lp.Label, rp.Label) {
				continue
			}
			score := s.opts.Scorer.Score(lp.NormalizedText, rp.NormalizedText)
			if score < s.opts.HeuristicThreshold {
				continue
			}
			// j ascends, so >= hands ties to the later page.
			if bestJ < 0 || score >= bestScore {
				bestJ, bestScore = j, score
			}
		}
		if bestJ >= 0 {
			s.commit(i, bestJ, bestScore, PassHeuristic)
			count++
		}
	}
	return count
}

// globalPass aligns all remaining pages and commits aligned pairs whose
// similarity reaches the global threshold.
func (s *state) globalPass() int {
	var rows, cols []int
	for i, d := range s.leftDone {
		if !d {
			rows = append(rows, i)
		}
	}
	for j, d := range s.rightDone {
		if !d {
			cols = append(cols, j)
		}
	}
	if len(rows) == 0 || len(cols) == 0 {
		return 0
	}
	a := make([]string, len(rows))
	for k, i := range rows {
		a[k] = s.left.Pages[i].NormalizedText
	}
	b := make([]string, len(cols))
	for k, j := range cols {
		b[k] = s.right.Pages[j].NormalizedText
	}

	sim := similarityMatrix(s.opts.Scorer, a, b, s.opts.Workers)
	count := 0
	for _, p := range align(sim) {
		score := sim[p.left][p.right]
		if score >= s.opts.GlobalThreshold {
			s.commit(rows[p.left], cols[p.right], score, PassGlobal)
			count++
		}
	}
	return count
}
