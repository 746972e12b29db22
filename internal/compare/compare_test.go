package compare

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/22adi66/pdf-consolidation-system/internal/document"
)

func revision(t *testing.T, id string, texts []string, section string) *document.Revision {
	t.Helper()
	m := make([]string, len(texts)+1)
	for i := 1; i <= len(texts); i++ {
		m[i] = section
	}
	r, err := document.NewRevision(id, "", "", texts, m, nil)
	require.NoError(t, err)
	return r
}

func page(lines ...string) string { return strings.Join(lines, "\n") }

func TestCompareIdenticalRevisions(t *testing.T) {
	texts := []string{
		page("Form: Cover", "Study XY-1"),
		page("Form: Demographics", "Age", "Sex"),
		page("Form: Demographics", "Age", "Sex"),
		page("Form: Vitals", "Pulse"),
	}
	a := revision(t, "a", texts, "Forms")
	b := revision(t, "b", texts, "Forms")

	rep := Compare(a, b, DefaultOptions())
	require.Len(t, rep.Matches, len(texts))
	for i, m := range rep.Matches {
		assert.Equal(t, i, m.Left)
		assert.Equal(t, i, m.Right)
		assert.Equal(t, 1.0, m.Score)
		assert.Equal(t, PassIdentical, m.Pass)
	}
	assert.Empty(t, rep.Added)
	assert.Empty(t, rep.Deleted)
}

func TestCompareIgnoresVolatileStamps(t *testing.T) {
	a := revision(t, "a", []string{page("Form: A", "body", "Page 1 of 3")}, "S")
	b := revision(t, "b", []string{page("Form: A", "body", "Page 1 of 9", "Generated Time (GMT): today")}, "S")
	rep := Compare(a, b, DefaultOptions())
	require.Len(t, rep.Matches, 1)
	assert.True(t, rep.Matches[0].Identical())
}

func TestIdenticalPassIsNonCrossing(t *testing.T) {
	x := page("Form: Boilerplate", "repeated")
	y := page("Form: Unique", "only once")
	a := revision(t, "a", []string{x, y, x}, "")
	b := revision(t, "b", []string{y, x, x}, "")

	rep := Compare(a, b, DefaultOptions())
	var firstPass []Match
	for _, m := range rep.Matches {
		if m.Pass == PassIdentical {
			firstPass = append(firstPass, m)
		}
	}
	require.Len(t, firstPass, 2)
	assert.Equal(t, Match{Left: 1, Right: 0, Score: 1, Pass: PassIdentical}, firstPass[0])
	assert.Equal(t, Match{Left: 2, Right: 2, Score: 1, Pass: PassIdentical}, firstPass[1])

	// The leftover boilerplate copy is still picked up by the global pass.
	require.Len(t, rep.Matches, 3)
	assert.Equal(t, Match{Left: 0, Right: 1, Score: 1, Pass: PassGlobal}, rep.Matches[0])
}

func TestHeuristicPassMatchesWithinWindow(t *testing.T) {
	a := revision(t, "a", []string{page("Form: Vitals", "Pulse", "BP", "Temp", "Weight")}, "Vitals")
	b := revision(t, "b", []string{page("Form: Vitals", "Pulse", "BP", "Temp", "Height")}, "Vitals")

	rep := Compare(a, b, DefaultOptions())
	require.Len(t, rep.Matches, 1)
	m := rep.Matches[0]
	assert.Equal(t, PassHeuristic, m.Pass)
	assert.InDelta(t, 0.8, m.Score, 1e-12)
	assert.False(t, m.Identical())
}

func TestHeuristicPassPrefersLaterPageOnTie(t *testing.T) {
	left := []string{"alpha", "beta", page("Form: A", "x", "y", "z"), "gamma"}
	right := []string{"delta", page("Form: A", "x", "y", "q"), "epsilon", page("Form: A", "x", "y", "r")}
	a := revision(t, "a", left, "S")
	b := revision(t, "b", right, "S")

	rep := Compare(a, b, DefaultOptions())
	require.Len(t, rep.Matches, 1)
	assert.Equal(t, Match{Left: 2, Right: 3, Score: 0.75, Pass: PassHeuristic}, rep.Matches[0])
	assert.Equal(t, []int{0, 1, 3}, rep.Deleted)
	assert.Equal(t, []int{0, 1, 2}, rep.Added)
}

func TestHeuristicPassRequiresSectionAndLabel(t *testing.T) {
	l := page("Form: Vitals", "Pulse", "BP", "Temp", "Weight")
	r := page("Form: Vitals", "Pulse", "BP", "Temp", "Height")

	noSection := Compare(revision(t, "a", []string{l}, ""), revision(t, "b", []string{r}, ""), DefaultOptions())
	require.Len(t, noSection.Matches, 1)
	assert.Equal(t, PassGlobal, noSection.Matches[0].Pass)

	otherSection := Compare(revision(t, "a", []string{l}, "Vitals"), revision(t, "b", []string{r}, "Labs"), DefaultOptions())
	require.Len(t, otherSection.Matches, 1)
	assert.Equal(t, PassGlobal, otherSection.Matches[0].Pass)

	// Substring-compatible titles are accepted.
	nested := Compare(revision(t, "a", []string{l}, "Vitals"), revision(t, "b", []string{r}, "Vitals (adult)"), DefaultOptions())
	require.Len(t, nested.Matches, 1)
	assert.Equal(t, PassHeuristic, nested.Matches[0].Pass)
}

func TestGlobalPassFindsFarPages(t *testing.T) {
	a := revision(t, "a", []string{page("Form: P", "one", "two", "three", "four")}, "S")
	b := revision(t, "b", []string{
		page("Form: U1", "u1"),
		page("Form: U2", "u2"),
		page("Form: U3", "u3"),
		page("Form: U4", "u4"),
		page("Form: P", "one", "two", "three", "five"),
	}, "S")

	rep := Compare(a, b, DefaultOptions())
	require.Len(t, rep.Matches, 1)
	assert.Equal(t, 0, rep.Matches[0].Left)
	assert.Equal(t, 4, rep.Matches[0].Right)
	assert.Equal(t, PassGlobal, rep.Matches[0].Pass)
	assert.Equal(t, []int{0, 1, 2, 3}, rep.Added)
}

func TestGlobalThresholdRejectsUnrelatedPages(t *testing.T) {
	a := revision(t, "a", []string{page("apples", "pears"), page("one", "two")}, "")
	b := revision(t, "b", []string{page("apples", "plums", "figs", "kiwis"), page("three")}, "")

	rep := Compare(a, b, DefaultOptions())
	assert.Empty(t, rep.Matches)
	assert.Equal(t, []int{0, 1}, rep.Deleted)
	assert.Equal(t, []int{0, 1}, rep.Added)
}

func TestCompareEmptyRevisions(t *testing.T) {
	rep := Compare(&document.Revision{ID: "a"}, &document.Revision{ID: "b"}, DefaultOptions())
	assert.Empty(t, rep.Matches)
	assert.Empty(t, rep.Added)
	assert.Empty(t, rep.Deleted)
}

func TestLongestNonCrossing(t *testing.T) {
	got := longestNonCrossing([]pair{{0, 3}, {1, 1}, {2, 2}, {3, 0}, {4, 4}})
	assert.Equal(t, []pair{{1, 1}, {2, 2}, {4, 4}}, got)
	assert.Nil(t, longestNonCrossing(nil))
	assert.Equal(t, []pair{{5, 7}}, longestNonCrossing([]pair{{5, 7}}))
}

func TestAlignPrefersDiagonalOnTies(t *testing.T) {
	assert.Equal(t, []pair{{0, 0}, {1, 1}}, align([][]float64{{1, 1}, {1, 1}}))
	// Both rows could take the single column; the backtrack starts at the
	// bottom and the diagonal wins the tie.
	assert.Equal(t, []pair{{1, 0}}, align([][]float64{{0.5}, {0.5}}))
	assert.Equal(t, []pair{{0, 1}}, align([][]float64{{0.2, 0.9}}))
	assert.Nil(t, align(nil))
}

// mutate derives a plausible next revision from texts: some pages edited,
// some dropped, some inserted and a few swapped.
func mutate(rng *rand.Rand, texts []string) []string {
	var out []string
	for i, p := range texts {
		switch rng.Intn(10) {
		case 0:
			continue
		case 1:
			out = append(out, p+"\nedited line")
		case 2:
			out = append(out, p, fmt.Sprintf("Form: New %d\ninserted", i))
		default:
			out = append(out, p)
		}
	}
	if len(out) > 3 {
		k := rng.Intn(len(out) - 1)
		out[k], out[k+1] = out[k+1], out[k]
	}
	if len(out) == 0 {
		out = append(out, "filler")
	}
	return out
}

func TestMatchingProperties(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			n := 3 + rng.Intn(20)
			texts := make([]string, n)
			for i := range texts {
				// Repeated boilerplate pages make Pass 1 ambiguous.
				if rng.Intn(4) == 0 {
					texts[i] = "Form: Signature\nInvestigator signature"
				} else {
					texts[i] = fmt.Sprintf("Form: F%d\nquestion %d\nanswer %d\nnote", i%5, i, rng.Intn(3))
				}
			}
			sections := []string{"Intro", "Forms", "Appendix"}
			a := revision(t, "a", texts, sections[rng.Intn(3)])
			b := revision(t, "b", mutate(rng, texts), sections[rng.Intn(3)])

			rep := Compare(a, b, Options{HeuristicThreshold: 0.5, GlobalThreshold: 0.6, Window: 2, Workers: 3})

			assert.Equal(t, a.PageCount(), len(rep.Matches)+len(rep.Deleted), "left conservation")
			assert.Equal(t, b.PageCount(), len(rep.Matches)+len(rep.Added), "right conservation")

			seenL, seenR := map[int]bool{}, map[int]bool{}
			for _, m := range rep.Matches {
				assert.False(t, seenL[m.Left])
				assert.False(t, seenR[m.Right])
				seenL[m.Left], seenR[m.Right] = true, true
				assert.GreaterOrEqual(t, m.Score, 0.0)
				assert.LessOrEqual(t, m.Score, 1.0)
			}
			for _, i := range rep.Deleted {
				assert.False(t, seenL[i])
			}
			for _, j := range rep.Added {
				assert.False(t, seenR[j])
			}

			assertMonotonic(t, rep.Matches, PassIdentical)
			assertMonotonic(t, rep.Matches, PassGlobal)
			assert.True(t, sort.SliceIsSorted(rep.Matches, func(x, y int) bool { return rep.Matches[x].Left < rep.Matches[y].Left }))
		})
	}
}

func assertMonotonic(t *testing.T, matches []Match, pass Pass) {
	t.Helper()
	last := -1
	for _, m := range matches {
		if m.Pass != pass {
			continue
		}
		assert.Greater(t, m.Right, last, "%s matches cross at left page %d", pass, m.Left)
		last = m.Right
	}
}

func TestReportChangesAndStats(t *testing.T) {
	left := []string{
		page("Form: Cover", "XY-1"),
		page("Form: Vitals", "Pulse", "BP", "Temp", "Weight"),
		page("Form: Old", "retired form"),
	}
	right := []string{
		page("Form: Cover", "XY-1"),
		page("Form: Vitals", "Pulse", "BP", "Temp", "Height"),
		page("Form: Labs", "Hb"),
	}
	lm := []string{"", "Intro", "Vitals", "Retired"}
	rm := []string{"", "Intro", "Vitals", "Labs"}
	a, err := document.NewRevision("a", "", "", left, lm, nil)
	require.NoError(t, err)
	b, err := document.NewRevision("b", "", "", right, rm, nil)
	require.NoError(t, err)

	rep := Compare(a, b, DefaultOptions())
	assert.Equal(t, Stats{Identical: 1, Modified: 1, Deleted: 1, Added: 1, Heuristic: 1}, rep.Stats())
	require.Len(t, rep.Modified(), 1)

	assert.Equal(t, []SectionChange{
		{Section: "Labs", Added: []int{3}},
		{Section: "Retired", Deleted: []int{3}},
		{Section: "Vitals", Modified: []int{2}},
	}, rep.Changes(a, b))
}
