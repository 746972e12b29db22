// Package similarity scores how alike two texts are using the
// Ratcliff/Obershelp longest-matching-block recursion over their lines.
package similarity

import (
	"sync"
	"unicode/utf8"
)

// popularMin is the sequence length from which over-represented elements of
// the second sequence are excluded from seeding matches.
const popularMin = 200

// Ratio returns 2*M/T over the line sequences of a and b, where M is the
// number of lines in matching blocks and T the total number of lines.
func Ratio(a, b string) float64 {
	return ratio(SplitLines(a), SplitLines(b))
}

// RatioStrings is Ratio over the runes of a and b instead of their lines.
func RatioStrings(a, b string) float64 {
	return ratio([]rune(a), []rune(b))
}

// RatioLines is Ratio over pre-split line sequences.
func RatioLines(a, b []string) float64 {
	return ratio(a, b)
}

func ratio[T comparable](a, b []T) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchedLength(a, b)) / float64(total)
}

type span struct{ alo, ahi, blo, bhi int }

// matchedLength sums the sizes of the matching blocks of a and b.
func matchedLength[T comparable](a, b []T) int {
	m := newMatcher(a, b)
	queue := []span{{0, len(a), 0, len(b)}}
	sum := 0
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		i, j, k := m.longest(s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		sum += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return sum
}

type matcher[T comparable] struct {
	a, b []T
	b2j  map[T][]int
}

func newMatcher[T comparable](a, b []T) *matcher[T] {
	b2j := make(map[T][]int)
	for j, x := range b {
		b2j[x] = append(b2j[x], j)
	}
	if n := len(b); n >= popularMin {
		limit := n/100 + 1
		for x, idx := range b2j {
			if len(idx) > limit {
				delete(b2j, x)
			}
		}
	}
	return &matcher[T]{a: a, b: b, b2j: b2j}
}

// longest finds the longest block a[i:i+k] == b[j:j+k] inside the given
// bounds. Among equally long blocks the one starting earliest in a, then in
// b, wins. It returns (alo, blo, 0) when nothing matches.
func (m *matcher[T]) longest(alo, ahi, blo, bhi int) (int, int, int) {
	besti, bestj, bestk := alo, blo, 0
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}
	// Popular elements never seed a block but may still extend one.
	for besti > alo && bestj > blo && m.a[besti-1] == m.b[bestj-1] {
		besti, bestj, bestk = besti-1, bestj-1, bestk+1
	}
	for besti+bestk < ahi && bestj+bestk < bhi && m.a[besti+bestk] == m.b[bestj+bestk] {
		bestk++
	}
	return besti, bestj, bestk
}

// SplitLines splits s at line boundaries without keeping the terminators.
// The boundaries are those of Unicode text: \n, \r, \r\n, \v, \f, the
// file, group and record separators, NEL, and the line and paragraph
// separators. A trailing terminator does not produce an empty final line and
// "" has no lines at all.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start, skipLF := 0, false
	for i, r := range s {
		if skipLF {
			skipLF = false
			if r == '\n' {
				start = i + 1
				continue
			}
		}
		switch r {
		case '\n', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
			lines = append(lines, s[start:i])
			start = i + utf8.RuneLen(r)
		case '\r':
			lines = append(lines, s[start:i])
			start = i + 1
			skipLF = true
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

type pairKey struct{ a, b string }

// Scorer memoizes Ratio per ordered text pair. It is safe for concurrent
// use; one Scorer is meant to live for a single matching run.
type Scorer struct {
	mu    sync.Mutex
	memo  map[pairKey]float64
	hits  int
	calls int
}

// NewScorer returns an empty Scorer.
func NewScorer() *Scorer {
	return &Scorer{memo: make(map[pairKey]float64)}
}

// Score returns Ratio(a, b), computing it at most once per pair.
func (s *Scorer) Score(a, b string) float64 {
	k := pairKey{a, b}
	s.mu.Lock()
	s.calls++
	if v, ok := s.memo[k]; ok {
		s.hits++
		s.mu.Unlock()
		return v
	}
	s.mu.Unlock()

	v := Ratio(a, b)

	s.mu.Lock()
	s.memo[k] = v
	s.mu.Unlock()
	return v
}

// Stats reports how many scores were requested and how many were served
// from the memo.
func (s *Scorer) Stats() (calls, hits int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, s.hits
}
