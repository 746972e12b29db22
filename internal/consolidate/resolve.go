package consolidate

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/22adi66/pdf-consolidation-system/internal/similarity"
)

// ResolutionKind tags the outcome of resolving a section to a tracker.
type ResolutionKind int

const (
	ExistingTracker ResolutionKind = iota + 1
	NewTracker
)

func (k ResolutionKind) String() string {
	switch k {
	case ExistingTracker:
		return "existing"
	case NewTracker:
		return "new"
	}
	return "unknown"
}

// Resolution is the tracker a section resolved to. Key is empty for
// NewTracker.
type Resolution struct {
	Kind       ResolutionKind
	Key        string
	Score      float64
	ByPosition bool
}

// candidate is a tracker that a section may resolve to.
type candidate struct {
	key   string
	names []string
	// holds is set when the tracker already has the section's content.
	holds bool
}

// resolveSection picks the tracker for a section titled title. positionKey
// is the tracker found at the section's page position in the previous
// revision, if any, and wins unconditionally. Otherwise the candidate whose
// current or former name is most similar to title wins when the score
// reaches threshold. On equal scores a candidate that already holds the
// content beats one that does not, then earlier candidates win. Candidates
// listed in claimed are never chosen.
func resolveSection(title, positionKey string, candidates []candidate, claimed map[string]bool, threshold float64) Resolution {
	if positionKey != "" && !claimed[positionKey] {
		return Resolution{Kind: ExistingTracker, Key: positionKey, Score: 1, ByPosition: true}
	}

	query := normalizeTitle(title)
	best, bestScore, bestHolds := "", 0.0, false
	for _, c := range candidates {
		if claimed[c.key] {
			continue
		}
		score := 0.0
		for _, name := range c.names {
			score = max(score, similarity.RatioStrings(query, normalizeTitle(name)))
		}
		if score > bestScore || (score > 0 && score == bestScore && c.holds && !bestHolds) {
			best, bestScore, bestHolds = c.key, score, c.holds
		}
	}
	if best != "" && bestScore >= threshold {
		return Resolution{Kind: ExistingTracker, Key: best, Score: bestScore}
	}
	return Resolution{Kind: NewTracker, Score: bestScore}
}

// normalizeTitle folds a section title for comparison: NFKC, lower case,
// letters digits and spaces only, single spaces.
func normalizeTitle(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
