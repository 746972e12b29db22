// Package textnorm strips volatile boilerplate from extracted page text so
// that pages from different revisions can be compared on content alone.
package textnorm

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultVolatilePatterns are removed, in order, from every page before
// comparison. Each pattern only ever matches within a single line.
var DefaultVolatilePatterns = []string{
	`(?i)Form Version:.*`,
	`(?i)Generated Time \(GMT\):.*`,
	`(?i)\\Confidential\\`,
	`(?i)Page \d+ of \d+`,
}

// DefaultLabelPattern captures the form/template name printed on a page.
const DefaultLabelPattern = `(?m)Form:\s*(.*?)\s*$`

var blankRuns = regexp.MustCompile(`\n\s*\n+`)

// Normalizer removes volatile substrings and extracts page labels.
type Normalizer struct {
	volatile []*regexp.Regexp
	label    *regexp.Regexp
}

// New compiles a Normalizer. Empty arguments fall back to the defaults.
func New(patterns []string, labelPattern string) (*Normalizer, error) {
	if len(patterns) == 0 {
		patterns = DefaultVolatilePatterns
	}
	if labelPattern == "" {
		labelPattern = DefaultLabelPattern
	}
	n := &Normalizer{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("textnorm: compile volatile pattern %q: %w", p, err)
		}
		n.volatile = append(n.volatile, re)
	}
	re, err := regexp.Compile(labelPattern)
	if err != nil {
		return nil, fmt.Errorf("textnorm: compile label pattern %q: %w", labelPattern, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("textnorm: label pattern %q has no capture group", labelPattern)
	}
	n.label = re
	return n, nil
}

// Default returns a Normalizer built from the default patterns.
func Default() *Normalizer {
	n, err := New(nil, "")
	if err != nil {
		panic(err)
	}
	return n
}

// Normalize removes volatile boilerplate, collapses runs of blank lines to a
// single blank line and trims surrounding whitespace.
func (n *Normalizer) Normalize(text string) string {
	for _, re := range n.volatile {
		text = re.ReplaceAllString(text, "")
	}
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Label returns the first label found in text, or "".
func (n *Normalizer) Label(text string) string {
	if text == "" {
		return ""
	}
	m := n.label.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
