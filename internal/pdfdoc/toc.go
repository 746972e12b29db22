package pdfdoc

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/22adi66/pdf-consolidation-system/internal/document"
)

// Printed table of contents entries: numeric, roman, alphabetic and
// "Appendix X" numbering, each followed by a title and a page number.
var (
	tocNumRe      = regexp.MustCompile(`^\s*(\d+(?:\.\d+)*)\s+(.+?)\s+(\d+)\s*$`)
	tocRomanRe    = regexp.MustCompile(`^\s*([IVXLCDM]+)(?:\.([0-9]+))?\s+(.+?)\s+(\d+)\s*$`)
	tocAlphaRe    = regexp.MustCompile(`^\s*([A-Z](?:\.[0-9]+)*)\s+(.+?)\s+(\d+)\s*$`)
	tocAppendixRe = regexp.MustCompile(`^\s*(?:Appendix|APPENDIX)\s+([A-Z](?:\.[0-9]+)*)\s+(.+?)\s+(\d+)\s*$`)
	tocHeaderRe   = regexp.MustCompile(`(?im)\btable of contents\b|^\s*contents\s*$`)
	dotLeaderRe   = regexp.MustCompile(`(?:\s*\.){3,}\s*`)
)

type tocEntry struct {
	Number string
	Title  string
	Page   int
	Depth  int
}

func (e tocEntry) heading() document.Heading {
	title := e.Title
	if e.Number != "" {
		title = e.Number + " " + e.Title
	}
	return document.Heading{Title: title, Page: e.Page, Depth: e.Depth}
}

// cleanLeaders turns dot leaders and bullet fillers into single spaces.
func cleanLeaders(s string) string {
	s = strings.NewReplacer("•", " ", "·", " ", "…", " ... ").Replace(s)
	s = dotLeaderRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func parseEntry(line string) (tocEntry, bool) {
	line = cleanLeaders(line)
	if m := tocAppendixRe.FindStringSubmatch(line); m != nil {
		return entry(m[1], m[2], m[3]), true
	}
	if m := tocNumRe.FindStringSubmatch(line); m != nil {
		return entry(m[1], m[2], m[3]), true
	}
	if m := tocAlphaRe.FindStringSubmatch(line); m != nil {
		return entry(m[1], m[2], m[3]), true
	}
	if m := tocRomanRe.FindStringSubmatch(line); m != nil {
		num := m[1]
		if m[2] != "" {
			num += "." + m[2]
		}
		return entry(num, m[3], m[4]), true
	}
	return tocEntry{}, false
}

func entry(num, title, page string) tocEntry {
	p, _ := strconv.Atoi(page)
	return tocEntry{Number: num, Title: strings.TrimSpace(title), Page: p, Depth: strings.Count(num, ".") + 1}
}

func isEntry(line string) bool {
	_, ok := parseEntry(line)
	return ok
}

// entryLines returns the trimmed lines of text that parse as entries.
func entryLines(text string) []string {
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" && isEntry(ln) {
			out = append(out, ln)
		}
	}
	return out
}

// findToC collects entry lines from the first scan pages. A page with a
// "Contents" header starts the block, which continues over following pages
// until one contributes nothing. Without a header every entry-looking line in
// the scanned pages counts.
func findToC(pages []string, scan int) []string {
	if scan <= 0 {
		scan = 8
	}
	limit := min(scan, len(pages))
	for i := 0; i < limit; i++ {
		if !tocHeaderRe.MatchString(pages[i]) {
			continue
		}
		lines := entryLines(pages[i])
		for j := i + 1; j < len(pages) && j < limit; j++ {
			more := entryLines(pages[j])
			if len(more) == 0 {
				break
			}
			lines = append(lines, more...)
		}
		if len(lines) > 0 {
			return lines
		}
	}
	var lines []string
	for i := 0; i < limit; i++ {
		lines = append(lines, entryLines(pages[i])...)
	}
	return lines
}

// parseToC parses entry lines, dropping entries deeper than maxDepth (0 keeps
// all) and entries pointing outside the document, ordered by page.
func parseToC(lines []string, pageCount, maxDepth int) []document.Heading {
	var entries []tocEntry
	for _, ln := range lines {
		e, ok := parseEntry(ln)
		if !ok || e.Page < 1 || e.Page > pageCount {
			continue
		}
		if maxDepth > 0 && e.Depth > maxDepth {
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Page < entries[j].Page })
	out := make([]document.Heading, len(entries))
	for i, e := range entries {
		out[i] = e.heading()
	}
	return out
}
