package output

import (
	"regexp"
	"strings"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9\-]+`)

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "/", "-", ".", "-").Replace(s)
	s = nonSlug.ReplaceAllString(s, "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

var twoPlusSpaces = regexp.MustCompile(`\s{2,}`)

func splitBy2Spaces(s string) []string {
	return twoPlusSpaces.Split(strings.TrimSpace(s), -1)
}

// maxTableRows bounds a single detected table.
const maxTableRows = 50

// transformTables turns runs of two or more lines that split into the same
// number (at least two) of columns on wide gaps into Markdown tables.
func transformTables(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for i := 0; i < len(lines); {
		var block [][]string
		cols := 0
		j := i
		for ; j < len(lines) && len(block) < maxTableRows; j++ {
			ln := strings.TrimRight(lines[j], " ")
			if ln == "" {
				break
			}
			parts := splitBy2Spaces(ln)
			if len(parts) < 2 || (cols != 0 && len(parts) != cols) {
				break
			}
			cols = len(parts)
			block = append(block, parts)
		}
		if len(block) < 2 {
			out = append(out, lines[i])
			i++
			continue
		}
		out = append(out, tableRow(block[0]), tableRow(make([]string, cols)))
		for _, row := range block[1:] {
			out = append(out, tableRow(row))
		}
		i = j
	}
	return strings.Join(out, "\n")
}

func tableRow(cells []string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		if c = strings.TrimSpace(c); c == "" {
			c = "---"
		}
		parts[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return "| " + strings.Join(parts, " | ") + " |"
}

func escapeQuotes(s string) string { return strings.ReplaceAll(s, `"`, `\"`) }
