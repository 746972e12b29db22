// Package report renders a page comparison for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/22adi66/pdf-consolidation-system/internal/compare"
	"github.com/22adi66/pdf-consolidation-system/internal/document"
)

type Options struct {
	// Diff adds a unified diff of every modified page.
	Diff bool
	// Context is the number of unchanged lines around each diff hunk.
	Context int
}

type styles struct {
	title, label, added, deleted, modified, muted lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		label:    r.NewStyle().Bold(true),
		added:    r.NewStyle().Foreground(lipgloss.Color("#16A34A")),
		deleted:  r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		modified: r.NewStyle().Foreground(lipgloss.Color("#E0A526")),
		muted:    r.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}

// Render writes a summary of rep, its per-section changes and, if asked,
// page diffs. Colors are used only when w is a terminal.
func Render(w io.Writer, rep *compare.Report, left, right *document.Revision, opts Options) error {
	st := newStyles(w)
	var b strings.Builder

	s := rep.Stats()
	fmt.Fprintf(&b, "%s\n", st.title.Render(fmt.Sprintf("%s -> %s", name(left), name(right))))
	fmt.Fprintf(&b, "%s %d -> %d\n", st.label.Render("pages"), rep.LeftPages, rep.RightPages)
	fmt.Fprintf(&b, "%s %d  %s  %s  %s\n",
		st.label.Render("identical"), s.Identical,
		st.modified.Render(fmt.Sprintf("modified %d", s.Modified)),
		st.deleted.Render(fmt.Sprintf("deleted %d", s.Deleted)),
		st.added.Render(fmt.Sprintf("added %d", s.Added)))
	fmt.Fprintf(&b, "%s\n", st.muted.Render(fmt.Sprintf("heuristic matches %d, global matches %d", s.Heuristic, s.Global)))

	if changes := rep.Changes(left, right); len(changes) > 0 {
		fmt.Fprintf(&b, "\n%s\n", st.label.Render("Sections"))
		width := 0
		for _, c := range changes {
			width = max(width, len([]rune(sectionName(c.Section))))
		}
		for _, c := range changes {
			fmt.Fprintf(&b, "  %-*s", width, sectionName(c.Section))
			if len(c.Modified) > 0 {
				b.WriteString("  " + st.modified.Render("~"+pages(c.Modified)))
			}
			if len(c.Deleted) > 0 {
				b.WriteString("  " + st.deleted.Render("-"+pages(c.Deleted)))
			}
			if len(c.Added) > 0 {
				b.WriteString("  " + st.added.Render("+"+pages(c.Added)))
			}
			b.WriteString("\n")
		}
	}

	if opts.Diff {
		for _, m := range rep.Modified() {
			fmt.Fprintf(&b, "\n%s\n", st.label.Render(fmt.Sprintf("page %d -> %d (%.2f, %s)", m.Left+1, m.Right+1, m.Score, m.Pass)))
			diff, err := PageDiff(left, right, m, opts.Context)
			if err != nil {
				return err
			}
			for _, ln := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
				switch {
				case strings.HasPrefix(ln, "+++"), strings.HasPrefix(ln, "---"), strings.HasPrefix(ln, "@@"):
					ln = st.muted.Render(ln)
				case strings.HasPrefix(ln, "+"):
					ln = st.added.Render(ln)
				case strings.HasPrefix(ln, "-"):
					ln = st.deleted.Render(ln)
				}
				b.WriteString(ln + "\n")
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// PageDiff is the unified diff between the normalized texts of a matched
// page pair.
func PageDiff(left, right *document.Revision, m compare.Match, context int) (string, error) {
	if context <= 0 {
		context = 2
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(left.Pages[m.Left].NormalizedText + "\n"),
		B:        difflib.SplitLines(right.Pages[m.Right].NormalizedText + "\n"),
		FromFile: fmt.Sprintf("%s p%d", left.ID, m.Left+1),
		ToFile:   fmt.Sprintf("%s p%d", right.ID, m.Right+1),
		Context:  context,
	})
}

func name(r *document.Revision) string {
	if r.Version != "" {
		return fmt.Sprintf("%s (%s)", r.ID, r.Version)
	}
	return r.ID
}

func sectionName(s string) string {
	if s == document.NoSection {
		return "(no section)"
	}
	return s
}

func pages(ps []int) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ",")
}
