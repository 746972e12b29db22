package compare

import (
	"sort"

	"github.com/22adi66/pdf-consolidation-system/internal/document"
)

// Stats summarises a Report.
type Stats struct {
	Identical int `json:"identical"`
	Modified  int `json:"modified"`
	Deleted   int `json:"deleted"`
	Added     int `json:"added"`
	Heuristic int `json:"heuristic_matches"`
	Global    int `json:"global_matches"`
}

func (r *Report) Stats() Stats {
	st := Stats{Deleted: len(r.Deleted), Added: len(r.Added)}
	for _, m := range r.Matches {
		if m.Identical() {
			st.Identical++
		} else {
			st.Modified++
		}
		switch m.Pass {
		case PassHeuristic:
			st.Heuristic++
		case PassGlobal:
			st.Global++
		}
	}
	return st
}

// Modified returns the non-identical matches in left order.
func (r *Report) Modified() []Match {
	var out []Match
	for _, m := range r.Matches {
		if !m.Identical() {
			out = append(out, m)
		}
	}
	return out
}

// SectionChange lists the changed pages of one section title. Modified and
// Deleted are 1-based left page numbers, Added 1-based right page numbers.
type SectionChange struct {
	Section  string `json:"section"`
	Modified []int  `json:"modified,omitempty"`
	Added    []int  `json:"added,omitempty"`
	Deleted  []int  `json:"deleted,omitempty"`
}

// Changes groups modified, added and deleted pages by section title, sorted
// by title. Pages without a section are grouped under document.NoSection.
func (r *Report) Changes(left, right *document.Revision) []SectionChange {
	byTitle := map[string]*SectionChange{}
	get := func(title string) *SectionChange {
		c, ok := byTitle[title]
		if !ok {
			c = &SectionChange{Section: title}
			byTitle[title] = c
		}
		return c
	}
	for _, m := range r.Modified() {
		c := get(left.Pages[m.Left].SectionTitle)
		c.Modified = append(c.Modified, m.Left+1)
	}
	for _, j := range r.Added {
		c := get(right.Pages[j].SectionTitle)
		c.Added = append(c.Added, j+1)
	}
	for _, i := range r.Deleted {
		c := get(left.Pages[i].SectionTitle)
		c.Deleted = append(c.Deleted, i+1)
	}

	out := make([]SectionChange, 0, len(byTitle))
	for _, c := range byTitle {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Section < out[j].Section })
	return out
}
