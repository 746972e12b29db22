// Package document holds the in-memory model of one extracted revision:
// its pages, their normalized text and labels, and its section instances.
package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/22adi66/pdf-consolidation-system/internal/textnorm"
)

// NoSection marks pages that precede every heading.
const NoSection = ""

// ErrEmptyRevision is returned for a revision without pages.
var ErrEmptyRevision = errors.New("revision has no pages")

// Page is one page of a revision. Index is 0-based.
type Page struct {
	Index          int    `json:"index"`
	RawText        string `json:"-"`
	NormalizedText string `json:"-"`
	SectionTitle   string `json:"section,omitempty"`
	Label          string `json:"label,omitempty"`
}

// Number is the 1-based page number used in reporting.
func (p Page) Number() int { return p.Index + 1 }

// Section is one section instance: a contiguous run of pages that share a
// heading. Start and End are 1-based and inclusive.
type Section struct {
	Title string `json:"title"`
	Start int    `json:"start_page"`
	End   int    `json:"end_page"`
}

// Len is the number of pages in the section.
func (s Section) Len() int { return s.End - s.Start + 1 }

// Contains reports whether the 1-based page number lies in the section.
func (s Section) Contains(page int) bool { return page >= s.Start && page <= s.End }

// Revision is one complete version of the document.
type Revision struct {
	ID       string
	Version  string
	Path     string
	Pages    []Page
	Sections []Section

	owner []int // page index -> index into Sections, or -1
}

// NewRevision builds a Revision from per-page text and a 1-indexed
// page-to-section map (index 0 unused, NoSection for pages before the first
// heading). A short or nil map leaves the remaining pages without a section.
func NewRevision(id, version, path string, texts []string, sectionMap []string, n *textnorm.Normalizer) (*Revision, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrEmptyRevision)
	}
	if n == nil {
		n = textnorm.Default()
	}
	r := &Revision{ID: id, Version: version, Path: path}
	r.Pages = make([]Page, len(texts))
	for i, raw := range texts {
		norm := n.Normalize(raw)
		title := NoSection
		if i+1 < len(sectionMap) {
			title = strings.TrimSpace(sectionMap[i+1])
		}
		r.Pages[i] = Page{
			Index:          i,
			RawText:        raw,
			NormalizedText: norm,
			SectionTitle:   title,
			Label:          n.Label(norm),
		}
	}
	r.buildSections()
	return r, nil
}

func (r *Revision) buildSections() {
	r.Sections = nil
	r.owner = make([]int, len(r.Pages))
	for i, p := range r.Pages {
		if p.SectionTitle == NoSection {
			r.owner[i] = -1
			continue
		}
		last := len(r.Sections) - 1
		if last >= 0 && r.Sections[last].Title == p.SectionTitle && r.Sections[last].End == i {
			r.Sections[last].End = i + 1
		} else {
			r.Sections = append(r.Sections, Section{Title: p.SectionTitle, Start: i + 1, End: i + 1})
			last++
		}
		r.owner[i] = last
	}
}

// PageCount is the number of pages.
func (r *Revision) PageCount() int { return len(r.Pages) }

// SectionIndexAt returns the index into Sections owning the 1-based page, or
// -1 when the page has no section or is out of range.
func (r *Revision) SectionIndexAt(page int) int {
	if page < 1 || page > len(r.owner) {
		return -1
	}
	return r.owner[page-1]
}

// SectionAt returns the section owning the 1-based page.
func (r *Revision) SectionAt(page int) (Section, bool) {
	i := r.SectionIndexAt(page)
	if i < 0 {
		return Section{}, false
	}
	return r.Sections[i], true
}

// SectionMap returns the 1-indexed page-to-section map (index 0 unused).
func (r *Revision) SectionMap() []string {
	m := make([]string, len(r.Pages)+1)
	for i, p := range r.Pages {
		m[i+1] = p.SectionTitle
	}
	return m
}

// NormalizedTexts returns the normalized text of every page in order.
func (r *Revision) NormalizedTexts() []string {
	out := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		out[i] = p.NormalizedText
	}
	return out
}

// PageNumbers lists the 1-based page numbers covered by s.
func (s Section) PageNumbers() []int {
	out := make([]int, 0, s.Len())
	for p := s.Start; p <= s.End; p++ {
		out = append(out, p)
	}
	return out
}

// Text returns the normalized texts of the section's pages.
func (r *Revision) Text(s Section) []string {
	var out []string
	for p := s.Start; p <= s.End && p <= len(r.Pages); p++ {
		if p < 1 {
			continue
		}
		out = append(out, r.Pages[p-1].NormalizedText)
	}
	return out
}

// SectionMapFromHeadings turns heading start pages into a 1-indexed
// page-to-section map for a document of pageCount pages. Each page takes the
// title of the nearest heading at or before it; later headings on the same
// page win.
func SectionMapFromHeadings(pageCount int, headings []Heading) []string {
	m := make([]string, pageCount+1)
	for i := range m {
		m[i] = NoSection
	}
	byPage := make(map[int]string, len(headings))
	for _, h := range headings {
		if h.Page < 1 || h.Page > pageCount || strings.TrimSpace(h.Title) == "" {
			continue
		}
		byPage[h.Page] = strings.TrimSpace(h.Title)
	}
	cur := NoSection
	for p := 1; p <= pageCount; p++ {
		if t, ok := byPage[p]; ok {
			cur = t
		}
		m[p] = cur
	}
	return m
}

// Heading is one outline entry pointing at a 1-based page.
type Heading struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
	Depth int    `json:"depth,omitempty"`
}
