// Package output turns a finished consolidation into files: the JSON
// manifest that drives PDF assembly and an optional MDX docs site.
package output

import (
	"context"
	"fmt"
	"strings"

	"github.com/22adi66/pdf-consolidation-system/internal/consolidate"
	"github.com/22adi66/pdf-consolidation-system/internal/document"
)

// Revision identifies one input file.
type Revision struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Path    string `json:"path"`
	Pages   int    `json:"pages"`
}

// PageEntry is one page of the consolidated document. Output and Page are
// 1-based.
type PageEntry struct {
	Output   int    `json:"output"`
	Revision string `json:"revision"`
	Source   string `json:"source"`
	Page     int    `json:"page"`
}

// OutlineNode is one bookmark with its children.
type OutlineNode struct {
	Title    string        `json:"title"`
	Page     int           `json:"page"`
	Children []OutlineNode `json:"children,omitempty"`
}

type VersionSummary struct {
	Number      int    `json:"version"`
	Start       int    `json:"start_page"`
	End         int    `json:"end_page"`
	Revision    string `json:"revision"`
	SourcePages []int  `json:"source_pages"`
	Hash        string `json:"hash"`
	Note        string `json:"note,omitempty"`
}

// SectionSummary describes one tracked section and its versions.
type SectionSummary struct {
	Key           string           `json:"key"`
	Title         string           `json:"title"`
	OriginalTitle string           `json:"original_title"`
	NameHistory   []string         `json:"name_history,omitempty"`
	Changed       bool             `json:"changed"`
	Versions      []VersionSummary `json:"versions"`
}

// Plan is everything a writer needs: the page sequence, the outline and the
// per-section version history. Sections are in outline order.
type Plan struct {
	RunID     string                     `json:"run_id,omitempty"`
	Revisions []Revision                 `json:"revisions"`
	Pages     []PageEntry                `json:"pages"`
	Outline   []consolidate.OutlineEntry `json:"-"`
	Sections  []SectionSummary           `json:"sections"`

	revs map[string]*document.Revision
}

// NewPlan snapshots reg. revs must contain every revision the registry
// copied pages from.
func NewPlan(reg *consolidate.Registry, revs []*document.Revision) (*Plan, error) {
	p := &Plan{revs: make(map[string]*document.Revision, len(revs))}
	for _, r := range revs {
		p.revs[r.ID] = r
		p.Revisions = append(p.Revisions, Revision{ID: r.ID, Version: r.Version, Path: r.Path, Pages: r.PageCount()})
	}
	for i, ref := range reg.Pages() {
		r, ok := p.revs[ref.Revision]
		if !ok {
			return nil, fmt.Errorf("output page %d: unknown revision %q", i+1, ref.Revision)
		}
		if ref.Page < 1 || ref.Page > r.PageCount() {
			return nil, fmt.Errorf("output page %d: %s has no page %d", i+1, ref.Revision, ref.Page)
		}
		p.Pages = append(p.Pages, PageEntry{Output: i + 1, Revision: ref.Revision, Source: r.Path, Page: ref.Page})
	}
	p.Outline = reg.BuildOutline()

	byStart := make(map[int]*consolidate.Tracker)
	for _, t := range reg.Trackers() {
		byStart[t.First().Start] = t
	}
	for _, e := range p.Outline {
		if e.Parent != -1 {
			continue
		}
		t := byStart[e.Page]
		s := SectionSummary{
			Key:           t.Key,
			Title:         t.CurrentTitle,
			OriginalTitle: t.OriginalTitle,
			NameHistory:   append([]string(nil), t.NameHistory...),
			Changed:       reg.HasChanges(t.Key),
		}
		for _, v := range t.Versions {
			s.Versions = append(s.Versions, VersionSummary{
				Number:      v.Number,
				Start:       v.Start,
				End:         v.End,
				Revision:    v.SourceID,
				SourcePages: append([]int(nil), v.SourcePages...),
				Hash:        v.Hash,
			})
		}
		p.Sections = append(p.Sections, s)
	}
	return p, nil
}

// Tree nests the flat outline entries under their parents.
func (p *Plan) Tree() []OutlineNode {
	nodes := make([]OutlineNode, len(p.Outline))
	for i, e := range p.Outline {
		nodes[i] = OutlineNode{Title: e.Title, Page: e.Page}
	}
	// Children always follow their parent, so filling back to front keeps
	// grandchildren attached before a child is copied into its parent.
	for i := len(p.Outline) - 1; i >= 0; i-- {
		if par := p.Outline[i].Parent; par >= 0 {
			nodes[par].Children = append([]OutlineNode{nodes[i]}, nodes[par].Children...)
		}
	}
	var roots []OutlineNode
	for i, e := range p.Outline {
		if e.Parent < 0 {
			roots = append(roots, nodes[i])
		}
	}
	return roots
}

// VersionText returns the raw page texts a version was copied from.
func (p *Plan) VersionText(v VersionSummary) []string {
	r, ok := p.revs[v.Revision]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(v.SourcePages))
	for _, n := range v.SourcePages {
		if n >= 1 && n <= r.PageCount() {
			out = append(out, r.Pages[n-1].RawText)
		}
	}
	return out
}

// Annotator writes a short note on what changed between two versions.
type Annotator interface {
	DescribeChange(ctx context.Context, title, before, after string) (string, error)
}

// Annotate fills Note for every version after the first of each changed
// section. A failing call leaves that note empty and is reported in the
// returned count.
func (p *Plan) Annotate(ctx context.Context, a Annotator) (failed int, err error) {
	for si := range p.Sections {
		s := &p.Sections[si]
		if !s.Changed {
			continue
		}
		for vi := 1; vi < len(s.Versions); vi++ {
			if err := ctx.Err(); err != nil {
				return failed, err
			}
			before := strings.Join(p.VersionText(s.Versions[vi-1]), "\n\n")
			after := strings.Join(p.VersionText(s.Versions[vi]), "\n\n")
			note, err := a.DescribeChange(ctx, s.Title, before, after)
			if err != nil {
				failed++
				continue
			}
			s.Versions[vi].Note = note
		}
	}
	return failed, nil
}
