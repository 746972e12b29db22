package consolidate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/22adi66/pdf-consolidation-system/internal/compare"
	"github.com/22adi66/pdf-consolidation-system/internal/document"
)

var (
	ErrNotInitialized     = errors.New("registry has no base revision")
	ErrAlreadyInitialized = errors.New("registry already has a base revision")
)

// EventKind classifies what a merge did with one section.
type EventKind string

const (
	// EventVersion: a new version was appended to an existing tracker.
	EventVersion EventKind = "version"
	// EventNewSection: a tracker was created for a section not seen before.
	EventNewSection EventKind = "new_section"
	// EventDuplicate: the section content already exists as a version.
	EventDuplicate EventKind = "duplicate"
)

// MergeEvent records the outcome for one section of the merged revision.
type MergeEvent struct {
	Kind        EventKind `json:"kind"`
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Version     int       `json:"version,omitempty"`
	Start       int       `json:"start_page,omitempty"`
	End         int       `json:"end_page,omitempty"`
	SourcePages []int     `json:"source_pages,omitempty"`
	ByPosition  bool      `json:"by_position,omitempty"`
}

// MergeSummary describes one MergeRevision call.
type MergeSummary struct {
	Revision    string       `json:"revision"`
	PagesBefore int          `json:"pages_before"`
	PagesAfter  int          `json:"pages_after"`
	Events      []MergeEvent `json:"events"`
	// Untracked counts changed pages that belong to no section.
	Untracked int `json:"untracked_pages,omitempty"`
}

// PagesAdded is the number of pages inserted by the merge.
func (s MergeSummary) PagesAdded() int { return s.PagesAfter - s.PagesBefore }

// Count returns the number of events of kind k.
func (s MergeSummary) Count(k EventKind) int {
	n := 0
	for _, e := range s.Events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// InitializeFromBase copies every page of the oldest revision into the output
// and creates one tracker with a single version per section instance.
func (r *Registry) InitializeFromBase(base *document.Revision) error {
	if r.initialized {
		return ErrAlreadyInitialized
	}
	if base.PageCount() == 0 {
		return fmt.Errorf("%s: %w", base.ID, document.ErrEmptyRevision)
	}
	for i := range base.Pages {
		r.pages = append(r.pages, PageRef{Revision: base.ID, Page: i + 1})
	}
	pos := make(map[int]string)
	for _, s := range base.Sections {
		t := r.newTracker(s.Title, s.Start)
		t.Versions = []*Version{{
			Number:      1,
			Start:       s.Start,
			End:         s.End,
			SourceID:    base.ID,
			SourcePages: s.PageNumbers(),
			Hash:        contentHash(base.Text(s)),
		}}
		for p := s.Start; p <= s.End; p++ {
			pos[p] = t.Key
		}
	}
	r.positions[base.ID] = pos
	r.initialized = true
	r.log.Info("base revision loaded", "revision", base.ID, "pages", len(r.pages), "sections", len(r.trackers))
	return nil
}

// sectionChanges collects what the comparison report says about every
// section instance of the next revision.
type sectionChanges struct {
	modified    []bool
	added       []bool
	changed     [][]int // modified and added page numbers in the next revision
	modHints    [][]int // left page numbers of modified matches
	otherHints  [][]int // left page numbers of identical matches
	positionKey []string
	untracked   int
}

func (r *Registry) collect(rep *compare.Report, next *document.Revision) *sectionChanges {
	n := len(next.Sections)
	c := &sectionChanges{
		modified:    make([]bool, n),
		added:       make([]bool, n),
		changed:     make([][]int, n),
		modHints:    make([][]int, n),
		otherHints:  make([][]int, n),
		positionKey: make([]string, n),
	}
	for _, m := range rep.Matches {
		si := next.SectionIndexAt(m.Right + 1)
		if si < 0 {
			if !m.Identical() {
				c.untracked++
			}
			continue
		}
		if m.Identical() {
			c.otherHints[si] = append(c.otherHints[si], m.Left+1)
			continue
		}
		c.modified[si] = true
		c.modHints[si] = append(c.modHints[si], m.Left+1)
		c.changed[si] = append(c.changed[si], m.Right+1)
	}
	for _, j := range rep.Added {
		si := next.SectionIndexAt(j + 1)
		if si < 0 {
			c.untracked++
			continue
		}
		c.added[si] = true
		c.changed[si] = append(c.changed[si], j+1)
	}
	for si := range c.changed {
		sort.Ints(c.changed[si])
	}

	pos := r.positions[rep.LeftID]
	if pos == nil {
		return c
	}
	for si := 0; si < n; si++ {
		c.positionKey[si] = r.trackerAt(pos, c.modHints[si], c.otherHints[si])
	}
	return c
}

// trackerAt returns the tracker owning the first of the given left pages
// that has one in pos.
func (r *Registry) trackerAt(pos map[int]string, pageLists ...[]int) string {
	for _, pages := range pageLists {
		for _, p := range pages {
			if k, ok := pos[p]; ok && r.trackers[k] != nil {
				return k
			}
		}
	}
	return ""
}

// candidates lists every tracker for name resolution, marking those that
// already hold content hashed as hash.
func (r *Registry) candidates(hash string) []candidate {
	ts := r.Trackers()
	out := make([]candidate, len(ts))
	for i, t := range ts {
		out[i] = candidate{key: t.Key, names: t.names(), holds: hash != "" && t.HasHash(hash)}
	}
	return out
}

// MergeRevision folds the next revision into the output using the report
// that compares it with the previously merged revision.
//
// A section of next is touched when it owns a modified match, an added page,
// or when the tracker it carries forward lost pages. Touched sections are
// resolved to trackers in page order. Content already held by the tracker is
// skipped; otherwise the section's pages are inserted right after the
// tracker's latest version. Sections that resolve to no tracker become new
// trackers placed after their predecessor section.
func (r *Registry) MergeRevision(rep *compare.Report, next *document.Revision) (MergeSummary, error) {
	if !r.initialized {
		return MergeSummary{}, ErrNotInitialized
	}
	if rep == nil {
		return MergeSummary{}, errors.New("nil comparison report")
	}
	if rep.RightID != next.ID {
		return MergeSummary{}, fmt.Errorf("report compares against %q, not %q", rep.RightID, next.ID)
	}
	if next.PageCount() == 0 {
		return MergeSummary{}, fmt.Errorf("%s: %w", next.ID, document.ErrEmptyRevision)
	}

	sum := MergeSummary{Revision: next.ID, PagesBefore: len(r.pages)}
	c := r.collect(rep, next)
	sum.Untracked = c.untracked

	shrunk := map[string]bool{}
	if pos := r.positions[rep.LeftID]; pos != nil {
		for _, i := range rep.Deleted {
			if k, ok := pos[i+1]; ok {
				shrunk[k] = true
			}
		}
	}

	touched := make([]bool, len(next.Sections))
	claimed := map[string]bool{}
	assigned := make([]string, len(next.Sections))
	for si := range next.Sections {
		k := c.positionKey[si]
		touched[si] = c.modified[si] || c.added[si] || (k != "" && shrunk[k])
		// Unchanged sections keep their tracker and cannot be taken over by
		// name from a touched one.
		if !touched[si] && k != "" {
			assigned[si] = k
			claimed[k] = true
		}
	}

	for si, s := range next.Sections {
		if !touched[si] {
			continue
		}
		pages := s.PageNumbers()
		if r.opts.Scope == ScopeChanged {
			pages = c.changed[si]
		}
		texts := make([]string, len(pages))
		refs := make([]PageRef, len(pages))
		for i, p := range pages {
			texts[i] = next.Pages[p-1].NormalizedText
			refs[i] = PageRef{Revision: next.ID, Page: p}
		}
		var hash string
		if len(pages) > 0 {
			hash = contentHash(texts)
		}

		res := resolveSection(s.Title, c.positionKey[si], r.candidates(hash), claimed, r.opts.FuzzyThreshold)
		if len(pages) == 0 {
			if res.Kind == ExistingTracker {
				assigned[si] = res.Key
				claimed[res.Key] = true
			}
			continue
		}

		var ev MergeEvent
		switch res.Kind {
		case ExistingTracker:
			t := r.trackers[res.Key]
			assigned[si] = t.Key
			claimed[t.Key] = true
			if t.HasHash(hash) {
				ev = MergeEvent{Kind: EventDuplicate, Key: t.Key, Title: s.Title, ByPosition: res.ByPosition}
				r.log.Debug("duplicate section content skipped", "revision", next.ID, "section", s.Title, "tracker", t.Key)
				break
			}
			at := t.Latest().End
			r.insertPages(at, refs)
			v := &Version{
				Number:      len(t.Versions) + 1,
				Start:       at + 1,
				End:         at + len(refs),
				SourceID:    next.ID,
				SourcePages: pages,
				Hash:        hash,
			}
			t.Versions = append(t.Versions, v)
			t.rename(s.Title)
			r.changed[t.Key] = true
			ev = MergeEvent{Kind: EventVersion, Key: t.Key, Title: t.CurrentTitle, Version: v.Number,
				Start: v.Start, End: v.End, SourcePages: pages, ByPosition: res.ByPosition}
			r.log.Info("section version added", "revision", next.ID, "section", t.CurrentTitle,
				"version", v.Number, "start", v.Start, "end", v.End, "by_position", res.ByPosition, "score", res.Score)

		case NewTracker:
			at := r.insertionPoint(si, next, assigned)
			r.insertPages(at, refs)
			t := r.newTracker(s.Title, at+1)
			t.Versions = []*Version{{
				Number:      1,
				Start:       at + 1,
				End:         at + len(refs),
				SourceID:    next.ID,
				SourcePages: pages,
				Hash:        hash,
			}}
			assigned[si] = t.Key
			claimed[t.Key] = true
			// Changed content that matches no tracker is versioned content;
			// a section made only of added pages is simply new.
			if c.modified[si] {
				r.changed[t.Key] = true
			}
			ev = MergeEvent{Kind: EventNewSection, Key: t.Key, Title: s.Title, Version: 1,
				Start: at + 1, End: at + len(refs), SourcePages: pages}
			r.log.Info("new section added", "revision", next.ID, "section", s.Title,
				"start", at+1, "end", at+len(refs), "flagged", r.changed[t.Key])
		}
		sum.Events = append(sum.Events, ev)
	}

	pos := make(map[int]string)
	for si, s := range next.Sections {
		if k := assigned[si]; k != "" {
			for p := s.Start; p <= s.End; p++ {
				pos[p] = k
			}
		}
	}
	r.positions[next.ID] = pos

	sum.PagesAfter = len(r.pages)
	if sum.Untracked > 0 {
		r.log.Warn("changed pages outside any section ignored", "revision", next.ID, "pages", sum.Untracked)
	}
	return sum, nil
}

// insertionPoint returns the output page after which a new section of next
// goes: after the tracker of its predecessor section, or at the end of the
// output when the predecessor has no tracker.
func (r *Registry) insertionPoint(si int, next *document.Revision, assigned []string) int {
	if si == 0 {
		return len(r.pages)
	}
	key := assigned[si-1]
	if key == "" {
		prev := next.Sections[si-1]
		res := resolveSection(prev.Title, "", r.candidates(""), nil, r.opts.FuzzyThreshold)
		key = res.Key
	}
	if t := r.trackers[key]; t != nil {
		return t.Latest().End
	}
	return len(r.pages)
}
