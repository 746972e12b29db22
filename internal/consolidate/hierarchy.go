package consolidate

import (
	"fmt"
	"sort"
)

// OutlineEntry is one heading of the consolidated outline. Page is the
// 1-based output page and Parent the ID of the enclosing entry, or -1.
type OutlineEntry struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Page   int    `json:"page"`
	Parent int    `json:"parent"`
}

// BuildOutline emits the outline in output order. Flagged trackers become a
// parent entry with one "Version N" child per version; all others a single
// flat entry.
func (r *Registry) BuildOutline() []OutlineEntry {
	ts := r.Trackers()
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].First().Start < ts[j].First().Start })

	var out []OutlineEntry
	for _, t := range ts {
		parent := OutlineEntry{ID: len(out), Title: t.CurrentTitle, Page: t.First().Start, Parent: -1}
		out = append(out, parent)
		if !r.changed[t.Key] {
			continue
		}
		for _, v := range t.Versions {
			out = append(out, OutlineEntry{
				ID:     len(out),
				Title:  fmt.Sprintf("Version %d", v.Number),
				Page:   v.Start,
				Parent: parent.ID,
			})
		}
	}
	return out
}
