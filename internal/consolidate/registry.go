// Package consolidate merges a chain of compared revisions into one growing
// output page sequence in which every version of every section is kept.
//
// A Registry is created per run. It is seeded with the oldest revision by
// InitializeFromBase and then advanced one revision at a time with
// MergeRevision. BuildOutline turns the final state into outline entries.
// A Registry is not safe for concurrent use.
package consolidate

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
)

// Version is one snapshot of a section copied into the output. Start and
// End are 1-based, inclusive output page numbers.
type Version struct {
	Number      int    `json:"version"`
	Start       int    `json:"start_page"`
	End         int    `json:"end_page"`
	SourceID    string `json:"source"`
	SourcePages []int  `json:"source_pages"`
	Hash        string `json:"hash"`
}

// Len is the number of pages in the version.
func (v *Version) Len() int { return v.End - v.Start + 1 }

func (v *Version) overlaps(o *Version) bool {
	return v.Start <= o.End && o.Start <= v.End
}

// Tracker follows one section instance through the run.
type Tracker struct {
	Key           string     `json:"key"`
	CurrentTitle  string     `json:"title"`
	OriginalTitle string     `json:"original_title"`
	NameHistory   []string   `json:"name_history,omitempty"`
	Versions      []*Version `json:"versions"`

	seq int
}

// Latest returns the most recent version.
func (t *Tracker) Latest() *Version { return t.Versions[len(t.Versions)-1] }

// First returns version 1.
func (t *Tracker) First() *Version { return t.Versions[0] }

// HasHash reports whether any version carries the content hash.
func (t *Tracker) HasHash(h string) bool {
	for _, v := range t.Versions {
		if v.Hash == h {
			return true
		}
	}
	return false
}

// names returns the current title followed by earlier titles.
func (t *Tracker) names() []string {
	return append([]string{t.CurrentTitle}, t.NameHistory...)
}

func (t *Tracker) rename(title string) {
	if title == "" || title == t.CurrentTitle {
		return
	}
	t.NameHistory = append(t.NameHistory, t.CurrentTitle)
	t.CurrentTitle = title
}

// PageRef points at one page of a source revision. Page is 1-based.
type PageRef struct {
	Revision string `json:"revision"`
	Page     int    `json:"page"`
}

// Scope selects which pages of a changed section form its new version.
type Scope string

const (
	// ScopeSection copies the whole section as it stands in the new revision.
	ScopeSection Scope = "section"
	// ScopeChanged copies only the modified and added pages of the section.
	ScopeChanged Scope = "changed"
)

// Options configure a Registry.
type Options struct {
	// FuzzyThreshold is the minimum title similarity for resolving a section
	// to an existing tracker by name.
	FuzzyThreshold float64
	// Scope defaults to ScopeSection.
	Scope  Scope
	Logger *slog.Logger
}

// DefaultOptions returns the standard fuzzy threshold and scope.
func DefaultOptions() Options {
	return Options{FuzzyThreshold: 0.8, Scope: ScopeSection}
}

// Registry is the state of one consolidation run.
type Registry struct {
	opts        Options
	log         *slog.Logger
	initialized bool
	trackers    map[string]*Tracker
	seq         int
	changed     map[string]bool
	pages       []PageRef

	// positions maps, per merged revision, page numbers to the tracker that
	// owns them, so that a comparison starting at any merged revision can
	// locate trackers by page position.
	positions map[string]map[int]string
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Scope == "" {
		opts.Scope = ScopeSection
	}
	return &Registry{
		opts:      opts,
		log:       opts.Logger,
		trackers:  make(map[string]*Tracker),
		changed:   make(map[string]bool),
		positions: make(map[string]map[int]string),
	}
}

// PageCount is the number of pages in the output.
func (r *Registry) PageCount() int { return len(r.pages) }

// Pages returns a copy of the output page sequence.
func (r *Registry) Pages() []PageRef {
	return append([]PageRef(nil), r.pages...)
}

// Tracker returns the tracker stored under key.
func (r *Registry) Tracker(key string) (*Tracker, bool) {
	t, ok := r.trackers[key]
	return t, ok
}

// Trackers returns all trackers in creation order.
func (r *Registry) Trackers() []*Tracker {
	out := make([]*Tracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// HasChanges reports whether the tracker is flagged for a versioned entry.
func (r *Registry) HasChanges(key string) bool { return r.changed[key] }

func (r *Registry) newTracker(title string, startPage int) *Tracker {
	base := normalizeTitle(title) + "@" + strconv.Itoa(startPage)
	key := base
	for n := 2; r.trackers[key] != nil; n++ {
		key = base + "#" + strconv.Itoa(n)
	}
	r.seq++
	t := &Tracker{Key: key, CurrentTitle: title, OriginalTitle: title, seq: r.seq}
	r.trackers[key] = t
	return t
}

// insertPages splices refs into the output after page at (0 = front) and
// shifts every version starting beyond at.
func (r *Registry) insertPages(at int, refs []PageRef) {
	n := len(refs)
	for _, t := range r.trackers {
		for _, v := range t.Versions {
			if v.Start > at {
				v.Start += n
				v.End += n
			}
		}
	}
	pages := make([]PageRef, 0, len(r.pages)+n)
	pages = append(pages, r.pages[:at]...)
	pages = append(pages, refs...)
	pages = append(pages, r.pages[at:]...)
	r.pages = pages
}

// Validate checks the structural invariants of the registry: version ranges
// lie inside the output and never overlap, and versions within a tracker are
// numbered 1..n with non-decreasing starts.
func (r *Registry) Validate() error {
	var all []*Version
	for _, t := range r.Trackers() {
		if len(t.Versions) == 0 {
			return fmt.Errorf("tracker %q has no versions", t.Key)
		}
		for i, v := range t.Versions {
			if v.Number != i+1 {
				return fmt.Errorf("tracker %q: version %d numbered %d", t.Key, i+1, v.Number)
			}
			if i > 0 && v.Start < t.Versions[i-1].Start {
				return fmt.Errorf("tracker %q: version %d starts before version %d", t.Key, v.Number, i)
			}
			if v.Start < 1 || v.End < v.Start || v.End > len(r.pages) {
				return fmt.Errorf("tracker %q: version %d range %d-%d outside output of %d pages",
					t.Key, v.Number, v.Start, v.End, len(r.pages))
			}
			all = append(all, v)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	for i := 1; i < len(all); i++ {
		if all[i-1].overlaps(all[i]) {
			return fmt.Errorf("version ranges %d-%d and %d-%d overlap",
				all[i-1].Start, all[i-1].End, all[i].Start, all[i].End)
		}
	}
	return nil
}
