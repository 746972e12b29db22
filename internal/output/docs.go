package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DocsOptions configure the MDX site.
type DocsOptions struct {
	SiteName   string
	SlugPrefix string
}

type docsJSON struct {
	Schema     string            `json:"$schema"`
	Theme      string            `json:"theme"`
	Name       string            `json:"name"`
	Colors     map[string]string `json:"colors,omitempty"`
	Navigation navigation        `json:"navigation"`
}

type navigation struct {
	Tabs []navTab `json:"tabs"`
}

type navTab struct {
	Tab    string     `json:"tab"`
	Groups []navGroup `json:"groups"`
}

type navGroup struct {
	Group string `json:"group"`
	Pages []any  `json:"pages"`
}

// WriteDocs writes a Mintlify-style site into dir: docs.json, index.mdx and
// one MDX page per tracked section holding the text of each of its
// versions. It returns the written paths.
func WriteDocs(dir string, p *Plan, opts DocsOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	slugs := p.slugs(opts.SlugPrefix)

	var written []string
	var unchanged, changed []any
	for i, s := range p.Sections {
		path := filepath.Join(dir, slugs[i]+".mdx")
		if err := os.WriteFile(path, []byte(p.sectionMDX(s)), 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
		if s.Changed {
			changed = append(changed, slugs[i])
		} else {
			unchanged = append(unchanged, slugs[i])
		}
	}

	index := filepath.Join(dir, "index.mdx")
	if err := os.WriteFile(index, []byte(p.indexMDX(slugs)), 0o644); err != nil {
		return written, err
	}
	written = append(written, index)

	groups := []navGroup{{Group: "Overview", Pages: []any{"index"}}}
	if len(changed) > 0 {
		groups = append(groups, navGroup{Group: "Changed sections", Pages: changed})
	}
	if len(unchanged) > 0 {
		groups = append(groups, navGroup{Group: "Sections", Pages: unchanged})
	}
	name := opts.SiteName
	if name == "" {
		name = "Consolidated Document"
	}
	cfg := docsJSON{
		Schema: "https://mintlify.com/docs.json",
		Theme:  "mint",
		Name:   name,
		Colors: map[string]string{
			"primary": "#16A34A",
			"light":   "#07C983",
			"dark":    "#15803D",
		},
		Navigation: navigation{Tabs: []navTab{{Tab: "Documentation", Groups: groups}}},
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return written, err
	}
	docs := filepath.Join(dir, "docs.json")
	if err := os.WriteFile(docs, b, 0o644); err != nil {
		return written, err
	}
	return append(written, docs), nil
}

// slugs returns a unique slug per section, in section order.
func (p *Plan) slugs(prefix string) []string {
	seen := make(map[string]int)
	out := make([]string, len(p.Sections))
	for i, s := range p.Sections {
		base := s.Title
		if prefix != "" {
			base = prefix + "-" + base
		}
		slug := slugify(base)
		if slug == "" || slug == "index" {
			slug = fmt.Sprintf("section-%d", i+1)
		}
		seen[slug]++
		if n := seen[slug]; n > 1 {
			slug = fmt.Sprintf("%s-%d", slug, n)
		}
		out[i] = slug
	}
	return out
}

func (p *Plan) sectionMDX(s SectionSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "---\ntitle: \"%s\"\ndescription: \"%s\"\n---\n\n", escapeQuotes(s.Title), versionCount(len(s.Versions)))
	if len(s.NameHistory) > 0 {
		fmt.Fprintf(&b, "> Previously titled: %s\n\n", strings.Join(s.NameHistory, "; "))
	}
	for _, v := range s.Versions {
		if s.Changed {
			fmt.Fprintf(&b, "## Version %d\n\n", v.Number)
		}
		fmt.Fprintf(&b, "_Source: %s, pages %s (consolidated pages %d-%d)_\n\n", p.revisionLabel(v.Revision), pageList(v.SourcePages), v.Start, v.End)
		if v.Note != "" {
			fmt.Fprintf(&b, "<Note>%s</Note>\n\n", strings.TrimSpace(v.Note))
		}
		for _, t := range p.VersionText(v) {
			if t = strings.TrimSpace(t); t != "" {
				b.WriteString(transformTables(t))
				b.WriteString("\n\n")
			}
		}
	}
	return b.String()
}

func (p *Plan) indexMDX(slugs []string) string {
	var b strings.Builder
	b.WriteString("---\ntitle: \"Overview\"\ndescription: \"Consolidated document\"\n---\n\n")
	b.WriteString("## Revisions\n\n")
	for _, r := range p.Revisions {
		fmt.Fprintf(&b, "- %s (%s, %d pages)\n", filepath.Base(r.Path), r.Version, r.Pages)
	}
	b.WriteString("\n## Sections\n\n")
	for i, s := range p.Sections {
		fmt.Fprintf(&b, "- [%s](./%s) %s\n", s.Title, slugs[i], versionCount(len(s.Versions)))
	}
	return b.String()
}

func (p *Plan) revisionLabel(id string) string {
	if r, ok := p.revs[id]; ok && r.Path != "" {
		return filepath.Base(r.Path)
	}
	return id
}

func versionCount(n int) string {
	if n == 1 {
		return "1 version"
	}
	return fmt.Sprintf("%d versions", n)
}

// pageList renders ascending page numbers compactly, e.g. "2-4, 7".
func pageList(pages []int) string {
	var parts []string
	for i := 0; i < len(pages); {
		j := i
		for j+1 < len(pages) && pages[j+1] == pages[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, fmt.Sprint(pages[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", pages[i], pages[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}
