// Package pdfdoc reads PDF revisions with rsc.io/pdf: per-page text in
// reading order and the page-to-section map derived from the document
// outline, a printed table of contents, or a whole-document fallback.
package pdfdoc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	rpdf "rsc.io/pdf"

	"github.com/22adi66/pdf-consolidation-system/internal/document"
)

// Fallback decides what happens when a PDF has neither an outline nor a
// usable printed table of contents.
type Fallback string

const (
	// FallbackDocument makes the whole file one section named after it.
	FallbackDocument Fallback = "document"
	// FallbackNone leaves every page without a section.
	FallbackNone Fallback = "none"
)

// Source tells where the section map came from.
type Source string

const (
	SourceOutline  Source = "outline"
	SourceToC      Source = "toc"
	SourceDocument Source = "document"
	SourceNone     Source = "none"
)

// ToCRepairer cleans up printed table of contents lines before parsing.
type ToCRepairer interface {
	RepairToC(ctx context.Context, raw []string) ([]string, error)
}

type Options struct {
	UseToC   bool
	ToCPages int
	MaxDepth int
	Fallback Fallback
	// Repair, when set, gets the printed contents lines before parsing.
	Repair ToCRepairer
	Logger *slog.Logger
}

// Extraction is what the parser hands to the core for one revision.
type Extraction struct {
	Path       string             `json:"path"`
	Texts      []string           `json:"-"`
	SectionMap []string           `json:"-"`
	Headings   []document.Heading `json:"headings"`
	Source     Source             `json:"source"`
	// Failed lists 1-based pages whose text could not be extracted.
	Failed []int `json:"failed_pages,omitempty"`
}

// Extractor reads PDFs from disk.
type Extractor struct {
	opts Options
	log  *slog.Logger
}

func NewExtractor(opts Options) *Extractor {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Fallback == "" {
		opts.Fallback = FallbackDocument
	}
	return &Extractor{opts: opts, log: opts.Logger}
}

// Extract opens the PDF at path. Failing to open or parse the file is an
// error; a page whose text cannot be read becomes an empty page.
func (e *Extractor) Extract(ctx context.Context, path string) (*Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	r, err := openReader(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	n := numPages(r)
	ex := &Extraction{Path: path, Texts: make([]string, n)}
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := pageText(r, i)
		if err != nil {
			e.log.Warn("page text unavailable, using empty page", "path", path, "page", i, "err", err)
			ex.Failed = append(ex.Failed, i)
			continue
		}
		ex.Texts[i-1] = text
	}

	headings, err := readOutline(r, e.opts.MaxDepth)
	if err != nil {
		e.log.Warn("outline unreadable", "path", path, "err", err)
	}
	e.sections(ctx, ex, headings)
	e.log.Debug("pdf extracted", "path", path, "pages", n, "headings", len(ex.Headings), "source", ex.Source)
	return ex, nil
}

// sections fills the section map from outline headings or the fallbacks.
func (e *Extractor) sections(ctx context.Context, ex *Extraction, outline []document.Heading) {
	n := len(ex.Texts)
	switch {
	case len(outline) > 0:
		ex.Headings, ex.Source = outline, SourceOutline
	case e.opts.UseToC:
		lines := findToC(ex.Texts, e.opts.ToCPages)
		if e.opts.Repair != nil && len(lines) > 0 {
			fixed, err := e.opts.Repair.RepairToC(ctx, lines)
			if err != nil {
				e.log.Warn("contents repair failed", "path", ex.Path, "err", err)
			} else {
				lines = fixed
			}
		}
		if hs := parseToC(lines, n, e.opts.MaxDepth); len(hs) > 0 {
			ex.Headings, ex.Source = hs, SourceToC
		}
	}
	if ex.Source == "" {
		switch e.opts.Fallback {
		case FallbackDocument:
			if n > 0 {
				ex.Headings = []document.Heading{{Title: documentTitle(ex.Path), Page: 1, Depth: 1}}
			}
			ex.Source = SourceDocument
		default:
			ex.Source = SourceNone
		}
	}
	ex.SectionMap = document.SectionMapFromHeadings(n, ex.Headings)
}

func documentTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func openReader(f io.ReaderAt, size int64) (r *rpdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("malformed pdf: %v", p)
		}
	}()
	return rpdf.NewReader(f, size)
}

func numPages(r *rpdf.Reader) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return r.NumPage()
}

func pageText(r *rpdf.Reader, num int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("extract page %d: %v", num, p)
		}
	}()
	p := r.Page(num)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d not found", num)
	}
	return layout(runsOf(p.Content().Text)), nil
}
