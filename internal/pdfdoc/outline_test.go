package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/22adi66/pdf-consolidation-system/internal/document"
)

// buildPDF assembles a PDF with a classic xref table. objs[i] is the body of
// object i+1 and object 1 is the catalog.
func buildPDF(objs []string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objs)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func stream(content string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
}

// textContent draws each line 16 points below the previous one.
func textContent(lines ...string) string {
	var b strings.Builder
	b.WriteString("BT /F1 12 Tf 72 720 Td")
	for i, l := range lines {
		if i > 0 {
			b.WriteString(" 0 -16 Td")
		}
		fmt.Fprintf(&b, " (%s) Tj", l)
	}
	b.WriteString(" ET")
	return b.String()
}

// protocolPDF writes a six page PDF whose two-level outline uses every kind
// of destination: a page reference, a page index, a GoTo action, a name in
// /Dests and a string in the /Names tree. Page 4 has a content stream that
// cannot be interpreted.
func protocolPDF(t *testing.T) string {
	t.Helper()
	widths := strings.TrimSpace(strings.Repeat("500 ", 95))
	page := func(contents int) string {
		return fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 17 0 R >> >> /Contents %d 0 R >>", contents)
	}
	objs := []string{
		// 1 catalog
		"<< /Type /Catalog /Pages 2 0 R /Outlines 3 0 R /Dests << /safety [9 0 R /Fit] >> /Names << /Dests 4 0 R >> >>",
		// 2 page tree
		"<< /Type /Pages /Kids [5 0 R 6 0 R 7 0 R 8 0 R 9 0 R 10 0 R] /Count 6 >>",
		// 3 outline root
		"<< /Type /Outlines /First 11 0 R /Last 15 0 R /Count 5 >>",
		// 4 name tree root
		"<< /Kids [16 0 R] >>",
		// 5-10 pages
		page(18), page(19), page(20), page(21), page(22), page(23),
		// 11-15 outline items
		"<< /Title (Introduction) /Parent 3 0 R /Next 13 0 R /First 12 0 R /Last 12 0 R /Count 1 /Dest [5 0 R /XYZ 0 792 0] >>",
		"<< /Title (Background) /Parent 11 0 R /Dest [1 /Fit] >>",
		"<< /Title (Dosing) /Parent 3 0 R /Prev 11 0 R /Next 14 0 R /A << /S /GoTo /D [7 0 R /Fit] >> >>",
		"<< /Title (Safety) /Parent 3 0 R /Prev 13 0 R /Next 15 0 R /Dest /safety >>",
		"<< /Title (Appendix) /Parent 3 0 R /Prev 14 0 R /Dest (appendix) >>",
		// 16 name tree leaf
		"<< /Limits [(appendix) (appendix)] /Names [(appendix) [10 0 R /Fit]] >>",
		// 17 font
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding " +
			"/FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>",
		// 18-23 page contents
		stream(textContent("Introduction", "Study overview")),
		stream(textContent("Background")),
		stream(textContent("Dosing", "10 mg daily")),
		stream("BT /F1 12 Tf 72 720 Td Tj ET"),
		stream(textContent("Safety")),
		stream(textContent("Appendix")),
	}
	path := filepath.Join(t.TempDir(), "protocol-v1.0.0.pdf")
	require.NoError(t, os.WriteFile(path, buildPDF(objs), 0o644))
	return path
}

func TestExtractReadsOutline(t *testing.T) {
	path := protocolPDF(t)
	ex := NewExtractor(Options{UseToC: true, ToCPages: 16})

	got, err := ex.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, SourceOutline, got.Source)
	assert.Equal(t, []document.Heading{
		{Title: "Introduction", Page: 1, Depth: 1},
		{Title: "Background", Page: 2, Depth: 2},
		{Title: "Dosing", Page: 3, Depth: 1},
		{Title: "Safety", Page: 5, Depth: 1},
		{Title: "Appendix", Page: 6, Depth: 1},
	}, got.Headings)
	assert.Equal(t, []string{document.NoSection,
		"Introduction", "Background", "Dosing", "Dosing", "Safety", "Appendix"}, got.SectionMap)

	require.Len(t, got.Texts, 6)
	assert.Equal(t, "Introduction\nStudy overview", got.Texts[0])
	assert.Equal(t, "Dosing\n10 mg daily", got.Texts[2])
	assert.Equal(t, "Appendix", got.Texts[5])

	assert.Equal(t, []int{4}, got.Failed)
	assert.Empty(t, got.Texts[3])
}

func TestExtractOutlineMaxDepth(t *testing.T) {
	path := protocolPDF(t)
	ex := NewExtractor(Options{MaxDepth: 1})

	got, err := ex.Extract(context.Background(), path)
	require.NoError(t, err)

	var titles []string
	for _, h := range got.Headings {
		titles = append(titles, h.Title)
	}
	assert.Equal(t, []string{"Introduction", "Dosing", "Safety", "Appendix"}, titles)
	assert.Equal(t, "Introduction", got.SectionMap[2])
}

func TestExtractHonoursCancellation(t *testing.T) {
	path := protocolPDF(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor(Options{}).Extract(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
