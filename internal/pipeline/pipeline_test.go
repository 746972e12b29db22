package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/22adi66/pdf-consolidation-system/internal/config"
	"github.com/22adi66/pdf-consolidation-system/internal/document"
	"github.com/22adi66/pdf-consolidation-system/internal/history"
	"github.com/22adi66/pdf-consolidation-system/internal/output"
	"github.com/22adi66/pdf-consolidation-system/internal/pdfdoc"
)

// fakeExtractor serves revisions by file name.
type fakeExtractor struct {
	docs  map[string]*pdfdoc.Extraction
	fail  map[string]error
	calls []string
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (*pdfdoc.Extraction, error) {
	name := filepath.Base(path)
	f.calls = append(f.calls, name)
	if err := f.fail[name]; err != nil {
		return nil, err
	}
	x, ok := f.docs[name]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", name)
	}
	return x, nil
}

type page struct {
	section string
	text    string
}

func extraction(pages ...page) *pdfdoc.Extraction {
	x := &pdfdoc.Extraction{SectionMap: []string{document.NoSection}, Source: pdfdoc.SourceOutline}
	for _, p := range pages {
		x.Texts = append(x.Texts, p.text)
		x.SectionMap = append(x.SectionMap, p.section)
	}
	return x
}

func body(name, last string) string {
	var b strings.Builder
	for i := 1; i <= 4; i++ {
		fmt.Fprintf(&b, "%s line %d\n", name, i)
	}
	return b.String() + name + " " + last
}

func setup(t *testing.T, docs map[string]*pdfdoc.Extraction) (string, config.Config) {
	t.Helper()
	in := t.TempDir()
	for name := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(in, name), []byte("%PDF-1.4"), 0o644))
	}
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	return in, cfg
}

// threeRevisions: v2 edits Dosing, v3 adds Follow-up after Dosing.
func threeRevisions() map[string]*pdfdoc.Extraction {
	return map[string]*pdfdoc.Extraction{
		"study-design-1-0-0.pdf": extraction(
			page{"Dosing", body("dose", "10 mg")},
			page{"Safety", body("safety", "report")},
		),
		"study-design-2-0-0.pdf": extraction(
			page{"Dosing", body("dose", "20 mg")},
			page{"Safety", body("safety", "report")},
		),
		"study-design-2-0-10.pdf": extraction(
			page{"Dosing", body("dose", "20 mg")},
			page{"Follow-up", body("visit", "week 4")},
			page{"Safety", body("safety", "report")},
		),
	}
}

func TestRunConsolidatesChain(t *testing.T) {
	docs := threeRevisions()
	in, cfg := setup(t, docs)
	cfg.Output.Docs = true
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	ex := &fakeExtractor{docs: docs}

	res, err := Run(context.Background(), in, cfg, Deps{Extractor: ex})
	require.NoError(t, err)

	assert.Equal(t, []string{"study-design-1-0-0.pdf", "study-design-2-0-0.pdf", "study-design-2-0-10.pdf"}, ex.calls)
	assert.False(t, res.Partial)
	require.Len(t, res.Pairs, 2)
	assert.Equal(t, 1, res.Pairs[0].Stats.Modified)
	assert.Equal(t, 1, res.Pairs[1].Stats.Added)

	// Dosing v1, Dosing v2, Follow-up, Safety.
	assert.Equal(t, 4, res.OutputPages)
	assert.Equal(t, 3, res.Trackers)
	assert.Equal(t, 1, res.Changed)

	m, err := output.ReadManifest(res.Manifest)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, m.RunID)
	var titles []string
	for _, n := range m.Outline {
		titles = append(titles, n.Title)
	}
	assert.Equal(t, []string{"Dosing", "Follow-up", "Safety"}, titles)
	assert.Len(t, m.Outline[0].Children, 2)
	assert.Equal(t, "study-design-2-0-10.pdf", m.Pages[2].Revision)
	assert.NotEmpty(t, res.Docs)

	store, err := history.Open(context.Background(), cfg.History.Path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, 4, runs[0].OutputPages)
	require.Len(t, runs[0].Pairs, 2)
	assert.Equal(t, 1, runs[0].Pairs[0].Versions)
	assert.Equal(t, 1, runs[0].Pairs[1].NewSections)
}

func TestRunWithoutChangesIsBaseOnly(t *testing.T) {
	same := extraction(page{"Dosing", body("dose", "10 mg")}, page{"Safety", body("safety", "report")})
	docs := map[string]*pdfdoc.Extraction{"doc-v1.pdf": same, "doc-v2.pdf": same}
	in, cfg := setup(t, docs)

	res, err := Run(context.Background(), in, cfg, Deps{Extractor: &fakeExtractor{docs: docs}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.OutputPages)
	assert.Zero(t, res.Changed)
}

func TestRunInputErrors(t *testing.T) {
	t.Run("single revision", func(t *testing.T) {
		docs := map[string]*pdfdoc.Extraction{"only-v1.pdf": extraction(page{"A", "a"})}
		in, cfg := setup(t, docs)
		res, err := Run(context.Background(), in, cfg, Deps{Extractor: &fakeExtractor{docs: docs}})
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrInvalidInput)
		var ie *InputError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "not enough revisions", ie.Reason)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := Run(context.Background(), filepath.Join(t.TempDir(), "absent"), config.Default(), Deps{Extractor: &fakeExtractor{}})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("empty base revision", func(t *testing.T) {
		docs := map[string]*pdfdoc.Extraction{"a-v1.pdf": extraction(), "a-v2.pdf": extraction(page{"A", "a"})}
		in, cfg := setup(t, docs)
		res, err := Run(context.Background(), in, cfg, Deps{Extractor: &fakeExtractor{docs: docs}})
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorIs(t, err, document.ErrEmptyRevision)
		_, statErr := os.Stat(filepath.Join(cfg.Output.Dir, cfg.Output.Manifest))
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestRunPartialFailure(t *testing.T) {
	docs := threeRevisions()
	in, cfg := setup(t, docs)
	boom := errors.New("corrupt xref")
	ex := &fakeExtractor{docs: docs, fail: map[string]error{"study-design-2-0-10.pdf": boom}}

	res, err := Run(context.Background(), in, cfg, Deps{Extractor: ex})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var me *MergeError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 2, me.Pair)
	assert.Equal(t, "study-design-2-0-10.pdf", me.Right)

	require.NotNil(t, res)
	assert.True(t, res.Partial)
	assert.Len(t, res.Pairs, 1)
	assert.Equal(t, 3, res.OutputPages)
	_, statErr := os.Stat(res.Manifest)
	assert.NoError(t, statErr)
}

func TestRunCancelledBeforeFirstPair(t *testing.T) {
	docs := threeRevisions()
	in, cfg := setup(t, docs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, in, cfg, Deps{Extractor: &fakeExtractor{docs: docs}})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.True(t, res.Partial)
	assert.Equal(t, 2, res.OutputPages)
}

func TestRunScoresEachPairIndependently(t *testing.T) {
	docs := threeRevisions()
	in, cfg := setup(t, docs)
	chain, err := Run(context.Background(), in, cfg, Deps{Extractor: &fakeExtractor{docs: docs}})
	require.NoError(t, err)
	require.Len(t, chain.Pairs, 2)
	require.NotZero(t, chain.Pairs[0].Similarity.Calls)

	last := map[string]*pdfdoc.Extraction{
		"study-design-2-0-0.pdf":  docs["study-design-2-0-0.pdf"],
		"study-design-2-0-10.pdf": docs["study-design-2-0-10.pdf"],
	}
	in2, cfg2 := setup(t, last)
	alone, err := Run(context.Background(), in2, cfg2, Deps{Extractor: &fakeExtractor{docs: last}})
	require.NoError(t, err)
	require.Len(t, alone.Pairs, 1)

	assert.Equal(t, alone.Pairs[0].Similarity, chain.Pairs[1].Similarity)
}

type recordingAnnotator struct{ titles []string }

func (r *recordingAnnotator) DescribeChange(ctx context.Context, title, before, after string) (string, error) {
	r.titles = append(r.titles, title)
	return "dose changed", nil
}

func TestRunAnnotatesChangedSections(t *testing.T) {
	docs := threeRevisions()
	in, cfg := setup(t, docs)
	a := &recordingAnnotator{}

	res, err := Run(context.Background(), in, cfg, Deps{Extractor: &fakeExtractor{docs: docs}, Annotator: a})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dosing"}, a.titles)
	assert.Equal(t, "dose changed", res.Plan().Sections[0].Versions[1].Note)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid input: not enough revisions", (&InputError{Reason: "not enough revisions"}).Error())
	err := &MergeError{Pair: 3, Left: "a.pdf", Right: "b.pdf", Err: errors.New("bad page tree")}
	assert.Equal(t, "pair 3 (a.pdf -> b.pdf): bad page tree", err.Error())
}
