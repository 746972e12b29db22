// Package pipeline runs a whole consolidation: order the revisions found in
// a directory, extract them one at a time, match each against its
// predecessor, merge the result and write the outputs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/22adi66/pdf-consolidation-system/internal/compare"
	"github.com/22adi66/pdf-consolidation-system/internal/config"
	"github.com/22adi66/pdf-consolidation-system/internal/consolidate"
	"github.com/22adi66/pdf-consolidation-system/internal/document"
	"github.com/22adi66/pdf-consolidation-system/internal/history"
	"github.com/22adi66/pdf-consolidation-system/internal/logging"
	"github.com/22adi66/pdf-consolidation-system/internal/output"
	"github.com/22adi66/pdf-consolidation-system/internal/pdfdoc"
	"github.com/22adi66/pdf-consolidation-system/internal/sequence"
	"github.com/22adi66/pdf-consolidation-system/internal/similarity"
	"github.com/22adi66/pdf-consolidation-system/internal/textnorm"
)

// Extractor reads one revision. *pdfdoc.Extractor is the production
// implementation.
type Extractor interface {
	Extract(ctx context.Context, path string) (*pdfdoc.Extraction, error)
}

// Deps are the collaborators of a run.
type Deps struct {
	Extractor Extractor
	// Annotator, when set, writes change notes for new versions.
	Annotator output.Annotator
	Logger    *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// RevisionResult describes one input file.
type RevisionResult struct {
	sequence.File
	Pages       int           `json:"pages"`
	Sections    int           `json:"sections"`
	Source      pdfdoc.Source `json:"section_source"`
	FailedPages []int         `json:"failed_pages,omitempty"`
}

// PairResult is the outcome of one comparison step.
type PairResult struct {
	Index   int                      `json:"pair"`
	Left    string                   `json:"left"`
	Right   string                   `json:"right"`
	Stats   compare.Stats            `json:"matching"`
	Changes []compare.SectionChange  `json:"sections,omitempty"`
	Merge   consolidate.MergeSummary `json:"merge"`
	// Similarity counts the scores requested from this pair's scorer.
	Similarity ScorerStats `json:"similarity"`
}

// ScorerStats reports memoized similarity use for one pair.
type ScorerStats struct {
	Calls int `json:"calls"`
	Hits  int `json:"memo_hits"`
}

// Result is what a run produced. Partial is set when a MergeError stopped
// the chain early.
type Result struct {
	RunID       string           `json:"run_id"`
	InputDir    string           `json:"input_dir"`
	Revisions   []RevisionResult `json:"revisions"`
	Pairs       []PairResult     `json:"pairs"`
	OutputPages int              `json:"output_pages"`
	Trackers    int              `json:"trackers"`
	Changed     int              `json:"changed_sections"`
	Manifest    string           `json:"manifest"`
	Docs        []string         `json:"docs,omitempty"`
	Partial     bool             `json:"partial,omitempty"`
	Duration    time.Duration    `json:"duration_ns"`

	plan *output.Plan
}

// Plan returns the output plan the run wrote.
func (r *Result) Plan() *output.Plan { return r.plan }

// Run consolidates every PDF in dir. On an InputError nothing is written
// and the result is nil. On a MergeError the revisions merged so far are
// written and returned together with the error.
func Run(ctx context.Context, dir string, cfg config.Config, deps Deps) (*Result, error) {
	if deps.Extractor == nil {
		return nil, errors.New("pipeline: no extractor")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	started := deps.Now()
	runID := logging.NewRunID()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx, deps.Logger)

	norm, err := textnorm.New(cfg.Normalize.VolatilePatterns, cfg.Normalize.LabelPattern)
	if err != nil {
		return nil, err
	}
	files, err := sequence.Discover(dir)
	if err != nil {
		return nil, &InputError{Reason: "unreadable input directory", Err: err}
	}
	pairs, err := sequence.Pairs(files)
	if err != nil {
		return nil, &InputError{Reason: "not enough revisions", Err: err}
	}
	log.Info("revisions ordered", "dir", dir, "revisions", len(files), "base", files[0].Name, "latest", files[len(files)-1].Name)

	res := &Result{RunID: runID, InputDir: dir}
	base, err := load(ctx, deps.Extractor, files[0], norm, res)
	if err != nil {
		return nil, err
	}

	reg := consolidate.NewRegistry(consolidate.Options{
		FuzzyThreshold: cfg.Consolidation.FuzzyThreshold,
		Scope:          consolidate.Scope(cfg.Consolidation.Scope),
		Logger:         log,
	})
	if err := reg.InitializeFromBase(base); err != nil {
		return nil, &InputError{Reason: "base revision", Err: err}
	}

	revs := []*document.Revision{base}
	matchOpts := compare.Options{
		HeuristicThreshold: cfg.Matching.HeuristicThreshold,
		GlobalThreshold:    cfg.Matching.GlobalThreshold,
		Window:             cfg.Matching.ProximityWindow,
		Workers:            cfg.Matching.Workers,
		Logger:             log,
	}

	var mergeErr error
	prev := base
	for _, pair := range pairs {
		pr, next, err := step(ctx, deps.Extractor, pair, prev, reg, norm, matchOpts, res)
		if err != nil {
			var inErr *InputError
			if errors.As(err, &inErr) {
				return nil, err
			}
			mergeErr = &MergeError{Pair: pair.Index, Left: pair.Left.Name, Right: pair.Right.Name, Err: err}
			log.Error("consolidation stopped early", "pair", pair.Index, "err", err)
			break
		}
		res.Pairs = append(res.Pairs, pr)
		revs = append(revs, next)
		prev = next
	}
	res.Partial = mergeErr != nil

	if err := finish(ctx, cfg, deps, reg, revs, res, log); err != nil {
		return nil, errors.Join(err, mergeErr)
	}
	res.Duration = deps.Now().Sub(started)
	record(ctx, cfg, res, started, deps.Now(), mergeErr, log)
	log.Info("consolidation finished", "output_pages", res.OutputPages, "trackers", res.Trackers,
		"changed_sections", res.Changed, "manifest", res.Manifest, "partial", res.Partial)
	return res, mergeErr
}

func load(ctx context.Context, ex Extractor, f sequence.File, norm *textnorm.Normalizer, res *Result) (*document.Revision, error) {
	x, err := ex.Extract(ctx, f.Path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", f.Name, err)
	}
	rev, err := document.NewRevision(f.Name, f.Label, f.Path, x.Texts, x.SectionMap, norm)
	if err != nil {
		return nil, &InputError{Reason: "empty revision", Err: err}
	}
	res.Revisions = append(res.Revisions, RevisionResult{
		File:        f,
		Pages:       rev.PageCount(),
		Sections:    len(rev.Sections),
		Source:      x.Source,
		FailedPages: x.Failed,
	})
	return rev, nil
}

func step(ctx context.Context, ex Extractor, pair sequence.Pair, prev *document.Revision, reg *consolidate.Registry,
	norm *textnorm.Normalizer, opts compare.Options, res *Result) (PairResult, *document.Revision, error) {
	if err := ctx.Err(); err != nil {
		return PairResult{}, nil, err
	}
	next, err := load(ctx, ex, pair.Right, norm, res)
	if err != nil {
		return PairResult{}, nil, err
	}
	// The memo only lives for one pair.
	opts.Scorer = similarity.NewScorer()
	rep := compare.Compare(prev, next, opts)
	calls, hits := opts.Scorer.Stats()
	sum, err := reg.MergeRevision(rep, next)
	if err != nil {
		return PairResult{}, nil, err
	}
	return PairResult{
		Index:      pair.Index,
		Left:       pair.Left.Name,
		Right:      pair.Right.Name,
		Stats:      rep.Stats(),
		Changes:    rep.Changes(prev, next),
		Merge:      sum,
		Similarity: ScorerStats{Calls: calls, Hits: hits},
	}, next, nil
}

func finish(ctx context.Context, cfg config.Config, deps Deps, reg *consolidate.Registry, revs []*document.Revision, res *Result, log *slog.Logger) error {
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("consolidated state: %w", err)
	}
	plan, err := output.NewPlan(reg, revs)
	if err != nil {
		return err
	}
	plan.RunID = res.RunID
	if deps.Annotator != nil {
		// Notes are best effort; a cancelled context only stops annotating.
		failed, err := plan.Annotate(ctx, deps.Annotator)
		if failed > 0 || err != nil {
			log.Warn("change notes incomplete", "failed", failed, "err", err)
		}
	}

	outDir := cfg.Output.Dir
	if outDir == "" {
		outDir = "."
	}
	manifest := cfg.Output.Manifest
	if !filepath.IsAbs(manifest) {
		manifest = filepath.Join(outDir, manifest)
	}
	if err := output.WriteManifest(manifest, plan); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	res.Manifest = manifest
	if cfg.Output.Docs {
		files, err := output.WriteDocs(filepath.Join(outDir, "docs"), plan, output.DocsOptions{
			SiteName:   cfg.Output.SiteName,
			SlugPrefix: cfg.Output.SlugPrefix,
		})
		if err != nil {
			return fmt.Errorf("write docs: %w", err)
		}
		res.Docs = files
	}

	res.plan = plan
	res.OutputPages = len(plan.Pages)
	res.Trackers = len(plan.Sections)
	for _, s := range plan.Sections {
		if s.Changed {
			res.Changed++
		}
	}
	return nil
}

// record appends the run to the history database. Failures are logged only.
func record(ctx context.Context, cfg config.Config, res *Result, started, finished time.Time, runErr error, log *slog.Logger) {
	if cfg.History.Path == "" {
		return
	}
	// Record even when the run itself was cancelled.
	ctx = context.WithoutCancel(ctx)
	store, err := history.Open(ctx, cfg.History.Path)
	if err != nil {
		log.Warn("run history unavailable", "path", cfg.History.Path, "err", err)
		return
	}
	defer store.Close()

	run := history.Run{
		ID:          res.RunID,
		InputDir:    res.InputDir,
		StartedAt:   started,
		FinishedAt:  finished,
		Revisions:   len(res.Revisions),
		OutputPages: res.OutputPages,
		Trackers:    res.Trackers,
		Manifest:    res.Manifest,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	for _, p := range res.Pairs {
		run.Pairs = append(run.Pairs, history.Pair{
			Index:       p.Index,
			Left:        p.Left,
			Right:       p.Right,
			Identical:   p.Stats.Identical,
			Modified:    p.Stats.Modified,
			Deleted:     p.Stats.Deleted,
			Added:       p.Stats.Added,
			Versions:    p.Merge.Count(consolidate.EventVersion),
			NewSections: p.Merge.Count(consolidate.EventNewSection),
			Duplicates:  p.Merge.Count(consolidate.EventDuplicate),
			PagesAdded:  p.Merge.PagesAdded(),
		})
	}
	if err := store.RecordRun(ctx, run); err != nil {
		log.Warn("run history not recorded", "err", err)
	}
}
