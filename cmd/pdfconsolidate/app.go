package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/22adi66/pdf-consolidation-system/internal/ai"
	"github.com/22adi66/pdf-consolidation-system/internal/config"
	"github.com/22adi66/pdf-consolidation-system/internal/document"
	"github.com/22adi66/pdf-consolidation-system/internal/logging"
	"github.com/22adi66/pdf-consolidation-system/internal/pdfdoc"
	"github.com/22adi66/pdf-consolidation-system/internal/textnorm"
)

var errNoHistory = errors.New("no history database: pass a path or set history.path")

// app holds what every subcommand shares: the loaded configuration and the
// logger writing to stderr.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg config.Config
	log *slog.Logger
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	log, err := logging.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// annotator returns the configured AI annotator, or nil when AI is off.
func (a *app) annotator(ctx context.Context) (ai.Annotator, error) {
	if a.cfg.AI.Provider == "" || a.cfg.AI.Provider == "off" {
		return nil, nil
	}
	return ai.New(ctx, a.cfg.AI.Provider, a.cfg.AI.Model, a.cfg.AI.APIKeyEnv)
}

func (a *app) extractor(repair pdfdoc.ToCRepairer) *pdfdoc.Extractor {
	x := a.cfg.Extraction
	return pdfdoc.NewExtractor(pdfdoc.Options{
		UseToC:   x.UseToC,
		ToCPages: x.ToCPages,
		MaxDepth: x.MaxDepth,
		Fallback: pdfdoc.Fallback(x.Fallback),
		Repair:   repair,
		Logger:   a.log,
	})
}

// revision extracts and builds one revision outside a pipeline run.
func (a *app) revision(ctx context.Context, ex *pdfdoc.Extractor, id, path string) (*document.Revision, error) {
	norm, err := textnorm.New(a.cfg.Normalize.VolatilePatterns, a.cfg.Normalize.LabelPattern)
	if err != nil {
		return nil, err
	}
	x, err := ex.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	return document.NewRevision(id, "", path, x.Texts, x.SectionMap, norm)
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
