package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/22adi66/pdf-consolidation-system/internal/pdfdoc"
	"github.com/22adi66/pdf-consolidation-system/internal/pipeline"
)

func consolidateCmd(a *app) *cobra.Command {
	var (
		out        string
		manifest   string
		docs       bool
		siteName   string
		slugPrefix string
		scope      string
		fuzzy      float64
		useToC     bool
		tocPages   int
		maxDepth   int
		fallback   string
		aiProvider string
		aiModel    string
		historyDB  string
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "consolidate <dir>",
		Short: "Merge every revision PDF in a directory into one consolidated manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			cfg := &a.cfg
			if f.Changed("out") {
				cfg.Output.Dir = out
			}
			if f.Changed("manifest") {
				cfg.Output.Manifest = manifest
			}
			if f.Changed("docs") {
				cfg.Output.Docs = docs
			}
			if f.Changed("site-name") {
				cfg.Output.SiteName = siteName
			}
			if f.Changed("slug-prefix") {
				cfg.Output.SlugPrefix = slugPrefix
			}
			if f.Changed("scope") {
				cfg.Consolidation.Scope = scope
			}
			if f.Changed("fuzzy-threshold") {
				cfg.Consolidation.FuzzyThreshold = fuzzy
			}
			if f.Changed("toc") {
				cfg.Extraction.UseToC = useToC
			}
			if f.Changed("toc-pages") {
				cfg.Extraction.ToCPages = tocPages
			}
			if f.Changed("max-depth") {
				cfg.Extraction.MaxDepth = maxDepth
			}
			if f.Changed("fallback") {
				cfg.Extraction.Fallback = fallback
			}
			if f.Changed("ai") {
				cfg.AI.Provider = aiProvider
			}
			if f.Changed("ai-model") {
				cfg.AI.Model = aiModel
			}
			if f.Changed("history") {
				cfg.History.Path = historyDB
			}
			if f.Changed("workers") {
				cfg.Matching.Workers = workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			annotator, err := a.annotator(ctx)
			if err != nil {
				return err
			}
			deps := pipeline.Deps{Logger: a.log}
			var repair pdfdoc.ToCRepairer
			if annotator != nil {
				repair = annotator
				deps.Annotator = annotator
			}
			deps.Extractor = a.extractor(repair)

			res, err := pipeline.Run(ctx, args[0], *cfg, deps)
			var mergeErr *pipeline.MergeError
			if err != nil && !errors.As(err, &mergeErr) {
				return err
			}
			if res != nil {
				if werr := writeJSON(cmd.OutOrStdout(), res); werr != nil {
					return werr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default: current directory)")
	cmd.Flags().StringVar(&manifest, "manifest", "", "manifest file name, relative to --out unless absolute")
	cmd.Flags().BoolVar(&docs, "docs", false, "also write MDX pages and docs.json")
	cmd.Flags().StringVar(&siteName, "site-name", "", "site name for docs.json")
	cmd.Flags().StringVar(&slugPrefix, "slug-prefix", "", "prefix for page slugs (e.g., protocol)")
	cmd.Flags().StringVar(&scope, "scope", "", "pages emitted for a new version: section (the whole section, default) or changed (only its modified and added pages)")
	cmd.Flags().Float64Var(&fuzzy, "fuzzy-threshold", 0, "title similarity needed to match a renamed section")
	cmd.Flags().BoolVar(&useToC, "toc", true, "use Table of Contents splitting when the PDF has no outline")
	cmd.Flags().IntVar(&tocPages, "toc-pages", 0, "number of leading pages scanned for a Table of Contents")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum outline depth used for sections (0 = all)")
	cmd.Flags().StringVar(&fallback, "fallback", "", "sections when no outline or ToC: document|none")
	cmd.Flags().StringVar(&aiProvider, "ai", "", "AI provider for change notes: off|gemini")
	cmd.Flags().StringVar(&aiModel, "ai-model", "", "AI model name")
	cmd.Flags().StringVar(&historyDB, "history", "", "SQLite file recording each run")
	cmd.Flags().IntVar(&workers, "workers", 0, "goroutines for the similarity matrix (0 = GOMAXPROCS)")
	return cmd
}
