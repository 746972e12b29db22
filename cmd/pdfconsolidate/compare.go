package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/22adi66/pdf-consolidation-system/internal/compare"
	"github.com/22adi66/pdf-consolidation-system/internal/report"
	"github.com/22adi66/pdf-consolidation-system/internal/similarity"
)

type compareOutput struct {
	*compare.Report
	Stats    compare.Stats           `json:"stats"`
	Sections []compare.SectionChange `json:"sections"`
}

func compareCmd(a *app) *cobra.Command {
	var (
		diff    bool
		context int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "compare <old.pdf> <new.pdf>",
		Short: "Match the pages of two revisions and report what changed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ex := a.extractor(nil)
			left, err := a.revision(ctx, ex, filepath.Base(args[0]), args[0])
			if err != nil {
				return err
			}
			right, err := a.revision(ctx, ex, filepath.Base(args[1]), args[1])
			if err != nil {
				return err
			}

			m := a.cfg.Matching
			rep := compare.Compare(left, right, compare.Options{
				HeuristicThreshold: m.HeuristicThreshold,
				GlobalThreshold:    m.GlobalThreshold,
				Window:             m.ProximityWindow,
				Workers:            m.Workers,
				Scorer:             similarity.NewScorer(),
				Logger:             a.log,
			})
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), compareOutput{
					Report:   rep,
					Stats:    rep.Stats(),
					Sections: rep.Changes(left, right),
				})
			}
			return report.Render(cmd.OutOrStdout(), rep, left, right, report.Options{Diff: diff, Context: context})
		},
	}
	cmd.Flags().BoolVar(&diff, "diff", false, "show a unified diff of every modified page")
	cmd.Flags().IntVar(&context, "context", 2, "unchanged lines around each diff hunk")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the match report as JSON")
	return cmd
}
