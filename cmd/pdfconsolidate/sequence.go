package main

import (
	"github.com/spf13/cobra"

	"github.com/22adi66/pdf-consolidation-system/internal/sequence"
)

func sequenceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sequence <dir>",
		Short: "Show the revision order and the pairs a consolidation would compare",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := sequence.Discover(args[0])
			if err != nil {
				return err
			}
			pairs, err := sequence.Pairs(files)
			if err != nil {
				a.log.Warn("nothing to compare", "dir", args[0], "revisions", len(files))
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Files []sequence.File `json:"files"`
				Pairs []sequence.Pair `json:"pairs"`
			}{files, pairs})
		},
	}
}
