package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func newSummaryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show statistics of the training data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.newPredictor()
			if err != nil {
				return err
			}
			s, err := p.DataSummary()
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), s, func(w io.Writer) error {
				return writeSummary(w, s)
			})
		},
	}
}
