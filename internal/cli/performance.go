package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/fermpredict/bank"
	"github.com/YuminosukeSato/fermpredict/validation"
)

func newPerformanceCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "performance",
		Short: "Show validation metrics for every model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.newPredictor()
			if err != nil {
				return err
			}
			results, err := p.Performance()
			if err != nil {
				return err
			}

			best := make(map[bank.Target]string, len(bank.Targets))
			comparisons := make(map[bank.Target]validation.Comparison, len(bank.Targets))
			for _, t := range bank.Targets {
				if name, ok := validation.SelectBest(results, t); ok {
					best[t] = name
				}
				if c, ok := validation.Compare(results, t); ok {
					comparisons[t] = c
				}
			}

			type performance struct {
				Results     validation.Results                    `json:"results"`
				Best        map[bank.Target]string                `json:"best"`
				Comparisons map[bank.Target]validation.Comparison `json:"comparisons"`
			}
			v := performance{Results: results, Best: best, Comparisons: comparisons}
			return a.print(cmd.OutOrStdout(), v, func(w io.Writer) error {
				_, err := io.WriteString(w, validation.Report(results, best))
				return err
			})
		},
	}
}
