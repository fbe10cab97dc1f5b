package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/fermpredict/bank"
	"github.com/YuminosukeSato/fermpredict/validation"
)

func newTrainCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Retrain all models, validate them and select the best per target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.newPredictor()
			if err != nil {
				return err
			}
			if err := p.Train(true); err != nil {
				return err
			}
			results, err := p.Performance()
			if err != nil {
				return err
			}
			selection := p.Selection()

			type trained struct {
				Selection map[bank.Target]string `json:"selection"`
				Results   validation.Results     `json:"results"`
				ModelDir  string                 `json:"model_dir,omitempty"`
			}
			v := trained{Selection: selection, Results: results, ModelDir: a.cfg.Models.Dir}
			return a.print(cmd.OutOrStdout(), v, func(w io.Writer) error {
				fmt.Fprintf(w, "Trained %d models\n", p.Bank().Len())
				for _, t := range bank.Targets {
					if name, ok := selection[t]; ok {
						fmt.Fprintf(w, "  %-14s %s\n", t.String()+":", name)
					}
				}
				if a.cfg.Models.Dir != "" {
					fmt.Fprintf(w, "Models saved to %s\n", a.cfg.Models.Dir)
				}
				return nil
			})
		},
	}
}
