package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/fermpredict/predictor"
)

func newPredictCommand(a *app) *cobra.Command {
	var temp, yeast, hours float64

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the missing parameter from the two given",
		Long: `Exactly two of --temp, --yeast and --time must be given; the third is
predicted. Inputs outside the typical range are reported as warnings but
still processed.`,
		Example: `  fermpredict predict --temp 15 --yeast 0.1
  fermpredict predict --temp 15 --time 50 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var q predictor.Query
			flags := cmd.Flags()
			if flags.Changed("temp") {
				q.Temperature = predictor.Given(temp)
			}
			if flags.Changed("yeast") {
				q.Concentration = predictor.Given(yeast)
			}
			if flags.Changed("time") {
				q.Duration = predictor.Given(hours)
			}

			p, err := a.newPredictor()
			if err != nil {
				return err
			}
			pred, err := p.Predict(q)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), pred, func(w io.Writer) error {
				return writePrediction(w, pred)
			})
		},
	}

	cmd.Flags().Float64Var(&temp, "temp", 0, "temperature in °C")
	cmd.Flags().Float64Var(&yeast, "yeast", 0, "yeast concentration in percent (0.1 means 0.1%)")
	cmd.Flags().Float64Var(&hours, "time", 0, "fermentation time in hours")
	return cmd
}
