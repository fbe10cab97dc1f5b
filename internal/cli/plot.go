package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/fermpredict/bank"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/report"
)

func newPlotCommand(a *app) *cobra.Command {
	var target, outDir, format string

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Draw predicted-vs-observed and residual plots for the best model",
		Example: `  fermpredict plot --target duration --out plots
  fermpredict plot --target temperature --format svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := bank.ParseTarget(target)
			if err != nil {
				return err
			}
			format = strings.ToLower(strings.TrimPrefix(format, "."))
			switch format {
			case "png", "svg", "pdf":
			default:
				return errors.NewValidationError("format", "must be png, svg or pdf", format)
			}

			p, err := a.newPredictor()
			if err != nil {
				return err
			}
			d, err := p.Diagnostics(t)
			if err != nil {
				return err
			}
			title := fmt.Sprintf("%s (%s)", t, d.ModelUsed)
			files, err := report.SaveDiagnostics(outDir, t.String(), title, d.Residuals, "."+format)
			if err != nil {
				return err
			}

			type plotted struct {
				Target            string  `json:"target"`
				ModelUsed         string  `json:"model_used"`
				PredictedVsActual string  `json:"predicted_vs_actual"`
				Residuals         string  `json:"residuals"`
				MeanResidual      float64 `json:"mean_residual"`
				StdResidual       float64 `json:"std_residual"`
			}
			v := plotted{
				Target:            t.String(),
				ModelUsed:         d.ModelUsed,
				PredictedVsActual: files.PredictedVsActual,
				Residuals:         files.Residuals,
				MeanResidual:      d.Residuals.Mean,
				StdResidual:       d.Residuals.Std,
			}
			return a.print(cmd.OutOrStdout(), v, func(w io.Writer) error {
				fmt.Fprintf(w, "%s\n%s\n", files.PredictedVsActual, files.Residuals)
				fmt.Fprintf(w, "residual mean %.4g, std %.4g, range [%.4g, %.4g]\n",
					d.Residuals.Mean, d.Residuals.Std, d.Residuals.Min, d.Residuals.Max)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&target, "target", "duration", "duration, temperature or concentration")
	cmd.Flags().StringVar(&outDir, "out", "plots", "output directory")
	cmd.Flags().StringVar(&format, "format", "png", "image format: png, svg or pdf")
	return cmd
}
