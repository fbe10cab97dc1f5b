package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/YuminosukeSato/fermpredict/dataset"
	"github.com/YuminosukeSato/fermpredict/predictor"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func writePrediction(w io.Writer, p *predictor.Prediction) error {
	rule := strings.Repeat("=", 50)
	fmt.Fprintln(w, "FERMENTATION PREDICTION RESULT")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Predicted %s: %.2f %s\n", title(p.Target), p.Value, p.Unit)
	fmt.Fprintf(w, "Confidence Interval: [%.2f, %.2f] %s\n",
		p.ConfidenceInterval.Lower, p.ConfidenceInterval.Upper, p.Unit)

	fmt.Fprintln(w, "\nInput Parameters:")
	names := make([]string, 0, len(p.Inputs))
	for name := range p.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %g\n", title(name), p.Inputs[name])
	}

	fmt.Fprintf(w, "\nModel Used: %s\n", p.ModelUsed)
	if len(p.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warn := range p.Warnings {
			fmt.Fprintf(w, "  %s\n", warn)
		}
	}
	return nil
}

func writeSummary(w io.Writer, s dataset.Summary) error {
	fmt.Fprintln(w, "TRAINING DATA SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "Total Samples: %d\n", s.TotalSamples)
	fmt.Fprintf(w, "Temperature Range: %.1f°C - %.1f°C\n", s.TemperatureRange.Min, s.TemperatureRange.Max)
	fmt.Fprintf(w, "Yeast Concentration Range: %.3f%% - %.3f%%\n", s.ConcentrationRange.Min, s.ConcentrationRange.Max)
	fmt.Fprintf(w, "Fermentation Time Range: %.1fh - %.1fh\n", s.DurationRange.Min, s.DurationRange.Max)
	fmt.Fprintf(w, "Skipped Cells: %d\n", s.SkippedCells)
	fmt.Fprintf(w, "Outliers Removed: %d\n", s.OutliersRemoved)
	return nil
}
