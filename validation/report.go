package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/YuminosukeSato/fermpredict/bank"
)

// Report は検証結果を Target ごとに CVRMSE 順で整形する
func Report(results Results, selection map[bank.Target]string) string {
	var sb strings.Builder
	rule := strings.Repeat("=", 72)
	sb.WriteString(rule + "\n")
	sb.WriteString("MODEL VALIDATION REPORT\n")
	sb.WriteString(rule + "\n")

	for _, target := range bank.Targets {
		ranked := Ranked(results, target)
		if len(ranked) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s PREDICTION MODELS:\n", strings.ToUpper(target.String()))
		sb.WriteString(strings.Repeat("-", 40) + "\n")
		for _, r := range ranked {
			m := r.Metrics
			marker := " "
			if selection != nil && selection[target] == r.Variant {
				marker = "*"
			}
			fmt.Fprintf(&sb, "%s %-22s RMSE %s  MAE %s  R² %s  CV-RMSE %s ± %s\n",
				marker, r.Variant, num(m.RMSE), num(m.MAE), num(m.R2), num(m.CVRMSE), num(m.CVStd))
		}
		if c, ok := Compare(results, target); ok && c.ModelCount > 1 {
			fmt.Fprintf(&sb, "  best %s improves on %s by %.1f%%\n", c.BestModel, c.WorstModel, c.ImprovementPercent)
		}
	}
	sb.WriteString("\n" + rule + "\n")
	return sb.String()
}

func num(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return fmt.Sprintf("%.4f", v)
	}
}
