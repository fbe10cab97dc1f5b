package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/predictor"
)

// batchColumns は入力CSVの列名 (小文字) → 量
var batchColumns = map[string]string{
	"temperature":         "temperature",
	"temp":                "temperature",
	"concentration":       "concentration",
	"yeast_concentration": "concentration",
	"yeast":               "concentration",
	"duration":            "duration",
	"fermentation_time":   "duration",
	"time":                "duration",
}

// readQueries はヘッダー付きCSVから問い合わせを読む
// 空のセルは未指定、数値でないセルは NaN (その行だけが失敗する) になる
func readQueries(r io.Reader) ([]predictor.Query, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse batch csv")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "batch csv has no header")
	}

	index := map[string]int{}
	for i, name := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if q, ok := batchColumns[key]; ok {
			index[q] = i
		}
	}
	if len(index) == 0 {
		return nil, errors.NewValidationError("batch header",
			"needs temperature, concentration or duration columns", strings.Join(records[0], ","))
	}

	cell := func(rec []string, q string) *float64 {
		i, ok := index[q]
		if !ok || i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			v = math.NaN()
		}
		return &v
	}

	queries := make([]predictor.Query, 0, len(records)-1)
	for _, rec := range records[1:] {
		queries = append(queries, predictor.Query{
			Temperature:   cell(rec, "temperature"),
			Concentration: cell(rec, "concentration"),
			Duration:      cell(rec, "duration"),
		})
	}
	return queries, nil
}

type batchRow struct {
	Index      int                   `json:"row_index"`
	Prediction *predictor.Prediction `json:"prediction,omitempty"`
	Error      string                `json:"error,omitempty"`
}

func newBatchCommand(a *app) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Predict every row of a CSV file",
		Long: `Each row of the input gives two of temperature, concentration
(or yeast_concentration) and duration (or fermentation_time); the empty one is
predicted. A failing row is reported and does not stop the batch.`,
		Example: `  fermpredict batch --input queries.csv -o json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(input)
			if err != nil {
				return errors.NewDataSourceError(input, err)
			}
			defer f.Close()

			queries, err := readQueries(f)
			if err != nil {
				return err
			}
			p, err := a.newPredictor()
			if err != nil {
				return err
			}

			results := p.PredictBatch(queries)
			rows := make([]batchRow, len(results))
			for i, r := range results {
				rows[i] = batchRow{Index: r.Index, Prediction: r.Prediction}
				if r.Err != nil {
					rows[i].Error = r.Err.Error()
				}
			}
			return a.print(cmd.OutOrStdout(), rows, func(w io.Writer) error {
				for _, r := range rows {
					if r.Prediction == nil {
						fmt.Fprintf(w, "row %d: error: %s\n", r.Index, r.Error)
						continue
					}
					pr := r.Prediction
					fmt.Fprintf(w, "row %d: %s = %.4g %s [%.4g, %.4g] (%s)\n", r.Index,
						pr.Target, pr.Value, pr.Unit,
						pr.ConfidenceInterval.Lower, pr.ConfidenceInterval.Upper, pr.ModelUsed)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV file with one query per row")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
