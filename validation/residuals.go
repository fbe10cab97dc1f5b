package validation

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

// ResidualAnalysis は残差 (観測 − 予測) の要約
type ResidualAnalysis struct {
	Residuals   []float64 `json:"residuals"`
	Predictions []float64 `json:"predictions"`
	Actual      []float64 `json:"actual"`
	Mean        float64   `json:"mean_residual"`
	Std         float64   `json:"std_residual"`
	Min         float64   `json:"min_residual"`
	Max         float64   `json:"max_residual"`
}

// Residuals は学習済みモデルの残差を計算する
func Residuals(m model.Regressor, X, y mat.Matrix) (*ResidualAnalysis, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return nil, err
	}
	actual := model.Column(y)
	predictions := model.Column(pred)
	if len(actual) == 0 {
		return nil, errors.NewModelError("validation.Residuals", "empty data", errors.ErrEmptyData)
	}
	if len(actual) != len(predictions) {
		return nil, errors.NewDimensionError("validation.Residuals", len(actual), len(predictions), 0)
	}

	residuals := make([]float64, len(actual))
	floats.SubTo(residuals, actual, predictions)
	mean, std := stat.PopMeanStdDev(residuals, nil)
	return &ResidualAnalysis{
		Residuals:   residuals,
		Predictions: predictions,
		Actual:      actual,
		Mean:        mean,
		Std:         std,
		Min:         floats.Min(residuals),
		Max:         floats.Max(residuals),
	}, nil
}
