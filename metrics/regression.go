package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

// Scores は1組の観測値と予測値から計算した回帰指標
type Scores struct {
	MSE  float64
	RMSE float64
	MAE  float64
	R2   float64
}

func checkPair(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if len(yPred) != len(yTrue) {
		return errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := range yTrue {
		diff := yTrue[i] - yPred[i]
		sum += diff * diff
	}
	return sum / float64(len(yTrue)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	// MAE = (1/n) * Σ|yTrue - yPred|
	var sum float64
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue)), nil
}

// R2Score は決定係数（R²）を計算する
//
// yTrue の分散が0のときは、完全一致なら1、そうでなければ0を返す。
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}

	yMean := floats.Sum(yTrue) / float64(len(yTrue))

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := range yTrue {
		tss += (yTrue[i] - yMean) * (yTrue[i] - yMean)
		rss += (yTrue[i] - yPred[i]) * (yTrue[i] - yPred[i])
	}

	if tss == 0 {
		if rss == 0 {
			return 1, nil
		}
		return 0, nil
	}
	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

// MAPE は平均絶対パーセンテージ誤差を計算する
// yTrue が0の要素は除外する
func MAPE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MAPE", yTrue, yPred); err != nil {
		return 0, err
	}

	var sum float64
	validCount := 0
	for i := range yTrue {
		if yTrue[i] != 0 { // ゼロ除算を避ける
			sum += math.Abs(yTrue[i]-yPred[i]) / math.Abs(yTrue[i])
			validCount++
		}
	}
	if validCount == 0 {
		return 0, errors.Newf("MAPE: all yTrue values are zero")
	}
	return (sum / float64(validCount)) * 100, nil
}

// Evaluate はMSE/RMSE/MAE/R²をまとめて計算する
func Evaluate(yTrue, yPred []float64) (Scores, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return Scores{}, err
	}
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return Scores{}, err
	}
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		return Scores{}, err
	}
	return Scores{MSE: mse, RMSE: math.Sqrt(mse), MAE: mae, R2: r2}, nil
}

// EvaluateMatrix は N×1 行列の入力に対して Evaluate を行う
func EvaluateMatrix(yTrue, yPred mat.Matrix) (Scores, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 {
		return Scores{}, errors.NewValueError("EvaluateMatrix", "empty matrix")
	}
	if rTrue != rPred {
		return Scores{}, errors.NewDimensionError("EvaluateMatrix", rTrue, rPred, 0)
	}
	if cTrue != 1 || cPred != 1 {
		return Scores{}, errors.NewValueError("EvaluateMatrix", "must be a column vector (n×1 matrix)")
	}
	return Evaluate(mat.Col(nil, 0, yTrue), mat.Col(nil, 0, yPred))
}
