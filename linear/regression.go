package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

// LinearRegression は最小二乗法による線形回帰モデル
type LinearRegression struct {
	model.BaseEstimator // BaseEstimatorを埋め込み
	Coefficients []float64 // 重み（係数）
	Intercept    float64   // 切片
	NFeatures    int       // 特徴量の数
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Clone は同じ設定の未学習モデルを返す
func (lr *LinearRegression) Clone() model.Regressor {
	return NewLinearRegression()
}

// Fit はモデルを訓練データで学習させる
//
// X と y を列平均で中心化し、SVD で最小ノルムの最小二乗解を求める。
// 観測が未知数より少ない場合や列が重複する場合も、しきい値以下の特異値を
// 捨てたランクで解く。切片は平均から戻す。
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	xMean := make([]float64, c)
	var yMean float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			xMean[j] += X.At(i, j)
		}
		yMean += y.At(i, 0)
	}
	for j := range xMean {
		xMean[j] /= float64(r)
	}
	yMean /= float64(r)

	centered := mat.NewDense(r, c, nil)
	target := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			centered.Set(i, j, X.At(i, j)-xMean[j])
		}
		target.Set(i, 0, y.At(i, 0)-yMean)
	}
	if !finiteDense(centered) || !finiteDense(target) {
		return errors.NewNotFittableError("LinearRegression",
			errors.NewValueError("LinearRegression.Fit", "input contains NaN or Inf"))
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return errors.NewNotFittableError("LinearRegression", errors.Wrap(errors.ErrSingularMatrix, "svd factorization failed"))
	}
	// 最大特異値に対する相対しきい値 max(r, c)·eps 以下の特異値は捨てる
	rank := svd.Rank(float64(max(r, c)) * eps)

	coef := make([]float64, c)
	// ランク0 (全ての列が定数) なら係数は0、予測は y の平均
	if rank > 0 {
		var w mat.Dense
		svd.SolveTo(&w, target, rank)
		for j := 0; j < c; j++ {
			coef[j] = w.At(j, 0)
		}
	}

	intercept := yMean
	for j := 0; j < c; j++ {
		intercept -= xMean[j] * coef[j]
	}

	lr.NFeatures = c
	lr.Intercept = intercept
	lr.Coefficients = coef
	lr.SetFitted()
	return nil
}

// eps は float64 の計算機イプシロン
var eps = math.Nextafter(1, 2) - 1

func finiteDense(m *mat.Dense) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "Predict")
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	// y = X * weights + intercept
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.Intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.Coefficients[j]
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// GetWeights は学習された重み（係数）を返す
func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Coefficients == nil {
		return nil
	}
	return append([]float64(nil), lr.Coefficients...)
}

// GetIntercept は学習された切片を返す
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Intercept
}
