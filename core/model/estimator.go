package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	// X は N×2 の特徴量行列、y は N×1 の列ベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行い N×1 の行列を返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor は全ての回帰バリアントが満たす共通の契約
type Regressor interface {
	Fitter
	Predictor
	IsFitted() bool
}

// Cloner は同じハイパーパラメータを持つ未学習のコピーを作れるモデル
// 交差検証は各フォールドごとに Clone したモデルを学習させる
type Cloner interface {
	Clone() Regressor
}

// ColumnVector は y を N×1 の *mat.Dense に揃える
// mat.VecDense も N×1 の mat.Matrix なのでそのまま受け付ける
func ColumnVector(values []float64) *mat.Dense {
	return mat.NewDense(len(values), 1, append([]float64(nil), values...))
}

// Column は N×1 行列の値をスライスとして取り出す
func Column(m mat.Matrix) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.At(i, 0)
	}
	return out
}
