package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/preprocessing"
)

// PolynomialRegression は多項式特徴量に対する線形回帰
//
// 入力を標準化してから次数 Degree までの単項式（交差項を含む）に展開し、
// LinearRegression で係数を求める。標準化は高次項の桁落ちを抑える。
type PolynomialRegression struct {
	model.BaseEstimator
	Degree   int
	Scaler   *preprocessing.StandardScaler
	Features *preprocessing.PolynomialFeatures
	Linear   *LinearRegression
}

// NewPolynomialRegression は次数2または3の多項式回帰モデルを作成する
func NewPolynomialRegression(degree int) (*PolynomialRegression, error) {
	if degree != 2 && degree != 3 {
		return nil, errors.NewValidationError("degree", "polynomial degree must be 2 or 3", degree)
	}
	return &PolynomialRegression{Degree: degree}, nil
}

// Name はバリアント名（例: Polynomial_degree_2）を返す
func (p *PolynomialRegression) Name() string {
	return fmt.Sprintf("Polynomial_degree_%d", p.Degree)
}

// Clone は同じ次数の未学習モデルを返す
func (p *PolynomialRegression) Clone() model.Regressor {
	return &PolynomialRegression{Degree: p.Degree}
}

// Fit はモデルを学習させる
func (p *PolynomialRegression) Fit(X, y mat.Matrix) error {
	scaler := preprocessing.NewStandardScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		return err
	}
	features, err := preprocessing.NewPolynomialFeatures(p.Degree)
	if err != nil {
		return err
	}
	expanded, err := features.Transform(scaled)
	if err != nil {
		return err
	}
	lin := NewLinearRegression()
	if err := lin.Fit(expanded, y); err != nil {
		var nf *errors.NotFittableError
		if errors.As(err, &nf) {
			return errors.NewNotFittableError(p.Name(), nf.Err)
		}
		return err
	}

	p.Scaler = scaler
	p.Features = features
	p.Linear = lin
	p.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (p *PolynomialRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError(p.Name(), "Predict")
	}
	scaled, err := p.Scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	expanded, err := p.Features.Transform(scaled)
	if err != nil {
		return nil, err
	}
	return p.Linear.Predict(expanded)
}
