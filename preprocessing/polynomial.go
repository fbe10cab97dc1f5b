package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

// PolynomialFeatures は入力特徴量を次数 Degree までの単項式に展開する
//
// バイアス列は含まない。交差項を含み、次数の低い順、
// 各次数の中では添字の辞書順に並ぶ。2特徴・2次なら
// [x0, x1, x0², x0·x1, x1²] になる。
type PolynomialFeatures struct {
	Degree int
}

// NewPolynomialFeatures はPolynomialFeaturesを作成する
func NewPolynomialFeatures(degree int) (*PolynomialFeatures, error) {
	if degree < 1 {
		return nil, errors.NewValidationError("degree", "must be at least 1", degree)
	}
	return &PolynomialFeatures{Degree: degree}, nil
}

// Powers は各出力列の指数の組を返す
func (p *PolynomialFeatures) Powers(nFeatures int) [][]int {
	var out [][]int
	var combo []int
	var rec func(start, remaining int)
	rec = func(start, remaining int) {
		if remaining == 0 {
			powers := make([]int, nFeatures)
			for _, idx := range combo {
				powers[idx]++
			}
			out = append(out, powers)
			return
		}
		for i := start; i < nFeatures; i++ {
			combo = append(combo, i)
			rec(i, remaining-1)
			combo = combo[:len(combo)-1]
		}
	}
	for d := 1; d <= p.Degree; d++ {
		rec(0, d)
	}
	return out
}

// NOutputFeatures は展開後の列数を返す
func (p *PolynomialFeatures) NOutputFeatures(nFeatures int) int {
	return len(p.Powers(nFeatures))
}

// Transform はXを展開した行列を返す
func (p *PolynomialFeatures) Transform(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError("PolynomialFeatures.Transform", "empty data", errors.ErrEmptyData)
	}
	powers := p.Powers(c)
	out := mat.NewDense(r, len(powers), nil)
	for i := 0; i < r; i++ {
		for k, pw := range powers {
			v := 1.0
			for j, e := range pw {
				for n := 0; n < e; n++ {
					v *= X.At(i, j)
				}
			}
			out.Set(i, k, v)
		}
	}
	return out, nil
}
