package bank

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/ensemble"
	"github.com/YuminosukeSato/fermpredict/kinetics"
	"github.com/YuminosukeSato/fermpredict/linear"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

// VariantKind は回帰モデルの系統
type VariantKind int

const (
	KindLinear VariantKind = iota
	KindPolynomial
	KindRandomForest
	KindArrhenius
)

func (k VariantKind) String() string {
	switch k {
	case KindLinear:
		return "Linear"
	case KindPolynomial:
		return "Polynomial"
	case KindRandomForest:
		return "RandomForest"
	case KindArrhenius:
		return "Arrhenius"
	default:
		return "Unknown"
	}
}

const polynomialPrefix = "Polynomial_degree_"

// VariantSpec はバリアントを名前付きで構築するためのタグ付き共用体
// Kind によって意味を持つフィールドが変わる
type VariantSpec struct {
	Kind VariantKind
	// Degree は KindPolynomial の次数
	Degree int
	// Estimators, Seed, Workers は KindRandomForest の設定
	Estimators int
	Seed       uint64
	Workers    int
}

// Name はバリアント名を返す。保存ファイル名にも使われる
func (s VariantSpec) Name() string {
	if s.Kind == KindPolynomial {
		return fmt.Sprintf("%s%d", polynomialPrefix, s.Degree)
	}
	return s.Kind.String()
}

// AppliesTo は Target に対してこのバリアントを学習するかどうかを返す
// アレニウス型は時間の予測にのみ使う
func (s VariantSpec) AppliesTo(t Target) bool {
	if s.Kind == KindArrhenius {
		return t == Duration
	}
	return true
}

// New は未学習のモデルを作る
func (s VariantSpec) New() (model.Regressor, error) {
	switch s.Kind {
	case KindLinear:
		return linear.NewLinearRegression(), nil
	case KindPolynomial:
		return linear.NewPolynomialRegression(s.Degree)
	case KindRandomForest:
		return ensemble.NewRandomForestRegressor(
			ensemble.WithEstimators(s.Estimators),
			ensemble.WithSeed(s.Seed),
			ensemble.WithWorkers(s.Workers),
		), nil
	case KindArrhenius:
		return kinetics.NewArrheniusModel(), nil
	default:
		return nil, errors.Newf("unknown variant kind %d", s.Kind)
	}
}

// rank は同じ Target 内の並び順
func (s VariantSpec) rank() int {
	return int(s.Kind)*16 + s.Degree
}

// ParseVariantName は保存された名前からバリアントを復元する
// 未知の名前は ok=false
func ParseVariantName(name string) (VariantSpec, bool) {
	switch {
	case name == KindLinear.String():
		return VariantSpec{Kind: KindLinear}, true
	case name == KindRandomForest.String():
		return VariantSpec{Kind: KindRandomForest, Estimators: ensemble.DefaultEstimators, Seed: ensemble.DefaultSeed}, true
	case name == KindArrhenius.String():
		return VariantSpec{Kind: KindArrhenius}, true
	case strings.HasPrefix(name, polynomialPrefix):
		degree, err := strconv.Atoi(strings.TrimPrefix(name, polynomialPrefix))
		if err != nil || (degree != 2 && degree != 3) {
			return VariantSpec{}, false
		}
		return VariantSpec{Kind: KindPolynomial, Degree: degree}, true
	default:
		return VariantSpec{}, false
	}
}

// DefaultSpecs は学習順のバリアント一覧を返す
func DefaultSpecs(degrees []int, estimators int, seed uint64, workers int) []VariantSpec {
	specs := []VariantSpec{{Kind: KindLinear}}
	for _, d := range degrees {
		specs = append(specs, VariantSpec{Kind: KindPolynomial, Degree: d})
	}
	specs = append(specs,
		VariantSpec{Kind: KindRandomForest, Estimators: estimators, Seed: seed, Workers: workers},
		VariantSpec{Kind: KindArrhenius},
	)
	return specs
}
