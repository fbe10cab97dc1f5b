// Package ensemble はバギングした回帰木の平均によるランダムフォレストを提供する。
package ensemble

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/core/parallel"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/tree"
)

const (
	// DefaultEstimators は木の本数の既定値
	DefaultEstimators = 100
	// DefaultSeed は乱数シードの既定値
	DefaultSeed = 42
)

// RandomForestRegressor はランダムフォレスト回帰
//
// 各木のシードとブートストラップ標本はマスターシードから前もって決めるため、
// ワーカー数やスケジューリングに関係なく同じ結果になる。
type RandomForestRegressor struct {
	model.BaseEstimator

	NEstimators int
	Seed        uint64
	MaxDepth    int
	MaxFeatures int
	Bootstrap   bool
	// Workers は並列に学習する木の数。0はNumCPU。保存されるが予測には影響しない
	Workers int

	Trees     []*tree.DecisionTreeRegressor
	NFeatures int
}

// Option はRandomForestRegressorの設定関数
type Option func(*RandomForestRegressor)

// WithEstimators は木の本数を設定する
func WithEstimators(n int) Option {
	return func(f *RandomForestRegressor) { f.NEstimators = n }
}

// WithSeed はマスターシードを設定する
func WithSeed(seed uint64) Option {
	return func(f *RandomForestRegressor) { f.Seed = seed }
}

// WithMaxDepth は各木の最大深さを設定する
func WithMaxDepth(depth int) Option {
	return func(f *RandomForestRegressor) { f.MaxDepth = depth }
}

// WithMaxFeatures は分割ごとの候補特徴量数を設定する
func WithMaxFeatures(n int) Option {
	return func(f *RandomForestRegressor) { f.MaxFeatures = n }
}

// WithWorkers は並列度を設定する
func WithWorkers(n int) Option {
	return func(f *RandomForestRegressor) { f.Workers = n }
}

// WithBootstrap はブートストラップ標本を使うかどうかを設定する
func WithBootstrap(b bool) Option {
	return func(f *RandomForestRegressor) { f.Bootstrap = b }
}

// NewRandomForestRegressor は新しいランダムフォレストを作成する
//
// 使用例:
//
//	rf := ensemble.NewRandomForestRegressor(ensemble.WithEstimators(100), ensemble.WithSeed(42))
//	err := rf.Fit(X, y)
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	f := &RandomForestRegressor{
		NEstimators: DefaultEstimators,
		Seed:        DefaultSeed,
		Bootstrap:   true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Clone は同じハイパーパラメータの未学習モデルを返す
func (f *RandomForestRegressor) Clone() model.Regressor {
	return &RandomForestRegressor{
		NEstimators: f.NEstimators,
		Seed:        f.Seed,
		MaxDepth:    f.MaxDepth,
		MaxFeatures: f.MaxFeatures,
		Bootstrap:   f.Bootstrap,
		Workers:     f.Workers,
	}
}

// Fit は木を並列に学習させる
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("RandomForestRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("RandomForestRegressor.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("RandomForestRegressor.Fit", "y must be a column vector")
	}
	if f.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", f.NEstimators)
	}

	target := model.Column(y)

	// 木ごとのシードを先に決める
	master := rand.New(rand.NewPCG(f.Seed, f.Seed))
	seeds := make([]uint64, f.NEstimators)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	trees := make([]*tree.DecisionTreeRegressor, f.NEstimators)
	errs := make([]error, f.NEstimators)

	parallel.ParallelizeWorkers(f.NEstimators, f.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			errs[i] = errors.SafeExecute("RandomForestRegressor.Fit", func() error {
				rng := rand.New(rand.NewPCG(seeds[i], uint64(i)))
				idx := make([]int, r)
				for k := range idx {
					if f.Bootstrap {
						idx[k] = rng.IntN(r)
					} else {
						idx[k] = k
					}
				}
				t := tree.NewDecisionTreeRegressor(
					tree.WithMaxDepth(f.MaxDepth),
					tree.WithMaxFeatures(f.MaxFeatures),
					tree.WithSeed(rng.Uint64()),
				)
				if err := t.FitSample(X, target, idx); err != nil {
					return err
				}
				trees[i] = t
				return nil
			})
		}
	})

	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
	}

	f.Trees = trees
	f.NFeatures = c
	f.SetFitted()
	return nil
}

// Predict は全ての木の予測の平均を返す
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	r, c := X.Dims()
	if c != f.NFeatures {
		return nil, errors.NewDimensionError("RandomForestRegressor.Predict", f.NFeatures, c, 1)
	}

	out := mat.NewDense(r, 1, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		sum := 0.0
		for _, t := range f.Trees {
			sum += t.PredictRow(row)
		}
		out.Set(i, 0, sum/float64(len(f.Trees)))
	}
	return out, nil
}
