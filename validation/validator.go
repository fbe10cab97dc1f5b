package validation

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/fermpredict/bank"
	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/metrics"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/pkg/log"
)

// Metrics は1つの (Target, バリアント) の検証結果
// モデルの選択には CVRMSE を使う
type Metrics struct {
	RMSE   float64 `json:"rmse"`
	MAE    float64 `json:"mae"`
	R2     float64 `json:"r2"`
	CVRMSE float64 `json:"cv_rmse"`
	CVStd  float64 `json:"cv_std"`
}

// WorstMetrics は検証に失敗したバリアントに与える最悪値
func WorstMetrics() Metrics {
	return Metrics{
		RMSE:   math.Inf(1),
		MAE:    math.Inf(1),
		R2:     math.Inf(-1),
		CVRMSE: math.Inf(1),
		CVStd:  math.Inf(1),
	}
}

// MarshalJSON は有限でない値を null にする。encoding/json は ±Inf を扱えない
func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RMSE   *float64 `json:"rmse"`
		MAE    *float64 `json:"mae"`
		R2     *float64 `json:"r2"`
		CVRMSE *float64 `json:"cv_rmse"`
		CVStd  *float64 `json:"cv_std"`
	}{finite(m.RMSE), finite(m.MAE), finite(m.R2), finite(m.CVRMSE), finite(m.CVStd)})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// IsWorst は WorstMetrics かどうかを返す
func (m Metrics) IsWorst() bool {
	return math.IsInf(m.RMSE, 1) && math.IsInf(m.CVRMSE, 1)
}

// Validator はモデルを検証する
type Validator struct {
	KFold  *KFold
	logger log.Logger
}

// NewValidator は folds 分割・シード seed の検証器を作る
func NewValidator(folds int, seed uint64) *Validator {
	return &Validator{
		KFold:  NewKFold(folds, true, seed),
		logger: log.GetLoggerWithName("validation"),
	}
}

// WithLogger はロガーを差し替える
func (v *Validator) WithLogger(l log.Logger) *Validator {
	v.logger = l
	return v
}

// Validate は学習済みモデルの訓練データ上の指標と交差検証誤差を計算する
//
// エラーは返さない。予測や指標の計算に失敗した場合（パニックを含む）は
// WorstMetrics を返し、順位付けで確実に最下位になるようにする。
// Cloner でないモデルや交差検証に失敗したモデルは CVRMSE=RMSE, CVStd=0 になる。
func (v *Validator) Validate(m model.Regressor, X, y mat.Matrix) (result Metrics) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("validation panicked", errors.NewPanicError("Validator.Validate", r))
			result = WorstMetrics()
		}
	}()

	pred, err := m.Predict(X)
	if err != nil {
		v.logger.Warn("validation failed", log.ErrAttrKey, err)
		return WorstMetrics()
	}
	scores, err := metrics.EvaluateMatrix(y, pred)
	if err != nil || math.IsNaN(scores.RMSE) || math.IsNaN(scores.R2) {
		v.logger.Warn("validation failed", log.ErrAttrKey, errors.Wrap(orNaN(err), "evaluate"))
		return WorstMetrics()
	}

	result = Metrics{RMSE: scores.RMSE, MAE: scores.MAE, R2: scores.R2, CVRMSE: scores.RMSE}

	cloner, ok := m.(model.Cloner)
	if !ok {
		v.logger.Warn("model does not support cross-validation, using in-sample RMSE")
		return result
	}
	foldMSE, err := v.CrossValidate(cloner, X, y)
	if err != nil {
		v.logger.Warn("cross-validation failed, using in-sample RMSE", log.ErrAttrKey, err)
		return result
	}
	mean, std := stat.PopMeanStdDev(foldMSE, nil)
	result.CVRMSE = math.Sqrt(mean)
	result.CVStd = std
	return result
}

func orNaN(err error) error {
	if err != nil {
		return err
	}
	return errors.NewValueError("Validator.Validate", "metrics are NaN")
}

// CrossValidate はフォールドごとに未学習のクローンを学習させ、テスト側のMSEを返す
func (v *Validator) CrossValidate(c model.Cloner, X, y mat.Matrix) ([]float64, error) {
	n, _ := X.Dims()
	folds, err := v.KFold.Split(n)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(folds))
	for i, fold := range folds {
		err := errors.SafeExecute("Validator.CrossValidate", func() error {
			trainX, trainY := subset(X, y, fold.TrainIndices)
			testX, testY := subset(X, y, fold.TestIndices)

			fm := c.Clone()
			if err := fm.Fit(trainX, trainY); err != nil {
				return err
			}
			pred, err := fm.Predict(testX)
			if err != nil {
				return err
			}
			mse, err := metrics.MSE(model.Column(testY), model.Column(pred))
			if err != nil {
				return err
			}
			if math.IsNaN(mse) {
				return errors.NewValueError("Validator.CrossValidate", "fold MSE is NaN")
			}
			scores[i] = mse
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", i)
		}
	}
	return scores, nil
}

// subset は指定した行を取り出す
func subset(X, y mat.Matrix, idx []int) (*mat.Dense, *mat.Dense) {
	_, c := X.Dims()
	sx := mat.NewDense(len(idx), c, nil)
	sy := mat.NewDense(len(idx), 1, nil)
	for i, r := range idx {
		for j := 0; j < c; j++ {
			sx.Set(i, j, X.At(r, j))
		}
		sy.Set(i, 0, y.At(r, 0))
	}
	return sx, sy
}

// Result は1つのバリアントの検証結果
type Result struct {
	Variant string  `json:"variant"`
	Metrics Metrics `json:"metrics"`
}

// Results は Target ごとの検証結果。各スライスはバンクの学習順
type Results map[bank.Target][]Result

// Get は指定したバリアントの結果を返す
func (r Results) Get(t bank.Target, variant string) (Metrics, bool) {
	for _, res := range r[t] {
		if res.Variant == variant {
			return res.Metrics, true
		}
	}
	return Metrics{}, false
}

// ValidateAll はバンクの全バリアントを検証する
func (v *Validator) ValidateAll(b *bank.Bank, temps, concs, durs []float64) (Results, error) {
	results := make(Results, len(bank.Targets))
	for _, target := range bank.Targets {
		X, y, err := bank.Features(target, temps, concs, durs)
		if err != nil {
			return nil, err
		}
		for _, name := range b.Variants(target) {
			m, _ := b.Model(target, name)
			res := v.Validate(m, X, y)
			results[target] = append(results[target], Result{Variant: name, Metrics: res})
			v.logger.Info("validated variant",
				log.TargetKey, target.String(),
				log.ModelNameKey, name,
				log.PhaseKey, log.PhaseValidation,
				log.RMSEKey, res.RMSE,
				log.MAEKey, res.MAE,
				log.R2ScoreKey, res.R2,
				log.CVRMSEKey, res.CVRMSE,
				log.CVStdKey, res.CVStd,
			)
		}
	}
	return results, nil
}

// SelectBest は CVRMSE が最小のバリアントを返す。同値なら先に学習したもの
func SelectBest(results Results, target bank.Target) (string, bool) {
	entries := results[target]
	if len(entries) == 0 {
		return "", false
	}
	best := 0
	for i := 1; i < len(entries); i++ {
		if entries[i].Metrics.CVRMSE < entries[best].Metrics.CVRMSE {
			best = i
		}
	}
	return entries[best].Variant, true
}

// Ranked は CVRMSE の昇順に並べた結果を返す。同値は学習順を保つ
func Ranked(results Results, target bank.Target) []Result {
	out := append([]Result(nil), results[target]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Metrics.CVRMSE < out[j].Metrics.CVRMSE
	})
	return out
}

// Comparison は Target 内の最良と最悪のバリアントの比較
type Comparison struct {
	BestModel          string  `json:"best_model"`
	BestCVRMSE         float64 `json:"best_cv_rmse"`
	WorstModel         string  `json:"worst_model"`
	WorstCVRMSE        float64 `json:"worst_cv_rmse"`
	ImprovementPercent float64 `json:"improvement_percent"`
	ModelCount         int     `json:"model_count"`
}

// Compare は有限の CVRMSE を持つバリアントの中で最良と最悪を比べる
func Compare(results Results, target bank.Target) (Comparison, bool) {
	var finite []Result
	for _, r := range Ranked(results, target) {
		if !math.IsInf(r.Metrics.CVRMSE, 0) {
			finite = append(finite, r)
		}
	}
	if len(finite) == 0 {
		return Comparison{}, false
	}
	best, worst := finite[0], finite[len(finite)-1]
	c := Comparison{
		BestModel:   best.Variant,
		BestCVRMSE:  best.Metrics.CVRMSE,
		WorstModel:  worst.Variant,
		WorstCVRMSE: worst.Metrics.CVRMSE,
		ModelCount:  len(results[target]),
	}
	c.ImprovementPercent = errors.SafeDivide(worst.Metrics.CVRMSE-best.Metrics.CVRMSE, worst.Metrics.CVRMSE) * 100
	return c, true
}
