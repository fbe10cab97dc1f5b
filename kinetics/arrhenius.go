// Package kinetics はアレニウス型の発酵時間モデルを提供する。
//
//	duration = A · exp(Ea / (R · T_K)) · concentration^(−n)
//
// 温度(°C)と濃度から時間を予測する専用モデルで、時間ターゲットにのみ使う。
// フィットは三段階で行い、学習が失敗することはない。
package kinetics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/linear"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/pkg/log"
)

const (
	// GasConstant は気体定数 R [J/(mol·K)]
	GasConstant = 8.314
	// KelvinOffset は摂氏から絶対温度への変換量
	KelvinOffset = 273.15
	// MinConcentration は濃度の下限。0付近の特異点を避ける
	MinConcentration = 0.001
	// DefaultMaxEvaluations は各段階の目的関数評価回数の上限
	DefaultMaxEvaluations = 10000
)

// Params はアレニウス式のパラメータ
type Params struct {
	A  float64
	Ea float64
	N  float64
}

// DefaultParams は最終段階で使う固定パラメータ。第一段階の初期値でもある
var DefaultParams = Params{A: 1e-6, Ea: 50000, N: 0.5}

// 第一段階の探索範囲
var (
	boundsA  = [2]float64{1e-10, 1e-2}
	boundsEa = [2]float64{1000, 200000}
	boundsN  = [2]float64{0.1, 2.0}
)

// FitTier はパラメータを決めた段階
type FitTier int

const (
	// TierNone は未学習
	TierNone FitTier = iota
	// TierBounded は範囲制約付きのフィット
	TierBounded
	// TierRelaxed は a·exp(b/T)·c^c の制約なしフィット
	TierRelaxed
	// TierDefault は固定パラメータ
	TierDefault
)

func (t FitTier) String() string {
	switch t {
	case TierBounded:
		return "bounded"
	case TierRelaxed:
		return "relaxed"
	case TierDefault:
		return "default"
	default:
		return "none"
	}
}

// ArrheniusModel はアレニウス型の回帰モデル
type ArrheniusModel struct {
	model.BaseEstimator

	Params Params
	Tier   FitTier
	// MaxEvaluations は各段階の評価回数上限。0なら DefaultMaxEvaluations
	MaxEvaluations int
}

// NewArrheniusModel は新しいモデルを作成する
func NewArrheniusModel() *ArrheniusModel {
	return &ArrheniusModel{MaxEvaluations: DefaultMaxEvaluations}
}

// Clone は未学習のコピーを返す
func (m *ArrheniusModel) Clone() model.Regressor {
	return &ArrheniusModel{MaxEvaluations: m.MaxEvaluations}
}

// FitTier は直近の学習でパラメータを決めた段階を返す
func (m *ArrheniusModel) FitTier() FitTier {
	return m.Tier
}

// kelvin は摂氏を絶対温度にし、0°C未満を切り上げる
func kelvin(celsius float64) float64 {
	return math.Max(celsius+KelvinOffset, KelvinOffset)
}

func clampConcentration(c float64) float64 {
	return math.Max(c, MinConcentration)
}

// Duration はパラメータ p での予測時間を返す
func (p Params) Duration(celsius, concentration float64) float64 {
	tk := kelvin(celsius)
	c := clampConcentration(concentration)
	return p.A * math.Exp(p.Ea/(GasConstant*tk)) * math.Pow(c, -p.N)
}

// Fit は X=[温度, 濃度], y=時間 でパラメータを推定する
//
// 範囲制約付きフィットが失敗すると制約なしの簡略形を試し、
// それも失敗すると DefaultParams を使う。どの場合も学習済みになる。
// 両段階とも ln(時間) の線形最小二乗解から探索を始める。時間が正でないなど
// その解が使えない場合は DefaultParams と (1e-3, 1000, -0.5) から始める。
func (m *ArrheniusModel) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()
	if c != 2 {
		return errors.NewDimensionError("ArrheniusModel.Fit", 2, c, 1)
	}
	if ry != r {
		return errors.NewDimensionError("ArrheniusModel.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("ArrheniusModel.Fit", "y must be a column vector")
	}
	if r == 0 {
		return errors.NewModelError("ArrheniusModel.Fit", "empty data", errors.ErrEmptyData)
	}

	tk := make([]float64, r)
	conc := make([]float64, r)
	dur := make([]float64, r)
	for i := 0; i < r; i++ {
		tk[i] = kelvin(X.At(i, 0))
		conc[i] = clampConcentration(X.At(i, 1))
		dur[i] = y.At(i, 0)
	}

	logger := log.GetLoggerWithName("kinetics")
	maxEval := m.MaxEvaluations
	if maxEval <= 0 {
		maxEval = DefaultMaxEvaluations
	}

	start, warm := warmStart(tk, conc, dur)
	if !warm {
		start = DefaultParams
	}
	p, evals, err := fitBounded(tk, conc, dur, start, maxEval)
	if err == nil {
		m.finish(p, TierBounded)
		logger.Debug("arrhenius fit converged", log.FitTierKey, TierBounded.String(), log.EvaluationsKey, evals)
		return nil
	}
	errors.Warn(errors.NewConvergenceWarning("arrhenius_bounded", evals, err.Error()))

	relaxedStart := []float64{math.Log(1e-3), 1.0, -0.5}
	if warm {
		relaxedStart = []float64{math.Log(start.A), start.Ea / GasConstant / 1000, -start.N}
	}
	p, evals, err = fitRelaxed(tk, conc, dur, relaxedStart, maxEval)
	if err == nil {
		m.finish(p, TierRelaxed)
		logger.Debug("arrhenius fit converged", log.FitTierKey, TierRelaxed.String(), log.EvaluationsKey, evals)
		return nil
	}
	errors.Warn(errors.NewConvergenceWarning("arrhenius_relaxed", evals, err.Error()))

	m.finish(DefaultParams, TierDefault)
	logger.Warn("arrhenius fit fell back to default parameters", log.FitTierKey, TierDefault.String())
	return nil
}

func (m *ArrheniusModel) finish(p Params, tier FitTier) {
	m.Params = p
	m.Tier = tier
	m.SetFitted()
}

// Predict は各行の予測時間を返す
func (m *ArrheniusModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("ArrheniusModel", "Predict")
	}
	r, c := X.Dims()
	if c != 2 {
		return nil, errors.NewDimensionError("ArrheniusModel.Predict", 2, c, 1)
	}
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, m.Params.Duration(X.At(i, 0), X.At(i, 1)))
	}
	return out, nil
}

// penalty は非有限な残差の代わりに返す値
const penalty = 1e300

func sse(pred func(i int) float64, dur []float64) float64 {
	s := 0.0
	for i, d := range dur {
		diff := pred(i) - d
		s += diff * diff
	}
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return penalty
	}
	return s
}

// sigmoid 変換で (lo, hi) の箱を実数全体に写す
func sigmoid(u float64) float64 { return 1 / (1 + math.Exp(-u)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

func toBox(u, lo, hi float64) float64 { return lo + (hi-lo)*sigmoid(u) }

func fromBox(v, lo, hi float64) float64 { return logit((v - lo) / (hi - lo)) }

// boundedParams は探索変数 u をパラメータに戻す。A は対数空間で扱う
func boundedParams(u []float64) Params {
	return Params{
		A:  math.Exp(toBox(u[0], math.Log(boundsA[0]), math.Log(boundsA[1]))),
		Ea: toBox(u[1], boundsEa[0], boundsEa[1]),
		N:  toBox(u[2], boundsN[0], boundsN[1]),
	}
}

func fitBounded(tk, conc, dur []float64, start Params, maxEval int) (Params, int, error) {
	obj := func(u []float64) float64 {
		p := boundedParams(u)
		return sse(func(i int) float64 {
			return p.A * math.Exp(p.Ea/(GasConstant*tk[i])) * math.Pow(conc[i], -p.N)
		}, dur)
	}
	x0 := []float64{
		fromBox(clipInterior(math.Log(start.A), math.Log(boundsA[0]), math.Log(boundsA[1])), math.Log(boundsA[0]), math.Log(boundsA[1])),
		fromBox(clipInterior(start.Ea, boundsEa[0], boundsEa[1]), boundsEa[0], boundsEa[1]),
		fromBox(clipInterior(start.N, boundsN[0], boundsN[1]), boundsN[0], boundsN[1]),
	}
	u, evals, err := minimize(obj, x0, maxEval)
	if err != nil {
		return Params{}, evals, err
	}
	return boundedParams(u), evals, nil
}

// relaxedParams は a·exp(b/T)·c^c を A·exp(Ea/(R·T))·c^(−n) の形に揃える
// 探索変数は (ln a, b/1000, c)
func relaxedParams(u []float64) Params {
	return Params{
		A:  math.Exp(u[0]),
		Ea: u[1] * 1000 * GasConstant,
		N:  -u[2],
	}
}

func fitRelaxed(tk, conc, dur, x0 []float64, maxEval int) (Params, int, error) {
	obj := func(u []float64) float64 {
		a, b, c := math.Exp(u[0]), u[1]*1000, u[2]
		return sse(func(i int) float64 {
			return a * errors.StabilizeExp(b/tk[i]) * math.Pow(conc[i], c)
		}, dur)
	}
	u, evals, err := minimize(obj, x0, maxEval)
	if err != nil {
		return Params{}, evals, err
	}
	p := relaxedParams(u)
	if err := errors.CheckNumericalStability("arrhenius_relaxed", []float64{p.A, p.Ea, p.N}, evals); err != nil {
		return Params{}, evals, err
	}
	return p, evals, nil
}

// clipInterior は v を箱の内側に収める。端点ではlogitが発散する
func clipInterior(v, lo, hi float64) float64 {
	eps := (hi - lo) * 1e-6
	return math.Min(math.Max(v, lo+eps), hi-eps)
}

// warmStart は ln d = ln A + (Ea/R)·(1/T) − n·ln c の最小二乗解を初期値にする
// 時間が正でない、または温度や濃度が一種類しかない場合は ok=false
func warmStart(tk, conc, dur []float64) (Params, bool) {
	X := mat.NewDense(len(dur), 2, nil)
	y := mat.NewDense(len(dur), 1, nil)
	for i, d := range dur {
		if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return Params{}, false
		}
		X.Set(i, 0, 1/tk[i])
		X.Set(i, 1, math.Log(conc[i]))
		y.Set(i, 0, math.Log(d))
	}
	lr := linear.NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		return Params{}, false
	}
	w := lr.GetWeights()
	p := Params{A: math.Exp(lr.GetIntercept()), Ea: w[0] * GasConstant, N: -w[1]}
	if errors.CheckNumericalStability("arrhenius_warm_start", []float64{p.A, p.Ea, p.N}, 0) != nil || p.A <= 0 {
		return Params{}, false
	}
	return p, true
}

// minimize はNelder-Meadで目的関数を最小化する
// 評価回数の上限に達した場合は失敗として扱う
func minimize(obj func([]float64) float64, x0 []float64, maxEval int) ([]float64, int, error) {
	problem := optimize.Problem{Func: obj}
	settings := &optimize.Settings{FuncEvaluations: maxEval}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if res == nil {
		if err == nil {
			err = errors.New("optimizer returned no result")
		}
		return nil, 0, err
	}
	evals := res.FuncEvaluations
	if err != nil {
		return nil, evals, err
	}
	switch res.Status {
	case optimize.FunctionEvaluationLimit, optimize.IterationLimit, optimize.RuntimeLimit, optimize.Failure:
		return nil, evals, errors.Newf("optimizer stopped: %v", res.Status)
	}
	if res.F >= penalty || math.IsNaN(res.F) {
		return nil, evals, errors.New("objective is not finite at the optimum")
	}
	return res.X, evals, nil
}

// String はパラメータを人が読める形式で返す
func (p Params) String() string {
	return fmt.Sprintf("A=%.3g Ea=%.0f n=%.3f", p.A, p.Ea, p.N)
}
