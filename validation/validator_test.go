package validation

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/fermpredict/bank"
	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/linear"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/pkg/log"
)

// linearData は y = 2a + 3b + 1 + ノイズ のデータを返す
func linearData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a := float64(i)
		b := float64((i * 7) % 11)
		noise := 0.1 * math.Sin(float64(i))
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		y.Set(i, 0, 2*a+3*b+1+noise)
	}
	return X, y
}

// panicModel は Predict でパニックする
type panicModel struct{}

func (panicModel) Fit(_, _ mat.Matrix) error { return nil }
func (panicModel) Predict(_ mat.Matrix) (mat.Matrix, error) {
	panic("boom")
}
func (panicModel) IsFitted() bool { return true }

// failingModel は Predict でエラーを返す
type failingModel struct{}

func (failingModel) Fit(_, _ mat.Matrix) error { return nil }
func (failingModel) Predict(_ mat.Matrix) (mat.Matrix, error) {
	return nil, errors.New("predict failed")
}
func (failingModel) IsFitted() bool { return true }

// fixedModel は一定値を返す。Cloner ではない
type fixedModel struct{ value float64 }

func (m fixedModel) Fit(_, _ mat.Matrix) error { return nil }
func (m fixedModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, m.value)
	}
	return out, nil
}
func (fixedModel) IsFitted() bool { return true }

// brokenClone は学習済みだがクローンの学習が失敗する
type brokenClone struct{ fixedModel }

func (brokenClone) Clone() model.Regressor { return failingFit{} }

type failingFit struct{ fixedModel }

func (failingFit) Fit(_, _ mat.Matrix) error { return errors.New("fit failed") }

func newTestValidator() (*Validator, *log.TestLogger) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return NewValidator(5, 42).WithLogger(logger), logger
}

func TestValidateLinear(t *testing.T) {
	X, y := linearData(40)
	lr := linear.NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	v, _ := newTestValidator()
	m := v.Validate(lr, X, y)
	assert.Less(t, m.RMSE, 0.2)
	assert.Less(t, m.MAE, 0.2)
	assert.Greater(t, m.R2, 0.99)
	assert.Less(t, m.CVRMSE, 0.3)
	assert.GreaterOrEqual(t, m.CVRMSE, 0.0)
	assert.GreaterOrEqual(t, m.CVStd, 0.0)
	assert.False(t, m.IsWorst())

	// 同じシードなら同じ結果
	again := v.Validate(lr, X, y)
	assert.Equal(t, m, again)
}

func TestValidateWorstCase(t *testing.T) {
	X, y := linearData(20)
	for name, m := range map[string]model.Regressor{
		"panic": panicModel{},
		"error": failingModel{},
	} {
		t.Run(name, func(t *testing.T) {
			v, _ := newTestValidator()
			got := v.Validate(m, X, y)
			assert.True(t, got.IsWorst())
			assert.Equal(t, WorstMetrics(), got)
			assert.True(t, math.IsInf(got.R2, -1))
		})
	}
}

func TestValidateFallsBackToInSampleRMSE(t *testing.T) {
	X, y := linearData(20)

	t.Run("not a cloner", func(t *testing.T) {
		v, logger := newTestValidator()
		got := v.Validate(fixedModel{value: 10}, X, y)
		assert.Equal(t, got.RMSE, got.CVRMSE)
		assert.Zero(t, got.CVStd)
		assert.Len(t, logger.EntriesAt(log.LevelWarn), 1)
	})

	t.Run("cross-validation fails", func(t *testing.T) {
		v, logger := newTestValidator()
		got := v.Validate(brokenClone{fixedModel{value: 10}}, X, y)
		assert.Equal(t, got.RMSE, got.CVRMSE)
		assert.Zero(t, got.CVStd)
		assert.True(t, logger.ContainsMessage("cross-validation failed"))
	})
}

func TestCrossValidateTooFewSamples(t *testing.T) {
	X, y := linearData(3)
	v, _ := newTestValidator()
	_, err := v.CrossValidate(linear.NewLinearRegression(), X, y)
	assert.Error(t, err)
}

func TestSelectBestAndRanking(t *testing.T) {
	results := Results{
		bank.Duration: {
			{Variant: "Linear", Metrics: Metrics{CVRMSE: 3}},
			{Variant: "Polynomial_degree_2", Metrics: Metrics{CVRMSE: 1}},
			{Variant: "Polynomial_degree_3", Metrics: Metrics{CVRMSE: 1}},
			{Variant: "RandomForest", Metrics: WorstMetrics()},
		},
	}

	best, ok := SelectBest(results, bank.Duration)
	require.True(t, ok)
	assert.Equal(t, "Polynomial_degree_2", best, "ties go to the first trained variant")

	_, ok = SelectBest(results, bank.Temperature)
	assert.False(t, ok)

	ranked := Ranked(results, bank.Duration)
	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.Variant
	}
	assert.Equal(t, []string{"Polynomial_degree_2", "Polynomial_degree_3", "Linear", "RandomForest"}, names)

	c, ok := Compare(results, bank.Duration)
	require.True(t, ok)
	assert.Equal(t, "Polynomial_degree_2", c.BestModel)
	assert.Equal(t, "Linear", c.WorstModel)
	assert.InDelta(t, 66.666, c.ImprovementPercent, 0.01)
	assert.Equal(t, 4, c.ModelCount)

	// 全て完全一致なら改善率は0
	exact := Results{bank.Temperature: {
		{Variant: "Linear", Metrics: Metrics{CVRMSE: 0}},
		{Variant: "RandomForest", Metrics: Metrics{CVRMSE: 0}},
	}}
	c, ok = Compare(exact, bank.Temperature)
	require.True(t, ok)
	assert.Equal(t, 0.0, c.ImprovementPercent)

	m, ok := results.Get(bank.Duration, "Linear")
	require.True(t, ok)
	assert.Equal(t, 3.0, m.CVRMSE)

	report := Report(results, map[bank.Target]string{bank.Duration: best})
	assert.Contains(t, report, "DURATION PREDICTION MODELS")
	assert.Contains(t, report, "* Polynomial_degree_2")
	assert.Contains(t, report, "inf")
	assert.NotContains(t, report, "TEMPERATURE")
	assert.Less(t, strings.Index(report, "Polynomial_degree_3"), strings.Index(report, "Linear "))
}

func TestValidateAll(t *testing.T) {
	var temps, concs, durs []float64
	for _, temp := range []float64{2, 5, 8, 12, 16, 20} {
		for _, c := range []float64{0.008, 0.013, 0.021, 0.032} {
			temps = append(temps, temp)
			concs = append(concs, c)
			durs = append(durs, 400*math.Exp(-0.12*temp)*math.Pow(c, -0.4)/10)
		}
	}

	logger, _ := log.NewTestLogger(log.LevelDebug)
	opts := bank.DefaultOptions()
	opts.ForestEstimators = 10
	opts.Logger = logger
	b := bank.New(opts)
	require.NoError(t, b.TrainAll(temps, concs, durs))

	v, vlog := newTestValidator()
	results, err := v.ValidateAll(b, temps, concs, durs)
	require.NoError(t, err)

	for _, target := range bank.Targets {
		require.Len(t, results[target], len(b.Variants(target)), target.String())
		for i, name := range b.Variants(target) {
			assert.Equal(t, name, results[target][i].Variant)
		}
		_, ok := SelectBest(results, target)
		assert.True(t, ok)
	}
	assert.Len(t, vlog.EntriesAt(log.LevelInfo), b.Len())
	assert.True(t, vlog.ContainsField(log.ModelNameKey, "Arrhenius"))
}

func TestValidateAllSmallGrid(t *testing.T) {
	// 4温度 x 3濃度: 3次多項式は10係数で、各フォールドの学習行は9か10
	var temps, concs, durs []float64
	for _, temp := range []float64{2, 8, 14, 20} {
		for _, c := range []float64{0.008, 0.016, 0.032} {
			temps = append(temps, temp)
			concs = append(concs, c)
			durs = append(durs, 150*math.Exp(-0.06*(temp-2))*math.Pow(c/0.008, -0.35))
		}
	}

	logger, _ := log.NewTestLogger(log.LevelDebug)
	opts := bank.DefaultOptions()
	opts.ForestEstimators = 10
	opts.Logger = logger
	b := bank.New(opts)
	require.NoError(t, b.TrainAll(temps, concs, durs))
	assert.Empty(t, logger.EntriesAt(log.LevelError))

	v, vlog := newTestValidator()
	results, err := v.ValidateAll(b, temps, concs, durs)
	require.NoError(t, err)
	assert.False(t, vlog.ContainsMessage("cross-validation failed"))

	for _, target := range bank.Targets {
		m, ok := results.Get(target, "Polynomial_degree_3")
		require.True(t, ok, target.String())
		assert.False(t, m.IsWorst(), target.String())
		// 交差検証の誤差は学習データ上の誤差を下回らない
		assert.Greater(t, m.CVRMSE, m.RMSE, target.String())
		assert.Greater(t, m.CVStd, 0.0, target.String())
	}
}

func TestResiduals(t *testing.T) {
	X, y := linearData(10)
	got, err := Residuals(fixedModel{value: 0}, X, y)
	require.NoError(t, err)
	assert.Equal(t, model.Column(y), got.Residuals)
	assert.Equal(t, got.Actual, got.Residuals)
	assert.LessOrEqual(t, got.Min, got.Mean)
	assert.GreaterOrEqual(t, got.Max, got.Mean)

	_, err = Residuals(failingModel{}, X, y)
	assert.Error(t, err)
}

func TestMetricsJSON(t *testing.T) {
	data, err := json.Marshal(WorstMetrics())
	require.NoError(t, err)
	assert.JSONEq(t, `{"rmse":null,"mae":null,"r2":null,"cv_rmse":null,"cv_std":null}`, string(data))

	data, err = json.Marshal(Metrics{RMSE: 1.5, MAE: 1, R2: 0.9, CVRMSE: 2, CVStd: 0.25})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rmse":1.5,"mae":1,"r2":0.9,"cv_rmse":2,"cv_std":0.25}`, string(data))
}
