// Package predictor は学習から推論までを束ねる。
//
// 3つの量 (温度、濃度、所要時間) のうち2つを与えると残りの1つを予測する。
// 最初の Predict で未学習なら学習を行い、以後は強制再学習まで学習済みのまま。
package predictor

import (
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/fermpredict/bank"
	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/dataset"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/pkg/log"
	"github.com/YuminosukeSato/fermpredict/validation"
)

// Phase は Predictor の状態
type Phase int

const (
	Untrained Phase = iota
	Trained
)

func (p Phase) String() string {
	if p == Trained {
		return "trained"
	}
	return "untrained"
}

// state は学習状態と Target ごとの最良モデル選択
// Predict と Diagnostics はこの選択だけを参照する。選択のない Target は
// bank の既定 (RandomForest、なければ最初のバリアント) を使う
type state struct {
	phase     Phase
	selection map[bank.Target]string
}

// Predictor は並行な Train 呼び出しに対して安全ではない
type Predictor struct {
	opts      Options
	bank      *bank.Bank
	validator *validation.Validator
	logger    log.Logger

	data    *dataset.Dataset
	results validation.Results
	state   state

	// loadDataset はテストで差し替える
	loadDataset func(path string) (*dataset.Dataset, error)
}

// New は Predictor を作る
// ModelDir に保存済みモデルがあれば読み込み、学習済みの状態で始める。
// 読み込みの失敗は警告に留める。
func New(opts Options) *Predictor {
	logger := opts.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("predictor")
	}
	if opts.CVFolds < 2 {
		opts.CVFolds = 5
	}

	p := &Predictor{
		opts: opts,
		bank: bank.New(bank.Options{
			Seed:              opts.Seed,
			ForestEstimators:  opts.ForestEstimators,
			ForestWorkers:     opts.ForestWorkers,
			PolynomialDegrees: opts.PolynomialDegrees,
			Codec:             opts.Codec,
			Logger:            logger.With(log.ComponentKey, "bank"),
		}),
		validator:   validation.NewValidator(opts.CVFolds, opts.Seed).WithLogger(logger.With(log.ComponentKey, "validation")),
		logger:      logger,
		state:       state{phase: Untrained},
		loadDataset: dataset.Load,
	}

	if opts.ModelDir != "" {
		if info, err := os.Stat(opts.ModelDir); err == nil && info.IsDir() {
			n, err := p.bank.Load(opts.ModelDir)
			switch {
			case err != nil:
				logger.Warn("failed to load existing models", log.PathKey, opts.ModelDir, log.ErrAttrKey, err)
			case n > 0:
				p.state = state{phase: Trained}
				logger.Info("loaded existing models", log.PathKey, opts.ModelDir, log.ModelCountKey, n)
			}
		}
	}
	return p
}

// Phase は現在の状態を返す
func (p *Predictor) Phase() Phase { return p.state.phase }

// Selection は Target ごとの選択済みモデル名のコピーを返す
func (p *Predictor) Selection() map[bank.Target]string {
	out := make(map[bank.Target]string, len(p.state.selection))
	for t, name := range p.state.selection {
		out[t] = name
	}
	return out
}

// Select は target の予測に使うバリアントを name に固定する
// 次の学習で検証結果による選択に置き換わる。
func (p *Predictor) Select(target bank.Target, name string) error {
	if _, ok := p.bank.Model(target, name); !ok {
		return errors.NewValidationError("variant", "not trained for "+target.String(), name)
	}
	if p.state.selection == nil {
		p.state.selection = make(map[bank.Target]string, len(bank.Targets))
	}
	p.state.selection[target] = name
	return nil
}

// bestModel は state の選択を優先し、なければ bank の既定を使う
func (p *Predictor) bestModel(target bank.Target) (string, model.Regressor, error) {
	if name, ok := p.state.selection[target]; ok {
		if m, ok := p.bank.Model(target, name); ok {
			return name, m, nil
		}
	}
	return p.bank.BestModel(target)
}

// Bank は内部のモデルバンクを返す
func (p *Predictor) Bank() *bank.Bank { return p.bank }

// trainingData は必要になった時に一度だけデータを読み込む
func (p *Predictor) trainingData() (*dataset.Dataset, error) {
	if p.data != nil {
		return p.data, nil
	}
	ds, err := p.loadDataset(p.opts.DataPath)
	if err != nil {
		return nil, err
	}
	p.data = ds
	return ds, nil
}

// Train は 読み込み → 学習 → 検証 → 選択 を行う
// 学習済みで force が false なら何もしない。force ならデータも読み直す。
func (p *Predictor) Train(force bool) error {
	if p.state.phase == Trained && !force {
		p.logger.Info("models already trained, use force to retrain")
		return nil
	}
	start := time.Now()
	if force {
		p.data = nil
	}

	ds, err := p.trainingData()
	if err != nil {
		return err
	}
	temps, concs, durs := ds.FeatureMatrices()

	p.logger.Info("training models", log.PhaseKey, log.PhaseTraining, log.SamplesKey, ds.Len())
	if err := p.bank.TrainAll(temps, concs, durs); err != nil {
		return err
	}

	p.logger.Info("validating models", log.PhaseKey, log.PhaseValidation)
	results, err := p.validator.ValidateAll(p.bank, temps, concs, durs)
	if err != nil {
		return err
	}

	selection := make(map[bank.Target]string, len(bank.Targets))
	for _, t := range bank.Targets {
		name, ok := validation.SelectBest(results, t)
		if !ok {
			continue
		}
		selection[t] = name
		m, _ := results.Get(t, name)
		p.logger.Info("selected best model",
			log.TargetKey, t.String(),
			log.ModelNameKey, name,
			log.CVRMSEKey, m.CVRMSE,
		)
	}

	p.results = results
	p.state = state{phase: Trained, selection: selection}
	p.logger.Info("training finished",
		log.ModelCountKey, p.bank.Len(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if p.opts.ModelDir != "" {
		if err := p.bank.Save(p.opts.ModelDir); err != nil {
			return errors.Wrap(err, "save models")
		}
		p.logger.Info("models saved", log.PathKey, p.opts.ModelDir)
	}
	return nil
}

func (p *Predictor) ensureTrained() error {
	if p.state.phase == Trained {
		return nil
	}
	return p.Train(false)
}

// Predict は与えられていない1つの量を予測する
//
// ちょうど2つの入力が必要で、それ以外は学習より先に InvalidArgumentError を返す。
// 典型的な範囲外の入力は RangeWarning として結果に付けるが、予測は行う。
// 時間と濃度の予測値は0未満を0に切り上げ、幅はその値の周りに取る。
func (p *Predictor) Predict(q Query) (*Prediction, error) {
	target, err := q.target()
	if err != nil {
		return nil, err
	}
	if err := p.ensureTrained(); err != nil {
		return nil, err
	}

	var warnings []string
	for _, w := range q.rangeWarnings() {
		errors.Warn(w)
		warnings = append(warnings, w.Error())
	}

	temp, conc, dur := q.values()
	row := target.FeatureRow(temp, conc, dur)

	name, m, err := p.bestModel(target)
	if err != nil {
		return nil, err
	}
	out, err := m.Predict(mat.NewDense(1, len(row), row))
	if err != nil {
		return nil, errors.Wrapf(err, "predict %s with %s", target, name)
	}
	value := out.At(0, 0)
	if target != bank.Temperature {
		value = math.Max(0, value)
	}

	names := target.FeatureNames()
	pred := &Prediction{
		Target:             target.String(),
		Value:              value,
		Unit:               target.Unit(),
		ConfidenceInterval: Band(target, value, p.span(target)),
		Inputs:             map[string]float64{names[0]: row[0], names[1]: row[1]},
		ModelUsed:          name,
		Warnings:           warnings,
	}

	p.logger.Debug("prediction",
		log.PhaseKey, log.PhaseInference,
		log.TargetKey, pred.Target,
		log.ModelNameKey, name,
		log.PredictionKey, value,
		log.IntervalLowerKey, pred.ConfidenceInterval.Lower,
		log.IntervalUpperKey, pred.ConfidenceInterval.Upper,
	)
	return pred, nil
}

// span は学習データにおける target の範囲の幅
// データが読めない場合 (保存済みモデルだけで動いている場合など) は0
func (p *Predictor) span(t bank.Target) float64 {
	ds, err := p.trainingData()
	if err != nil {
		p.logger.Warn("data range unavailable, band uses the relative term only", log.ErrAttrKey, err)
		return 0
	}
	s := ds.Summary()
	switch t {
	case bank.Temperature:
		return s.TemperatureRange.Span()
	case bank.Concentration:
		return s.ConcentrationRange.Span()
	default:
		return s.DurationRange.Span()
	}
}

// BatchResult は PredictBatch の1行分の結果。Prediction と Err のどちらか一方が非nil
type BatchResult struct {
	Index      int         `json:"row_index"`
	Prediction *Prediction `json:"prediction,omitempty"`
	Err        error       `json:"-"`
}

// PredictBatch は行ごとに Predict を行う。失敗した行は Err に記録し、残りを続ける
func (p *Predictor) PredictBatch(queries []Query) []BatchResult {
	results := make([]BatchResult, len(queries))
	for i, q := range queries {
		results[i].Index = i
		pred, err := p.Predict(q)
		if err != nil {
			p.logger.Error("failed to predict row", err, log.RowKey, i)
			results[i].Err = err
			continue
		}
		results[i].Prediction = pred
	}
	p.logger.Info("batch prediction finished", log.PredsKey, len(queries))
	return results
}

// Performance は全バリアントの検証結果を返す
// 保存済みモデルを読み込んだだけの場合はここで検証する。
func (p *Predictor) Performance() (validation.Results, error) {
	if err := p.ensureTrained(); err != nil {
		return nil, err
	}
	if p.results != nil {
		return p.results, nil
	}
	ds, err := p.trainingData()
	if err != nil {
		return nil, err
	}
	temps, concs, durs := ds.FeatureMatrices()
	results, err := p.validator.ValidateAll(p.bank, temps, concs, durs)
	if err != nil {
		return nil, err
	}
	p.results = results
	return results, nil
}

// DataSummary は学習データの統計を返す
func (p *Predictor) DataSummary() (dataset.Summary, error) {
	ds, err := p.trainingData()
	if err != nil {
		return dataset.Summary{}, err
	}
	return ds.Summary(), nil
}

// Diagnostic は Target の最良モデルを学習データ上で評価したもの
type Diagnostic struct {
	Target    bank.Target
	ModelUsed string
	Residuals *validation.ResidualAnalysis
}

// Diagnostics は target の最良モデルの残差を計算する
func (p *Predictor) Diagnostics(target bank.Target) (*Diagnostic, error) {
	if err := p.ensureTrained(); err != nil {
		return nil, err
	}
	ds, err := p.trainingData()
	if err != nil {
		return nil, err
	}
	name, m, err := p.bestModel(target)
	if err != nil {
		return nil, err
	}
	temps, concs, durs := ds.FeatureMatrices()
	X, y, err := bank.Features(target, temps, concs, durs)
	if err != nil {
		return nil, err
	}
	res, err := validation.Residuals(m, X, y)
	if err != nil {
		return nil, err
	}
	return &Diagnostic{Target: target, ModelUsed: name, Residuals: res}, nil
}
