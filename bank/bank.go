// Package bank は Target ごとの学習済みバリアントを保持し、
// 一括学習・最良モデルの参照・保存と読み込みを行う。
package bank

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/ensemble"
	"github.com/YuminosukeSato/fermpredict/kinetics"
	"github.com/YuminosukeSato/fermpredict/linear"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/pkg/log"
)

// Options はバンクの学習設定
type Options struct {
	Seed              uint64
	ForestEstimators  int
	ForestWorkers     int
	PolynomialDegrees []int
	Codec             model.Codec
	Logger            log.Logger
	// Specs を指定すると既定のバリアント一覧の代わりに使う
	Specs []VariantSpec
}

// DefaultOptions は既定の設定を返す
func DefaultOptions() Options {
	return Options{
		Seed:              ensemble.DefaultSeed,
		ForestEstimators:  ensemble.DefaultEstimators,
		PolynomialDegrees: []int{2, 3},
		Codec:             model.CodecGob,
	}
}

type entry struct {
	spec  VariantSpec
	model model.Regressor
}

// Bank は (Target, バリアント名) → 学習済みモデル の対応を持つ
// 並行に書き込んではならない
type Bank struct {
	specs   []VariantSpec
	codec   model.Codec
	logger  log.Logger
	entries map[Target][]entry
	best    map[Target]string
}

// New は空のバンクを作る
func New(opts Options) *Bank {
	if opts.ForestEstimators <= 0 {
		opts.ForestEstimators = ensemble.DefaultEstimators
	}
	if opts.PolynomialDegrees == nil {
		opts.PolynomialDegrees = []int{2, 3}
	}
	if opts.Codec == "" {
		opts.Codec = model.CodecGob
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("bank")
	}
	specs := opts.Specs
	if specs == nil {
		specs = DefaultSpecs(opts.PolynomialDegrees, opts.ForestEstimators, opts.Seed, opts.ForestWorkers)
	}
	return &Bank{
		specs:   specs,
		codec:   opts.Codec,
		logger:  logger,
		entries: make(map[Target][]entry),
		best:    make(map[Target]string),
	}
}

// Specs は学習順のバリアント一覧を返す
func (b *Bank) Specs() []VariantSpec {
	return append([]VariantSpec(nil), b.specs...)
}

// TrainAll は全ての Target について適用可能なバリアントを学習させる
//
// 個々のバリアントの失敗（パニックを含む）はログに記録して除外し、
// 残りの学習は続ける。既存の内容と選択は全て置き換えられる。
// エラーを返すのは入力系列そのものが不正な場合だけ。
func (b *Bank) TrainAll(temps, concs, durs []float64) error {
	entries := make(map[Target][]entry, len(Targets))
	for _, target := range Targets {
		X, y, err := Features(target, temps, concs, durs)
		if err != nil {
			return err
		}
		tlog := b.logger.With(log.TargetKey, target.String(), log.PhaseKey, log.PhaseTraining)
		tlog.Info("training models", log.SamplesKey, len(temps))

		for _, spec := range b.specs {
			if !spec.AppliesTo(target) {
				continue
			}
			name := spec.Name()
			vlog := tlog.With(log.ModelNameKey, name)
			start := time.Now()

			var m model.Regressor
			err := errors.SafeExecute(fmt.Sprintf("%s.%s.Fit", target, name), func() error {
				var err error
				m, err = spec.New()
				if err != nil {
					return err
				}
				return m.Fit(X, y)
			})
			if err != nil {
				vlog.Error("failed to train variant", err, log.ErrorTypeKey, fmt.Sprintf("%T", errors.UnwrapAll(err)))
				continue
			}
			entries[target] = append(entries[target], entry{spec: spec, model: m})
			vlog.Info("trained variant", log.DurationMsKey, time.Since(start).Milliseconds())
		}
	}

	b.entries = entries
	b.ClearSelection()
	return nil
}

// Variants は Target の学習済みバリアント名を学習順に返す
func (b *Bank) Variants(t Target) []string {
	names := make([]string, 0, len(b.entries[t]))
	for _, e := range b.entries[t] {
		names = append(names, e.spec.Name())
	}
	return names
}

// Model は指定したバリアントを返す
func (b *Bank) Model(t Target, name string) (model.Regressor, bool) {
	for _, e := range b.entries[t] {
		if e.spec.Name() == name {
			return e.model, true
		}
	}
	return nil, false
}

// Len は学習済みバリアントの総数を返す
func (b *Bank) Len() int {
	n := 0
	for _, es := range b.entries {
		n += len(es)
	}
	return n
}

// Select は Target の最良モデルとして name を記録する
func (b *Bank) Select(t Target, name string) error {
	if _, ok := b.Model(t, name); !ok {
		return errors.NewValidationError("variant", "not trained for "+t.String(), name)
	}
	b.best[t] = name
	return nil
}

// Selection は記録済みの選択を返す
func (b *Bank) Selection(t Target) (string, bool) {
	name, ok := b.best[t]
	return name, ok
}

// ClearSelection は全ての選択を破棄する
func (b *Bank) ClearSelection() {
	b.best = make(map[Target]string)
}

// BestModel は Target の予測に使うモデルを返す
//
// 選択が記録されていなければ RandomForest、それもなければ
// 学習順で最初のバリアントを使う。
func (b *Bank) BestModel(t Target) (string, model.Regressor, error) {
	if name, ok := b.best[t]; ok {
		if m, ok := b.Model(t, name); ok {
			return name, m, nil
		}
	}
	if m, ok := b.Model(t, KindRandomForest.String()); ok {
		return KindRandomForest.String(), m, nil
	}
	if es := b.entries[t]; len(es) > 0 {
		return es[0].spec.Name(), es[0].model, nil
	}
	return "", nil, errors.NewNoModelAvailableError(t.String())
}

// ArtifactName は保存ファイル名（拡張子なし）を返す
func ArtifactName(t Target, variant string) string {
	return t.String() + "_" + variant
}

// Save は全ての (Target, バリアント) を dir に1ファイルずつ保存する
// 同名のファイルは上書きされる
func (b *Bank) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create model directory %s", dir)
	}
	for _, target := range Targets {
		for _, e := range b.entries[target] {
			stem := ArtifactName(target, e.spec.Name())
			path := filepath.Join(dir, stem+b.codec.Extension())
			if err := model.SaveModel(path, e.spec.Kind.String(), stem, b.codec, e.model); err != nil {
				return errors.Wrapf(err, "save %s", stem)
			}
			b.logger.Debug("saved model", log.PathKey, path, log.ModelNameKey, e.spec.Name(), log.CodecKey, string(b.codec))
		}
	}
	return nil
}

// Load は dir のアーティファクトからバンクを再構築し、読み込んだ数を返す
//
// ファイル名の {target}_{variant} から種類を判定する。未知の Target や
// バリアント、関係のないファイルは読み飛ばす。選択は破棄される。
func (b *Bank) Load(dir string) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.Wrapf(err, "model directory %s", dir)
	}

	entries := make(map[Target][]entry, len(Targets))
	seen := make(map[string]int)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		stem, _, ok := model.SplitArtifactPath(f.Name())
		if !ok {
			continue
		}
		targetName, variant, ok := strings.Cut(stem, "_")
		if !ok {
			continue
		}
		target, err := ParseTarget(targetName)
		if err != nil || targetName != target.String() {
			continue
		}
		spec, ok := ParseVariantName(variant)
		if !ok || !spec.AppliesTo(target) {
			b.logger.Debug("skipping unknown model file", log.PathKey, f.Name())
			continue
		}

		path := filepath.Join(dir, f.Name())
		m, err := loadModel(path, spec)
		if err != nil {
			return 0, errors.Wrapf(err, "load %s", path)
		}
		e := entry{spec: spec, model: m}
		// 同じ名前が別の拡張子で存在する場合は後のものを使う
		if i, dup := seen[stem]; dup {
			entries[target][i] = e
			continue
		}
		seen[stem] = len(entries[target])
		entries[target] = append(entries[target], e)
	}

	n := 0
	for t := range entries {
		es := entries[t]
		sort.SliceStable(es, func(i, j int) bool { return es[i].spec.rank() < es[j].spec.rank() })
		n += len(es)
	}

	b.entries = entries
	b.ClearSelection()
	b.logger.Info("loaded models", log.PathKey, dir, log.ModelCountKey, n)
	return n, nil
}

func loadModel(path string, spec VariantSpec) (model.Regressor, error) {
	art, err := model.LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	if art.Kind != spec.Kind.String() {
		return nil, errors.Newf("artifact kind %q does not match variant %s", art.Kind, spec.Name())
	}

	var m model.Regressor
	switch spec.Kind {
	case KindLinear:
		m = &linear.LinearRegression{}
	case KindPolynomial:
		m = &linear.PolynomialRegression{}
	case KindRandomForest:
		m = &ensemble.RandomForestRegressor{}
	case KindArrhenius:
		m = &kinetics.ArrheniusModel{}
	}
	if err := art.Decode(m); err != nil {
		return nil, err
	}
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError(spec.Name(), "Load")
	}
	return m, nil
}
