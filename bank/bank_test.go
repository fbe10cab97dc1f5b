package bank

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/pkg/log"
)

// sampleSeries は発酵表に近い形の3系列を返す
func sampleSeries() (temps, concs, durs []float64) {
	rows := []struct {
		temp float64
		durs []float64
	}{
		{1.7, []float64{200, 167, 136, 115}},
		{3.3, []float64{161, 120, 97, 82}},
		{5.0, []float64{130, 88, 71, 61}},
		{7.2, []float64{100, 60, 49, 41}},
		{10.0, []float64{64, 39, 32, 27}},
		{15.0, []float64{32, 19, 16, 13}},
		{20.0, []float64{17, 10, 8, 7}},
		{25.0, []float64{9, 5, 4, 3}},
	}
	header := []float64{0.008, 0.013, 0.021, 0.032}
	for _, r := range rows {
		for j, d := range r.durs {
			temps = append(temps, r.temp)
			concs = append(concs, header[j])
			durs = append(durs, d)
		}
	}
	return temps, concs, durs
}

func newTestBank(t *testing.T, codec model.Codec) (*Bank, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	opts := DefaultOptions()
	opts.ForestEstimators = 10
	opts.Codec = codec
	opts.Logger = logger
	return New(opts), logger
}

func TestTrainAllVariantsPerTarget(t *testing.T) {
	b, _ := newTestBank(t, model.CodecGob)
	temps, concs, durs := sampleSeries()
	require.NoError(t, b.TrainAll(temps, concs, durs))

	assert.Equal(t,
		[]string{"Linear", "Polynomial_degree_2", "Polynomial_degree_3", "RandomForest", "Arrhenius"},
		b.Variants(Duration))
	for _, target := range []Target{Temperature, Concentration} {
		assert.Equal(t,
			[]string{"Linear", "Polynomial_degree_2", "Polynomial_degree_3", "RandomForest"},
			b.Variants(target), target.String())
	}
	assert.Equal(t, 13, b.Len())
}

func TestTrainAllIsolatesFailures(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	opts := DefaultOptions()
	opts.Logger = logger
	opts.Specs = []VariantSpec{
		{Kind: KindLinear},
		{Kind: KindPolynomial, Degree: 5}, // 構築時に失敗する
		{Kind: KindRandomForest, Estimators: 5, Seed: 42},
	}
	b := New(opts)

	// 温度が一定でも線形回帰は最小ノルム解で学習できる
	temps := []float64{10, 10, 10, 10, 10, 10}
	concs := []float64{0.01, 0.02, 0.03, 0.01, 0.02, 0.03}
	durs := []float64{50, 40, 30, 52, 41, 29}
	require.NoError(t, b.TrainAll(temps, concs, durs))

	for _, target := range Targets {
		assert.Equal(t, []string{"Linear", "RandomForest"}, b.Variants(target), target.String())
	}

	errs := logger.EntriesAt(log.LevelError)
	require.NotEmpty(t, errs)
	assert.Equal(t, "failed to train variant", errs[0]["message"])
	assert.True(t, logger.ContainsField(log.ModelNameKey, "Polynomial_degree_5"))
}

func TestTrainAllConstantConcentration(t *testing.T) {
	b, logger := newTestBank(t, model.CodecGob)
	var temps, concs, durs []float64
	for _, temp := range []float64{2, 5, 8, 11, 14, 17, 20, 23} {
		temps = append(temps, temp)
		concs = append(concs, 0.01)
		durs = append(durs, 150-5*temp)
	}
	require.NoError(t, b.TrainAll(temps, concs, durs))

	assert.Equal(t,
		[]string{"Linear", "Polynomial_degree_2", "Polynomial_degree_3", "RandomForest", "Arrhenius"},
		b.Variants(Duration))
	for _, target := range []Target{Temperature, Concentration} {
		assert.Equal(t,
			[]string{"Linear", "Polynomial_degree_2", "Polynomial_degree_3", "RandomForest"},
			b.Variants(target), target.String())
	}
	assert.Empty(t, logger.EntriesAt(log.LevelError))

	_, m, err := b.BestModel(Duration)
	require.NoError(t, err)
	lin, ok := b.Model(Duration, "Linear")
	require.True(t, ok)
	pred, err := lin.Predict(mat.NewDense(1, 2, []float64{10, 0.01}))
	require.NoError(t, err)
	assert.InDelta(t, 100, pred.At(0, 0), 1e-6)
	assert.True(t, m.IsFitted())
}

func TestTrainAllRejectsBadSeries(t *testing.T) {
	b, _ := newTestBank(t, model.CodecGob)
	assert.Error(t, b.TrainAll(nil, nil, nil))

	err := b.TrainAll([]float64{1, 2}, []float64{1}, []float64{1, 2})
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}

func TestBestModel(t *testing.T) {
	b, _ := newTestBank(t, model.CodecGob)

	_, _, err := b.BestModel(Duration)
	var nma *errors.NoModelAvailableError
	require.True(t, errors.As(err, &nma))
	assert.Equal(t, "duration", nma.Target)

	temps, concs, durs := sampleSeries()
	require.NoError(t, b.TrainAll(temps, concs, durs))

	name, m, err := b.BestModel(Duration)
	require.NoError(t, err)
	assert.Equal(t, "RandomForest", name)
	assert.True(t, m.IsFitted())

	require.NoError(t, b.Select(Duration, "Arrhenius"))
	name, _, err = b.BestModel(Duration)
	require.NoError(t, err)
	assert.Equal(t, "Arrhenius", name)

	assert.Error(t, b.Select(Temperature, "Arrhenius"))

	// 再学習で選択は破棄される
	require.NoError(t, b.TrainAll(temps, concs, durs))
	_, ok := b.Selection(Duration)
	assert.False(t, ok)
}

func TestBestModelFallsBackToFirstVariant(t *testing.T) {
	opts := DefaultOptions()
	opts.Specs = []VariantSpec{{Kind: KindLinear}, {Kind: KindPolynomial, Degree: 2}}
	b := New(opts)
	temps, concs, durs := sampleSeries()
	require.NoError(t, b.TrainAll(temps, concs, durs))

	name, _, err := b.BestModel(Temperature)
	require.NoError(t, err)
	assert.Equal(t, "Linear", name)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	temps, concs, durs := sampleSeries()
	probe := map[Target][]float64{
		Duration:      {12, 0.02},
		Temperature:   {48, 0.02},
		Concentration: {48, 12},
	}

	for _, codec := range []model.Codec{model.CodecGob, model.CodecZstd, model.CodecLZ4} {
		t.Run(string(codec), func(t *testing.T) {
			dir := t.TempDir()
			b, _ := newTestBank(t, codec)
			require.NoError(t, b.TrainAll(temps, concs, durs))
			require.NoError(t, b.Save(dir))

			_, err := os.Stat(filepath.Join(dir, "duration_Polynomial_degree_3"+codec.Extension()))
			require.NoError(t, err)

			loaded, _ := newTestBank(t, codec)
			n, err := loaded.Load(dir)
			require.NoError(t, err)
			assert.Equal(t, b.Len(), n)

			for _, target := range Targets {
				assert.Equal(t, b.Variants(target), loaded.Variants(target))
				in := mat.NewDense(1, 2, probe[target])
				for _, name := range b.Variants(target) {
					orig, _ := b.Model(target, name)
					back, ok := loaded.Model(target, name)
					require.True(t, ok, name)
					want, err := orig.Predict(in)
					require.NoError(t, err)
					got, err := back.Predict(in)
					require.NoError(t, err)
					assert.InDelta(t, want.At(0, 0), got.At(0, 0), 1e-9, "%s/%s", target, name)
				}
			}
		})
	}
}

func TestLoadSkipsUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	b, _ := newTestBank(t, model.CodecGob)
	temps, concs, durs := sampleSeries()
	require.NoError(t, b.TrainAll(temps, concs, durs))
	require.NoError(t, b.Save(dir))

	lin, _ := b.Model(Duration, "Linear")
	require.NoError(t, model.SaveModel(filepath.Join(dir, "yeast_Linear.gob"), "Linear", "yeast_Linear", model.CodecGob, lin))
	require.NoError(t, model.SaveModel(filepath.Join(dir, "duration_Spline.gob"), "Linear", "duration_Spline", model.CodecGob, lin))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("models"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	loaded, _ := newTestBank(t, model.CodecGob)
	n, err := loaded.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 13, n)
}

func TestLoadErrors(t *testing.T) {
	loaded, _ := newTestBank(t, model.CodecGob)
	_, err := loaded.Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	dir := t.TempDir()
	art, err := model.NewArtifact("Linear", "duration_Linear", model.CodecGob, &struct{ Intercept float64 }{1})
	require.NoError(t, err)
	art.Checksum++
	f, err := os.Create(filepath.Join(dir, "duration_Linear.gob"))
	require.NoError(t, err)
	require.NoError(t, model.SaveModelToWriter(art, f))
	require.NoError(t, f.Close())

	_, err = loaded.Load(dir)
	assert.True(t, errors.Is(err, errors.ErrChecksumMismatch))
}

func TestParseVariantName(t *testing.T) {
	spec, ok := ParseVariantName("Polynomial_degree_3")
	require.True(t, ok)
	assert.Equal(t, KindPolynomial, spec.Kind)
	assert.Equal(t, 3, spec.Degree)

	for _, name := range []string{"Polynomial_degree_7", "Polynomial_degree_x", "Spline", ""} {
		_, ok := ParseVariantName(name)
		assert.False(t, ok, name)
	}
	for _, s := range DefaultSpecs([]int{2, 3}, 100, 42, 0) {
		back, ok := ParseVariantName(s.Name())
		require.True(t, ok)
		assert.Equal(t, s.Name(), back.Name())
	}
}

func TestTargets(t *testing.T) {
	for _, target := range Targets {
		back, err := ParseTarget(target.String())
		require.NoError(t, err)
		assert.Equal(t, target, back)
	}
	tgt, err := ParseTarget("yeast")
	require.NoError(t, err)
	assert.Equal(t, Concentration, tgt)
	_, err = ParseTarget("pressure")
	assert.Error(t, err)

	assert.Equal(t, []float64{5, 0.02}, Duration.FeatureRow(5, 0.02, 60))
	assert.Equal(t, []float64{60, 0.02}, Temperature.FeatureRow(5, 0.02, 60))
	assert.Equal(t, []float64{60, 5}, Concentration.FeatureRow(5, 0.02, 60))
	assert.Equal(t, "percent", Concentration.Unit())
}

func TestTargetJSONKeys(t *testing.T) {
	data, err := json.Marshal(map[Target]int{Duration: 1, Concentration: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"duration":1,"concentration":2}`, string(data))

	var back map[Target]int
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 2, back[Concentration])
}
