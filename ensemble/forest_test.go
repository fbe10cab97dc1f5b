package ensemble

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

func fermentationGrid() (*mat.Dense, *mat.Dense) {
	temps := []float64{5, 10, 15, 20, 25}
	concs := []float64{0.05, 0.1, 0.25, 0.5, 1.0}
	n := len(temps) * len(concs)
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	i := 0
	for _, tv := range temps {
		for _, cv := range concs {
			X.Set(i, 0, tv)
			X.Set(i, 1, cv)
			y.Set(i, 0, 200*math.Exp(-0.08*tv)*math.Pow(cv, -0.3))
			i++
		}
	}
	return X, y
}

func TestRandomForestDeterministicAcrossWorkers(t *testing.T) {
	X, y := fermentationGrid()

	a := NewRandomForestRegressor(WithEstimators(30), WithWorkers(1))
	b := NewRandomForestRegressor(WithEstimators(30), WithWorkers(8))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pa, pb))
}

func TestRandomForestFitsTrainingData(t *testing.T) {
	X, y := fermentationGrid()
	rf := NewRandomForestRegressor()
	require.NoError(t, rf.Fit(X, y))
	assert.Len(t, rf.Trees, DefaultEstimators)

	pred, err := rf.Predict(X)
	require.NoError(t, err)
	r, _ := X.Dims()
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for i := 0; i < r; i++ {
		yMin = math.Min(yMin, y.At(i, 0))
		yMax = math.Max(yMax, y.At(i, 0))
	}
	for i := 0; i < r; i++ {
		// 平均なので観測範囲を出ない
		assert.GreaterOrEqual(t, pred.At(i, 0), yMin-1e-9)
		assert.LessOrEqual(t, pred.At(i, 0), yMax+1e-9)
	}
}

func TestRandomForestSeedChangesModel(t *testing.T) {
	X, y := fermentationGrid()
	a := NewRandomForestRegressor(WithEstimators(10), WithSeed(1))
	b := NewRandomForestRegressor(WithEstimators(10), WithSeed(2))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	in := mat.NewDense(1, 2, []float64{12, 0.3})
	pa, _ := a.Predict(in)
	pb, _ := b.Predict(in)
	assert.NotEqual(t, pa.At(0, 0), pb.At(0, 0))
}

func TestRandomForestPersistence(t *testing.T) {
	X, y := fermentationGrid()
	rf := NewRandomForestRegressor(WithEstimators(20))
	require.NoError(t, rf.Fit(X, y))

	art, err := model.NewArtifact("RandomForest", "duration_RandomForest", model.CodecLZ4, rf)
	require.NoError(t, err)
	var loaded RandomForestRegressor
	require.NoError(t, art.Decode(&loaded))

	want, err := rf.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestRandomForestErrors(t *testing.T) {
	rf := NewRandomForestRegressor()
	_, err := rf.Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	bad := NewRandomForestRegressor(WithEstimators(0))
	X, y := fermentationGrid()
	assert.Error(t, bad.Fit(X, y))

	clone := rf.Clone().(*RandomForestRegressor)
	assert.Equal(t, rf.NEstimators, clone.NEstimators)
	assert.Equal(t, rf.Seed, clone.Seed)
	assert.False(t, clone.IsFitted())
}
