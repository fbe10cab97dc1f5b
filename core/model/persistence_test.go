package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

type fakeParams struct {
	BaseEstimator
	Coefficients []float64
	Intercept    float64
}

func TestArtifactRoundTrip(t *testing.T) {
	params := fakeParams{Coefficients: []float64{1.5, -2.25}, Intercept: 3}
	params.SetFitted()

	for _, codec := range []Codec{CodecGob, CodecZstd, CodecLZ4} {
		t.Run(string(codec), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "duration_Linear"+codec.Extension())
			require.NoError(t, SaveModel(path, "Linear", "duration_Linear", codec, &params))

			art, err := LoadArtifact(path)
			require.NoError(t, err)
			assert.Equal(t, "Linear", art.Kind)
			assert.Equal(t, codec, art.Codec)

			var got fakeParams
			require.NoError(t, art.Decode(&got))
			assert.Equal(t, params.Coefficients, got.Coefficients)
			assert.Equal(t, params.Intercept, got.Intercept)
			assert.True(t, got.IsFitted())
		})
	}
}

func TestArtifactChecksumMismatch(t *testing.T) {
	art, err := NewArtifact("Linear", "duration_Linear", CodecGob, &fakeParams{Intercept: 1})
	require.NoError(t, err)
	art.Checksum++

	var got fakeParams
	err = art.Decode(&got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrChecksumMismatch))
}

func TestArtifactRejectsUnknownVersion(t *testing.T) {
	art, err := NewArtifact("Linear", "x", CodecGob, &fakeParams{})
	require.NoError(t, err)
	art.Version = 99
	assert.Error(t, art.Decode(&fakeParams{}))
}

func TestSaveModelOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.gob")
	require.NoError(t, SaveModel(path, "Linear", "m", CodecGob, &fakeParams{Intercept: 1}))
	require.NoError(t, SaveModel(path, "Linear", "m", CodecGob, &fakeParams{Intercept: 2}))

	art, err := LoadArtifact(path)
	require.NoError(t, err)
	var got fakeParams
	require.NoError(t, art.Decode(&got))
	assert.Equal(t, 2.0, got.Intercept)
}

func TestLoadArtifactMissingFile(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "missing.gob"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSplitArtifactPath(t *testing.T) {
	tests := []struct {
		path  string
		stem  string
		codec Codec
		ok    bool
	}{
		{"models/duration_Linear.gob", "duration_Linear", CodecGob, true},
		{"temperature_RandomForest.gob.zst", "temperature_RandomForest", CodecZstd, true},
		{"concentration_Polynomial_degree_2.gob.lz4", "concentration_Polynomial_degree_2", CodecLZ4, true},
		{"README.md", "", CodecGob, false},
		{".gob", "", CodecGob, false},
	}
	for _, tt := range tests {
		stem, codec, ok := SplitArtifactPath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		if tt.ok {
			assert.Equal(t, tt.stem, stem)
			assert.Equal(t, tt.codec, codec)
		}
	}
}

func TestParseCodec(t *testing.T) {
	c, err := ParseCodec("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, CodecZstd, c)

	c, err = ParseCodec("")
	require.NoError(t, err)
	assert.Equal(t, CodecGob, c)

	_, err = ParseCodec("brotli")
	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestColumnHelpers(t *testing.T) {
	y := ColumnVector([]float64{1, 2, 3})
	r, c := y.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 1, c)
	assert.Equal(t, []float64{1, 2, 3}, Column(y))
}
