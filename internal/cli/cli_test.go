package cli

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/predictor"
)

const tableCSV = `°C,0.008%,0.013%,0.021%,0.032%
2,150.0,126.4,106.8,92.5
5,125.3,105.6,89.2,77.3
8,104.7,88.2,74.5,64.6
11,87.4,73.7,62.2,53.9
14,73.0,61.5,52.0,45.0
17,61.0,51.4,43.4,37.6
20,50.9,42.9,36.3,31.4
25,37.7,31.8,26.9,23.3
`

// fixture はデータ・設定・モデル保存先を一時ディレクトリに用意する
func fixture(t *testing.T) (dataPath, cfgPath string) {
	t.Helper()
	dir := t.TempDir()
	dataPath = filepath.Join(dir, "table.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(tableCSV), 0o600))

	cfg := "data:\n  path: " + dataPath + "\n" +
		"models:\n  dir: " + filepath.Join(dir, "models") + "\n" +
		"training:\n  forest_estimators: 10\n" +
		"logging:\n  level: error\n  format: json\n"
	cfgPath = filepath.Join(dir, "fermpredict.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return dataPath, cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSummaryCommand(t *testing.T) {
	_, cfg := fixture(t)
	out, err := run(t, "summary", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Total Samples: 32")
	assert.Contains(t, out, "Temperature Range: 2.0°C - 25.0°C")

	out, err = run(t, "summary", "--config", cfg, "-o", "json")
	require.NoError(t, err)
	var s map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 32.0, s["total_samples"])
}

func TestPredictCommand(t *testing.T) {
	_, cfg := fixture(t)

	out, err := run(t, "predict", "--config", cfg, "--temp", "15", "--yeast", "0.013", "-o", "json")
	require.NoError(t, err)
	var pred predictor.Prediction
	require.NoError(t, json.Unmarshal([]byte(out), &pred))
	assert.Equal(t, "duration", pred.Target)
	assert.Equal(t, "hours", pred.Unit)
	assert.LessOrEqual(t, pred.ConfidenceInterval.Lower, pred.Value)
	assert.GreaterOrEqual(t, pred.ConfidenceInterval.Upper, pred.Value)

	// 2回目は保存済みモデルを読み込む
	out, err = run(t, "predict", "--config", cfg, "--time", "60", "--yeast", "0.013")
	require.NoError(t, err)
	assert.Contains(t, out, "Predicted Temperature:")
	assert.Contains(t, out, "Model Used: RandomForest")
}

func TestPredictCommandRejectsWrongInputCount(t *testing.T) {
	_, cfg := fixture(t)
	_, err := run(t, "predict", "--config", cfg, "--temp", "15")
	var iae *errors.InvalidArgumentError
	assert.True(t, errors.As(err, &iae), "got %v", err)
}

func TestRootRejectsBadFlags(t *testing.T) {
	_, cfg := fixture(t)
	_, err := run(t, "summary", "--config", cfg, "-o", "yaml")
	assert.Error(t, err)

	_, err = run(t, "summary", "--config", cfg, "--codec", "brotli")
	assert.Error(t, err)

	_, err = run(t, "summary", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBatchCommand(t *testing.T) {
	_, cfg := fixture(t)
	input := filepath.Join(t.TempDir(), "queries.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"temperature,yeast_concentration,fermentation_time\n"+
			"15,0.013,\n"+
			"15,,\n"+
			",0.013,60\n"), 0o600))

	out, err := run(t, "batch", "--config", cfg, "--input", input, "-o", "json")
	require.NoError(t, err)

	var rows []batchRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "duration", rows[0].Prediction.Target)
	assert.Nil(t, rows[1].Prediction)
	assert.NotEmpty(t, rows[1].Error)
	assert.Equal(t, "temperature", rows[2].Prediction.Target)
}

func TestReadQueries(t *testing.T) {
	queries, err := readQueries(strings.NewReader("Temp, Yeast ,time,note\n10,0.02,,x\n,abc,50\n"))
	require.NoError(t, err)
	require.Len(t, queries, 2)

	assert.Equal(t, 10.0, *queries[0].Temperature)
	assert.Equal(t, 0.02, *queries[0].Concentration)
	assert.Nil(t, queries[0].Duration)

	assert.Nil(t, queries[1].Temperature)
	assert.True(t, math.IsNaN(*queries[1].Concentration))
	assert.Equal(t, 50.0, *queries[1].Duration)

	_, err = readQueries(strings.NewReader("a,b\n1,2\n"))
	assert.Error(t, err)
}

func TestPlotCommand(t *testing.T) {
	_, cfg := fixture(t)
	outDir := filepath.Join(t.TempDir(), "plots")
	out, err := run(t, "plot", "--config", cfg, "--target", "concentration", "--out", outDir, "--format", "svg")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(outDir, "concentration_predicted_vs_actual.svg"))
	_, err = os.Stat(filepath.Join(outDir, "concentration_residuals.svg"))
	assert.NoError(t, err)

	_, err = run(t, "plot", "--config", cfg, "--format", "gif")
	assert.Error(t, err)
}

func TestTrainAndPerformanceCommands(t *testing.T) {
	_, cfg := fixture(t)
	out, err := run(t, "train", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Trained 13 models")

	out, err = run(t, "performance", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "MODEL VALIDATION REPORT")
	assert.Contains(t, out, "DURATION PREDICTION MODELS")
	assert.Contains(t, out, "*")
}
