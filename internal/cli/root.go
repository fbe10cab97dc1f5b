// Package cli は fermpredict コマンドを定義する。
// ここには整形と引数処理だけを置き、計算は predictor に任せる。
package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/fermpredict/config"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/pkg/log"
	"github.com/YuminosukeSato/fermpredict/predictor"
)

// app は全てのサブコマンドで共有するフラグと設定
type app struct {
	cfgFile  string
	dataPath string
	modelDir string
	codec    string
	output   string
	verbose  bool

	cfg *config.Config
}

// NewRootCommand はサブコマンドを登録したルートコマンドを作る
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "fermpredict",
		Short: "Predict fermentation temperature, yeast concentration or time",
		Long: `Predicts one of temperature (°C), yeast concentration (%) and fermentation
time (hours) from the other two, using regression models trained on an
empirical fermentation table.`,
		Example: `  # Fermentation time from temperature and yeast concentration
  fermpredict predict --temp 15 --yeast 0.1

  # Temperature from time and yeast concentration
  fermpredict predict --time 50 --yeast 0.1

  # Retrain and show validation metrics
  fermpredict train
  fermpredict performance`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "YAML config file (defaults are used when empty)")
	flags.StringVar(&a.dataPath, "data-path", "", "fermentation table CSV (overrides config)")
	flags.StringVar(&a.modelDir, "model-dir", "", "directory to save/load trained models (overrides config)")
	flags.StringVar(&a.codec, "codec", "", "model artifact codec: gob, zstd or lz4 (overrides config)")
	flags.StringVarP(&a.output, "output", "o", "text", "output format: text or json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newPredictCommand(a),
		newTrainCommand(a),
		newPerformanceCommand(a),
		newSummaryCommand(a),
		newBatchCommand(a),
		newPlotCommand(a),
	)
	return root
}

// Execute はルートコマンドを実行する
func Execute() error {
	return NewRootCommand().Execute()
}

// setup は設定を読み込み、フラグで上書きし、ロガーを構成する
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.cfgFile != "" {
		loaded, err := config.Load(a.cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("data-path") {
		cfg.Data.Path = a.dataPath
	}
	if flags.Changed("model-dir") {
		cfg.Models.Dir = a.modelDir
	}
	if flags.Changed("codec") {
		cfg.Models.Codec = a.codec
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if a.output != "text" && a.output != "json" {
		return errors.NewValidationError("output", "must be text or json", a.output)
	}

	if err := log.SetupLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) newPredictor() (*predictor.Predictor, error) {
	opts, err := predictor.OptionsFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return predictor.New(opts), nil
}

func (a *app) jsonOutput() bool { return a.output == "json" }

// print は JSON 指定なら v を、そうでなければ text を書き出す
func (a *app) print(w io.Writer, v any, text func(io.Writer) error) error {
	if a.jsonOutput() {
		return writeJSON(w, v)
	}
	return text(w)
}
