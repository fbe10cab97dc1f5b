package predictor

import (
	"github.com/YuminosukeSato/fermpredict/config"
	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/ensemble"
	"github.com/YuminosukeSato/fermpredict/pkg/log"
)

// Options は Predictor の設定
type Options struct {
	// DataPath は学習に使うワイド形式CSV
	DataPath string
	// ModelDir が空でなければ起動時に読み込み、学習後に保存する
	ModelDir          string
	Codec             model.Codec
	Seed              uint64
	CVFolds           int
	ForestEstimators  int
	ForestWorkers     int
	PolynomialDegrees []int
	Logger            log.Logger
}

// DefaultOptions は既定の設定を返す
func DefaultOptions() Options {
	return Options{
		Codec:             model.CodecGob,
		Seed:              ensemble.DefaultSeed,
		CVFolds:           5,
		ForestEstimators:  ensemble.DefaultEstimators,
		PolynomialDegrees: []int{2, 3},
	}
}

// OptionsFromConfig は設定ファイルの内容を Options に変換する
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	codec, err := model.ParseCodec(cfg.Models.Codec)
	if err != nil {
		return Options{}, err
	}
	return Options{
		DataPath:          cfg.Data.Path,
		ModelDir:          cfg.Models.Dir,
		Codec:             codec,
		Seed:              cfg.Training.Seed,
		CVFolds:           cfg.Training.CVFolds,
		ForestEstimators:  cfg.Training.ForestEstimators,
		ForestWorkers:     cfg.Training.ForestWorkers,
		PolynomialDegrees: append([]int(nil), cfg.Training.PolynomialDegrees...),
	}, nil
}
