// Package config はYAML設定ファイルの読み込みと検証を行う。
package config

// Config はアプリケーション全体の設定
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Models   ModelsConfig   `yaml:"models"`
	Training TrainingConfig `yaml:"training"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DataConfig は学習データの場所
type DataConfig struct {
	Path string `yaml:"path"`
}

// ModelsConfig は学習済みモデルの保存先
type ModelsConfig struct {
	// Dir が空ならモデルを保存・読み込みしない
	Dir string `yaml:"dir"`
	// Codec: gob, zstd, lz4
	Codec string `yaml:"codec"`
}

type TrainingConfig struct {
	Seed              uint64 `yaml:"seed"`
	CVFolds           int    `yaml:"cv_folds"`
	ForestEstimators  int    `yaml:"forest_estimators"`
	ForestWorkers     int    `yaml:"forest_workers"` // 0 = NumCPU
	PolynomialDegrees []int  `yaml:"polynomial_degrees"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
