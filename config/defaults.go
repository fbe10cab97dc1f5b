package config

func Default() *Config {
	return &Config{
		Data: DataConfig{
			Path: "data/fermentation_analysis.csv",
		},
		Models: ModelsConfig{
			Dir:   "models",
			Codec: "gob",
		},
		Training: TrainingConfig{
			Seed:              42,
			CVFolds:           5,
			ForestEstimators:  100,
			ForestWorkers:     0,
			PolynomialDegrees: []int{2, 3},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
