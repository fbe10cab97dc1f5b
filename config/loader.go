package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/pkg/log"
)

// Load は path の設定を読み込む。記述のない項目は Default の値になる
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	data = substituteEnvVars(data)

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}

// LoadOrDefault は読み込みに失敗したら警告を出して Default を返す
func LoadOrDefault(path string) *Config {
	if path == "" {
		return Default()
	}

	cfg, err := Load(path)
	if err != nil {
		log.GetLoggerWithName("config").Warn("using default config",
			log.PathKey, path, log.ErrAttrKey, err)
		return Default()
	}

	return cfg
}
