package config

import (
	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/pkg/log"
)

// Validate は全ての項目を検証し、見つかったエラーをまとめて返す
func (c *Config) Validate() error {
	var errs []error

	if err := c.Data.Validate(); err != nil {
		errs = append(errs, errors.Wrap(err, "data"))
	}

	if err := c.Models.Validate(); err != nil {
		errs = append(errs, errors.Wrap(err, "models"))
	}

	if err := c.Training.Validate(); err != nil {
		errs = append(errs, errors.Wrap(err, "training"))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, errors.Wrap(err, "logging"))
	}

	return errors.Join(errs...)
}

func (d *DataConfig) Validate() error {
	if d.Path == "" {
		return errors.New("path cannot be empty")
	}
	return nil
}

func (m *ModelsConfig) Validate() error {
	_, err := model.ParseCodec(m.Codec)
	return err
}

func (t *TrainingConfig) Validate() error {
	var errs []error

	if t.CVFolds < 2 {
		errs = append(errs, errors.Newf("cv_folds must be at least 2, got %d", t.CVFolds))
	}

	if t.ForestEstimators < 1 {
		errs = append(errs, errors.Newf("forest_estimators must be at least 1, got %d", t.ForestEstimators))
	}

	if t.ForestWorkers < 0 {
		errs = append(errs, errors.New("forest_workers must be non-negative"))
	}

	for _, d := range t.PolynomialDegrees {
		if d != 2 && d != 3 {
			errs = append(errs, errors.Newf("polynomial_degrees must be 2 or 3, got %d", d))
		}
	}

	return errors.Join(errs...)
}

func (l *LoggingConfig) Validate() error {
	if _, err := log.ParseLevel(l.Level); err != nil {
		return err
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validFormats[l.Format] {
		return errors.Newf("invalid log format: %s (valid: json, console)", l.Format)
	}

	return nil
}
