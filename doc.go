// Package fermpredict predicts yeast fermentation conditions from a wide
// fermentation-time table.
//
// Given two of temperature (°C), yeast concentration (%) and fermentation
// duration (hours), fermpredict predicts the third. Each target is served by
// a small bank of regressors (linear, polynomial, random forest and, for
// duration, an Arrhenius-type kinetic model). The variant with the lowest
// cross-validated RMSE is selected after training.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/fermpredict/predictor"
//	)
//
//	func main() {
//	    opts := predictor.DefaultOptions()
//	    opts.DataPath = "data/fermentation_analysis.csv"
//	    opts.ModelDir = "models"
//
//	    p := predictor.New(opts)
//	    pred, err := p.Predict(predictor.Query{
//	        Temperature:   predictor.Given(15),
//	        Concentration: predictor.Given(0.1),
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    fmt.Printf("%.2f %s (%.2f - %.2f) using %s\n",
//	        pred.Value, pred.Unit,
//	        pred.ConfidenceInterval.Lower, pred.ConfidenceInterval.Upper,
//	        pred.ModelUsed)
//	}
//
// # Packages
//
//   - dataset: CSV reading, wide-to-long reshaping and IQR outlier removal
//   - linear, ensemble, tree, kinetics: regressors
//   - bank: per-target model bank, selection and persistence
//   - validation: k-fold cross-validation, metrics, residuals and reports
//   - predictor: train-on-demand prediction with range warnings and bands
//   - report: diagnostic plots
//   - config: YAML configuration
//   - core/model: estimator interfaces and model codecs
//   - pkg/errors, pkg/log: typed errors, warnings and structured logging
//
// The fermpredict command in cmd/fermpredict exposes predict, train,
// performance, summary, batch and plot subcommands.
package fermpredict
