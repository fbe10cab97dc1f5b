// Package log defines standard attribute keys for training and inference.
//
// Using these keys everywhere keeps log output searchable: every fit, every
// validation pass and every prediction carries the same field names. Keys
// follow a hierarchical naming convention (e.g. "model.name", "data.samples").

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the regression variant.
	// Examples: "Linear", "Polynomial_degree_2", "RandomForest", "Arrhenius"
	ModelNameKey = "model.name"

	// TargetKey identifies the predicted quantity.
	// Values: "duration", "temperature", "concentration"
	TargetKey = "model.target"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "validate", "save", "load"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "dataset", "bank", "validation", "predictor"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"

	// ModelCountKey counts fitted variants held by a bank.
	ModelCountKey = "model.count"

	// FitTierKey records which stage of the kinetics fallback chain produced
	// the fitted parameters.
	FitTierKey = "model.fit_tier"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// SkippedKey counts matrix cells skipped during reshaping.
	SkippedKey = "data.skipped"

	// OutliersKey counts samples dropped by the IQR filter.
	OutliersKey = "data.outliers"

	// PathKey records a data file or model directory path.
	PathKey = "data.path"

	// RowKey records the row index of a batch prediction.
	RowKey = "data.row"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// RMSEKey records in-sample root mean squared error.
	RMSEKey = "metrics.rmse"

	// MAEKey records in-sample mean absolute error.
	MAEKey = "metrics.mae"

	// R2ScoreKey records the R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// CVRMSEKey records cross-validated RMSE, the figure used for selection.
	CVRMSEKey = "metrics.cv_rmse"

	// CVStdKey records the spread of per-fold scores.
	CVStdKey = "metrics.cv_std"

	// EvaluationsKey records objective evaluations spent by an optimizer.
	EvaluationsKey = "training.evaluations"
)

// Prediction and Output Context
const (
	// PredictionKey records the predicted value.
	PredictionKey = "preds.value"

	// IntervalLowerKey and IntervalUpperKey record the confidence band.
	IntervalLowerKey = "preds.lower"
	IntervalUpperKey = "preds.upper"

	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"
)

// Error and Warning Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// CodecKey records the artifact codec used for persistence.
	CodecKey = "config.codec"
)

// Standard attribute value constants.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationValidate = "validate"
	OperationSave     = "save"
	OperationLoad     = "load"
	OperationReshape  = "reshape"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"
	PhaseIngestion  = "ingestion"
)
