// Package log defines standard attribute keys for experiment logging.
//
// The keys follow a hierarchical naming convention (e.g., "trial.index",
// "data.samples") to enable structured log analysis and filtering.

package log

// Experiment and Operation Context
const (
	// RunIDKey identifies one experiment run. Every log line emitted while the
	// orchestrator is running carries it.
	RunIDKey = "run.id"

	// ComponentKey identifies which component or package is logging.
	// Examples: "experiment", "automl", "dataset"
	ComponentKey = "ml.component"

	// OperationKey specifies the operation being performed.
	// Standard values: "load", "search", "evaluate", "save", "predict"
	OperationKey = "ml.operation"

	// PhaseKey indicates the phase of the experiment lifecycle.
	PhaseKey = "ml.phase"
)

// Trial Context
const (
	// TrialKey is the 1-based completion index of a trial.
	TrialKey = "trial.index"

	// TrainerKey identifies the trainer used by a trial.
	// Examples: "MultinomialNB", "LogisticRegression"
	TrainerKey = "trial.trainer"

	// HyperParamsKey contains the trial hyperparameters.
	HyperParamsKey = "trial.hyperparams"

	// TrialsKey records a number of trials (completed, failed, dispatched).
	TrialsKey = "trial.count"

	// FailedTrialsKey records the number of failed trials.
	FailedTrialsKey = "trial.failed"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in a dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features produced by the featurizer.
	FeaturesKey = "data.features"

	// PathKey is a file path being read or written.
	PathKey = "data.path"

	// DataSizeKey indicates a size in bytes.
	DataSizeKey = "data.size_bytes"
)

// Performance Metrics
const (
	// DurationSecondsKey records an elapsed time in seconds.
	DurationSecondsKey = "perf.duration_seconds"

	// BudgetSecondsKey records the search time budget in seconds.
	BudgetSecondsKey = "perf.budget_seconds"

	// AccuracyKey records model accuracy.
	AccuracyKey = "metrics.accuracy"

	// AUCKey records the area under the ROC curve.
	AUCKey = "metrics.auc"

	// F1Key records the F1 score.
	F1Key = "metrics.f1"

	// IterationKey records the current iteration of an iterative solver.
	IterationKey = "training.iteration"
)

// Prediction Context
const (
	// ConfidenceKey records prediction probability.
	ConfidenceKey = "preds.confidence"

	// LabelKey records a predicted label.
	LabelKey = "preds.label"
)

// Error Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Automatically populated by Error when the first field is an error.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationLoad     = "load"
	OperationSearch   = "search"
	OperationEvaluate = "evaluate"
	OperationSave     = "save"
	OperationPredict  = "predict"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseTesting    = "testing"
	PhaseInference  = "inference"
)
