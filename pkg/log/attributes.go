// Standard attribute keys for pipeline logging. Using fixed keys keeps log
// output filterable across components.

package log

// Component and operation context.
const (
	// ComponentKey identifies which package emitted the record.
	// Examples: "dataset", "modelselection", "tracking"
	ComponentKey = "component"

	// OperationKey specifies the operation being performed.
	// Standard values: "load", "split", "fit", "predict", "log_model"
	OperationKey = "operation"

	// ModelNameKey identifies the model being trained or registered.
	// Examples: "housing-prices-estimator-LR"
	ModelNameKey = "model"
)

// Data shape.
const (
	// SamplesKey is the number of rows being processed.
	SamplesKey = "samples"

	// FeaturesKey is the number of feature columns being processed.
	FeaturesKey = "features"
)

// Training and tracking context.
const (
	// RunIDKey is the tracking-service run identifier.
	RunIDKey = "run_id"

	// ScoreKey is a scoring-metric value (R² unless stated otherwise).
	ScoreKey = "score"

	// AlphaKey is the Lasso regularization strength under evaluation.
	AlphaKey = "alpha"

	// DurationSecondsKey records elapsed wall-clock time in seconds.
	DurationSecondsKey = "duration_seconds"
)
