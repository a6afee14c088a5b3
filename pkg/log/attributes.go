// Standard attribute keys for bayesnet log records.
//
// Keys follow a dotted hierarchy ("model.name", "data.samples") so records
// from different classifiers can be filtered the same way.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the classifier kind, e.g. "TAN", "BoostAODE".
	ModelNameKey = "model.name"

	// EstimatorIDKey is the per-instance UUID assigned when a model is created.
	EstimatorIDKey = "estimator.id"

	// OperationKey names the operation: "fit", "predict", "score".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase.
	PhaseKey = "ml.phase"

	// SmoothingKey records the CPT smoothing policy used by a fit.
	SmoothingKey = "model.smoothing"

	// HyperParamsKey carries the hyperparameter map passed to SetHyperparameters.
	HyperParamsKey = "model.hyperparams"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"

	// ClassesKey is the number of class states.
	ClassesKey = "data.classes"

	// StatesKey is the cardinality of a single variable.
	StatesKey = "data.states"
)

// Graph structure.
const (
	NodesKey  = "graph.nodes"
	EdgesKey  = "graph.edges"
	ParentKey = "graph.parent"
	ChildKey  = "graph.child"
	RootKey   = "graph.root"
)

// Performance and results.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	IterationKey  = "training.iteration"
	PredsKey      = "preds.count"
	ThresholdKey  = "preds.threshold"
)

// Boosting.
const (
	// AlphaKey is the significance assigned to a boosted model.
	AlphaKey = "boost.alpha"

	// EpsilonKey is the weighted training error of a boosted model.
	EpsilonKey = "boost.epsilon"

	// ModelsKey is the number of base models in an ensemble.
	ModelsKey = "boost.models"

	// StopReasonKey records why the boosting loop ended.
	StopReasonKey = "boost.stop_reason"

	// FeatureKey names the feature a boosting round used as superparent.
	FeatureKey = "boost.feature"

	// SelectedKey lists features chosen by a feature selection pass.
	SelectedKey = "select.features"
)

// Error context.
const (
	ErrorCodeKey = "error.code"
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
	OperationSelect  = "select"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorCycle             = "STRUCTURAL_VIOLATION"
)
