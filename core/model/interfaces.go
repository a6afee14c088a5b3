package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bayesnet/network"
)

// Prediction pairs a predicted label with the posterior probability of
// that label.
type Prediction struct {
	Label      int     `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Predictor is implemented by every fitted learner. X holds one sample per
// row with integer-coded feature values.
type Predictor interface {
	// Predict returns the arg-max class of every row.
	Predict(X mat.Matrix) ([]int, error)

	// PredictProba returns a samples x classes matrix whose rows sum to 1.
	PredictProba(X mat.Matrix) (*mat.Dense, error)

	// PredictWithConfidence returns the label and its probability per row.
	PredictWithConfidence(X mat.Matrix) ([]Prediction, error)

	// Score returns the accuracy of Predict against y.
	Score(X mat.Matrix, y []int) (float64, error)
}

// Describer exposes the learned structure for rendering and diagnostics.
type Describer interface {
	// Graph renders the learned DAG(s) in DOT format, one line per entry.
	Graph(title string) []string

	// Show returns one human-readable line per node with its children.
	Show() []string

	NumberOfNodes() int
	NumberOfEdges() int
	NumberOfStates() int

	Status() Status
	Notes() []string
}

// HyperparameterSetter accepts a closed set of recognized keys.
type HyperparameterSetter interface {
	// SetHyperparameters applies params. Unknown keys fail with a
	// ValidationError listing all of them and nothing is applied.
	SetHyperparameters(params map[string]any) error

	// GetHyperparameters returns the current values keyed like SetHyperparameters.
	GetHyperparameters() map[string]any
}

// StructureLearner is the capability set shared by TAN, KDB, SPODE, AODE
// and BoostAODE.
type StructureLearner interface {
	// Fit learns structure and parameters from X (samples x features),
	// labels y, the feature names, the class name and the cardinality of
	// every variable. On error the learner is left unfitted.
	Fit(X mat.Matrix, y []int, features []string, className string, states map[string]int, smoothing network.Smoothing) error

	Predictor
	Describer
	HyperparameterSetter

	// Name is the learner kind, e.g. "TAN".
	Name() string

	// Summary exports the fitted model's metadata.
	Summary() (*ModelSummary, error)
}

// NetworkInspector is implemented by single-network learners.
type NetworkInspector interface {
	TopologicalOrder() ([]string, error)
	DumpCPT() string
}
