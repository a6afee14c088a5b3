package classifiers

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bayesnet/core/model"
	"github.com/YuminosukeSato/bayesnet/network"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
	"github.com/YuminosukeSato/bayesnet/preprocessing"
)

// Discretized fits any structure learner on continuous attributes by
// running them through a Discretizer first. The state map handed to the
// inner learner comes from the discretizer's bin counts.
type Discretized struct {
	inner       model.StructureLearner
	discretizer preprocessing.Discretizer
	fitted      bool
}

// NewDiscretized composes inner with discretizer.
func NewDiscretized(inner model.StructureLearner, discretizer preprocessing.Discretizer) *Discretized {
	return &Discretized{inner: inner, discretizer: discretizer}
}

// Inner returns the wrapped learner.
func (d *Discretized) Inner() model.StructureLearner { return d.inner }

// Fit discretizes X (samples x features, continuous) and fits the inner
// learner. The class cardinality is max(y)+1.
func (d *Discretized) Fit(X mat.Matrix, y []int, features []string, className string, smoothing network.Smoothing) error {
	d.fitted = false
	if len(y) == 0 {
		return errors.NewValidationError("y", "no samples", 0)
	}
	if err := d.discretizer.Fit(X, y); err != nil {
		return errors.Wrap(err, "discretize")
	}
	codes, err := d.discretizer.Transform(X)
	if err != nil {
		return errors.Wrap(err, "discretize")
	}
	binStates := d.discretizer.States()
	if len(binStates) != len(features) {
		return errors.NewDimensionError("Discretized.Fit", len(features), len(binStates), 1)
	}

	nClasses := 0
	for _, label := range y {
		if label < 0 {
			return errors.NewValidationError("y", "labels must be non-negative", label)
		}
		nClasses = max(nClasses, label+1)
	}
	states := make(map[string]int, len(features)+1)
	for i, f := range features {
		states[f] = binStates[i]
	}
	states[className] = nClasses

	if err := d.inner.Fit(codes, y, features, className, states, smoothing); err != nil {
		return err
	}
	d.fitted = true
	return nil
}

func (d *Discretized) transform(method string, X mat.Matrix) (*mat.Dense, error) {
	if !d.fitted {
		return nil, errors.NewNotFittedError("Discretized("+d.inner.Name()+")", method)
	}
	return d.discretizer.Transform(X)
}

// Predict returns the most probable class of every row of X.
func (d *Discretized) Predict(X mat.Matrix) ([]int, error) {
	codes, err := d.transform("Predict", X)
	if err != nil {
		return nil, err
	}
	return d.inner.Predict(codes)
}

// PredictProba returns a samples x classes matrix whose rows sum to 1.
func (d *Discretized) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	codes, err := d.transform("PredictProba", X)
	if err != nil {
		return nil, err
	}
	return d.inner.PredictProba(codes)
}

// Score returns the accuracy of Predict against y.
func (d *Discretized) Score(X mat.Matrix, y []int) (float64, error) {
	codes, err := d.transform("Score", X)
	if err != nil {
		return 0, err
	}
	return d.inner.Score(codes, y)
}
