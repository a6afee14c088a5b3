package classifiers

import (
	"github.com/YuminosukeSato/bayesnet/core/model"
	"github.com/YuminosukeSato/bayesnet/metrics"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// SPODE is a superparent one-dependence estimator. The superparent is a
// parent of the class and of every other feature; the class is a parent of
// every feature except the superparent.
type SPODE struct {
	Classifier

	parent int
}

// NewSPODE creates a SPODE whose superparent is the feature at index parent.
func NewSPODE(parent int) *SPODE {
	s := &SPODE{Classifier: newClassifier("SPODE"), parent: parent}
	s.build = s.buildModel
	return s
}

// Parent returns the superparent feature index.
func (s *SPODE) Parent() int { return s.parent }

func (s *SPODE) buildModel(_ *metrics.Metrics, _ []float64) error {
	if s.parent < 0 || s.parent >= len(s.features) {
		return errors.NewValidationError("parent", "must be a feature index", s.parent)
	}
	superparent := s.features[s.parent]
	if err := s.model.AddEdge(superparent, s.className); err != nil {
		return err
	}
	for i, f := range s.features {
		if i == s.parent {
			continue
		}
		if err := s.model.AddEdge(superparent, f); err != nil {
			return err
		}
		if err := s.model.AddEdge(s.className, f); err != nil {
			return err
		}
	}
	return nil
}

// SetHyperparameters accepts "parent" (int).
func (s *SPODE) SetHyperparameters(params map[string]any) error {
	if err := model.CheckKeys(params, []string{"parent"}); err != nil {
		return err
	}
	parent, ok, err := model.ParamInt(params, "parent")
	if err != nil {
		return err
	}
	if ok {
		if parent < 0 {
			return errors.NewValidationError("parent", "must be a feature index", parent)
		}
		s.parent = parent
	}
	return nil
}

// GetHyperparameters returns the current hyperparameters.
func (s *SPODE) GetHyperparameters() map[string]any {
	return map[string]any{"parent": s.parent}
}

// Summary exports the fitted model's metadata.
func (s *SPODE) Summary() (*model.ModelSummary, error) {
	return s.summary(s.GetHyperparameters())
}
