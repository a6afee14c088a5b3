package classifiers

import (
	"github.com/YuminosukeSato/bayesnet/core/model"
	"github.com/YuminosukeSato/bayesnet/metrics"
	"github.com/YuminosukeSato/bayesnet/mst"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// TAN is a tree-augmented naive Bayes classifier: the class is a parent of
// every feature and the features form a maximum spanning tree over their
// class-conditional mutual information.
type TAN struct {
	Classifier

	// parent is the tree root; -1 picks the feature with the highest
	// mutual information with the class.
	parent int
}

// TANOption is a functional option for TAN
type TANOption func(*TAN)

// WithTANParent fixes the feature used as tree root.
func WithTANParent(parent int) TANOption {
	return func(t *TAN) {
		t.parent = parent
	}
}

// NewTAN creates a new TAN classifier
func NewTAN(opts ...TANOption) *TAN {
	t := &TAN{Classifier: newClassifier("TAN"), parent: -1}
	for _, opt := range opts {
		opt(t)
	}
	t.build = t.buildModel
	return t
}

func (t *TAN) buildModel(m *metrics.Metrics, weights []float64) error {
	nf := len(t.features)
	root := t.parent
	if root >= nf {
		return errors.NewValidationError("parent", "must be a feature index", root)
	}
	if root < 0 {
		best, err := m.SelectKBestWeighted(weights, false, 1)
		if err != nil {
			return err
		}
		root = best[0]
	}

	edgeWeights, err := m.ConditionalEdgeWeights(weights)
	if err != nil {
		return err
	}
	tree, err := mst.MaximumSpanningTree(t.features, edgeWeights, root)
	if err != nil {
		return err
	}
	for _, e := range tree {
		if err := t.model.AddEdge(t.features[e.From], t.features[e.To]); err != nil {
			return err
		}
	}
	for _, f := range t.features {
		if err := t.model.AddEdge(t.className, f); err != nil {
			return err
		}
	}
	return nil
}

// SetHyperparameters accepts "parent" (int, -1 for automatic).
func (t *TAN) SetHyperparameters(params map[string]any) error {
	if err := model.CheckKeys(params, []string{"parent"}); err != nil {
		return err
	}
	parent, ok, err := model.ParamInt(params, "parent")
	if err != nil {
		return err
	}
	if ok {
		if parent < -1 {
			return errors.NewValidationError("parent", "must be -1 or a feature index", parent)
		}
		t.parent = parent
	}
	return nil
}

// GetHyperparameters returns the current hyperparameters.
func (t *TAN) GetHyperparameters() map[string]any {
	return map[string]any{"parent": t.parent}
}

// Summary exports the fitted model's metadata.
func (t *TAN) Summary() (*model.ModelSummary, error) {
	return t.summary(t.GetHyperparameters())
}
