package classifiers

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bayesnet/core/model"
	"github.com/YuminosukeSato/bayesnet/metrics"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// KDB is a k-dependence Bayesian classifier: every feature has the class
// and at most k other features as parents.
type KDB struct {
	Classifier

	k int
	// theta is the minimum conditional mutual information of a parent arc.
	theta float64
}

// KDBOption is a functional option for KDB
type KDBOption func(*KDB)

// WithK sets the maximum number of feature parents per feature.
func WithK(k int) KDBOption {
	return func(kdb *KDB) {
		kdb.k = k
	}
}

// WithTheta sets the minimum conditional mutual information of an arc.
func WithTheta(theta float64) KDBOption {
	return func(kdb *KDB) {
		kdb.theta = theta
	}
}

// NewKDB creates a new KDB classifier with k=2 and theta=0.03 unless
// overridden.
func NewKDB(opts ...KDBOption) *KDB {
	kdb := &KDB{Classifier: newClassifier("KDB"), k: 2, theta: 0.03}
	for _, opt := range opts {
		opt(kdb)
	}
	kdb.build = kdb.buildModel
	return kdb
}

// K returns the dependence bound.
func (kdb *KDB) K() int { return kdb.k }

func (kdb *KDB) buildModel(m *metrics.Metrics, weights []float64) error {
	if kdb.k < 0 {
		return errors.NewValidationError("k", "must be non-negative", kdb.k)
	}
	condWeights, err := m.ConditionalEdgeWeights(weights)
	if err != nil {
		return err
	}
	order, err := m.SelectKBestWeighted(weights, false, 0)
	if err != nil {
		return err
	}

	// 使用済みのエントリは-1で潰す
	w := mat.DenseCopyOf(condWeights)
	placed := make([]int, 0, len(order))
	for _, f := range order {
		if err := kdb.model.AddEdge(kdb.className, kdb.features[f]); err != nil {
			return err
		}
		if err := kdb.addParents(f, placed, w); err != nil {
			return err
		}
		placed = append(placed, f)
	}
	return nil
}

// addParents links up to min(k, |placed|) already placed features to idx,
// strongest conditional mutual information first.
func (kdb *KDB) addParents(idx int, placed []int, w *mat.Dense) error {
	n := min(kdb.k, len(placed))
	for i := 0; i < n; i++ {
		best := -1
		bestValue := 0.0
		for _, s := range placed {
			v := w.At(idx, s)
			if best == -1 || v > bestValue {
				best, bestValue = s, v
			}
		}
		if bestValue <= kdb.theta {
			return nil
		}
		if err := kdb.model.AddEdge(kdb.features[best], kdb.features[idx]); err != nil {
			return err
		}
		w.Set(idx, best, -1)
	}
	return nil
}

// SetHyperparameters accepts "k" (int) and "theta" (float).
func (kdb *KDB) SetHyperparameters(params map[string]any) error {
	if err := model.CheckKeys(params, []string{"k", "theta"}); err != nil {
		return err
	}
	k, hasK, err := model.ParamInt(params, "k")
	if err != nil {
		return err
	}
	if hasK && k < 0 {
		return errors.NewValidationError("k", "must be non-negative", k)
	}
	theta, hasTheta, err := model.ParamFloat(params, "theta")
	if err != nil {
		return err
	}
	if hasK {
		kdb.k = k
	}
	if hasTheta {
		kdb.theta = theta
	}
	return nil
}

// GetHyperparameters returns the current hyperparameters.
func (kdb *KDB) GetHyperparameters() map[string]any {
	return map[string]any{"k": kdb.k, "theta": kdb.theta}
}

// Summary exports the fitted model's metadata.
func (kdb *KDB) Summary() (*model.ModelSummary, error) {
	return kdb.summary(kdb.GetHyperparameters())
}
