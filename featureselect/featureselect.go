// Package featureselect implements correlation based feature subset
// selection (CFS, FCBF, IWSS) on weighted, discretized samples. The
// boosted ensemble uses it to choose the superparents of its first models.
package featureselect

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/bayesnet/metrics"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
	"github.com/YuminosukeSato/bayesnet/pkg/log"
)

// Selector is a fitted feature subset selector.
type Selector interface {
	// Fit runs the search.
	Fit() error
	// Features returns the selected feature indices in selection order.
	Features() ([]int, error)
	// Scores returns the score recorded for each selected feature.
	Scores() ([]float64, error)
	// Name identifies the algorithm, e.g. "CFS".
	Name() string
}

// featureSelect holds what the three searches share: symmetrical
// uncertainty against the class and a per-pair cache.
type featureSelect struct {
	name        string
	metrics     *metrics.Metrics
	nFeatures   int
	maxFeatures int
	weights     []float64

	suLabels   []float64
	suFeatures map[[2]int]float64

	selected []int
	scores   []float64
	fitted   bool
	logger   log.Logger
}

// newFeatureSelect validates samples (features rows then the class row)
// and weights. maxFeatures == 0 allows every feature.
func newFeatureSelect(name string, samples [][]int, features []string, className string, maxFeatures, classNumStates int, weights []float64) (*featureSelect, error) {
	if len(samples) == 0 || len(samples[0]) == 0 {
		return nil, errors.NewValidationError("samples", "no samples", len(samples))
	}
	if len(features) == 0 {
		return nil, errors.NewValidationError("features", "no features", 0)
	}
	m, err := metrics.New(samples, features, className, classNumStates)
	if err != nil {
		return nil, err
	}
	n := m.NumSamples()
	if weights != nil && len(weights) != n {
		return nil, errors.NewDimensionError(name, n, len(weights), 0)
	}
	if maxFeatures < 0 || maxFeatures > len(features) {
		return nil, errors.NewValidationError("maxFeatures", "must be in [0, number of features]", maxFeatures)
	}
	if maxFeatures == 0 {
		maxFeatures = len(features)
	}
	return &featureSelect{
		name:        name,
		metrics:     m,
		nFeatures:   len(features),
		maxFeatures: maxFeatures,
		weights:     weights,
		logger:      log.GetLoggerWithName("featureselect").With(log.ModelNameKey, name),
	}, nil
}

func (fs *featureSelect) Name() string { return fs.name }

func (fs *featureSelect) initialize() {
	fs.selected = nil
	fs.scores = nil
	fs.suLabels = nil
	fs.suFeatures = make(map[[2]int]float64)
	fs.fitted = false
}

// symmetricalUncertainty returns 2 I(a;b) / (H(a) + H(b)), 0 when both
// variables are constant. Index nFeatures is the class.
func (fs *featureSelect) symmetricalUncertainty(a, b int) (float64, error) {
	x, y := fs.metrics.Column(a), fs.metrics.Column(b)
	mi, err := fs.metrics.MutualInformation(x, y, fs.weights)
	if err != nil {
		return 0, err
	}
	hx, err := fs.metrics.Entropy(x, fs.weights)
	if err != nil {
		return 0, err
	}
	hy, err := fs.metrics.Entropy(y, fs.weights)
	if err != nil {
		return 0, err
	}
	return errors.SafeDivide(2*mi, hx+hy), nil
}

func (fs *featureSelect) computeSuLabels() error {
	fs.suLabels = make([]float64, fs.nFeatures)
	for i := range fs.suLabels {
		su, err := fs.symmetricalUncertainty(i, fs.nFeatures)
		if err != nil {
			return err
		}
		fs.suLabels[i] = su
	}
	return nil
}

func (fs *featureSelect) suFeature(a, b int) (float64, error) {
	key := [2]int{a, b}
	if a > b {
		key = [2]int{b, a}
	}
	if v, ok := fs.suFeatures[key]; ok {
		return v, nil
	}
	v, err := fs.symmetricalUncertainty(key[0], key[1])
	if err != nil {
		return 0, err
	}
	fs.suFeatures[key] = v
	return v, nil
}

// merit is the CFS merit of subset: sum of class SU over
// sqrt(n + n(n-1) mean pairwise SU).
func (fs *featureSelect) merit(subset []int) (float64, error) {
	n := len(subset)
	if n == 0 {
		return 0, nil
	}
	var rcf float64
	for _, f := range subset {
		rcf += fs.suLabels[f]
	}
	var rff float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			su, err := fs.suFeature(subset[i], subset[j])
			if err != nil {
				return 0, err
			}
			rff += su
			pairs++
		}
	}
	if pairs > 0 {
		rff /= float64(pairs)
	}
	nf := float64(n)
	return errors.SafeDivide(rcf, math.Sqrt(nf+nf*(nf-1)*rff)), nil
}

// rankByLabels returns feature indices by descending class SU; ties keep
// feature order.
func (fs *featureSelect) rankByLabels() []int {
	order := make([]int, fs.nFeatures)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return fs.suLabels[order[a]] > fs.suLabels[order[b]] })
	return order
}

func (fs *featureSelect) add(feature int, score float64) {
	fs.selected = append(fs.selected, feature)
	fs.scores = append(fs.scores, score)
}

func (fs *featureSelect) finish() {
	fs.fitted = true
	fs.logger.Debug("feature selection finished",
		log.OperationKey, log.OperationSelect,
		log.SelectedKey, fs.selected,
		log.FeaturesKey, fs.nFeatures,
	)
}

func (fs *featureSelect) Features() ([]int, error) {
	if !fs.fitted {
		return nil, errors.NewNotFittedError(fs.name, "Features")
	}
	return append([]int(nil), fs.selected...), nil
}

func (fs *featureSelect) Scores() ([]float64, error) {
	if !fs.fitted {
		return nil, errors.NewNotFittedError(fs.name, "Scores")
	}
	return append([]float64(nil), fs.scores...), nil
}

func validateThreshold(name string, threshold, low, high float64) error {
	if threshold < low || threshold > high || math.IsNaN(threshold) {
		return errors.NewValidationError("threshold", name+" threshold out of range", threshold)
	}
	return nil
}
