package featureselect

// FCBF is the fast correlation based filter: a feature is kept when no
// already kept feature is at least as correlated with it as the class is.
type FCBF struct {
	*featureSelect
	threshold float64
}

// NewFCBF validates the inputs; threshold must lie in [1e-7, 1].
func NewFCBF(samples [][]int, features []string, className string, maxFeatures, classNumStates int, weights []float64, threshold float64) (*FCBF, error) {
	if err := validateThreshold("FCBF", threshold, 1e-7, 1); err != nil {
		return nil, err
	}
	fs, err := newFeatureSelect("FCBF", samples, features, className, maxFeatures, classNumStates, weights)
	if err != nil {
		return nil, err
	}
	return &FCBF{featureSelect: fs, threshold: threshold}, nil
}

// Fit walks features by descending class SU and prunes redundant ones.
func (f *FCBF) Fit() error {
	f.initialize()
	if err := f.computeSuLabels(); err != nil {
		return err
	}
	su := append([]float64(nil), f.suLabels...)
	order := f.rankByLabels()
	removed := make([]bool, f.nFeatures)

	for i, feature := range order {
		if removed[feature] {
			continue
		}
		if su[feature] < f.threshold {
			break
		}
		for _, later := range order[i+1:] {
			if removed[later] {
				continue
			}
			value, err := f.suFeature(feature, later)
			if err != nil {
				return err
			}
			if value >= su[later] {
				removed[later] = true
			}
		}
		f.add(feature, su[feature])
		if len(f.selected) == f.maxFeatures {
			break
		}
	}
	f.finish()
	return nil
}
