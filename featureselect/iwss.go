package featureselect

import "math"

// IWSS is incremental wrapper subset selection driven by the CFS merit.
type IWSS struct {
	*featureSelect
	threshold float64
}

// NewIWSS validates the inputs; threshold must lie in [0, 0.5].
func NewIWSS(samples [][]int, features []string, className string, maxFeatures, classNumStates int, weights []float64, threshold float64) (*IWSS, error) {
	if err := validateThreshold("IWSS", threshold, 0, 0.5); err != nil {
		return nil, err
	}
	fs, err := newFeatureSelect("IWSS", samples, features, className, maxFeatures, classNumStates, weights)
	if err != nil {
		return nil, err
	}
	return &IWSS{featureSelect: fs, threshold: threshold}, nil
}

// Fit takes the two features most correlated with the class, then walks
// the rest in that order. A candidate is kept when it raises the merit or
// lowers it by less than threshold relative to the best merit so far; the
// first rejected candidate ends the search.
func (w *IWSS) Fit() error {
	w.initialize()
	if err := w.computeSuLabels(); err != nil {
		return err
	}
	order := w.rankByLabels()
	w.add(order[0], w.suLabels[order[0]])
	if len(order) == 1 || w.maxFeatures == 1 {
		w.finish()
		return nil
	}

	merit, err := w.merit([]int{order[0], order[1]})
	if err != nil {
		return err
	}
	w.add(order[1], merit)

	for _, feature := range order[2:] {
		if len(w.selected) >= w.maxFeatures {
			break
		}
		candidate, err := w.merit(append(append([]int(nil), w.selected...), feature))
		if err != nil {
			return err
		}
		delta := 0.0
		if merit != 0 {
			delta = math.Abs(merit-candidate) / merit
		}
		if candidate <= merit && delta >= w.threshold {
			break
		}
		if candidate > merit {
			merit = candidate
		}
		w.add(feature, candidate)
	}
	w.finish()
	return nil
}
