package featureselect

import "math"

// stallRounds is how many consecutive non-improving expansions stop CFS.
const stallRounds = 5

// CFS is greedy best-first correlation based feature selection.
type CFS struct {
	*featureSelect
}

// NewCFS validates the inputs. samples holds the feature rows followed by
// the class row.
func NewCFS(samples [][]int, features []string, className string, maxFeatures, classNumStates int, weights []float64) (*CFS, error) {
	fs, err := newFeatureSelect("CFS", samples, features, className, maxFeatures, classNumStates, weights)
	if err != nil {
		return nil, err
	}
	return &CFS{featureSelect: fs}, nil
}

// Fit starts from the feature most correlated with the class and keeps
// adding the candidate with the best merit until the cap is reached,
// candidates run out or five consecutive expansions show no improvement.
func (c *CFS) Fit() error {
	c.initialize()
	if err := c.computeSuLabels(); err != nil {
		return err
	}
	candidates := c.rankByLabels()
	c.add(candidates[0], c.suLabels[candidates[0]])
	candidates = candidates[1:]

	for c.continueSearch(candidates) {
		best, bestMerit := -1, math.Inf(-1)
		for i, f := range candidates {
			m, err := c.merit(append(append([]int(nil), c.selected...), f))
			if err != nil {
				return err
			}
			if m > bestMerit {
				best, bestMerit = i, m
			}
		}
		if best < 0 {
			// every merit was NaN
			break
		}
		c.add(candidates[best], bestMerit)
		candidates = append(candidates[:best:best], candidates[best+1:]...)
	}
	c.finish()
	return nil
}

func (c *CFS) continueSearch(candidates []int) bool {
	if len(c.selected) >= c.maxFeatures || len(candidates) == 0 {
		return false
	}
	if len(c.scores) < stallRounds {
		return true
	}
	last := c.scores[len(c.scores)-stallRounds:]
	for i := 1; i < len(last); i++ {
		if last[i] > last[i-1] {
			return true
		}
	}
	return false
}
