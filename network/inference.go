package network

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/YuminosukeSato/bayesnet/core/parallel"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// sequentialThreshold is the batch size under which PredictProba stays on
// the calling goroutine.
const sequentialThreshold = 64

// Posterior returns P(class | evidence). evidence maps feature names to
// states and may leave features unobserved; those are eliminated with the
// min-fill heuristic. The class distribution is then evaluated with one
// concurrent task per class state.
func (n *Network) Posterior(evidence map[string]int) ([]float64, error) {
	if !n.fitted {
		return nil, errors.NewNotFittedError("Network", "Posterior")
	}
	for name, state := range evidence {
		h, ok := n.index[name]
		if !ok || name == n.className {
			return nil, errors.NewValidationError("evidence", "not a feature of the network", name)
		}
		if state < 0 || state >= n.nodes[h].numStates {
			return nil, errors.NewValidationError(name, "state out of range", state)
		}
	}

	if len(evidence) == len(n.fitFeatures) {
		return n.classDistribution(func(c int) float64 {
			return n.jointProbability(evidence, c)
		})
	}

	factors := make([]Factor, 0, len(n.nodes))
	for _, nd := range n.nodes {
		f := nd.factor(n.nodes)
		for name, state := range evidence {
			if f.Contains(name) {
				f = f.Reduce(name, state)
			}
		}
		factors = append(factors, f)
	}

	var hidden []string
	for _, f := range n.fitFeatures {
		if _, observed := evidence[f]; !observed {
			hidden = append(hidden, f)
		}
	}
	factors = eliminate(factors, hidden)

	return n.classDistribution(func(c int) float64 {
		assignment := map[string]int{n.className: c}
		p := 1.0
		for _, f := range factors {
			// remaining scopes hold at most the class
			v, _ := f.Value(assignment)
			p *= v
		}
		return p
	})
}

// jointProbability is P(evidence, class = c) for complete evidence.
func (n *Network) jointProbability(evidence map[string]int, c int) float64 {
	classHandle := n.index[n.className]
	value := func(h int) int {
		if h == classHandle {
			return c
		}
		return evidence[n.nodes[h].name]
	}
	p := 1.0
	for h, nd := range n.nodes {
		p *= nd.probability(h, value)
	}
	return p
}

// classDistribution evaluates score for every class state concurrently and
// normalizes the result. A class whose score is NaN hit a parent
// configuration never seen without smoothing and scores 0; the call fails
// only when no class keeps a positive finite score.
func (n *Network) classDistribution(score func(c int) float64) ([]float64, error) {
	result := make([]float64, n.classNumStates)
	var mu sync.Mutex
	err := parallel.ForEachUnbounded(n.classNumStates, func(c int) error {
		v := score(c)
		if math.IsNaN(v) {
			v = 0
		}
		mu.Lock()
		defer mu.Unlock()
		result[c] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	total := floats.Sum(result)
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, errors.NewNumericalInstabilityError("Network.Posterior", result)
	}
	floats.Scale(1/total, result)
	return result, nil
}

// eliminate sums every variable in hidden out of factors. At each step the
// variable whose elimination adds the fewest fill-in edges goes first;
// ties keep the order of hidden.
func eliminate(factors []Factor, hidden []string) []Factor {
	remaining := append([]string(nil), hidden...)
	for len(remaining) > 0 {
		best, bestFill := -1, 0
		for i, v := range remaining {
			fill := minFill(factors, v)
			if best < 0 || fill < bestFill {
				best, bestFill = i, fill
			}
		}
		v := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)

		var product *Factor
		kept := factors[:0:0]
		for _, f := range factors {
			if !f.Contains(v) {
				kept = append(kept, f)
				continue
			}
			if product == nil {
				p := f
				product = &p
				continue
			}
			next := product.Product(f)
			product = &next
		}
		if product != nil {
			kept = append(kept, product.SumOut(v))
		}
		factors = kept
	}
	return factors
}

// minFill approximates the fill-in of eliminating v by the number of
// pairs among its current neighbors.
func minFill(factors []Factor, v string) int {
	neighbors := make(map[string]struct{})
	for _, f := range factors {
		if !f.Contains(v) {
			continue
		}
		for _, u := range f.Variables {
			if u != v {
				neighbors[u] = struct{}{}
			}
		}
	}
	if len(neighbors) < 2 {
		return 0
	}
	return combin.Binomial(len(neighbors), 2)
}

// PredictSample returns the class distribution of one sample whose values
// follow the feature order given to Fit.
func (n *Network) PredictSample(sample []int) ([]float64, error) {
	if !n.fitted {
		return nil, errors.NewNotFittedError("Network", "PredictSample")
	}
	if len(sample) != len(n.fitFeatures) {
		return nil, errors.NewDimensionError("Network.PredictSample", len(n.fitFeatures), len(sample), 1)
	}
	evidence := make(map[string]int, len(sample))
	for i, f := range n.fitFeatures {
		evidence[f] = sample[i]
	}
	return n.Posterior(evidence)
}

// PredictProba returns one class distribution per sample. X holds one
// column per fitted feature.
func (n *Network) PredictProba(X [][]int) ([][]float64, error) {
	if !n.fitted {
		return nil, errors.NewNotFittedError("Network", "PredictProba")
	}
	if len(X) != len(n.fitFeatures) {
		return nil, errors.NewDimensionError("Network.PredictProba", len(n.fitFeatures), len(X), 1)
	}
	nSamples := 0
	if len(X) > 0 {
		nSamples = len(X[0])
	}
	for _, col := range X {
		if len(col) != nSamples {
			return nil, errors.NewDimensionError("Network.PredictProba", nSamples, len(col), 0)
		}
	}

	result := make([][]float64, nSamples)
	err := parallel.ParallelizeWithThreshold(nSamples, sequentialThreshold, func(start, end int) error {
		sample := make([]int, len(X))
		for s := start; s < end; s++ {
			for f := range X {
				sample[f] = X[f][s]
			}
			probs, err := n.PredictSample(sample)
			if err != nil {
				return err
			}
			result[s] = probs
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Predict returns the most probable class of every sample; ties pick the
// lowest class value.
func (n *Network) Predict(X [][]int) ([]int, error) {
	probs, err := n.PredictProba(X)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(probs))
	for i, p := range probs {
		labels[i] = floats.MaxIdx(p)
	}
	return labels, nil
}

// Score returns the accuracy of Predict against y.
func (n *Network) Score(X [][]int, y []int) (float64, error) {
	labels, err := n.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(labels) != len(y) {
		return 0, errors.NewDimensionError("Network.Score", len(labels), len(y), 0)
	}
	if len(y) == 0 {
		return 0, errors.NewValueError("Network.Score", "empty vector")
	}
	correct := 0
	for i := range y {
		if labels[i] == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y)), nil
}
