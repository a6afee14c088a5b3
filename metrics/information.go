package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// Metrics computes information-theoretic quantities over an integer-coded
// dataset. samples holds one row per variable: the features in order
// followed by the class as the last row, every row of the same length.
type Metrics struct {
	samples        [][]int
	features       []string
	className      string
	classNumStates int
	logBase        float64

	scoresKBest []float64
}

// Option configures a Metrics.
type Option func(*Metrics)

// WithLogBase sets the logarithm base used by every entropy computation.
// The default is e. Entropy and conditional entropy always share the base
// so mutual information stays consistent.
func WithLogBase(base float64) Option {
	return func(m *Metrics) {
		m.logBase = base
	}
}

// New returns a Metrics over samples (features rows then the class row).
func New(samples [][]int, features []string, className string, classNumStates int, opts ...Option) (*Metrics, error) {
	if len(samples) != len(features)+1 {
		return nil, errors.NewDimensionError("metrics.New", len(features)+1, len(samples), 0)
	}
	n := len(samples[0])
	if n == 0 {
		return nil, errors.NewValidationError("samples", "no samples", n)
	}
	for i, row := range samples {
		if len(row) != n {
			return nil, errors.NewDimensionError("metrics.New", n, len(row), 1)
		}
		for _, v := range row {
			if v < 0 {
				return nil, errors.NewValidationError("samples", "values must be non-negative", i)
			}
		}
	}
	if classNumStates <= 0 {
		return nil, errors.NewValidationError("classNumStates", "must be positive", classNumStates)
	}
	m := &Metrics{
		samples:        samples,
		features:       features,
		className:      className,
		classNumStates: classNumStates,
		logBase:        math.E,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logBase <= 0 || m.logBase == 1 {
		return nil, errors.NewValidationError("logBase", "must be positive and not 1", m.logBase)
	}
	return m, nil
}

// NumSamples returns the number of samples.
func (m *Metrics) NumSamples() int { return len(m.samples[0]) }

// Column returns the values of variable i; i == len(features) is the class.
func (m *Metrics) Column(i int) []int { return m.samples[i] }

// Labels returns the class row.
func (m *Metrics) Labels() []int { return m.samples[len(m.samples)-1] }

func (m *Metrics) scale() float64 {
	return 1 / math.Log(m.logBase)
}

// weightsOrOnes returns w, or a vector of ones when w is nil.
func weightsOrOnes(w []float64, n int) []float64 {
	if w != nil {
		return w
	}
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	return ones
}

// bincount returns the weighted count of every value in x.
func bincount(x []int, w []float64) []float64 {
	size := 0
	for _, v := range x {
		if v+1 > size {
			size = v + 1
		}
	}
	counts := make([]float64, size)
	for i, v := range x {
		counts[v] += w[i]
	}
	return counts
}

// Entropy returns the weighted Shannon entropy of x. A nil w weighs every
// sample 1; otherwise w must match x in length. Zero-probability states
// contribute nothing.
func (m *Metrics) Entropy(x []int, w []float64) (float64, error) {
	w = weightsOrOnes(w, len(x))
	if len(w) != len(x) {
		return 0, errors.NewDimensionError("Entropy", len(x), len(w), 0)
	}
	counts := bincount(x, w)
	total := floats.Sum(counts)
	if total == 0 {
		return 0, nil
	}
	floats.Scale(1/total, counts)
	return stat.Entropy(counts) * m.scale(), nil
}

// ConditionalEntropy returns H(x|y) = sum_y p(y) H(x|Y=y).
func (m *Metrics) ConditionalEntropy(x, y []int, w []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, errors.NewDimensionError("ConditionalEntropy", len(x), len(y), 0)
	}
	w = weightsOrOnes(w, len(x))
	if len(w) != len(x) {
		return 0, errors.NewDimensionError("ConditionalEntropy", len(x), len(w), 0)
	}

	yCounts := bincount(y, w)
	total := floats.Sum(yCounts)
	if total == 0 {
		return 0, errors.NewValueError("ConditionalEntropy", "total weight is zero")
	}

	nx := 0
	for _, v := range x {
		if v+1 > nx {
			nx = v + 1
		}
	}
	// joint[y*nx+x]
	joint := make([]float64, len(yCounts)*nx)
	for i := range x {
		joint[y[i]*nx+x[i]] += w[i]
	}

	var h float64
	probs := make([]float64, nx)
	for value, count := range yCounts {
		if count == 0 {
			continue
		}
		for k := range probs {
			probs[k] = joint[value*nx+k] / count
		}
		h += count / total * stat.Entropy(probs)
	}
	return h * m.scale(), nil
}

// MutualInformation returns I(x;y) = H(x) - H(x|y).
func (m *Metrics) MutualInformation(x, y []int, w []float64) (float64, error) {
	hxy, err := m.ConditionalEntropy(x, y, w)
	if err != nil {
		return 0, err
	}
	hx, err := m.Entropy(x, w)
	if err != nil {
		return 0, err
	}
	return hx - hxy, nil
}

// ConditionalEdgeWeights returns the symmetric matrix over features and the
// class (class last) whose (i, j) entry is sum_c p(c) I(Xi;Xj | C=c). p(c)
// is the fraction of samples in class c.
func (m *Metrics) ConditionalEdgeWeights(w []float64) (*mat.SymDense, error) {
	n := m.NumSamples()
	w = weightsOrOnes(w, n)
	if len(w) != n {
		return nil, errors.NewDimensionError("ConditionalEdgeWeights", n, len(w), 0)
	}
	labels := m.Labels()
	nVars := len(m.samples)

	type subset struct {
		prior   float64
		indices []int
		weights []float64
	}
	subsets := make([]subset, m.classNumStates)
	for i, c := range labels {
		if c >= m.classNumStates {
			return nil, errors.NewValidationError(m.className, "class value out of range", c)
		}
		subsets[c].indices = append(subsets[c].indices, i)
		subsets[c].weights = append(subsets[c].weights, w[i])
	}
	for c := range subsets {
		subsets[c].prior = float64(len(subsets[c].indices)) / float64(n)
	}

	pick := func(row []int, indices []int) []int {
		out := make([]int, len(indices))
		for k, idx := range indices {
			out[k] = row[idx]
		}
		return out
	}

	result := mat.NewSymDense(nVars, nil)
	for i := 0; i < nVars; i++ {
		for j := i + 1; j < nVars; j++ {
			var accumulated float64
			for _, s := range subsets {
				if len(s.indices) == 0 || floats.Sum(s.weights) == 0 {
					continue
				}
				mi, err := m.MutualInformation(pick(m.samples[i], s.indices), pick(m.samples[j], s.indices), s.weights)
				if err != nil {
					return nil, err
				}
				accumulated += s.prior * mi
			}
			result.SetSym(i, j, accumulated)
		}
	}
	return result, nil
}

// SelectKBestWeighted ranks features by weighted mutual information with the
// class and returns the indices of the k best (k == 0 keeps all). With
// ascending the same k features are returned lowest score first. Equal
// scores keep feature order.
func (m *Metrics) SelectKBestWeighted(w []float64, ascending bool, k int) ([]int, error) {
	nFeatures := len(m.features)
	if k < 0 || k > nFeatures {
		return nil, errors.NewValidationError("k", "must be in [0, number of features]", k)
	}
	if k == 0 {
		k = nFeatures
	}
	labels := m.Labels()
	scores := make([]float64, nFeatures)
	for i := 0; i < nFeatures; i++ {
		mi, err := m.MutualInformation(labels, m.samples[i], w)
		if err != nil {
			return nil, err
		}
		scores[i] = mi
	}

	order := make([]int, nFeatures)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	order = order[:k]
	if ascending {
		sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })
	}

	m.scoresKBest = make([]float64, len(order))
	for i, f := range order {
		m.scoresKBest[i] = scores[f]
	}
	return order, nil
}

// ScoresKBest returns the scores of the last SelectKBestWeighted call, in
// the order of the returned features.
func (m *Metrics) ScoresKBest() []float64 {
	return append([]float64(nil), m.scoresKBest...)
}
