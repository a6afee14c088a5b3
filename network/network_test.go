package network

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// 4 samples, feature A and class C.
func tinyNetwork(t *testing.T, smoothing Smoothing, weights []float64) *Network {
	t.Helper()
	net := New()
	require.NoError(t, net.AddNode("A", 2))
	require.NoError(t, net.AddNode("C", 2))
	require.NoError(t, net.AddEdge("C", "A"))
	X := [][]int{{0, 0, 1, 1}}
	y := []int{0, 0, 0, 1}
	require.NoError(t, net.Fit(X, y, weights, []string{"A"}, "C", map[string]int{"A": 2, "C": 2}, smoothing))
	return net
}

func TestAddEdgeRejectsCycles(t *testing.T) {
	net := New()
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, net.AddNode(name, 2))
	}
	require.NoError(t, net.AddEdge("A", "B"))
	require.NoError(t, net.AddEdge("B", "C"))

	err := net.AddEdge("C", "A")
	var sv *errors.StructuralViolationError
	require.True(t, errors.As(err, &sv))
	assert.Equal(t, "C", sv.Parent)
	assert.Equal(t, "A", sv.Child)
	assert.Equal(t, 2, net.NumberOfEdges())
	assert.Empty(t, net.Parents("A"))
	assert.Empty(t, net.Children("C"))

	err = net.AddEdge("B", "B")
	assert.True(t, errors.As(err, &sv))

	err = net.AddEdge("A", "Z")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	// duplicate edges are ignored
	require.NoError(t, net.AddEdge("A", "B"))
	assert.Equal(t, 2, net.NumberOfEdges())
	assert.Equal(t, []string{"B"}, net.Children("A"))
}

func TestAddNodeUpdatesCardinality(t *testing.T) {
	net := New()
	require.NoError(t, net.AddNode("A", 2))
	require.NoError(t, net.AddNode("A", 5))
	assert.Equal(t, 1, net.NumberOfNodes())
	node, ok := net.Node("A")
	require.True(t, ok)
	assert.Equal(t, 5, node.NumStates())
	assert.Equal(t, "A", net.Root())

	assert.Error(t, net.AddNode("", 2))
}

func TestFitLaplace(t *testing.T) {
	net := tinyNetwork(t, SmoothingLaplace, nil)

	c, _ := net.Node("C")
	assert.InDeltaSlice(t, []float64{2.0 / 3, 1.0 / 3}, c.CPT(), 1e-12)

	a, _ := net.Node("A")
	assert.Equal(t, []int{2, 2}, a.Dims())
	// [P(a0|c0) P(a0|c1) P(a1|c0) P(a1|c1)]
	assert.InDeltaSlice(t, []float64{0.6, 1.0 / 3, 0.4, 2.0 / 3}, a.CPT(), 1e-12)

	probs, err := net.PredictSample([]int{0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{18.0 / 23, 5.0 / 23}, probs, 1e-12)

	probs, err = net.PredictSample([]int{1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{6.0 / 11, 5.0 / 11}, probs, 1e-12)
}

func TestFitSmoothingPolicies(t *testing.T) {
	none := tinyNetwork(t, SmoothingNone, nil)
	a, _ := none.Node("A")
	// P(a0|c1) has no observation: 0/1
	assert.InDeltaSlice(t, []float64{2.0 / 3, 0, 1.0 / 3, 1}, a.CPT(), 1e-12)

	cestnik := tinyNetwork(t, SmoothingCestnik, nil)
	a, _ = cestnik.Node("A")
	// +1/2 per cell
	assert.InDeltaSlice(t, []float64{2.5 / 4, 0.5 / 2, 1.5 / 4, 1.5 / 2}, a.CPT(), 1e-12)

	original := tinyNetwork(t, SmoothingOriginal, nil)
	a, _ = original.Node("A")
	// +1/4 per cell
	assert.InDeltaSlice(t, []float64{2.25 / 3.5, 0.25 / 1.5, 1.25 / 3.5, 1.25 / 1.5}, a.CPT(), 1e-12)
}

func TestFitNoSmoothingUnseenConfigurationIsNaN(t *testing.T) {
	net := New()
	require.NoError(t, net.AddNode("A", 3))
	require.NoError(t, net.AddNode("C", 2))
	require.NoError(t, net.AddEdge("A", "C"))
	require.NoError(t, net.Fit([][]int{{0, 1}}, []int{0, 1}, nil, []string{"A"}, "C", map[string]int{"A": 3, "C": 2}, SmoothingNone))

	c, _ := net.Node("C")
	cpt := c.CPT()
	// parent state 2 never observed
	assert.True(t, math.IsNaN(cpt[2]))
	assert.True(t, math.IsNaN(cpt[5]))

	_, err := net.PredictSample([]int{2})
	var ni *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &ni))
}

func TestNoSmoothingUnseenClassHypothesisScoresZero(t *testing.T) {
	net := New()
	require.NoError(t, net.AddNode("A", 2))
	require.NoError(t, net.AddNode("B", 2))
	require.NoError(t, net.AddNode("C", 2))
	require.NoError(t, net.AddEdge("C", "A"))
	require.NoError(t, net.AddEdge("C", "B"))
	require.NoError(t, net.AddEdge("B", "A"))
	// (B=0, C=1) never occurs, so P(A | B=0, C=1) is NaN
	X := [][]int{{0, 1}, {0, 1}}
	require.NoError(t, net.Fit(X, []int{0, 1}, nil, []string{"A", "B"}, "C", map[string]int{"A": 2, "B": 2, "C": 2}, SmoothingNone))

	proba, err := net.PredictSample([]int{0, 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0}, proba, 1e-12)

	posterior, err := net.Posterior(map[string]int{"B": 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, floats.Sum(posterior), 1e-9)

	score, err := net.Score(X, []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestFitWeightsAreRescaled(t *testing.T) {
	plain := tinyNetwork(t, SmoothingLaplace, nil)
	scaled := tinyNetwork(t, SmoothingLaplace, []float64{0.25, 0.25, 0.25, 0.25})
	a1, _ := plain.Node("A")
	a2, _ := scaled.Node("A")
	assert.InDeltaSlice(t, a1.CPT(), a2.CPT(), 1e-12)

	// doubling one sample's weight moves the class prior
	weighted := tinyNetwork(t, SmoothingNone, []float64{1, 1, 1, 3})
	c, _ := weighted.Node("C")
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, c.CPT(), 1e-12)
}

func TestFitValidation(t *testing.T) {
	states := map[string]int{"A": 2, "C": 2}
	newNet := func() *Network {
		net := New()
		require.NoError(t, net.AddNode("A", 2))
		require.NoError(t, net.AddNode("C", 2))
		return net
	}

	tests := []struct {
		name   string
		X      [][]int
		y      []int
		w      []float64
		feats  []string
		class  string
		states map[string]int
	}{
		{"weights length", [][]int{{0, 1}}, []int{0, 1}, []float64{1}, []string{"A"}, "C", states},
		{"features length", [][]int{{0, 1}}, []int{0, 1}, nil, []string{"A", "B"}, "C", states},
		{"samples length", [][]int{{0}}, []int{0, 1}, nil, []string{"A"}, "C", states},
		{"unknown class", [][]int{{0, 1}}, []int{0, 1}, nil, []string{"A"}, "Z", states},
		{"unknown feature", [][]int{{0, 1}}, []int{0, 1}, nil, []string{"B"}, "C", states},
		{"missing state", [][]int{{0, 1}}, []int{0, 1}, nil, []string{"A"}, "C", map[string]int{"C": 2}},
		{"value out of range", [][]int{{0, 2}}, []int{0, 1}, nil, []string{"A"}, "C", states},
		{"empty", [][]int{{}}, []int{}, nil, []string{"A"}, "C", states},
		{"zero weights", [][]int{{0, 1}}, []int{0, 1}, []float64{0, 0}, []string{"A"}, "C", states},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := newNet()
			err := net.Fit(tt.X, tt.y, tt.w, tt.feats, tt.class, tt.states, SmoothingLaplace)
			assert.Error(t, err)
			assert.False(t, net.IsFitted())
		})
	}

	assert.Error(t, New().Fit([][]int{}, []int{0}, nil, nil, "C", states, SmoothingLaplace))
}

func TestFittedNetworkIsFrozen(t *testing.T) {
	net := tinyNetwork(t, SmoothingLaplace, nil)
	assert.Error(t, net.AddNode("B", 2))
	assert.Error(t, net.AddEdge("A", "C"))

	net.Initialize()
	assert.False(t, net.IsFitted())
	assert.Equal(t, 0, net.NumberOfNodes())
	require.NoError(t, net.AddNode("B", 2))
}

func TestPredictSampleDimension(t *testing.T) {
	net := tinyNetwork(t, SmoothingLaplace, nil)
	_, err := net.PredictSample([]int{0, 1})
	var de *errors.DimensionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Expected)
	assert.Equal(t, 2, de.Got)

	_, err = New().PredictSample([]int{0})
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestPredictProbaRowsSumToOne(t *testing.T) {
	net := New()
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, net.AddNode(name, 3))
	}
	require.NoError(t, net.AddEdge("C", "A"))
	require.NoError(t, net.AddEdge("C", "B"))
	require.NoError(t, net.AddEdge("A", "B"))

	n := 200
	X := [][]int{make([]int, n), make([]int, n)}
	y := make([]int, n)
	for i := 0; i < n; i++ {
		y[i] = i % 3
		X[0][i] = (i / 3) % 3
		X[1][i] = (i*7 + i/5) % 3
	}
	require.NoError(t, net.Fit(X, y, nil, []string{"A", "B"}, "C", map[string]int{"A": 3, "B": 3, "C": 3}, SmoothingLaplace))

	probs, err := net.PredictProba(X)
	require.NoError(t, err)
	require.Len(t, probs, n)
	for _, row := range probs {
		sum := 0.0
		for _, p := range row {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}

	first, err := net.Score(X, y)
	require.NoError(t, err)
	second, err := net.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPosteriorPartialEvidence(t *testing.T) {
	net := New()
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, net.AddNode(name, 2))
	}
	require.NoError(t, net.AddEdge("C", "A"))
	require.NoError(t, net.AddEdge("C", "B"))
	require.NoError(t, net.AddEdge("A", "B"))
	X := [][]int{{0, 0, 1, 1, 0, 1}, {1, 0, 1, 1, 0, 0}}
	y := []int{0, 0, 1, 1, 1, 0}
	require.NoError(t, net.Fit(X, y, nil, []string{"A", "B"}, "C", map[string]int{"A": 2, "B": 2, "C": 2}, SmoothingLaplace))

	c, _ := net.Node("C")
	a, _ := net.Node("A")
	prior := c.CPT()
	aCPT := a.CPT()

	// B is summed out: P(C | A=1) is proportional to P(C) P(A=1|C)
	posterior, err := net.Posterior(map[string]int{"A": 1})
	require.NoError(t, err)
	u0 := prior[0] * aCPT[2]
	u1 := prior[1] * aCPT[3]
	assert.InDeltaSlice(t, []float64{u0 / (u0 + u1), u1 / (u0 + u1)}, posterior, 1e-12)

	// no evidence yields the prior
	posterior, err = net.Posterior(map[string]int{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, prior, posterior, 1e-12)

	// complete evidence matches PredictSample
	posterior, err = net.Posterior(map[string]int{"A": 0, "B": 1})
	require.NoError(t, err)
	direct, err := net.PredictSample([]int{0, 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, direct, posterior, 1e-12)

	_, err = net.Posterior(map[string]int{"C": 0})
	assert.Error(t, err)
	_, err = net.Posterior(map[string]int{"A": 5})
	assert.Error(t, err)
}

func TestTopologicalOrderAndClone(t *testing.T) {
	net := New()
	for _, name := range []string{"X", "Y", "class"} {
		require.NoError(t, net.AddNode(name, 2))
	}
	require.NoError(t, net.AddEdge("class", "X"))
	require.NoError(t, net.AddEdge("class", "Y"))
	require.NoError(t, net.AddEdge("Y", "X"))

	order, err := net.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"class", "Y", "X"}, order)

	clone := net.Clone()
	clone.Initialize()
	assert.Equal(t, 3, net.NumberOfNodes())
	assert.Equal(t, 3, net.NumberOfEdges())

	clone = net.Clone()
	assert.Equal(t, net.Edges(), clone.Edges())
	assert.Error(t, clone.AddEdge("X", "class"))
}

func TestGraphAndShow(t *testing.T) {
	net := tinyNetwork(t, SmoothingLaplace, nil)
	lines := net.Graph("Test")
	require.Len(t, lines, 5)
	assert.Equal(t, "digraph BayesNet {\nlabel=<BayesNet Test>\nfontsize=30\nfontcolor=blue\nlabelloc=t\nlayout=circo\n", lines[0])
	assert.Equal(t, "A [shape=circle] \n", lines[1])
	assert.Equal(t, "C [shape=circle, fontcolor=red, fillcolor=lightblue, style=filled ] \n", lines[2])
	assert.Equal(t, "C -> A", lines[3])
	assert.Equal(t, "}\n", lines[4])

	assert.Equal(t, []string{"A -> ", "C -> A, "}, net.Show())
	assert.Equal(t, 4, net.NumberOfStates())
	assert.Contains(t, net.DumpCPT(), "* A: (2) : [2 2]")
}
