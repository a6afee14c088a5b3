package classifiers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bayesnet/core/model"
	"github.com/YuminosukeSato/bayesnet/datasets"
	"github.com/YuminosukeSato/bayesnet/network"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
	"github.com/YuminosukeSato/bayesnet/pkg/log"
	"github.com/YuminosukeSato/bayesnet/pkg/telemetry"
	"github.com/YuminosukeSato/bayesnet/preprocessing"
)

// iris-like layout: 150 samples, 4 features, 3 classes
func irisLike(t *testing.T) *datasets.Dataset {
	t.Helper()
	ds, err := datasets.MakeDiscreteClassification(150, 4, 3, 3, 0.1, 42)
	require.NoError(t, err)
	return ds
}

func fit(t *testing.T, learner model.StructureLearner, ds *datasets.Dataset) {
	t.Helper()
	require.NoError(t, learner.Fit(ds.X, ds.Y, ds.Features, ds.ClassName, ds.States, network.SmoothingLaplace))
}

// assertAcyclic checks that every parent precedes its children in a
// topological order of the fitted network.
func assertAcyclic(t *testing.T, net *network.Network) {
	t.Helper()
	order, err := net.TopologicalOrder()
	require.NoError(t, err)
	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}
	for _, e := range net.Edges() {
		assert.Less(t, position[e[0]], position[e[1]], "%s -> %s", e[0], e[1])
	}
}

func nonClassParents(net *network.Network, feature string) []string {
	var out []string
	for _, p := range net.Parents(feature) {
		if p != net.ClassName() {
			out = append(out, p)
		}
	}
	return out
}

func TestTANIrisLikeIsReproducible(t *testing.T) {
	ds := irisLike(t)

	first := NewTAN()
	fit(t, first, ds)
	scoreA, err := first.Score(ds.X, ds.Y)
	require.NoError(t, err)

	second := NewTAN()
	fit(t, second, ds)
	scoreB, err := second.Score(ds.X, ds.Y)
	require.NoError(t, err)

	assert.Equal(t, scoreA, scoreB)
	// 138 of 150 samples
	assert.Equal(t, 0.92, scoreA)

	again, err := first.Score(ds.X, ds.Y)
	require.NoError(t, err)
	assert.Equal(t, scoreA, again)
}

func TestTANIrisLikeBaselines(t *testing.T) {
	ds := irisLike(t)
	for _, smoothing := range []network.Smoothing{
		network.SmoothingLaplace,
		network.SmoothingCestnik,
		network.SmoothingOriginal,
		network.SmoothingNone,
	} {
		t.Run(smoothing.String(), func(t *testing.T) {
			tan := NewTAN()
			require.NoError(t, tan.Fit(ds.X, ds.Y, ds.Features, ds.ClassName, ds.States, smoothing))

			// f0 carries the most class information, then the chain follows
			// the strongest conditional dependencies
			assert.ElementsMatch(t, [][2]string{
				{"f0", "f1"}, {"f1", "f2"}, {"f2", "f3"},
				{"class", "f0"}, {"class", "f1"}, {"class", "f2"}, {"class", "f3"},
			}, tan.Network().Edges())

			score, err := tan.Score(ds.X, ds.Y)
			require.NoError(t, err)
			assert.Equal(t, 0.92, score)
		})
	}
}

func TestTANStructure(t *testing.T) {
	ds := irisLike(t)
	tan := NewTAN()
	fit(t, tan, ds)
	net := tan.Network()
	require.NotNil(t, net)

	assertAcyclic(t, net)
	assert.Equal(t, 5, tan.NumberOfNodes())
	// f-1 tree edges plus one class edge per feature
	assert.Equal(t, 2*len(ds.Features)-1, tan.NumberOfEdges())

	roots := 0
	for _, f := range ds.Features {
		assert.Contains(t, net.Parents(f), ds.ClassName)
		switch len(nonClassParents(net, f)) {
		case 0:
			roots++
		case 1:
		default:
			t.Errorf("%s has more than one tree parent", f)
		}
	}
	assert.Equal(t, 1, roots)
}

func TestTANFixedParent(t *testing.T) {
	ds := irisLike(t)
	tan := NewTAN(WithTANParent(2))
	fit(t, tan, ds)
	assert.Empty(t, nonClassParents(tan.Network(), "f2"))

	bad := NewTAN(WithTANParent(9))
	err := bad.Fit(ds.X, ds.Y, ds.Features, ds.ClassName, ds.States, network.SmoothingLaplace)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.False(t, bad.IsFitted())
}

func TestNoSmoothingScoresDenseNetworks(t *testing.T) {
	ds := irisLike(t)
	for _, learner := range []model.StructureLearner{
		NewTAN(),
		NewKDB(WithK(2), WithTheta(-1)),
	} {
		t.Run(learner.Name(), func(t *testing.T) {
			require.NoError(t, learner.Fit(ds.X, ds.Y, ds.Features, ds.ClassName, ds.States, network.SmoothingNone))

			proba, err := learner.PredictProba(ds.X)
			require.NoError(t, err)
			rows, _ := proba.Dims()
			for i := 0; i < rows; i++ {
				assert.InDelta(t, 1.0, floats.Sum(mat.Row(nil, i, proba)), 1e-9)
			}

			score, err := learner.Score(ds.X, ds.Y)
			require.NoError(t, err)
			assert.Greater(t, score, 0.8)
		})
	}
}

func TestKDBZeroIsNaiveBayes(t *testing.T) {
	ds := irisLike(t)
	kdb := NewKDB(WithK(0))
	fit(t, kdb, ds)
	net := kdb.Network()
	for _, f := range ds.Features {
		assert.Equal(t, []string{ds.ClassName}, net.Parents(f))
	}
	assert.Equal(t, len(ds.Features), kdb.NumberOfEdges())
}

func TestKDBParentCounts(t *testing.T) {
	ds := irisLike(t)
	for _, k := range []int{1, 2, 3} {
		kdb := NewKDB(WithK(k), WithTheta(-1))
		fit(t, kdb, ds)
		net := kdb.Network()
		assertAcyclic(t, net)

		counts := make([]int, 0, len(ds.Features))
		for _, f := range ds.Features {
			assert.Contains(t, net.Parents(f), ds.ClassName)
			counts = append(counts, len(nonClassParents(net, f)))
		}
		// the i-th placed feature gets min(i, k) feature parents
		expected := 0
		for i := range ds.Features {
			expected += min(i, k)
		}
		total := 0
		for _, c := range counts {
			assert.LessOrEqual(t, c, k)
			total += c
		}
		assert.Equal(t, expected, total, "k=%d", k)
	}
}

func TestSPODEStructure(t *testing.T) {
	ds := irisLike(t)
	spode := NewSPODE(1)
	fit(t, spode, ds)
	net := spode.Network()
	assertAcyclic(t, net)

	assert.Equal(t, []string{"f1"}, net.Parents(ds.ClassName))
	assert.Empty(t, net.Parents("f1"))
	for _, f := range []string{"f0", "f2", "f3"} {
		assert.ElementsMatch(t, []string{"f1", ds.ClassName}, net.Parents(f))
	}
	assert.Equal(t, 1+2*(len(ds.Features)-1), spode.NumberOfEdges())

	bad := NewSPODE(4)
	err := bad.Fit(ds.X, ds.Y, ds.Features, ds.ClassName, ds.States, network.SmoothingLaplace)
	assert.Error(t, err)
}

func TestPredictProbaRowsSumToOne(t *testing.T) {
	ds := irisLike(t)
	learners := []model.StructureLearner{NewTAN(), NewKDB(), NewSPODE(0)}
	for _, learner := range learners {
		t.Run(learner.Name(), func(t *testing.T) {
			fit(t, learner, ds)
			proba, err := learner.PredictProba(ds.X)
			require.NoError(t, err)
			rows, cols := proba.Dims()
			assert.Equal(t, 150, rows)
			assert.Equal(t, 3, cols)
			for i := 0; i < rows; i++ {
				assert.InDelta(t, 1.0, floats.Sum(proba.RawRowView(i)), 1e-9)
			}

			labels, err := learner.Predict(ds.X)
			require.NoError(t, err)
			preds, err := learner.PredictWithConfidence(ds.X)
			require.NoError(t, err)
			require.Len(t, preds, rows)
			for i, p := range preds {
				assert.Equal(t, labels[i], p.Label)
				assert.Equal(t, proba.At(i, p.Label), p.Confidence)
			}
		})
	}
}

func TestNotFitted(t *testing.T) {
	tan := NewTAN()
	X := mat.NewDense(1, 4, nil)
	var nf *errors.NotFittedError

	_, err := tan.Predict(X)
	assert.True(t, errors.As(err, &nf))
	_, err = tan.PredictProba(X)
	assert.True(t, errors.As(err, &nf))
	_, err = tan.Score(X, []int{0})
	assert.True(t, errors.As(err, &nf))
	_, err = tan.Summary()
	assert.True(t, errors.As(err, &nf))
	assert.Nil(t, tan.Network())
	assert.Nil(t, tan.Graph("x"))
}

func TestFitValidation(t *testing.T) {
	ds := irisLike(t)
	var de *errors.DimensionError
	var ve *errors.ValidationError

	tan := NewTAN()
	err := tan.Fit(ds.X, ds.Y[:10], ds.Features, ds.ClassName, ds.States, network.SmoothingLaplace)
	assert.True(t, errors.As(err, &de))

	err = tan.Fit(ds.X, ds.Y, ds.Features[:3], ds.ClassName, ds.States, network.SmoothingLaplace)
	assert.True(t, errors.As(err, &de))

	states := map[string]int{"f0": 3, "f1": 3, "f2": 3, "f3": 3, "class": 2}
	err = tan.Fit(ds.X, ds.Y, ds.Features, ds.ClassName, states, network.SmoothingLaplace)
	assert.True(t, errors.As(err, &ve))
	assert.False(t, tan.IsFitted())

	delete(states, "f2")
	states["class"] = 3
	err = tan.Fit(ds.X, ds.Y, ds.Features, ds.ClassName, states, network.SmoothingLaplace)
	assert.True(t, errors.As(err, &ve))

	X := mat.DenseCopyOf(ds.X)
	X.Set(0, 0, 0.5)
	err = tan.Fit(X, ds.Y, ds.Features, ds.ClassName, ds.States, network.SmoothingLaplace)
	assert.True(t, errors.As(err, &ve))

	// a failed Fit leaves a previously fitted learner unfitted
	fit(t, tan, ds)
	require.True(t, tan.IsFitted())
	err = tan.Fit(ds.X, ds.Y, []string{"f0", "f0", "f2", "f3"}, ds.ClassName, ds.States, network.SmoothingLaplace)
	assert.True(t, errors.As(err, &ve))
	assert.False(t, tan.IsFitted())
}

func TestSetHyperparameters(t *testing.T) {
	kdb := NewKDB()
	require.NoError(t, kdb.SetHyperparameters(map[string]any{"k": 3, "theta": 0.1}))
	assert.Equal(t, map[string]any{"k": 3, "theta": 0.1}, kdb.GetHyperparameters())

	err := kdb.SetHyperparameters(map[string]any{"zeta": 1, "k": 1, "alpha": true})
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "[alpha, zeta]")
	assert.Equal(t, 3, kdb.K(), "nothing is applied when a key is invalid")

	err = kdb.SetHyperparameters(map[string]any{"k": -1})
	assert.True(t, errors.As(err, &ve))
	err = kdb.SetHyperparameters(map[string]any{"k": "two"})
	assert.True(t, errors.As(err, &ve))

	tan := NewTAN()
	require.NoError(t, tan.SetHyperparameters(map[string]any{"parent": float64(1)}))
	assert.Equal(t, 1, tan.GetHyperparameters()["parent"])

	spode := NewSPODE(0)
	require.NoError(t, spode.SetHyperparameters(map[string]any{"parent": 2}))
	assert.Equal(t, 2, spode.Parent())
	assert.Error(t, spode.SetHyperparameters(map[string]any{"order": "asc"}))
}

func TestGraphShowAndSummary(t *testing.T) {
	ds := irisLike(t)
	kdb := NewKDB(WithK(1))
	fit(t, kdb, ds)

	lines := kdb.Graph("")
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "digraph BayesNet")
	assert.Contains(t, lines[0], "KDB")
	assert.Equal(t, "}\n", lines[len(lines)-1])
	assert.Contains(t, lines, "class -> f0")

	show := kdb.Show()
	assert.Len(t, show, 5)
	assert.Contains(t, kdb.DumpCPT(), "* class: (3)")

	order, err := kdb.TopologicalOrder()
	require.NoError(t, err)
	assert.Len(t, order, 5)

	assert.Equal(t, model.StatusOK, kdb.Status())
	assert.Empty(t, kdb.Notes())

	summary, err := kdb.Summary()
	require.NoError(t, err)
	require.NoError(t, summary.Validate())
	assert.Equal(t, "KDB", summary.ModelType)
	assert.Equal(t, kdb.EstimatorID(), summary.EstimatorID)
	assert.Equal(t, 1, summary.Models)
	assert.Equal(t, "LAPLACE", summary.Metadata["smoothing"])

	data, err := summary.ToJSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "KDB", decoded["model_type"])
}

func TestFitLogsAndTelemetry(t *testing.T) {
	ds := irisLike(t)
	logger, _ := log.NewTestLogger(log.LevelDebug)
	tan := NewTAN()
	tan.SetLogger(logger)
	tan.SetTelemetry(telemetry.NewMetrics(nil))
	fit(t, tan, ds)

	assert.True(t, logger.ContainsMessage("Fit started"))
	assert.True(t, logger.ContainsMessage("Fit completed"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "TAN"))
}

func TestDiscretizedAdapter(t *testing.T) {
	ds := irisLike(t)
	rows, cols := ds.X.Dims()
	continuous := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			continuous.Set(i, j, ds.X.At(i, j)+0.1*float64(i%3))
		}
	}

	d := NewDiscretized(NewTAN(), preprocessing.NewKBinsDiscretizer(3, preprocessing.StrategyUniform))
	_, err := d.Predict(continuous)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	require.NoError(t, d.Fit(continuous, ds.Y, ds.Features, ds.ClassName, network.SmoothingLaplace))

	reference := NewTAN()
	fit(t, reference, ds)
	want, err := reference.Score(ds.X, ds.Y)
	require.NoError(t, err)
	got, err := d.Score(continuous, ds.Y)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	proba, err := d.PredictProba(continuous)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, rows, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, "TAN", d.Inner().Name())
}
