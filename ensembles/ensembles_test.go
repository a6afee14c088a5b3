package ensembles

import (
	"math"
	"strings"
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
)

func makeData(t *testing.T, noise float64) *datasets.Dataset {
	t.Helper()
	ds, err := datasets.MakeDiscreteClassification(150, 4, 3, 3, noise, 42)
	require.NoError(t, err)
	return ds
}

func fit(t *testing.T, learner model.StructureLearner, ds *datasets.Dataset) {
	t.Helper()
	require.NoError(t, learner.Fit(ds.X, ds.Y, ds.Features, ds.ClassName, ds.States, network.SmoothingLaplace))
}

func assertRowsSumToOne(t *testing.T, proba *mat.Dense) {
	t.Helper()
	rows, _ := proba.Dims()
	for i := 0; i < rows; i++ {
		assert.InDelta(t, 1.0, floats.Sum(proba.RawRowView(i)), 1e-9)
	}
}

// captureWarnings routes library warnings into a slice for the test.
func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return &warnings
}

func TestAODE(t *testing.T) {
	ds := makeData(t, 0.1)
	aode := NewAODE()
	fit(t, aode, ds)

	assert.Equal(t, 4, aode.NumberOfModels())
	assert.Equal(t, []float64{1, 1, 1, 1}, aode.Significances())
	assert.Equal(t, 4*5, aode.NumberOfNodes())
	assert.Equal(t, 4*7, aode.NumberOfEdges())

	proba, err := aode.PredictProba(ds.X)
	require.NoError(t, err)
	assertRowsSumToOne(t, proba)

	score, err := aode.Score(ds.X, ds.Y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.8)
	again, err := aode.Score(ds.X, ds.Y)
	require.NoError(t, err)
	assert.Equal(t, score, again)

	lines := aode.Graph("aode")
	assert.Contains(t, lines[0], "aode_0")
	assert.Equal(t, 4*5, len(aode.Show()))
}

func TestAODEVoting(t *testing.T) {
	ds := makeData(t, 0.1)
	aode := NewAODE(WithAODEPredictVoting(true))
	fit(t, aode, ds)

	proba, err := aode.PredictProba(ds.X)
	require.NoError(t, err)
	assertRowsSumToOne(t, proba)
	// four equal votes: every probability is a multiple of 1/4
	rows, cols := proba.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := proba.At(i, j) * 4
			assert.InDelta(t, math.Round(v), v, 1e-9)
		}
	}

	require.NoError(t, aode.SetHyperparameters(map[string]any{"predict_voting": false}))
	assert.Equal(t, map[string]any{"predict_voting": false}, aode.GetHyperparameters())
	assert.Error(t, aode.SetHyperparameters(map[string]any{"maxModels": 3}))
}

func TestBoostAODEMaxModels(t *testing.T) {
	ds := makeData(t, 0)
	boost := NewBoostAODE(WithRepeatSparent(true), WithMaxModels(7))
	fit(t, boost, ds)

	assert.Equal(t, 7, boost.NumberOfModels())
	assert.Equal(t, StopExhausted, boost.StopReason())
	assert.Len(t, boost.History(), 7)
	for _, round := range boost.History() {
		assert.True(t, round.Accepted)
		assert.Equal(t, 0.0, round.Epsilon)
		assert.Equal(t, 1.0, round.Alpha)
	}
	assert.Equal(t, model.StatusOK, boost.Status())
	assert.Equal(t, []string{"Number of models: 7"}, boost.Notes())

	proba, err := boost.PredictProba(ds.X)
	require.NoError(t, err)
	assertRowsSumToOne(t, proba)
	score, err := boost.Score(ds.X, ds.Y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestBoostAODEMaxModelsWithoutRepeatedSuperparents(t *testing.T) {
	ds := makeData(t, 0)
	boost := NewBoostAODE(WithMaxModels(2))
	fit(t, boost, ds)

	assert.Equal(t, 2, boost.NumberOfModels())
	assert.Equal(t, StopExhausted, boost.StopReason())
	require.Len(t, boost.History(), 2)
	assert.NotEqual(t, boost.History()[0].Feature, boost.History()[1].Feature)

	// a cap above the number of features is bounded by the features
	wide := NewBoostAODE(WithMaxModels(10))
	fit(t, wide, ds)
	assert.Equal(t, 4, wide.NumberOfModels())
	assert.Equal(t, StopExhausted, wide.StopReason())
}

func TestBoostAODEUsesEveryFeatureOnce(t *testing.T) {
	ds := makeData(t, 0)
	boost := NewBoostAODE()
	fit(t, boost, ds)

	assert.Equal(t, 4, boost.NumberOfModels())
	assert.Equal(t, StopExhausted, boost.StopReason())
	seen := map[string]bool{}
	for _, round := range boost.History() {
		assert.False(t, seen[round.Feature], "feature %s reused", round.Feature)
		seen[round.Feature] = true
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, model.StatusOK, boost.Status())
}

func TestBoostAODEOrders(t *testing.T) {
	ds := makeData(t, 0.1)
	for _, order := range []string{OrderAscending, OrderDescending, OrderRandom} {
		t.Run(order, func(t *testing.T) {
			first := NewBoostAODE(WithOrder(order))
			fit(t, first, ds)
			second := NewBoostAODE(WithOrder(order))
			fit(t, second, ds)

			assert.Equal(t, first.History(), second.History())
			a, err := first.Score(ds.X, ds.Y)
			require.NoError(t, err)
			b, err := second.Score(ds.X, ds.Y)
			require.NoError(t, err)
			assert.Equal(t, a, b)

			proba, err := first.PredictProba(ds.X)
			require.NoError(t, err)
			assertRowsSumToOne(t, proba)
		})
	}
}

func TestBoostAODEConvergence(t *testing.T) {
	warnings := captureWarnings(t)
	ds := makeData(t, 0)
	reg := telemetry.NewMetrics(nil)
	boost := NewBoostAODE(WithConvergence(true))
	boost.SetTelemetry(reg)
	fit(t, boost, ds)

	// validation accuracy is 1 from the first round, so the second stalls
	assert.Equal(t, StopConverged, boost.StopReason())
	assert.Equal(t, 2, boost.NumberOfModels())
	history := boost.History()
	require.Len(t, history, 2)
	for _, round := range history {
		assert.True(t, round.Validated)
		assert.Equal(t, 1.0, round.ValidationAccuracy)
	}

	assert.Equal(t, model.StatusWarning, boost.Status())
	assert.Equal(t, []string{"Used features in train: 2 of 4", "Number of models: 2"}, boost.Notes())
	require.Len(t, *warnings, 1)
	var fw *errors.FeatureUsageWarning
	require.True(t, errors.As((*warnings)[0], &fw))
	assert.Equal(t, 2, fw.Used)
	assert.Equal(t, 4, fw.Total)
}

func TestBoostAODETolerance(t *testing.T) {
	captureWarnings(t)
	ds := makeData(t, 0)
	boost := NewBoostAODE(WithConvergence(true), WithTolerance(1))
	fit(t, boost, ds)
	assert.Equal(t, StopConverged, boost.StopReason())
	assert.Equal(t, 3, boost.NumberOfModels())
}

func TestBoostAODESelectFeatures(t *testing.T) {
	captureWarnings(t)
	ds := makeData(t, 0.1)
	cases := []struct {
		algorithm string
		threshold float64
	}{
		{SelectCFS, -1},
		{SelectFCBF, 1e-7},
		{SelectIWSS, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.algorithm, func(t *testing.T) {
			boost := NewBoostAODE(WithSelectFeatures(tc.algorithm, tc.threshold))
			fit(t, boost, ds)

			notes := boost.Notes()
			require.NotEmpty(t, notes)
			assert.True(t, strings.HasPrefix(notes[0], "Used features in initialization: "))
			assert.True(t, strings.HasSuffix(notes[0], "of 4 with "+tc.algorithm))
			assert.True(t, strings.HasPrefix(notes[len(notes)-1], "Number of models: "))

			history := boost.History()
			require.NotEmpty(t, history)
			assert.Equal(t, 0, history[0].Iteration)
			initModels := len(strings.Split(history[0].Feature, ","))
			assert.GreaterOrEqual(t, boost.NumberOfModels(), initModels)
			if history[0].Accepted {
				for _, s := range boost.Significances()[:initModels] {
					assert.Equal(t, history[0].Alpha, s)
				}
			}

			proba, err := boost.PredictProba(ds.X)
			require.NoError(t, err)
			assertRowsSumToOne(t, proba)
		})
	}
}

func TestBoostAODEEnsemblePrediction(t *testing.T) {
	ds := makeData(t, 0.1)
	boost := NewBoostAODE(WithPredictSingle(false), WithBoostPredictVoting(true))
	fit(t, boost, ds)
	assert.GreaterOrEqual(t, boost.NumberOfModels(), 1)
	proba, err := boost.PredictProba(ds.X)
	require.NoError(t, err)
	assertRowsSumToOne(t, proba)
}

func TestUpdateWeights(t *testing.T) {
	y := []int{0, 0, 1, 1}

	weights := []float64{0.25, 0.25, 0.25, 0.25}
	epsilon, alpha, degenerate := updateWeights(y, []int{0, 0, 1, 0}, weights)
	assert.False(t, degenerate)
	assert.InDelta(t, 0.25, epsilon, 1e-12)
	assert.InDelta(t, 0.5*math.Log(3), alpha, 1e-12)
	assert.InDelta(t, 1.0, floats.Sum(weights), 1e-12)
	// the misclassified sample now carries half of the weight
	assert.InDelta(t, 0.5, weights[3], 1e-12)

	weights = []float64{0.25, 0.25, 0.25, 0.25}
	epsilon, alpha, degenerate = updateWeights(y, y, weights)
	assert.False(t, degenerate)
	assert.Equal(t, 0.0, epsilon)
	assert.Equal(t, 1.0, alpha)
	assert.InDeltaSlice(t, []float64{0.25, 0.25, 0.25, 0.25}, weights, 1e-12)

	weights = []float64{0.25, 0.25, 0.25, 0.25}
	epsilon, _, degenerate = updateWeights(y, []int{1, 1, 0, 1}, weights)
	assert.True(t, degenerate)
	assert.InDelta(t, 0.75, epsilon, 1e-12)
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, weights, "weights are untouched")
}

func TestBoostAODEHyperparameters(t *testing.T) {
	boost := NewBoostAODE()
	params := map[string]any{
		"repeatSparent":   true,
		"maxModels":       float64(12),
		"order":           "ascending",
		"convergence":     true,
		"threshold":       0.3,
		"select_features": "iwss",
		"tolerance":       2,
		"predict_voting":  true,
		"predict_single":  false,
	}
	require.NoError(t, boost.SetHyperparameters(params))
	got := boost.GetHyperparameters()
	assert.Equal(t, 12, got["maxModels"])
	assert.Equal(t, OrderAscending, got["order"])
	assert.Equal(t, SelectIWSS, got["select_features"])
	assert.Equal(t, 0.3, got["threshold"])
	assert.Equal(t, false, got["predict_single"])

	var ve *errors.ValidationError
	err := boost.SetHyperparameters(map[string]any{"depth": 3, "alpha": 1, "maxModels": 1})
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "[alpha, depth]")
	assert.Equal(t, 12, boost.GetHyperparameters()["maxModels"])

	// FCBF needs a threshold in [1e-7, 1]; nothing is applied on failure
	err = boost.SetHyperparameters(map[string]any{"select_features": "FCBF", "threshold": 0.0})
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, SelectIWSS, boost.GetHyperparameters()["select_features"])

	err = boost.SetHyperparameters(map[string]any{"threshold": 0.7})
	assert.True(t, errors.As(err, &ve), "IWSS threshold must be at most 0.5")

	assert.Error(t, boost.SetHyperparameters(map[string]any{"order": "sideways"}))
	assert.Error(t, boost.SetHyperparameters(map[string]any{"select_features": "PCA"}))
	assert.Error(t, boost.SetHyperparameters(map[string]any{"tolerance": -1}))
	assert.Error(t, boost.SetHyperparameters(map[string]any{"convergence": "yes"}))
}

func TestEnsembleErrors(t *testing.T) {
	boost := NewBoostAODE()
	var nf *errors.NotFittedError
	_, err := boost.Predict(mat.NewDense(1, 4, nil))
	assert.True(t, errors.As(err, &nf))
	_, err = boost.Summary()
	assert.True(t, errors.As(err, &nf))

	ds := makeData(t, 0.1)
	var de *errors.DimensionError
	err = boost.Fit(ds.X, ds.Y[:3], ds.Features, ds.ClassName, ds.States, network.SmoothingLaplace)
	assert.True(t, errors.As(err, &de))
	assert.False(t, boost.IsFitted())

	fit(t, boost, ds)
	_, err = boost.Predict(mat.NewDense(2, 3, nil))
	assert.True(t, errors.As(err, &de))
}

func TestBoostAODEWithoutAcceptedModelsStaysClean(t *testing.T) {
	warnings := captureWarnings(t)
	// constant features: every SPODE predicts class 0 and misses 6 of 10
	X := mat.NewDense(10, 2, nil)
	y := []int{0, 0, 0, 0, 1, 1, 1, 2, 2, 2}
	states := map[string]int{"a": 2, "b": 2, "class": 3}

	boost := NewBoostAODE()
	err := boost.Fit(X, y, []string{"a", "b"}, "class", states, network.SmoothingLaplace)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoModels))
	assert.Equal(t, StopDegenerate, boost.StopReason())
	require.Len(t, boost.History(), 1)
	assert.False(t, boost.History()[0].Accepted)
	assert.NotEmpty(t, *warnings)

	assert.False(t, boost.IsFitted())
	assert.Zero(t, boost.NumberOfModels())
	assert.Empty(t, boost.Notes())
	assert.Equal(t, model.StatusOK, boost.Status())
}

func TestBoostAODESummaryAndLogs(t *testing.T) {
	ds := makeData(t, 0)
	logger, _ := log.NewTestLogger(log.LevelDebug)
	boost := NewBoostAODE()
	boost.SetLogger(logger)
	fit(t, boost, ds)

	assert.True(t, logger.ContainsMessage("Boosting round"))
	assert.True(t, logger.ContainsField(log.StopReasonKey, "exhausted"))

	summary, err := boost.Summary()
	require.NoError(t, err)
	require.NoError(t, summary.Validate())
	assert.Equal(t, "BoostAODE", summary.ModelType)
	assert.Equal(t, 4, summary.Models)
	assert.Equal(t, "exhausted", summary.Metadata["stop_reason"])
	assert.Equal(t, "OK", summary.Status)
}
