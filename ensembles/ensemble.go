// Package ensembles implements the SPODE ensembles AODE and BoostAODE on a
// shared Ensemble base that owns the fit/predict lifecycle and combines
// the base models' outputs weighted by their significance.
package ensembles

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bayesnet/classifiers"
	"github.com/YuminosukeSato/bayesnet/core/model"
	"github.com/YuminosukeSato/bayesnet/metrics"
	"github.com/YuminosukeSato/bayesnet/network"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
	"github.com/YuminosukeSato/bayesnet/pkg/log"
	"github.com/YuminosukeSato/bayesnet/pkg/telemetry"
)

// Ensemble is the lifecycle shared by AODE and BoostAODE. Each variant
// installs a train hook that appends fitted SPODEs and their significances.
type Ensemble struct {
	name  string
	id    string
	state *model.StateManager

	// train fills models and significances from the column-major dataset.
	train func(dataset [][]int) error

	models        []*classifiers.SPODE
	significances []float64
	predictVoting bool

	features  []string
	className string
	states    map[string]int
	nClasses  int
	smoothing network.Smoothing

	logger    log.Logger
	telemetry *telemetry.Metrics
}

func newEnsemble(name string) Ensemble {
	id := uuid.NewString()
	return Ensemble{
		name:   name,
		id:     id,
		state:  model.NewStateManager(),
		logger: log.GetLoggerWithName("ensembles").With(log.ModelNameKey, name, log.EstimatorIDKey, id),
	}
}

// Name returns the learner kind.
func (e *Ensemble) Name() string { return e.name }

// EstimatorID returns the identifier assigned when the learner was created.
func (e *Ensemble) EstimatorID() string { return e.id }

// SetLogger replaces the logger.
func (e *Ensemble) SetLogger(l log.Logger) {
	e.logger = l.With(log.ModelNameKey, e.name, log.EstimatorIDKey, e.id)
}

// SetTelemetry installs Prometheus collectors, shared with the base models.
func (e *Ensemble) SetTelemetry(m *telemetry.Metrics) { e.telemetry = m }

// IsFitted reports whether the last Fit succeeded.
func (e *Ensemble) IsFitted() bool { return e.state.IsFitted() }

// NumberOfModels returns the number of base models.
func (e *Ensemble) NumberOfModels() int { return len(e.models) }

// Significances returns the voting weight of every base model.
func (e *Ensemble) Significances() []float64 {
	return append([]float64(nil), e.significances...)
}

// Fit learns the ensemble from X (samples x features) and y.
func (e *Ensemble) Fit(X mat.Matrix, y []int, features []string, className string, states map[string]int, smoothing network.Smoothing) error {
	rows, cols := X.Dims()
	if rows != len(y) {
		return errors.NewDimensionError(e.name+".Fit", rows, len(y), 0)
	}
	if cols != len(features) {
		return errors.NewDimensionError(e.name+".Fit", len(features), cols, 1)
	}
	columns, err := classifiers.MatrixToColumns(e.name+".Fit", X)
	if err != nil {
		return err
	}
	return e.FitDataset(append(columns, append([]int(nil), y...)), features, className, states, smoothing)
}

// FitDataset is Fit over a column-major dataset whose last row is the class.
func (e *Ensemble) FitDataset(dataset [][]int, features []string, className string, states map[string]int, smoothing network.Smoothing) (err error) {
	start := time.Now()
	defer func() {
		e.telemetry.ObserveFit(e.name, time.Since(start), err)
	}()

	e.state.Reset()
	e.models = nil
	e.significances = nil
	if err = classifiers.CheckDataset(e.name+".Fit", dataset, features, className, states, nil); err != nil {
		return err
	}
	e.features = append([]string(nil), features...)
	e.className = className
	e.states = make(map[string]int, len(states))
	for k, v := range states {
		e.states[k] = v
	}
	e.nClasses = states[className]
	e.smoothing = smoothing
	e.logger.Debug("Fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(dataset[len(features)]),
		log.FeaturesKey, len(features),
		log.SmoothingKey, smoothing.String(),
	)

	if err = e.train(dataset); err != nil {
		e.discard()
		return err
	}
	if len(e.models) == 0 {
		e.discard()
		err = errors.NewModelError(e.name+".Fit", "no base model was accepted", errors.ErrNoModels)
		return err
	}
	e.state.SetDimensions(len(features), len(dataset[len(features)]))
	e.state.SetFitted()
	e.logger.Info("Fit completed",
		log.OperationKey, log.OperationFit,
		log.ModelsKey, len(e.models),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// discard drops everything a failed train left behind, notes and status
// included.
func (e *Ensemble) discard() {
	e.models, e.significances = nil, nil
	e.state.Reset()
}

// newSPODE fits one base model sharing the ensemble's logger and telemetry.
func (e *Ensemble) newSPODE(parent int, dataset [][]int, weights []float64) (*classifiers.SPODE, error) {
	spode := classifiers.NewSPODE(parent)
	spode.SetLogger(e.logger.With(log.ComponentKey, "base_model"))
	spode.SetTelemetry(e.telemetry)
	if err := spode.FitDataset(dataset, e.features, e.className, e.states, weights, e.smoothing); err != nil {
		return nil, errors.Wrapf(err, "%s: fit SPODE(%d)", e.name, parent)
	}
	return spode, nil
}

func (e *Ensemble) addModel(m *classifiers.SPODE, significance float64) {
	e.models = append(e.models, m)
	e.significances = append(e.significances, significance)
}

// combine returns the significance-weighted class distribution of every
// sample. In voting mode each model contributes its significance to the
// class it predicts; otherwise its weighted probabilities. Rows are
// normalized to sum to 1.
func (e *Ensemble) combine(X [][]int) ([][]float64, error) {
	if len(e.models) == 0 {
		return nil, errors.WithStack(errors.ErrNoModels)
	}
	nSamples := 0
	if len(X) > 0 {
		nSamples = len(X[0])
	}
	alphas := e.significances
	if floats.Sum(alphas) <= 0 {
		// every significance is zero, fall back to an unweighted vote
		alphas = make([]float64, len(e.models))
		for i := range alphas {
			alphas[i] = 1
		}
	}

	result := make([][]float64, nSamples)
	for s := range result {
		result[s] = make([]float64, e.nClasses)
	}
	for i, m := range e.models {
		if e.predictVoting {
			labels, err := m.PredictColumns(X)
			if err != nil {
				return nil, err
			}
			for s, label := range labels {
				result[s][label] += alphas[i]
			}
			continue
		}
		probs, err := m.PredictProbaColumns(X)
		if err != nil {
			return nil, err
		}
		for s, p := range probs {
			floats.AddScaled(result[s], alphas[i], p)
		}
	}
	for _, row := range result {
		total := floats.Sum(row)
		if total == 0 {
			return nil, errors.NewNumericalInstabilityError(e.name+".PredictProba", row)
		}
		floats.Scale(1/total, row)
	}
	return result, nil
}

// PredictProbaColumns returns one class distribution per sample of the
// column-major X.
func (e *Ensemble) PredictProbaColumns(X [][]int) ([][]float64, error) {
	if err := e.state.RequireFitted(e.name, "PredictProba"); err != nil {
		return nil, err
	}
	if len(X) != len(e.features) {
		return nil, errors.NewDimensionError(e.name+".PredictProba", len(e.features), len(X), 1)
	}
	probs, err := e.combine(X)
	if err != nil {
		return nil, err
	}
	e.telemetry.ObservePredictions(e.name, len(probs))
	return probs, nil
}

// PredictColumns returns the arg-max class of every sample of X.
func (e *Ensemble) PredictColumns(X [][]int) ([]int, error) {
	probs, err := e.PredictProbaColumns(X)
	if err != nil {
		return nil, err
	}
	return argmax(probs), nil
}

func argmax(probs [][]float64) []int {
	labels := make([]int, len(probs))
	for i, p := range probs {
		labels[i] = floats.MaxIdx(p)
	}
	return labels
}

func (e *Ensemble) columns(method string, X mat.Matrix) ([][]int, error) {
	if err := e.state.RequireFitted(e.name, method); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if cols != len(e.features) {
		return nil, errors.NewDimensionError(e.name+"."+method, len(e.features), cols, 1)
	}
	return classifiers.MatrixToColumns(e.name+"."+method, X)
}

// PredictProba returns a samples x classes matrix whose rows sum to 1.
func (e *Ensemble) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	columns, err := e.columns("PredictProba", X)
	if err != nil {
		return nil, err
	}
	probs, err := e.PredictProbaColumns(columns)
	if err != nil {
		return nil, err
	}
	return classifiers.ProbaToDense(probs, e.nClasses), nil
}

// Predict returns the most probable class of every row of X.
func (e *Ensemble) Predict(X mat.Matrix) ([]int, error) {
	columns, err := e.columns("Predict", X)
	if err != nil {
		return nil, err
	}
	return e.PredictColumns(columns)
}

// PredictWithConfidence returns the predicted label of every row with its
// combined probability.
func (e *Ensemble) PredictWithConfidence(X mat.Matrix) ([]model.Prediction, error) {
	proba, err := e.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return classifiers.ToPredictions(proba), nil
}

// Score returns the accuracy of Predict against y.
func (e *Ensemble) Score(X mat.Matrix, y []int) (float64, error) {
	labels, err := e.Predict(X)
	if err != nil {
		return 0, err
	}
	accuracy, err := metrics.Accuracy(y, labels)
	if err != nil {
		return 0, err
	}
	e.logger.Debug("Score computed", log.OperationKey, log.OperationScore, log.AccuracyKey, accuracy)
	return accuracy, nil
}

// Graph concatenates the DOT rendering of every base model, titled
// title_0, title_1, ...
func (e *Ensemble) Graph(title string) []string {
	if title == "" {
		title = e.name
	}
	var out []string
	for i, m := range e.models {
		out = append(out, m.Graph(title+"_"+strconv.Itoa(i))...)
	}
	return out
}

// Show concatenates the description of every base model.
func (e *Ensemble) Show() []string {
	var out []string
	for _, m := range e.models {
		out = append(out, m.Show()...)
	}
	return out
}

func (e *Ensemble) NumberOfNodes() int {
	total := 0
	for _, m := range e.models {
		total += m.NumberOfNodes()
	}
	return total
}

func (e *Ensemble) NumberOfEdges() int {
	total := 0
	for _, m := range e.models {
		total += m.NumberOfEdges()
	}
	return total
}

func (e *Ensemble) NumberOfStates() int {
	total := 0
	for _, m := range e.models {
		total += m.NumberOfStates()
	}
	return total
}

// Status returns WARNING when training finished with a diagnostic that
// needs attention.
func (e *Ensemble) Status() model.Status { return e.state.GetStatus() }

// Notes returns the diagnostic notes recorded during training.
func (e *Ensemble) Notes() []string { return e.state.GetNotes() }

func (e *Ensemble) summary(hyperparameters map[string]any, metadata map[string]any) (*model.ModelSummary, error) {
	if err := e.state.RequireFitted(e.name, "Summary"); err != nil {
		return nil, err
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["smoothing"] = e.smoothing.String()
	metadata["significances"] = e.Significances()
	states := make(map[string]int, len(e.states))
	for k, v := range e.states {
		states[k] = v
	}
	return &model.ModelSummary{
		ModelType:       e.name,
		Version:         model.SummaryVersion,
		EstimatorID:     e.id,
		Features:        append([]string(nil), e.features...),
		ClassName:       e.className,
		States:          states,
		Hyperparameters: hyperparameters,
		Nodes:           e.NumberOfNodes(),
		Edges:           e.NumberOfEdges(),
		TotalStates:     e.NumberOfStates(),
		Models:          len(e.models),
		Status:          e.Status().String(),
		Notes:           e.Notes(),
		Metadata:        metadata,
		IsFitted:        true,
	}, nil
}
