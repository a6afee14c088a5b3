// Package classifiers implements the single-network structure learners:
// TAN, KDB and SPODE. They share the Classifier base, which owns the
// fit/predict lifecycle, and differ only in how they add edges before the
// CPTs are estimated.
package classifiers

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bayesnet/core/model"
	"github.com/YuminosukeSato/bayesnet/metrics"
	"github.com/YuminosukeSato/bayesnet/network"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
	"github.com/YuminosukeSato/bayesnet/pkg/log"
	"github.com/YuminosukeSato/bayesnet/pkg/telemetry"
)

// Classifier is the lifecycle shared by every single-network learner. It is
// embedded by TAN, KDB and SPODE, each of which installs a build hook that
// adds its edges to a network already holding every node.
type Classifier struct {
	name  string
	id    string
	state *model.StateManager // State management (composition)

	// build adds the variant's edges; m covers the training dataset.
	build func(m *metrics.Metrics, weights []float64) error

	model     *network.Network
	features  []string
	className string
	states    map[string]int
	smoothing network.Smoothing

	logger    log.Logger
	telemetry *telemetry.Metrics
}

func newClassifier(name string) Classifier {
	id := uuid.NewString()
	return Classifier{
		name:   name,
		id:     id,
		state:  model.NewStateManager(),
		logger: log.GetLoggerWithName("classifiers").With(log.ModelNameKey, name, log.EstimatorIDKey, id),
	}
}

// Name returns the learner kind.
func (c *Classifier) Name() string { return c.name }

// EstimatorID returns the identifier assigned when the learner was created.
func (c *Classifier) EstimatorID() string { return c.id }

// SetLogger replaces the logger; the model name and estimator ID are kept
// as record attributes.
func (c *Classifier) SetLogger(l log.Logger) {
	c.logger = l.With(log.ModelNameKey, c.name, log.EstimatorIDKey, c.id)
}

// SetTelemetry installs Prometheus collectors. nil disables them.
func (c *Classifier) SetTelemetry(m *telemetry.Metrics) { c.telemetry = m }

// IsFitted reports whether the last Fit succeeded.
func (c *Classifier) IsFitted() bool { return c.state.IsFitted() }

// Network returns the fitted network, or nil before Fit.
func (c *Classifier) Network() *network.Network {
	if !c.state.IsFitted() {
		return nil
	}
	return c.model
}

// MatrixToColumns converts a samples x features matrix of integer codes
// into one slice per feature.
func MatrixToColumns(op string, X mat.Matrix) ([][]int, error) {
	rows, cols := X.Dims()
	columns := make([][]int, cols)
	for j := 0; j < cols; j++ {
		columns[j] = make([]int, rows)
		for i := 0; i < rows; i++ {
			v := X.At(i, j)
			if v < 0 || v != math.Trunc(v) || math.IsInf(v, 0) {
				return nil, errors.NewValidationError("X", op+": values must be non-negative integer codes", v)
			}
			columns[j][i] = int(v)
		}
	}
	return columns, nil
}

// Fit learns the structure and the CPTs from X (samples x features) and y.
func (c *Classifier) Fit(X mat.Matrix, y []int, features []string, className string, states map[string]int, smoothing network.Smoothing) error {
	rows, cols := X.Dims()
	if rows != len(y) {
		return errors.NewDimensionError(c.name+".Fit", rows, len(y), 0)
	}
	if cols != len(features) {
		return errors.NewDimensionError(c.name+".Fit", len(features), cols, 1)
	}
	columns, err := MatrixToColumns(c.name+".Fit", X)
	if err != nil {
		return err
	}
	dataset := append(columns, append([]int(nil), y...))
	return c.FitDataset(dataset, features, className, states, nil, smoothing)
}

// FitDataset is Fit over a column-major dataset whose last row is the
// class. weights may be nil. Ensembles use it to fit base models without
// copying the matrix.
func (c *Classifier) FitDataset(dataset [][]int, features []string, className string, states map[string]int, weights []float64, smoothing network.Smoothing) (err error) {
	start := time.Now()
	defer func() {
		c.telemetry.ObserveFit(c.name, time.Since(start), err)
	}()

	c.state.Reset()
	c.model = nil
	if err = CheckDataset(c.name+".Fit", dataset, features, className, states, weights); err != nil {
		return err
	}
	nSamples := len(dataset[0])
	c.logger.Debug("Fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, len(features),
		log.SmoothingKey, smoothing.String(),
	)

	net := network.New()
	for _, f := range features {
		if err = net.AddNode(f, states[f]); err != nil {
			return err
		}
	}
	if err = net.AddNode(className, states[className]); err != nil {
		return err
	}

	m, err := metrics.New(dataset, features, className, states[className])
	if err != nil {
		return err
	}
	c.model = net
	c.features = append([]string(nil), features...)
	c.className = className
	c.states = copyStates(states)
	c.smoothing = smoothing
	if err = c.build(m, weights); err != nil {
		c.model = nil
		return errors.Wrapf(err, "%s: build model", c.name)
	}
	nf := len(features)
	if err = net.Fit(dataset[:nf], dataset[nf], weights, features, className, states, smoothing); err != nil {
		c.model = nil
		return err
	}

	c.state.SetDimensions(nf, nSamples)
	c.state.SetFitted()
	c.logger.Info("Fit completed",
		log.OperationKey, log.OperationFit,
		log.NodesKey, net.NumberOfNodes(),
		log.EdgesKey, net.NumberOfEdges(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// CheckDataset validates a column-major dataset (features then class)
// against the feature names and the state map before anything is built.
func CheckDataset(op string, dataset [][]int, features []string, className string, states map[string]int, weights []float64) error {
	if len(features) == 0 {
		return errors.NewValidationError("features", "no features", 0)
	}
	if className == "" {
		return errors.NewValidationError("className", "class name cannot be empty", className)
	}
	if len(dataset) != len(features)+1 {
		return errors.NewDimensionError(op, len(features)+1, len(dataset), 1)
	}
	nSamples := len(dataset[len(features)])
	if nSamples == 0 {
		return errors.NewValidationError("y", "no samples", 0)
	}
	if weights != nil && len(weights) != nSamples {
		return errors.NewDimensionError(op, nSamples, len(weights), 0)
	}
	seen := make(map[string]struct{}, len(features))
	names := append(append([]string(nil), features...), className)
	for i, name := range names {
		if _, dup := seen[name]; dup {
			return errors.NewValidationError("features", "duplicated variable name", name)
		}
		seen[name] = struct{}{}
		card, ok := states[name]
		if !ok {
			return errors.NewValidationError("states", "variable not found in states", name)
		}
		if card <= 0 {
			return errors.NewValidationError(name, "number of states must be positive", card)
		}
		if len(dataset[i]) != nSamples {
			return errors.NewDimensionError(op, nSamples, len(dataset[i]), 0)
		}
		for _, v := range dataset[i] {
			if v < 0 || v >= card {
				return errors.NewValidationError(name, "value outside the declared states", v)
			}
		}
	}
	return nil
}

func copyStates(states map[string]int) map[string]int {
	out := make(map[string]int, len(states))
	for k, v := range states {
		out[k] = v
	}
	return out
}

// PredictProbaColumns returns one class distribution per sample of the
// column-major X.
func (c *Classifier) PredictProbaColumns(X [][]int) ([][]float64, error) {
	if err := c.state.RequireFitted(c.name, "PredictProba"); err != nil {
		return nil, err
	}
	probs, err := c.model.PredictProba(X)
	if err != nil {
		return nil, err
	}
	c.telemetry.ObservePredictions(c.name, len(probs))
	return probs, nil
}

// PredictColumns returns the arg-max class of every sample of X.
func (c *Classifier) PredictColumns(X [][]int) ([]int, error) {
	probs, err := c.PredictProbaColumns(X)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(probs))
	for i, p := range probs {
		labels[i] = floats.MaxIdx(p)
	}
	return labels, nil
}

func (c *Classifier) columns(method string, X mat.Matrix) ([][]int, error) {
	if err := c.state.RequireFitted(c.name, method); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if cols != len(c.features) {
		return nil, errors.NewDimensionError(c.name+"."+method, len(c.features), cols, 1)
	}
	return MatrixToColumns(c.name+"."+method, X)
}

// PredictProba returns a samples x classes matrix whose rows sum to 1.
func (c *Classifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	columns, err := c.columns("PredictProba", X)
	if err != nil {
		return nil, err
	}
	probs, err := c.PredictProbaColumns(columns)
	if err != nil {
		return nil, err
	}
	return ProbaToDense(probs, c.states[c.className]), nil
}

// ProbaToDense packs per-sample distributions into a matrix.
func ProbaToDense(probs [][]float64, nClasses int) *mat.Dense {
	if len(probs) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(probs), nClasses, nil)
	for i, p := range probs {
		out.SetRow(i, p)
	}
	return out
}

// Predict returns the most probable class of every row of X.
func (c *Classifier) Predict(X mat.Matrix) ([]int, error) {
	columns, err := c.columns("Predict", X)
	if err != nil {
		return nil, err
	}
	return c.PredictColumns(columns)
}

// PredictWithConfidence returns the predicted label of every row with its
// posterior probability.
func (c *Classifier) PredictWithConfidence(X mat.Matrix) ([]model.Prediction, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return ToPredictions(proba), nil
}

// ToPredictions takes the arg-max of every row of proba.
func ToPredictions(proba *mat.Dense) []model.Prediction {
	if proba.IsEmpty() {
		return nil
	}
	rows, _ := proba.Dims()
	out := make([]model.Prediction, rows)
	for i := 0; i < rows; i++ {
		row := proba.RawRowView(i)
		k := floats.MaxIdx(row)
		out[i] = model.Prediction{Label: k, Confidence: row[k]}
	}
	return out
}

// Score returns the accuracy of Predict against y.
func (c *Classifier) Score(X mat.Matrix, y []int) (float64, error) {
	labels, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	accuracy, err := metrics.Accuracy(y, labels)
	if err != nil {
		return 0, err
	}
	c.logger.Debug("Score computed", log.OperationKey, log.OperationScore, log.AccuracyKey, accuracy)
	return accuracy, nil
}

// Graph renders the network in DOT format.
func (c *Classifier) Graph(title string) []string {
	if c.model == nil {
		return nil
	}
	if title == "" {
		title = c.name
	}
	return c.model.Graph(title)
}

// Show lists every node with its children.
func (c *Classifier) Show() []string {
	if c.model == nil {
		return nil
	}
	return c.model.Show()
}

// TopologicalOrder returns the node names parents first.
func (c *Classifier) TopologicalOrder() ([]string, error) {
	if err := c.state.RequireFitted(c.name, "TopologicalOrder"); err != nil {
		return nil, err
	}
	return c.model.TopologicalOrder()
}

// DumpCPT prints every fitted CPT.
func (c *Classifier) DumpCPT() string {
	if c.model == nil {
		return ""
	}
	return c.model.DumpCPT()
}

func (c *Classifier) NumberOfNodes() int {
	if c.model == nil {
		return 0
	}
	return c.model.NumberOfNodes()
}

func (c *Classifier) NumberOfEdges() int {
	if c.model == nil {
		return 0
	}
	return c.model.NumberOfEdges()
}

func (c *Classifier) NumberOfStates() int {
	if c.model == nil {
		return 0
	}
	return c.model.NumberOfStates()
}

// Status returns WARNING when training left a diagnostic note that needs
// attention, OK otherwise.
func (c *Classifier) Status() model.Status { return c.state.GetStatus() }

// Notes returns the diagnostic notes recorded during training.
func (c *Classifier) Notes() []string { return c.state.GetNotes() }

// summary fills the fields every learner shares.
func (c *Classifier) summary(hyperparameters map[string]any) (*model.ModelSummary, error) {
	if err := c.state.RequireFitted(c.name, "Summary"); err != nil {
		return nil, err
	}
	return &model.ModelSummary{
		ModelType:       c.name,
		Version:         model.SummaryVersion,
		EstimatorID:     c.id,
		Features:        append([]string(nil), c.features...),
		ClassName:       c.className,
		States:          copyStates(c.states),
		Hyperparameters: hyperparameters,
		Nodes:           c.NumberOfNodes(),
		Edges:           c.NumberOfEdges(),
		TotalStates:     c.NumberOfStates(),
		Models:          1,
		Status:          c.Status().String(),
		Notes:           c.Notes(),
		Metadata:        map[string]any{"smoothing": c.smoothing.String()},
		IsFitted:        true,
	}, nil
}
