package ensembles

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/bayesnet/core/model"
	"github.com/YuminosukeSato/bayesnet/featureselect"
	"github.com/YuminosukeSato/bayesnet/metrics"
	"github.com/YuminosukeSato/bayesnet/model_selection"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
	"github.com/YuminosukeSato/bayesnet/pkg/log"
)

const (
	// convergenceThreshold is the validation accuracy gain under which a
	// round counts as stalled.
	convergenceThreshold = 1e-4

	randomOrderSeed = 173
	validationSeed  = 271
	validationFolds = 5
)

// Feature orderings for BoostAODE rounds.
const (
	OrderAscending  = "asc"
	OrderDescending = "desc"
	OrderRandom     = "rand"
)

// Feature selection algorithms for BoostAODE initialization.
const (
	SelectCFS  = "CFS"
	SelectFCBF = "FCBF"
	SelectIWSS = "IWSS"
)

// StopReason records why the boosting loop ended.
type StopReason int

const (
	// StopNone means the loop has not run.
	StopNone StopReason = iota
	// StopConverged means validation accuracy stalled more than tolerance times.
	StopConverged
	// StopExhausted means no candidate feature or no model slot was left.
	StopExhausted
	// StopDegenerate means a base model had a weighted error above 0.5.
	StopDegenerate
)

func (r StopReason) String() string {
	switch r {
	case StopConverged:
		return "converged"
	case StopExhausted:
		return "exhausted"
	case StopDegenerate:
		return "degenerate"
	default:
		return "none"
	}
}

// Round describes one boosting iteration. Iteration 0 is the feature
// selection initialization, when configured.
type Round struct {
	Iteration int     `json:"iteration"`
	Feature   string  `json:"feature"`
	Epsilon   float64 `json:"epsilon"`
	Alpha     float64 `json:"alpha"`
	Accepted  bool    `json:"accepted"`
	// ValidationAccuracy is set only when Validated is true.
	ValidationAccuracy float64 `json:"validation_accuracy"`
	Validated          bool    `json:"validated"`
}

// BoostAODE is an AdaBoost ensemble of SPODEs. Every round adds a SPODE
// whose superparent is the best ranked feature under the current sample
// weights, then reweights the samples it got wrong.
type BoostAODE struct {
	Ensemble

	repeatSparent  bool
	maxModels      int
	order          string
	convergence    bool
	threshold      float64
	selectFeatures string
	tolerance      int
	predictSingle  bool

	history    []Round
	stopReason StopReason
}

// BoostAODEOption is a functional option for BoostAODE
type BoostAODEOption func(*BoostAODE)

// WithRepeatSparent allows a feature to be superparent of several models.
func WithRepeatSparent(repeat bool) BoostAODEOption {
	return func(b *BoostAODE) { b.repeatSparent = repeat }
}

// WithMaxModels caps the number of models; 0 derives the cap from the data.
// Without repeated superparents the cap is also bounded by the features.
func WithMaxModels(n int) BoostAODEOption {
	return func(b *BoostAODE) { b.maxModels = n }
}

// WithOrder sets the feature ordering: OrderAscending, OrderDescending or OrderRandom.
func WithOrder(order string) BoostAODEOption {
	return func(b *BoostAODE) { b.order = order }
}

// WithConvergence holds out a validation fold and stops once its accuracy stalls.
func WithConvergence(convergence bool) BoostAODEOption {
	return func(b *BoostAODE) { b.convergence = convergence }
}

// WithTolerance sets how many stalled rounds are accepted before converging.
func WithTolerance(tolerance int) BoostAODEOption {
	return func(b *BoostAODE) { b.tolerance = tolerance }
}

// WithSelectFeatures initializes the ensemble from a feature selection
// algorithm with the given threshold.
func WithSelectFeatures(algorithm string, threshold float64) BoostAODEOption {
	return func(b *BoostAODE) {
		b.selectFeatures = algorithm
		b.threshold = threshold
	}
}

// WithBoostPredictVoting makes predictions a significance weighted vote.
func WithBoostPredictVoting(voting bool) BoostAODEOption {
	return func(b *BoostAODE) { b.predictVoting = voting }
}

// WithPredictSingle makes each round's reweighting use the new model alone
// instead of the ensemble built so far.
func WithPredictSingle(single bool) BoostAODEOption {
	return func(b *BoostAODE) { b.predictSingle = single }
}

// NewBoostAODE creates a new BoostAODE ensemble
func NewBoostAODE(opts ...BoostAODEOption) *BoostAODE {
	b := &BoostAODE{
		Ensemble:      newEnsemble("BoostAODE"),
		order:         OrderDescending,
		threshold:     -1,
		predictSingle: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.train = b.trainModel
	return b
}

// History returns one entry per boosting round of the last Fit.
func (b *BoostAODE) History() []Round { return append([]Round(nil), b.history...) }

// StopReason returns why the last Fit stopped adding models.
func (b *BoostAODE) StopReason() StopReason { return b.stopReason }

// validate checks the configuration as a whole.
func (b *BoostAODE) validate() error {
	if b.maxModels < 0 {
		return errors.NewValidationError("maxModels", "must be non-negative", b.maxModels)
	}
	if b.tolerance < 0 {
		return errors.NewValidationError("tolerance", "must be non-negative", b.tolerance)
	}
	switch b.order {
	case OrderAscending, OrderDescending, OrderRandom:
	default:
		return errors.NewValidationError("order", "must be one of asc, desc, rand", b.order)
	}
	switch b.selectFeatures {
	case "", SelectCFS:
	case SelectFCBF:
		if b.threshold < 1e-7 || b.threshold > 1 {
			return errors.NewValidationError("threshold", "must be in [1e-7, 1] for FCBF", b.threshold)
		}
	case SelectIWSS:
		if b.threshold < 0 || b.threshold > 0.5 {
			return errors.NewValidationError("threshold", "must be in [0, 0.5] for IWSS", b.threshold)
		}
	default:
		return errors.NewValidationError("select_features", "must be one of CFS, FCBF, IWSS", b.selectFeatures)
	}
	return nil
}

// updateWeights runs one AdaBoost step in place. It returns the weighted
// error, the significance of the model and whether the model is worse than
// chance, in which case weights are left untouched.
func updateWeights(y, ypred []int, weights []float64) (epsilon, alpha float64, degenerate bool) {
	for i := range y {
		if ypred[i] != y[i] {
			epsilon += weights[i]
		}
	}
	if epsilon > 0.5 {
		return epsilon, 0, true
	}
	if epsilon == 0 {
		alpha = 1
	} else {
		alpha = 0.5 * math.Log((1-epsilon)/epsilon)
	}
	wrong, right := math.Exp(alpha), math.Exp(-alpha)
	for i := range weights {
		if ypred[i] != y[i] {
			weights[i] *= wrong
		} else {
			weights[i] *= right
		}
	}
	floats.Scale(1/floats.Sum(weights), weights)
	return epsilon, alpha, false
}

// subset keeps the samples at indices of every row of dataset.
func subset(dataset [][]int, indices []int) [][]int {
	out := make([][]int, len(dataset))
	for r, row := range dataset {
		out[r] = make([]int, len(indices))
		for i, idx := range indices {
			out[r][i] = row[idx]
		}
	}
	return out
}

// accumulate adds alpha * probs into table.
func accumulate(table, probs [][]float64, alpha float64) {
	for s, p := range probs {
		floats.AddScaled(table[s], alpha, p)
	}
}

// tentative returns the arg-max of table + probs without modifying table.
func tentative(table, probs [][]float64) []int {
	labels := make([]int, len(table))
	row := make([]float64, 0)
	for s := range table {
		row = append(row[:0], table[s]...)
		floats.Add(row, probs[s])
		labels[s] = floats.MaxIdx(row)
	}
	return labels
}

func (b *BoostAODE) trainModel(dataset [][]int) error {
	if err := b.validate(); err != nil {
		return err
	}
	b.history = nil
	b.stopReason = StopNone
	nf := len(b.features)

	train := dataset
	var validation [][]int
	if b.convergence {
		splitter := model_selection.NewStratifiedKFold(validationFolds, true, validationSeed)
		folds, err := splitter.Split(dataset[nf])
		if err != nil {
			return errors.Wrap(err, "BoostAODE: validation split")
		}
		train = subset(dataset, folds[0].TrainIndices)
		validation = subset(dataset, folds[0].TestIndices)
	}
	xTrain, yTrain := train[:nf], train[nf]
	nTrain := len(yTrain)

	maxModels := b.maxModels
	if maxModels == 0 {
		maxModels = max(nf, int(0.1*float64(nTrain)))
	}

	weights := make([]float64, nTrain)
	for i := range weights {
		weights[i] = 1 / float64(nTrain)
	}
	probTable := make([][]float64, nTrain)
	for s := range probTable {
		probTable[s] = make([]float64, b.nClasses)
	}
	used := make(map[int]bool, nf)
	var featuresUsed []int

	if b.selectFeatures != "" {
		selected, err := b.initializeModels(train, weights)
		if err != nil {
			return err
		}
		probs := make([][][]float64, len(b.models))
		for i, m := range b.models {
			if probs[i], err = m.PredictProbaColumns(xTrain); err != nil {
				return err
			}
			accumulate(probTable, probs[i], 1)
		}
		ypred := argmax(probTable)
		epsilon, alpha, degenerate := updateWeights(yTrain, ypred, weights)
		names := make([]string, len(selected))
		for i, f := range selected {
			names[i] = b.features[f]
			used[f] = true
		}
		featuresUsed = append(featuresUsed, selected...)
		b.history = append(b.history, Round{
			Iteration: 0,
			Feature:   strings.Join(names, ","),
			Epsilon:   epsilon,
			Alpha:     alpha,
			Accepted:  !degenerate,
		})
		if degenerate {
			// significances stay at 1
			b.stopReason = StopDegenerate
			return b.finish(featuresUsed)
		}
		for i := range b.significances {
			b.significances[i] = alpha
		}
		for s := range probTable {
			floats.Scale(alpha, probTable[s])
		}
	}

	m, err := metrics.New(train, b.features, b.className, b.nClasses)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(randomOrderSeed, randomOrderSeed))
	priorAccuracy, delta := 0.0, 1.0
	first := true
	stalls := 0

	for iteration := 1; ; iteration++ {
		ranking, err := m.SelectKBestWeighted(weights, b.order == OrderAscending, 0)
		if err != nil {
			return err
		}
		if b.order == OrderRandom {
			rng.Shuffle(len(ranking), func(i, j int) { ranking[i], ranking[j] = ranking[j], ranking[i] })
		}
		feature := ranking[0]
		if !b.repeatSparent || len(featuresUsed) < len(ranking) {
			feature = -1
			for _, f := range ranking {
				if !used[f] {
					feature = f
					break
				}
			}
			if feature < 0 {
				b.stopReason = StopExhausted
				break
			}
		}

		spode, err := b.newSPODE(feature, train, weights)
		if err != nil {
			return err
		}
		probs, err := spode.PredictProbaColumns(xTrain)
		if err != nil {
			return err
		}
		var ypred []int
		if b.predictSingle {
			ypred = argmax(probs)
		} else {
			ypred = tentative(probTable, probs)
		}

		epsilon, alpha, degenerate := updateWeights(yTrain, ypred, weights)
		round := Round{Iteration: iteration, Feature: b.features[feature], Epsilon: epsilon, Alpha: alpha}
		b.logger.Debug("Boosting round",
			log.IterationKey, iteration,
			log.FeatureKey, b.features[feature],
			log.EpsilonKey, epsilon,
			log.AlphaKey, alpha,
		)
		if degenerate {
			b.history = append(b.history, round)
			b.stopReason = StopDegenerate
			break
		}

		// the round is committed only once it is known not to be degenerate
		round.Accepted = true
		accumulate(probTable, probs, alpha)
		if !used[feature] {
			used[feature] = true
			featuresUsed = append(featuresUsed, feature)
		}
		b.addModel(spode, alpha)
		b.telemetry.ObserveBoostRound(b.name, alpha)

		if b.convergence {
			accuracy, err := b.validationAccuracy(validation)
			if err != nil {
				return err
			}
			round.ValidationAccuracy, round.Validated = accuracy, true
			if first {
				first = false
			} else {
				delta = accuracy - priorAccuracy
			}
			if delta < convergenceThreshold {
				stalls++
			}
			priorAccuracy = accuracy
		}
		b.history = append(b.history, round)

		if stalls > b.tolerance {
			b.stopReason = StopConverged
			break
		}
		if len(b.models) >= maxModels {
			b.stopReason = StopExhausted
			break
		}
	}
	return b.finish(featuresUsed)
}

// initializeModels fits one SPODE per feature chosen by the configured
// selection algorithm, each with significance 1.
func (b *BoostAODE) initializeModels(train [][]int, weights []float64) ([]int, error) {
	var selector featureselect.Selector
	var err error
	switch b.selectFeatures {
	case SelectCFS:
		selector, err = featureselect.NewCFS(train, b.features, b.className, 0, b.nClasses, weights)
	case SelectFCBF:
		selector, err = featureselect.NewFCBF(train, b.features, b.className, 0, b.nClasses, weights, b.threshold)
	case SelectIWSS:
		selector, err = featureselect.NewIWSS(train, b.features, b.className, 0, b.nClasses, weights, b.threshold)
	}
	if err != nil {
		return nil, err
	}
	if err := selector.Fit(); err != nil {
		return nil, err
	}
	selected, err := selector.Features()
	if err != nil {
		return nil, err
	}
	for _, f := range selected {
		spode, err := b.newSPODE(f, train, weights)
		if err != nil {
			return nil, err
		}
		b.addModel(spode, 1)
	}
	b.state.AddNote(fmt.Sprintf("Used features in initialization: %d of %d with %s", len(selected), len(b.features), b.selectFeatures))
	b.logger.Debug("Initialized from feature selection",
		log.OperationKey, log.OperationSelect,
		log.SelectedKey, selected,
	)
	return selected, nil
}

func (b *BoostAODE) validationAccuracy(validation [][]int) (float64, error) {
	nf := len(b.features)
	probs, err := b.combine(validation[:nf])
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(validation[nf], argmax(probs))
}

// finish records the post-training diagnostics.
func (b *BoostAODE) finish(featuresUsed []int) error {
	if len(featuresUsed) != len(b.features) {
		b.state.AddNote(fmt.Sprintf("Used features in train: %d of %d", len(featuresUsed), len(b.features)))
		b.state.SetStatus(model.StatusWarning)
		errors.Warn(errors.NewFeatureUsageWarning(b.name, len(featuresUsed), len(b.features)))
	}
	b.state.AddNote(fmt.Sprintf("Number of models: %d", len(b.models)))
	b.telemetry.ObserveBoostStop(b.stopReason.String())
	b.logger.Info("Boosting finished",
		log.StopReasonKey, b.stopReason.String(),
		log.ModelsKey, len(b.models),
	)
	return nil
}

// SetHyperparameters accepts repeatSparent, maxModels, order, convergence,
// threshold, select_features, tolerance, predict_voting and predict_single.
// Nothing is applied unless every key and value is valid.
func (b *BoostAODE) SetHyperparameters(params map[string]any) error {
	valid := []string{"repeatSparent", "maxModels", "order", "convergence", "threshold",
		"select_features", "tolerance", "predict_voting", "predict_single"}
	if err := model.CheckKeys(params, valid); err != nil {
		return err
	}
	next := *b
	for _, key := range []string{"repeatSparent", "convergence", "predict_voting", "predict_single"} {
		v, ok, err := model.ParamBool(params, key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		switch key {
		case "repeatSparent":
			next.repeatSparent = v
		case "convergence":
			next.convergence = v
		case "predict_voting":
			next.predictVoting = v
		case "predict_single":
			next.predictSingle = v
		}
	}
	if v, ok, err := model.ParamInt(params, "maxModels"); err != nil {
		return err
	} else if ok {
		next.maxModels = v
	}
	if v, ok, err := model.ParamInt(params, "tolerance"); err != nil {
		return err
	} else if ok {
		next.tolerance = v
	}
	if v, ok, err := model.ParamFloat(params, "threshold"); err != nil {
		return err
	} else if ok {
		next.threshold = v
	}
	if v, ok, err := model.ParamString(params, "order"); err != nil {
		return err
	} else if ok {
		next.order = parseOrder(v)
	}
	if v, ok, err := model.ParamString(params, "select_features"); err != nil {
		return err
	} else if ok {
		next.selectFeatures = strings.ToUpper(v)
	}
	if err := next.validate(); err != nil {
		return err
	}

	b.repeatSparent = next.repeatSparent
	b.convergence = next.convergence
	b.predictVoting = next.predictVoting
	b.predictSingle = next.predictSingle
	b.maxModels = next.maxModels
	b.tolerance = next.tolerance
	b.threshold = next.threshold
	b.order = next.order
	b.selectFeatures = next.selectFeatures
	b.logger.Debug("Hyperparameters set", log.HyperParamsKey, params)
	return nil
}

func parseOrder(v string) string {
	switch strings.ToLower(v) {
	case "asc", "ascending":
		return OrderAscending
	case "desc", "descending":
		return OrderDescending
	case "rand", "random":
		return OrderRandom
	}
	return v
}

// GetHyperparameters returns the current hyperparameters.
func (b *BoostAODE) GetHyperparameters() map[string]any {
	return map[string]any{
		"repeatSparent":   b.repeatSparent,
		"maxModels":       b.maxModels,
		"order":           b.order,
		"convergence":     b.convergence,
		"threshold":       b.threshold,
		"select_features": b.selectFeatures,
		"tolerance":       b.tolerance,
		"predict_voting":  b.predictVoting,
		"predict_single":  b.predictSingle,
	}
}

// Summary exports the fitted model's metadata, including the stop reason.
func (b *BoostAODE) Summary() (*model.ModelSummary, error) {
	return b.summary(b.GetHyperparameters(), map[string]any{
		"stop_reason": b.stopReason.String(),
		"rounds":      len(b.history),
	})
}

var (
	_ model.StructureLearner = (*BoostAODE)(nil)
	_ model.StructureLearner = (*AODE)(nil)
)
