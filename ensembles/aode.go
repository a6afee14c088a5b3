package ensembles

import (
	"github.com/YuminosukeSato/bayesnet/core/model"
)

// AODE averages one SPODE per feature, every model with significance 1.
type AODE struct {
	Ensemble
}

// AODEOption is a functional option for AODE
type AODEOption func(*AODE)

// WithAODEPredictVoting makes predictions a majority vote instead of an
// average of probabilities.
func WithAODEPredictVoting(voting bool) AODEOption {
	return func(a *AODE) {
		a.predictVoting = voting
	}
}

// NewAODE creates a new AODE ensemble
func NewAODE(opts ...AODEOption) *AODE {
	a := &AODE{Ensemble: newEnsemble("AODE")}
	for _, opt := range opts {
		opt(a)
	}
	a.train = a.buildModels
	return a
}

func (a *AODE) buildModels(dataset [][]int) error {
	for i := range a.features {
		spode, err := a.newSPODE(i, dataset, nil)
		if err != nil {
			return err
		}
		a.addModel(spode, 1)
	}
	return nil
}

// SetHyperparameters accepts "predict_voting" (bool).
func (a *AODE) SetHyperparameters(params map[string]any) error {
	if err := model.CheckKeys(params, []string{"predict_voting"}); err != nil {
		return err
	}
	voting, ok, err := model.ParamBool(params, "predict_voting")
	if err != nil {
		return err
	}
	if ok {
		a.predictVoting = voting
	}
	return nil
}

// GetHyperparameters returns the current hyperparameters.
func (a *AODE) GetHyperparameters() map[string]any {
	return map[string]any{"predict_voting": a.predictVoting}
}

// Summary exports the fitted model's metadata.
func (a *AODE) Summary() (*model.ModelSummary, error) {
	return a.summary(a.GetHyperparameters(), nil)
}
