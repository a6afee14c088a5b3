package main

import (

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/bayesnet"
	"github.com/YuminosukeSato/bayesnet/core/model"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// trainCmdConfig holds the flags shared by every command that fits a model.
type trainCmdConfig struct {
	*rootCmdConfig
	dataInput     string
	metadataInput string
	model         string
	smoothing     string
}

func (tc *trainCmdConfig) bindFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&tc.dataInput, "input", "i", "", "path to an input CSV file with a header row (defaults to STDIN)")
	cmd.Flags().StringVarP(&tc.metadataInput, "metadata", "m", "", "path to a YML file describing the class, states and model (required)")
	cmd.Flags().StringVar(&tc.model, "model", "", "model kind, overrides the metadata (TAN, KDB, SPODE, AODE, BoostAODE)")
	cmd.Flags().StringVar(&tc.smoothing, "smoothing", "", "smoothing, overrides the metadata (NONE, ORIGINAL, LAPLACE, CESTNIK)")
}

func (tc *trainCmdConfig) Validate() error {
	if tc.metadataInput == "" {
		return errors.New("required metadata flag was not set")
	}
	return nil
}

// load reads the metadata and the training set.
func (tc *trainCmdConfig) load() (*metadata, *dataset, error) {
	if err := tc.Validate(); err != nil {
		return nil, nil, err
	}
	md, err := readMetadataFromFile(tc.metadataInput)
	if err != nil {
		return nil, nil, err
	}
	md.applyOverrides(tc.model, tc.smoothing)
	ds, err := readCSVDatasetFromFile(tc.dataInput, md)
	if err != nil {
		return nil, nil, err
	}
	return md, ds, nil
}

// train builds the learner described by md and fits it on ds.
func train(md *metadata, ds *dataset) (model.StructureLearner, error) {
	kind, err := md.kind()
	if err != nil {
		return nil, err
	}
	smoothing, err := md.smoothing()
	if err != nil {
		return nil, err
	}
	learner, err := bayesnet.New(kind, md.Hyperparameters)
	if err != nil {
		return nil, err
	}
	if err := learner.Fit(ds.X, ds.y, ds.features, ds.className, ds.states, smoothing); err != nil {
		return nil, errors.Wrapf(err, "fitting %s", kind)
	}
	return learner, nil
}
