package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/bayesnet"
	"github.com/YuminosukeSato/bayesnet/network"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// metadata describes the columns of a data file and the model to learn.
//
//	class: species
//	model: KDB
//	smoothing: laplace
//	features:
//	  color: 3
//	  size: 2
//	  species: 3
//	hyperparameters:
//	  k: 2
//
// Columns absent from features get max(value)+1 states.
type metadata struct {
	Class           string         `yaml:"class"`
	Model           string         `yaml:"model"`
	Smoothing       string         `yaml:"smoothing"`
	Features        map[string]int `yaml:"features"`
	Hyperparameters map[string]any `yaml:"hyperparameters"`
}

func readMetadata(md []byte) (*metadata, error) {
	m := &metadata{}
	if err := yaml.Unmarshal(md, m); err != nil {
		return nil, errors.Wrap(err, "parsing yml metadata")
	}
	if m.Class == "" {
		return nil, errors.New("metadata file has no class")
	}
	for name, states := range m.Features {
		if states < 1 {
			return nil, errors.Newf("feature %q must have at least 1 state, got %d", name, states)
		}
	}
	if m.Model == "" {
		m.Model = string(bayesnet.KindTAN)
	}
	if m.Smoothing == "" {
		m.Smoothing = network.SmoothingLaplace.String()
	}
	return m, nil
}

func readMetadataFromFile(path string) (*metadata, error) {
	md, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading metadata yml file %s", path)
	}
	m, err := readMetadata(md)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing metadata yml file %s", path)
	}
	return m, nil
}

// applyOverrides lets flags take precedence over the metadata file.
func (m *metadata) applyOverrides(model, smoothing string) {
	if model != "" {
		m.Model = model
	}
	if smoothing != "" {
		m.Smoothing = smoothing
	}
}

func (m *metadata) kind() (bayesnet.Kind, error) {
	return bayesnet.ParseKind(m.Model)
}

func (m *metadata) smoothing() (network.Smoothing, error) {
	return network.ParseSmoothing(m.Smoothing)
}
