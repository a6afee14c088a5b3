package main

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/bayesnet/core/parallel"
	"github.com/YuminosukeSato/bayesnet/model_selection"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

type scoreCmdConfig struct {
	trainCmdConfig
	testInput string
	folds     int
	seed      uint64
}

func scoreCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &scoreCmdConfig{trainCmdConfig: trainCmdConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Measure the accuracy of a classifier",
		Long:  `Fit a classifier and report its accuracy on a test set, or with stratified k-fold cross validation when no test set is given`,
		RunE: func(cmd *cobra.Command, args []string) error {
			md, ds, err := config.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if config.testInput != "" {
				test, err := readCSVDatasetFromFile(config.testInput, md)
				if err != nil {
					return err
				}
				if err := alignColumns(ds, test); err != nil {
					return err
				}
				learner, err := train(md, ds)
				if err != nil {
					return err
				}
				acc, err := learner.Score(test.X, test.y)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s accuracy: %f\n", learner.Name(), acc)
				return nil
			}

			scores, err := crossValidate(md, ds, config.folds, config.seed)
			if err != nil {
				return err
			}
			for i, s := range scores {
				fmt.Fprintf(out, "fold %d accuracy: %f\n", i, s)
			}
			mean, std := stat.MeanStdDev(scores, nil)
			fmt.Fprintf(out, "%s accuracy: %f (+/- %f)\n", md.Model, mean, std)
			return nil
		},
	}
	config.bindFlags(cmd)
	cmd.Flags().StringVarP(&config.testInput, "test", "t", "", "path to a CSV test set; cross validation is used when empty")
	cmd.Flags().IntVarP(&config.folds, "folds", "k", 5, "number of stratified folds for cross validation")
	cmd.Flags().Uint64Var(&config.seed, "seed", 42, "seed of the fold shuffle")
	return cmd
}

// crossValidate fits one model per stratified fold in parallel and returns
// the test accuracy of every fold.
func crossValidate(md *metadata, ds *dataset, folds int, seed uint64) ([]float64, error) {
	splitter := model_selection.NewStratifiedKFold(folds, true, seed)
	splits, err := splitter.Split(ds.y)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(splits))
	err = parallel.ForEach(len(splits), func(i int) error {
		trainSet := ds.subset(splits[i].TrainIndices)
		testSet := ds.subset(splits[i].TestIndices)
		learner, err := train(md, trainSet)
		if err != nil {
			return errors.Wrapf(err, "fold %d", i)
		}
		scores[i], err = learner.Score(testSet.X, testSet.y)
		return err
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// alignColumns makes the test set use the training feature order and the
// larger inferred cardinality of every column.
func alignColumns(trainSet, test *dataset) error {
	if len(trainSet.features) != len(test.features) {
		return errors.Newf("test set has %d features, training set has %d", len(test.features), len(trainSet.features))
	}
	for i, name := range trainSet.features {
		if test.features[i] != name {
			return errors.Newf("test column %d is %q, expected %q", i, test.features[i], name)
		}
	}
	for name, s := range test.states {
		trainSet.states[name] = max(trainSet.states[name], s)
	}
	test.states = trainSet.states
	return nil
}
