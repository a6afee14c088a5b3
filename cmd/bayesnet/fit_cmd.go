package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/bayesnet/diagnostics"
	"github.com/YuminosukeSato/bayesnet/ensembles"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
	"github.com/YuminosukeSato/bayesnet/pkg/log"
)

type fitCmdConfig struct {
	trainCmdConfig
	summaryOutput string
	historyPlot   string
}

func fitCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &fitCmdConfig{trainCmdConfig: trainCmdConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a classifier and print its summary",
		Long:  `Fit a classifier on a CSV data set and print the model summary as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			md, ds, err := config.load()
			if err != nil {
				return err
			}
			learner, err := train(md, ds)
			if err != nil {
				return err
			}
			acc, err := learner.Score(ds.X, ds.y)
			if err != nil {
				return err
			}
			log.GetLoggerWithName("cli").Info("Training accuracy",
				log.ModelNameKey, learner.Name(),
				log.AccuracyKey, acc,
			)

			summary, err := learner.Summary()
			if err != nil {
				return err
			}
			summary.Metadata["train_accuracy"] = acc
			data, err := summary.ToJSON()
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, config.summaryOutput, append(data, '\n')); err != nil {
				return err
			}

			if config.historyPlot != "" {
				boost, ok := learner.(*ensembles.BoostAODE)
				if !ok {
					return errors.Newf("history-plot is only available for BoostAODE, got %s", learner.Name())
				}
				if err := diagnostics.SaveBoostHistory(boost.History(), boost.Name(), config.historyPlot, 0, 0); err != nil {
					return err
				}
			}
			return nil
		},
	}
	config.bindFlags(cmd)
	cmd.Flags().StringVarP(&config.summaryOutput, "output", "o", "", "path to write the JSON summary to (defaults to STDOUT)")
	cmd.Flags().StringVar(&config.historyPlot, "history-plot", "", "path to save a BoostAODE history chart (.png, .svg, .pdf)")
	return cmd
}

// writeOutput writes data to path, or to the command's output when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
