package main

import (
	"strings"

	"github.com/spf13/cobra"
)

type graphCmdConfig struct {
	trainCmdConfig
	title  string
	output string
}

func graphCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &graphCmdConfig{trainCmdConfig: trainCmdConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the learned network in DOT format",
		Long:  `Fit a classifier and print the learned network(s) in Graphviz DOT format`,
		RunE: func(cmd *cobra.Command, args []string) error {
			md, ds, err := config.load()
			if err != nil {
				return err
			}
			learner, err := train(md, ds)
			if err != nil {
				return err
			}
			return writeOutput(cmd, config.output, []byte(joinDOT(learner.Graph(config.title))))
		},
	}
	config.bindFlags(cmd)
	cmd.Flags().StringVar(&config.title, "title", "", "graph title (defaults to the model name)")
	cmd.Flags().StringVarP(&config.output, "output", "o", "", "path to write the DOT file to (defaults to STDOUT)")
	return cmd
}

// joinDOT terminates every DOT statement with a newline. Edge statements
// come without one.
func joinDOT(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
