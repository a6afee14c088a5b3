package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/bayesnet"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of bayesnet",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bayesnet v%s\n", bayesnet.Version)
		},
	}
}
