// Command bayesnet fits, scores and renders Bayesian network classifiers
// over integer-coded CSV data.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
	"github.com/YuminosukeSato/bayesnet/pkg/log"
)

type rootCmdConfig struct {
	verbose   bool
	logLevel  string
	logFormat string
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:           "bayesnet",
		Short:         "bayesnet fits Bayesian network classifiers",
		Long:          `A tool to learn TAN, KDB, SPODE, AODE and BoostAODE classifiers from discrete CSV data, score them and render their graphs`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.setupLogging(cmd)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&config.verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&config.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&config.logFormat, "log-format", "json", "log format (json, console)")
	rootCmd.AddCommand(versionCmd(), fitCmd(config), scoreCmd(config), graphCmd(config))
	return rootCmd
}

func (rc *rootCmdConfig) setupLogging(cmd *cobra.Command) error {
	level, err := log.ToLogLevel(rc.logLevel)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", rc.logLevel)
	}
	if rc.verbose {
		level = log.LevelDebug
	}
	w := cmd.ErrOrStderr()
	switch rc.logFormat {
	case "json":
		log.SetupLogger(w, level)
		log.RouteWarningsToZerolog(zerolog.New(w).With().Timestamp().Logger())
	case "console":
		zl := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).With().Timestamp().Logger()
		provider := log.NewZerologProvider(zl)
		provider.SetLevel(level)
		log.SetProvider(provider)
		log.RouteWarningsToZerolog(zl)
	default:
		return errors.Newf("invalid log format %q", rc.logFormat)
	}
	return nil
}
