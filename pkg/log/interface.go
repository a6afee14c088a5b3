// Package log provides the structured logging interface used across bayesnet.
//
// The interface is slog-compatible so the default implementation can sit on
// log/slog while zerolog users plug in through NewZerologLogger. Classifiers
// and ensembles obtain a component logger and attach their estimator identity
// once:
//
//	logger := log.GetLoggerWithName("classifiers").With(
//	    log.ModelNameKey, "TAN",
//	    log.EstimatorIDKey, id,
//	)
//	logger.Info("fit finished",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 150,
//	    log.FeaturesKey, 4,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. Error treats a leading error value
// specially: implementations attach it under ErrAttrKey so stack traces from
// cockroachdb/errors survive into the record.
type Logger interface {
	// Debug logs per-round and per-edge detail (boosting rounds, KDB parent picks).
	Debug(msg string, fields ...any)

	// Info logs lifecycle events such as a finished fit.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop training, e.g. unused features.
	Warn(msg string, fields ...any)

	// Error logs failures. If the first field is an error it is handled specially.
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every subsequent record.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at level.
	//
	//	if logger.Enabled(ctx, LevelDebug) {
	//	    logger.Debug("cpt", "table", net.DumpCPT())
	//	}
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates and configures loggers. Swapping the provider
// redirects every component logger in the library.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for loggers created by this provider.
	SetLevel(level Level)
}
