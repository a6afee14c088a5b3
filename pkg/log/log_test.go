package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bnErrors "github.com/YuminosukeSato/bayesnet/pkg/errors"
)

func TestTestLogger(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message")
	testLogger.Error("error message", errors.New("boom"), ErrorCodeKey, ErrorInvalidInput)

	require.NotEmpty(t, buffer.String())
	assert.True(t, testLogger.ContainsMessage("debug message"))
	assert.True(t, testLogger.ContainsMessage("warning message"))
	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0))
	assert.True(t, testLogger.ContainsField(ErrAttrKey, "boom"))

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.Equal(t, "ERROR", entries[3]["level"])
}

func TestTestLoggerLevelFilter(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelWarn)
	testLogger.Debug("hidden")
	testLogger.Info("hidden too")
	testLogger.Warn("shown")

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.False(t, testLogger.Enabled(context.Background(), LevelInfo))
	assert.True(t, testLogger.Enabled(context.Background(), LevelError))
}

func TestTestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	contextLogger := testLogger.With(ModelNameKey, "TAN", EstimatorIDKey, "tan-001")
	contextLogger.Info("fit finished", SamplesKey, 150)

	assert.True(t, testLogger.ContainsField(ModelNameKey, "TAN"))
	assert.True(t, testLogger.ContainsField(EstimatorIDKey, "tan-001"))
	assert.True(t, testLogger.ContainsField(SamplesKey, 150.0))

	// 親ロガーにはフィールドが付かない
	testLogger.Clear()
	testLogger.Info("plain")
	assert.False(t, testLogger.ContainsField(ModelNameKey, "TAN"))
}

func TestSlogLoggerAddsStacktrace(t *testing.T) {
	var buf bytes.Buffer
	SetupLogger(&buf, LevelDebug)
	defer SetupLogger(&bytes.Buffer{}, LevelWarn)

	logger := GetLoggerWithName("network")
	logger.Error("posterior failed", bnErrors.NewValueError("Posterior", "unknown variable"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "posterior failed", entry["message"])
	assert.Equal(t, "network", entry[ComponentKey])
	assert.Contains(t, entry, StacktraceAttrKey)
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	SetupLogger(&buf, LevelWarn)
	defer SetupLogger(&bytes.Buffer{}, LevelWarn)

	GetLogger().Info("dropped")
	assert.Empty(t, buf.String())

	SetLevel(LevelInfo)
	GetLogger().Info("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestToLogLevel(t *testing.T) {
	level, err := ToLogLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, level)

	_, err = ToLogLevel("verbose")
	assert.Error(t, err)
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf).Level(zerolog.InfoLevel)
	logger := NewZerologLogger(zl).With(ModelNameKey, "KDB")

	logger.Debug("not emitted")
	logger.Info("fit finished", EdgesKey, 7)
	logger.Error("fit failed", errors.New("cycle"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"graph.edges":7`)
	assert.Contains(t, lines[0], `"model.name":"KDB"`)
	assert.Contains(t, lines[1], `"error":"cycle"`)
	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
}

func TestRouteWarningsToZerolog(t *testing.T) {
	var buf bytes.Buffer
	RouteWarningsToZerolog(zerolog.New(&buf))
	defer bnErrors.SetZerologWarnFunc(nil)

	bnErrors.Warn(bnErrors.NewFeatureUsageWarning("BoostAODE", 2, 4))
	assert.Contains(t, buf.String(), `"type":"FeatureUsageWarning"`)
	assert.Contains(t, buf.String(), "BoostAODE used 2 of 4 features")
}
