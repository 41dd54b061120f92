package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLoggerCapturesStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	Debugw("pod decomposition complete", "modes", 4, "method", "snap")
	Warnw("rank truncated", "requested", 9, "rank", 3)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "pod decomposition complete", entries[0].Message)
	assert.Equal(t, int64(4), entries[0].ContextMap()["modes"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestInitDevelopment(t *testing.T) {
	require.NoError(t, Init(true))
	defer SetLogger(zap.NewNop())
	assert.NotNil(t, GetZapLogger())
	assert.NotNil(t, GetSugaredLogger())
}
