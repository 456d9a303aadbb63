package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"bot_token", "123:abc", "track", "love-actions", "DATABASE_DSN", "postgres://u:p@h/db", "dangling"})
	assert.Equal(t, []interface{}{"bot_token", "[REDACTED]", "track", "love-actions", "DATABASE_DSN", "[REDACTED]", "dangling"}, out)
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("subject_id", "tg:1").Info("completed", "day", 4)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "completed", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "tg:1", fields["subject_id"])
	assert.EqualValues(t, 4, fields["day"])
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode)
		require.NoError(t, err)
		l.Debug("hello")
	}
}
