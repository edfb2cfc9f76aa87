package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStdLoggerFiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewStdLogger(LevelWarn, &buf)
	ctx := WithRunID(context.Background(), "run-1")
	logger.Info(ctx, "hidden")
	logger.Warn(ctx, "shown", F("path", "a/b"))
	logger.Error(ctx, "failed", errors.New("boom"))

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "[WARN] shown fields=[path=a/b run_id=run-1]")
	require.Contains(t, out, `[ERROR] [error="boom"] failed`)
}

func TestStdLoggerPlain(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewStdLogger(LevelInfo, &buf).Plain()
	logger.Verbose(context.Background(), "skipped")
	logger.Info(context.Background(), "2a3\n> x")
	require.Equal(t, "2a3\n> x\n", buf.String())
}

func TestWithFieldsDoesNotLeak(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := NewStdLogger(LevelInfo, &buf)
	child := base.WithFields(F("tool", "diff"))
	base.Info(context.Background(), "base")
	child.Info(context.Background(), "child")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.NotContains(t, lines[0], "tool=diff")
	require.Contains(t, lines[1], "tool=diff")
}

func TestMemoryLoggerSharesEntries(t *testing.T) {
	t.Parallel()

	logger := NewMemoryLogger()
	child := logger.WithFields(F("k", 1))
	logger.Info(context.Background(), "one")
	child.Error(context.Background(), "two", errors.New("x"))

	entries := logger.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, []Field{{Key: "k", Value: 1}}, entries[1].Fields)
	require.Equal(t, []string{"two"}, logger.Messages(LevelError))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]Level{"": LevelInfo, "debug": LevelVerbose, "Warn": LevelWarn, "error": LevelError} {
		got, err := ParseLevel(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseLevel("loud")
	require.Error(t, err)
	require.True(t, LevelError.Enabled(LevelWarn))
	require.False(t, LevelVerbose.Enabled(LevelInfo))
}

func TestZapLoggerForwardsFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	logger := WrapZap(zap.New(core)).WithFields(F("tool", "grep"))
	logger.Verbose(WithRunID(context.Background(), "r"), "scan", F("path", "x"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "grep", fields["tool"])
	require.Equal(t, "x", fields["path"])
	require.Equal(t, "r", fields["run_id"])
}
