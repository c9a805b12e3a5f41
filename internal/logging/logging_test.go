package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zap.DebugLevel, ParseLevel("DEBUG"))
	require.Equal(t, zap.WarnLevel, ParseLevel("warning"))
	require.Equal(t, zap.ErrorLevel, ParseLevel(" error "))
	require.Equal(t, zap.InfoLevel, ParseLevel(""))
	require.Equal(t, zap.InfoLevel, ParseLevel("verbose"))
}

func TestContextFieldsAreMerged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core).Sugar())
	t.Cleanup(func() { SetLogger(nil) })

	ctx := WithFields(context.Background(), RequestFields("abc", "tone.wav")...)
	ctx = WithFields(ctx, "stage", "normalize")

	InfowCtx(ctx, "decoded", "frames", 32000)
	ErrorwCtx(ctx, "failed")

	entries := logs.All()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	require.Equal(t, "abc", fields["request.id"])
	require.Equal(t, "tone.wav", fields["request.filename"])
	require.Equal(t, "normalize", fields["stage"])
	require.EqualValues(t, 32000, fields["frames"])
	require.Equal(t, zap.ErrorLevel, entries[1].Level)
}

func TestWithFieldsNoop(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, ctx, WithFields(ctx))
	require.Nil(t, FromContext(ctx))
}

func TestSafeBeforeInit(t *testing.T) {
	SetLogger(nil)

	require.NotPanics(t, func() {
		Infow("nothing")
		Debugw("nothing")
		Warnw("nothing")
		Errorw("nothing")
	})
	require.NoError(t, Sync())
}

func TestRequestFieldsWithoutFilename(t *testing.T) {
	require.Equal(t, []any{"request.id", "x"}, RequestFields("x", ""))
	require.Equal(t, []any{"session.id", "s", "session.format", "webm"}, SessionFields("s", "webm"))
}
