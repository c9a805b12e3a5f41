// Package logging wraps zap behind a small key/value API that is safe to call before Init.
package logging

import (
	"context"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging interface used across the project.
type Logger interface {
	Infow(msg string, keysAndValues ...any)
	Debugw(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
	Sync() error
}

type noopLogger struct{}

func (noopLogger) Infow(string, ...any)  {}
func (noopLogger) Debugw(string, ...any) {}
func (noopLogger) Warnw(string, ...any)  {}
func (noopLogger) Errorw(string, ...any) {}
func (noopLogger) Sync() error           { return nil }

//nolint:gochecknoglobals
var (
	mu      sync.RWMutex
	once    sync.Once
	sugar   *zap.SugaredLogger
	current Logger = noopLogger{}
)

// ParseLevel maps a LOG_LEVEL value to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Init builds the JSON logger from LOG_LEVEL and redirects the standard library logger into it.
// Calling it more than once is a no-op.
func Init() *zap.SugaredLogger {
	once.Do(func() {
		cfg := zap.Config{
			Encoding:         "json",
			EncoderConfig:    zap.NewProductionEncoderConfig(),
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
			Level:            zap.NewAtomicLevelAt(ParseLevel(os.Getenv("LOG_LEVEL"))),
		}
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.CallerKey = "caller"

		logger, err := cfg.Build(zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zap.ErrorLevel))
		if err != nil {
			logger = zap.NewNop()
		}

		_ = zap.RedirectStdLog(logger)

		mu.Lock()
		sugar = logger.Sugar()
		current = sugar
		mu.Unlock()
	})

	return sugar
}

// SetLogger replaces the active logger. nil restores the one built by Init, or the no-op logger.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()

	switch {
	case l != nil:
		current = l
	case sugar != nil:
		current = sugar
	default:
		current = noopLogger{}
	}
}

func get() Logger {
	mu.RLock()
	defer mu.RUnlock()

	return current
}

func Infow(msg string, keysAndValues ...any)  { get().Infow(msg, keysAndValues...) }
func Debugw(msg string, keysAndValues ...any) { get().Debugw(msg, keysAndValues...) }
func Warnw(msg string, keysAndValues ...any)  { get().Warnw(msg, keysAndValues...) }
func Errorw(msg string, keysAndValues ...any) { get().Errorw(msg, keysAndValues...) }

// Sync flushes buffered entries.
func Sync() error {
	return get().Sync()
}

type ctxKeyType struct{}

// WithFields returns a context carrying the given key/value pairs, appended to any already present.
func WithFields(ctx context.Context, kv ...any) context.Context {
	if len(kv) == 0 {
		return ctx
	}

	prev, _ := ctx.Value(ctxKeyType{}).([]any)
	merged := make([]any, 0, len(prev)+len(kv))
	merged = append(merged, prev...)
	merged = append(merged, kv...)

	return context.WithValue(ctx, ctxKeyType{}, merged)
}

// FromContext returns the fields attached with WithFields.
func FromContext(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	fields, _ := ctx.Value(ctxKeyType{}).([]any)

	return fields
}

func merge(ctx context.Context, kv []any) []any {
	fields := FromContext(ctx)
	if len(fields) == 0 {
		return kv
	}

	merged := make([]any, 0, len(fields)+len(kv))
	merged = append(merged, fields...)

	return append(merged, kv...)
}

// InfowCtx logs at info level with the context fields prepended.
func InfowCtx(ctx context.Context, msg string, kv ...any) {
	get().Infow(msg, merge(ctx, kv)...)
}

// DebugwCtx logs at debug level with the context fields prepended.
func DebugwCtx(ctx context.Context, msg string, kv ...any) {
	get().Debugw(msg, merge(ctx, kv)...)
}

// WarnwCtx logs at warn level with the context fields prepended.
func WarnwCtx(ctx context.Context, msg string, kv ...any) {
	get().Warnw(msg, merge(ctx, kv)...)
}

// ErrorwCtx logs at error level with the context fields prepended.
func ErrorwCtx(ctx context.Context, msg string, kv ...any) {
	get().Errorw(msg, merge(ctx, kv)...)
}

// RequestFields returns the canonical fields for an inbound request.
func RequestFields(requestID, filename string) []any {
	if filename == "" {
		return []any{"request.id", requestID}
	}

	return []any{"request.id", requestID, "request.filename", filename}
}

// SessionFields returns the canonical fields for a streaming session.
func SessionFields(sessionID, format string) []any {
	return []any{"session.id", sessionID, "session.format", format}
}
