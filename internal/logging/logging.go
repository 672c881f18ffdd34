// Package logging provides the structured logger shared by every component
// of the STT transport core: the client pipeline, the worker pool, and the
// HTTP handler all log through here instead of holding their own *zap.Logger.
package logging

import (
	"context"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	sugar *zap.SugaredLogger
	once  sync.Once
	mu    sync.Mutex
)

// Logger is the canonical structured logging interface used by this module.
// Keep it small and focused on key/value structured events.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatalw(msg string, keysAndValues ...interface{})
	Sync() error
}

// noopLogger is a tiny, extremely cheap logger used before Init is called so
// logging calls are always safe regardless of initialization order.
type noopLogger struct{}

func (n noopLogger) Infow(msg string, keysAndValues ...interface{})  {}
func (n noopLogger) Debugw(msg string, keysAndValues ...interface{}) {}
func (n noopLogger) Warnw(msg string, keysAndValues ...interface{})  {}
func (n noopLogger) Errorw(msg string, keysAndValues ...interface{}) {}
func (n noopLogger) Fatalw(msg string, keysAndValues ...interface{}) {}
func (n noopLogger) Sync() error                                     { return nil }

var current Logger = noopLogger{}

// Options configures Init.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// LogFile, if non-empty, additionally writes JSON logs to a rotated
	// file via lumberjack (10 MiB per file, 5 backups, 28 days retention).
	LogFile string
}

// Init initializes the global sugared logger from opts (or LOG_LEVEL if
// opts.Level is empty) and redirects the standard library logger into zap.
// It's safe to call multiple times; only the first call takes effect.
func Init(opts Options) *zap.SugaredLogger {
	once.Do(func() {
		level := strings.ToLower(opts.Level)
		if level == "" {
			level = strings.ToLower(os.Getenv("LOG_LEVEL"))
		}
		lvl := zap.InfoLevel
		switch level {
		case "debug":
			lvl = zap.DebugLevel
		case "warn":
			lvl = zap.WarnLevel
		case "error":
			lvl = zap.ErrorLevel
		}

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		cores := []zapcore.Core{
			zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(lvl)),
		}
		if opts.LogFile != "" {
			writer := &lumberjack.Logger{
				Filename:   opts.LogFile,
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     28,
				Compress:   true,
			}
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(writer), zap.NewAtomicLevelAt(lvl)))
		}

		logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
		_ = zap.RedirectStdLog(logger)
		sugar = logger.Sugar()
		mu.Lock()
		current = sugar
		mu.Unlock()
	})
	return sugar
}

// Sugar returns the initialized sugared logger (nil if Init hasn't run).
func Sugar() *zap.SugaredLogger { return sugar }

// SetLogger replaces the package-level logger; pass nil to reset to the
// sugared logger (or the no-op logger if Init hasn't run). Useful for tests.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		if sugar != nil {
			current = sugar
		} else {
			current = noopLogger{}
		}
		return
	}
	current = l
}

func get() Logger {
	mu.Lock()
	defer mu.Unlock()
	return current
}

func Infow(msg string, keysAndValues ...interface{})  { get().Infow(msg, keysAndValues...) }
func Debugw(msg string, keysAndValues ...interface{}) { get().Debugw(msg, keysAndValues...) }
func Warnw(msg string, keysAndValues ...interface{})  { get().Warnw(msg, keysAndValues...) }
func Errorw(msg string, keysAndValues ...interface{}) { get().Errorw(msg, keysAndValues...) }
func Fatalw(msg string, keysAndValues ...interface{}) { get().Fatalw(msg, keysAndValues...) }

// FatalExitf logs a fatal message and exits the process with code 1. The
// exit happens whichever logger is installed via SetLogger.
func FatalExitf(msg string, keysAndValues ...interface{}) {
	get().Fatalw(msg, keysAndValues...)
	os.Exit(1)
}

// Sync flushes any buffered log entries.
func Sync() error { return get().Sync() }

type ctxKeyType struct{}

// WithFields returns a context carrying kv, merged with any fields already
// attached, so downstream InfowCtx calls include the full chain.
func WithFields(ctx context.Context, kv ...interface{}) context.Context {
	if len(kv) == 0 {
		return ctx
	}
	prev, _ := ctx.Value(ctxKeyType{}).([]interface{})
	merged := make([]interface{}, 0, len(prev)+len(kv))
	merged = append(merged, prev...)
	merged = append(merged, kv...)
	return context.WithValue(ctx, ctxKeyType{}, merged)
}

// FromContext returns any fields previously attached with WithFields.
func FromContext(ctx context.Context) []interface{} {
	if ctx == nil {
		return nil
	}
	v, _ := ctx.Value(ctxKeyType{}).([]interface{})
	return v
}

// InfowCtx merges fields from ctx with kv and emits a structured log entry.
func InfowCtx(ctx context.Context, msg string, kv ...interface{}) {
	fields := FromContext(ctx)
	if len(fields) == 0 {
		Infow(msg, kv...)
		return
	}
	merged := make([]interface{}, 0, len(fields)+len(kv))
	merged = append(merged, fields...)
	merged = append(merged, kv...)
	Infow(msg, merged...)
}

// RequestFields returns structured fields for a client request log line.
func RequestFields(requestID uint64, correlationID string) []interface{} {
	if correlationID == "" {
		return []interface{}{"request_id", requestID}
	}
	return []interface{}{"request_id", requestID, "correlation_id", correlationID}
}

// WorkerFields returns structured fields for a worker-pool log line.
func WorkerFields(workerID int, requestID uint64) []interface{} {
	return []interface{}{"worker_id", workerID, "request_id", requestID}
}
