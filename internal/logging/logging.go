// Package logging provides the process-wide structured logger: JSON to a
// rotated file, human-readable text to stdout. Mirrors the shape of a
// typical slog+lumberjack setup in long-running Go services — two
// package-level handlers guarded by a mutex, scoped per-service loggers
// handed out to callers rather than a single global logger.
package logging

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu                  sync.RWMutex
	structuredLogger    *slog.Logger
	humanReadableLogger *slog.Logger
	initOnce            sync.Once
	levelVar            = new(slog.LevelVar)
)

// Options configures Init. Defaults are applied for zero values.
type Options struct {
	LogFilePath string // JSON log destination; "" means logs/clipline.log
	MaxSizeMB   int    // lumberjack MaxSize
	MaxBackups  int
	MaxAgeDays  int
	Level       slog.Level
}

func (o Options) withDefaults() Options {
	if o.LogFilePath == "" {
		o.LogFilePath = "logs/clipline.log"
	}
	if o.MaxSizeMB == 0 {
		o.MaxSizeMB = 50
	}
	if o.MaxBackups == 0 {
		o.MaxBackups = 5
	}
	if o.MaxAgeDays == 0 {
		o.MaxAgeDays = 28
	}
	return o
}

// Init sets up the package-level loggers. Safe to call more than once;
// only the first call takes effect.
func Init(opts Options) {
	initOnce.Do(func() {
		opts = opts.withDefaults()
		levelVar.Set(opts.Level)

		mu.Lock()
		defer mu.Unlock()

		replace := defaultReplaceAttr

		rotator := &lumberjack.Logger{
			Filename:   opts.LogFilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		structuredLogger = slog.New(slog.NewJSONHandler(rotator, &slog.HandlerOptions{
			Level:       levelVar,
			ReplaceAttr: replace,
		}))
		humanReadableLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       levelVar,
			ReplaceAttr: replace,
		}))
	})
}

// defaultReplaceAttr truncates float attributes (excitement/quality
// scores are frequent in this domain's log lines) to a readable
// precision, matching how the teacher keeps noisy float fields from
// overwhelming a JSON log line.
func defaultReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindFloat64 {
		v := a.Value.Float64()
		a.Value = slog.Float64Value(float64(int(v*1000)) / 1000)
	}
	return a
}

// SetLevel adjusts the minimum level for both handlers at runtime.
func SetLevel(l slog.Level) { levelVar.Set(l) }

// ForService returns a logger scoped to the given component name, used
// so log lines from the decoder, runner, and cache are distinguishable
// without callers threading a context value through every call.
func ForService(name string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if humanReadableLogger == nil {
		// Init was never called (e.g. in unit tests); fall back to
		// slog.Default() rather than panicking.
		return slog.Default().With("service", name)
	}
	return humanReadableLogger.With("service", name)
}

// Structured returns the JSON-handler logger scoped to name, for callers
// that want machine-parseable lines (e.g. the Runner's per-stage timing).
func Structured(name string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if structuredLogger == nil {
		return slog.Default().With("service", name)
	}
	return structuredLogger.With("service", name)
}

// WithRunID returns a context carrying a run identifier for log
// correlation; RunIDFromContext reads it back.
type runIDKey struct{}

func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

func RunIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey{}).(string)
	return v, ok
}
