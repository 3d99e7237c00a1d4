// Package logging provides categorized zap loggers for yaml2json.
// Every category is a named child of one base logger that writes to stderr,
// so stdout stays reserved for converted JSON.
// Until Initialize (or Use) is called all categories log to a no-op core.
package logging

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot     Category = "boot"     // CLI startup, config resolution
	CategorySource   Category = "source"   // File acquisition (mmap / buffered read)
	CategoryConvert  Category = "convert"  // YAML -> JSON conversion
	CategoryRender   Category = "render"   // JSON re-indentation
	CategoryCodec    Category = "codec"    // Input decompression, output compression
	CategoryPipeline Category = "pipeline" // End-to-end single file conversion
	CategoryBatch    Category = "batch"    // Concurrent multi-file conversion
	CategoryWatch    Category = "watch"    // Re-conversion on file change
)

// Options configures the base logger.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // console, json
	Categories map[string]bool // Per-category toggles, nil enables all
	Output     zapcore.WriteSyncer
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	loggers    = make(map[Category]*zap.SugaredLogger)
	categories map[string]bool
	runID      string
)

// Initialize builds the base logger from opts and tags it with a fresh run ID.
// Calling it again replaces the previous logger.
func Initialize(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch opts.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "", "console", "text":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return fmt.Errorf("invalid log format %q (valid: console, json)", opts.Format)
	}

	out := opts.Output
	if out == nil {
		out = zapcore.Lock(os.Stderr)
	}

	id := uuid.NewString()
	logger := zap.New(zapcore.NewCore(enc, out, zap.NewAtomicLevelAt(level))).
		With(zap.String("run", id))

	install(logger, opts.Categories, id)
	return nil
}

// Use installs an already built logger, e.g. zap.NewNop() or an observer in tests.
func Use(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	install(logger, nil, "")
}

func install(logger *zap.Logger, cats map[string]bool, id string) {
	mu.Lock()
	defer mu.Unlock()
	base = logger
	categories = cats
	runID = id
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Base returns the root logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// RunID returns the identifier attached to every entry of this run.
// Empty when the logger was installed with Use.
func RunID() string {
	mu.RLock()
	defer mu.RUnlock()
	return runID
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories missing from the filter are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	return !exists || enabled
}

// Get returns (or creates) the logger for the given category.
// A disabled category gets a no-op logger.
func Get(category Category) *zap.SugaredLogger {
	if !IsCategoryEnabled(category) {
		return zap.NewNop().Sugar()
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}
	l := base.Named(string(category)).Sugar()
	loggers[category] = l
	return l
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync() {
	_ = Base().Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Infof(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debugf(format, args...)
}

// Source logs to the source category
func Source(format string, args ...interface{}) {
	Get(CategorySource).Infof(format, args...)
}

// SourceDebug logs debug to the source category
func SourceDebug(format string, args ...interface{}) {
	Get(CategorySource).Debugf(format, args...)
}

// Convert logs to the convert category
func Convert(format string, args ...interface{}) {
	Get(CategoryConvert).Infof(format, args...)
}

// ConvertDebug logs debug to the convert category
func ConvertDebug(format string, args ...interface{}) {
	Get(CategoryConvert).Debugf(format, args...)
}

// RenderDebug logs debug to the render category
func RenderDebug(format string, args ...interface{}) {
	Get(CategoryRender).Debugf(format, args...)
}

// CodecDebug logs debug to the codec category
func CodecDebug(format string, args ...interface{}) {
	Get(CategoryCodec).Debugf(format, args...)
}

// Pipeline logs to the pipeline category
func Pipeline(format string, args ...interface{}) {
	Get(CategoryPipeline).Infof(format, args...)
}

// PipelineDebug logs debug to the pipeline category
func PipelineDebug(format string, args ...interface{}) {
	Get(CategoryPipeline).Debugf(format, args...)
}

// Batch logs to the batch category
func Batch(format string, args ...interface{}) {
	Get(CategoryBatch).Infof(format, args...)
}

// BatchWarn logs a warning to the batch category
func BatchWarn(format string, args ...interface{}) {
	Get(CategoryBatch).Warnf(format, args...)
}

// Watch logs to the watch category
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Infof(format, args...)
}

// WatchWarn logs a warning to the watch category
func WatchWarn(format string, args ...interface{}) {
	Get(CategoryWatch).Warnf(format, args...)
}

// WatchDebug logs debug to the watch category
func WatchDebug(format string, args ...interface{}) {
	Get(CategoryWatch).Debugf(format, args...)
}
