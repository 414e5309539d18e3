// Package logging provides categorized zap loggers for blackguard.
// Every subsystem logs through its own named category so debug output can be followed per
// pipeline stage. Until Initialize is called every logger is a no-op, which keeps library use
// (and tests) silent.
package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // CLI startup, configuration
	CategoryParse   Category = "parse"   // CST construction
	CategoryGuard   Category = "guard"   // Encode/decode guards
	CategoryExplode Category = "explode" // Comprehension exploder
	CategoryBlack   Category = "black"   // External formatter calls
	CategoryRunner  Category = "runner"  // File discovery and dispatch
	CategoryWatch   Category = "watch"   // Watch mode
)

// Config selects level and encoding.
type Config struct {
	Level string // debug, info, warn, error
	JSON  bool
}

var (
	base      = zap.NewNop()
	loggers   = make(map[Category]*zap.SugaredLogger)
	loggersMu sync.RWMutex
)

// Initialize builds the root logger. Output goes to stderr so formatted code written to stdout
// stays clean.
func Initialize(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	var encoder zapcore.Encoder
	if cfg.JSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	Replace(zap.New(core))
	return nil
}

// Replace swaps the root logger, e.g. for zaptest loggers in tests.
func Replace(l *zap.Logger) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	base = l
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Sync flushes buffered entries.
func Sync() {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	_ = base.Sync()
}

// ParseLevel maps a config level name to a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, errors.Newf("unknown log level %q", name)
}

// Get returns (or creates) the logger for the given category.
func Get(category Category) *zap.SugaredLogger {
	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}
	l := base.Named(string(category)).Sugar()
	loggers[category] = l
	return l
}

// =============================================================================
// CATEGORY HELPERS
// =============================================================================

func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Infof(format, args...)
}

func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debugf(format, args...)
}

func ParseDebug(format string, args ...interface{}) {
	Get(CategoryParse).Debugf(format, args...)
}

func GuardDebug(format string, args ...interface{}) {
	Get(CategoryGuard).Debugf(format, args...)
}

func ExplodeDebug(format string, args ...interface{}) {
	Get(CategoryExplode).Debugf(format, args...)
}

func BlackDebug(format string, args ...interface{}) {
	Get(CategoryBlack).Debugf(format, args...)
}

func BlackWarn(format string, args ...interface{}) {
	Get(CategoryBlack).Warnf(format, args...)
}

func Runner(format string, args ...interface{}) {
	Get(CategoryRunner).Infof(format, args...)
}

func RunnerDebug(format string, args ...interface{}) {
	Get(CategoryRunner).Debugf(format, args...)
}

func RunnerWarn(format string, args ...interface{}) {
	Get(CategoryRunner).Warnf(format, args...)
}

func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Infof(format, args...)
}

func WatchDebug(format string, args ...interface{}) {
	Get(CategoryWatch).Debugf(format, args...)
}

func WatchError(format string, args ...interface{}) {
	Get(CategoryWatch).Errorf(format, args...)
}

// =============================================================================
// TIMING
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debugw(t.op+" completed", "elapsed", elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warnw(t.op+" was slow", "elapsed", elapsed, "threshold", threshold)
	} else {
		Get(t.category).Debugw(t.op+" completed", "elapsed", elapsed)
	}
	return elapsed
}
