// Package logging provides categorized logging for fichaje on top of zap.
// Every subsystem logs through its own category so noisy parts (browser,
// absence scanning) can be silenced from configuration without touching the rest.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, configuration
	CategorySession    Category = "session"    // Login, cookie persistence
	CategoryBrowser    Category = "browser"    // Chrome launch, page interaction
	CategoryAbsence    Category = "absence"    // Time-off calendar scanning
	CategoryAttendance Category = "attendance" // Day reconciliation and shift writes
	CategoryStore      Category = "store"      // Run history persistence
	CategoryMetrics    Category = "metrics"    // Textfile export
)

// Config controls how Initialize builds the base logger.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// File, when set, receives a JSON copy of every entry.
	File string
	// Console selects the stderr encoding: "console" (default) or "json".
	Console string
	// Categories disables categories explicitly mapped to false.
	Categories map[string]bool
}

// Logger is a category-scoped printf-style logger. A Logger with a nil
// sugar is a no-op.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	config  Config
	loggers = make(map[Category]*Logger)
	files   []*os.File
)

// Initialize builds the base logger. It may be called again to reconfigure.
func Initialize(cfg Config) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	var consoleEnc zapcore.Encoder
	if cfg.Console == "json" {
		consoleEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(consoleSyncer{os.Stderr}), level),
	}

	var opened []*os.File
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		opened = append(opened, f)
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(f),
			level,
		))
	}

	mu.Lock()
	defer mu.Unlock()
	closeFilesLocked()
	files = opened
	config = cfg
	base = zap.New(zapcore.NewTee(cores...))
	loggers = make(map[Category]*Logger)
	return nil
}

// SetCore replaces the base logger's core, keeping the category filter.
// Tests use it with zaptest/observer.
func SetCore(core zapcore.Core) {
	mu.Lock()
	defer mu.Unlock()
	base = zap.New(core)
	loggers = make(map[Category]*Logger)
}

// SetCategories replaces the category filter.
func SetCategories(categories map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	config.Categories = categories
	loggers = make(map[Category]*Logger)
}

// Base returns the underlying zap logger for callers that want typed fields.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if config.Categories == nil {
		return true
	}
	enabled, ok := config.Categories[string(category)]
	return !ok || enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{category: category}
	if categoryEnabledLocked(category) {
		l.sugar = base.Named(string(category)).Sugar()
	}
	loggers[category] = l
	return l
}

// With returns a logger that attaches the key/value pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Debugf(format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Infof(format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Warnf(format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Errorf(format, args...)
	}
}

// consoleSyncer drops the EINVAL/ENOTTY that fsync returns for pipes and
// terminals, so Sync only reports real failures.
type consoleSyncer struct {
	zapcore.WriteSyncer
}

func (c consoleSyncer) Sync() error {
	err := c.WriteSyncer.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

// Sync flushes buffered entries.
func Sync() error {
	return Base().Sync()
}

// CloseAll flushes and closes any log files and resets to a no-op logger.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	closeFilesLocked()
	base = zap.NewNop()
	loggers = make(map[Category]*Logger)
}

func closeFilesLocked() {
	for _, f := range files {
		_ = f.Close()
	}
	files = nil
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return zapcore.InfoLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

func Boot(format string, args ...interface{})     { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }

func Session(format string, args ...interface{})      { Get(CategorySession).Info(format, args...) }
func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }
func SessionWarn(format string, args ...interface{})  { Get(CategorySession).Warn(format, args...) }
func SessionError(format string, args ...interface{}) { Get(CategorySession).Error(format, args...) }

func Browser(format string, args ...interface{})      { Get(CategoryBrowser).Info(format, args...) }
func BrowserDebug(format string, args ...interface{}) { Get(CategoryBrowser).Debug(format, args...) }
func BrowserWarn(format string, args ...interface{})  { Get(CategoryBrowser).Warn(format, args...) }

func Absence(format string, args ...interface{})      { Get(CategoryAbsence).Info(format, args...) }
func AbsenceDebug(format string, args ...interface{}) { Get(CategoryAbsence).Debug(format, args...) }
func AbsenceWarn(format string, args ...interface{})  { Get(CategoryAbsence).Warn(format, args...) }

func Attendance(format string, args ...interface{})      { Get(CategoryAttendance).Info(format, args...) }
func AttendanceDebug(format string, args ...interface{}) { Get(CategoryAttendance).Debug(format, args...) }
func AttendanceWarn(format string, args ...interface{})  { Get(CategoryAttendance).Warn(format, args...) }
func AttendanceError(format string, args ...interface{}) { Get(CategoryAttendance).Error(format, args...) }

func Store(format string, args ...interface{})     { Get(CategoryStore).Info(format, args...) }
func StoreWarn(format string, args ...interface{}) { Get(CategoryStore).Warn(format, args...) }

func Metrics(format string, args ...interface{})     { Get(CategoryMetrics).Info(format, args...) }
func MetricsWarn(format string, args ...interface{}) { Get(CategoryMetrics).Warn(format, args...) }
