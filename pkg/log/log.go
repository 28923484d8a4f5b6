package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the verbosity of logging.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var (
	globalLogger *zap.SugaredLogger
	globalMutex  sync.RWMutex
)

// Config holds logger configuration.
type Config struct {
	Level Level
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{Level: LevelInfo}
}

// Init initializes the global logger with the given configuration.
func Init(cfg Config) error {
	logger := newLogger(mapLevel(cfg.Level))

	globalMutex.Lock()
	defer globalMutex.Unlock()
	globalLogger = logger.Sugar()
	return nil
}

func mapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Get returns the global logger, initializing it with the default
// configuration if Init has not been called.
func Get() *zap.SugaredLogger {
	globalMutex.RLock()
	logger := globalLogger
	globalMutex.RUnlock()

	if logger != nil {
		return logger
	}

	// Build outside the lock; Init also acquires it.
	loggerToSet := newLogger(mapLevel(DefaultConfig().Level)).Sugar()

	globalMutex.Lock()
	defer globalMutex.Unlock()
	if globalLogger != nil {
		return globalLogger
	}
	globalLogger = loggerToSet
	return globalLogger
}

func newLogger(level zapcore.Level) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		CallerKey:      "C",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Debug logs a debug message with key-value pairs.
func Debug(msg string, args ...interface{}) {
	Get().Debugw(msg, args...)
}

// Debugf logs a formatted debug message.
func Debugf(template string, args ...interface{}) {
	Get().Debugf(template, args...)
}

// Info logs an info message with key-value pairs.
func Info(msg string, args ...interface{}) {
	Get().Infow(msg, args...)
}

// Infof logs a formatted info message.
func Infof(template string, args ...interface{}) {
	Get().Infof(template, args...)
}

// Warn logs a warning message with key-value pairs.
func Warn(msg string, args ...interface{}) {
	Get().Warnw(msg, args...)
}

// Warnf logs a formatted warning message.
func Warnf(template string, args ...interface{}) {
	Get().Warnf(template, args...)
}

// Error logs an error message with key-value pairs.
func Error(msg string, args ...interface{}) {
	Get().Errorw(msg, args...)
}

// Errorf logs a formatted error message.
func Errorf(template string, args ...interface{}) {
	Get().Errorf(template, args...)
}

// With returns a logger with additional fields.
func With(args ...interface{}) *zap.SugaredLogger {
	return Get().With(args...)
}

// Sync flushes any buffered log entries.
func Sync() error {
	globalMutex.RLock()
	logger := globalLogger
	globalMutex.RUnlock()

	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// Reset resets the global logger (mainly for testing).
func Reset() {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
	globalLogger = nil
}
