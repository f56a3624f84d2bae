// Package logger provides structured logging backed by zap.
//
// The terminal belongs to the user interface, so logs normally go to a file
// in the data directory.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used throughout the client.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)

	// With returns a child logger with fields attached to every entry.
	With(fields ...zap.Field) Logger
	// Named returns a child logger for a component.
	Named(name string) Logger

	Sync() error
}

// Config configures a Logger.
type Config struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// File receives the log. Empty means stderr.
	File string
	// Pretty selects the console encoder instead of JSON.
	Pretty bool
}

type loggerImpl struct {
	base *zap.Logger
}

// New builds a Logger from cfg.
func New(cfg Config) (Logger, error) {
	var zc zap.Config
	if cfg.Pretty {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if lvl := parseLevel(cfg.Level); lvl != nil {
		zc.Level = zap.NewAtomicLevelAt(*lvl)
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
	}

	base, err := zc.Build(
		zap.AddStacktrace(zapcore.FatalLevel),
	)
	if err != nil {
		return nil, err
	}

	return wrap(base), nil
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return wrap(zap.NewNop())
}

func wrap(base *zap.Logger) *loggerImpl {
	return &loggerImpl{base: base}
}

func parseLevel(lvl string) *zapcore.Level {
	switch lvl {
	case "debug":
		l := zapcore.DebugLevel
		return &l
	case "info":
		l := zapcore.InfoLevel
		return &l
	case "warn":
		l := zapcore.WarnLevel
		return &l
	case "error":
		l := zapcore.ErrorLevel
		return &l
	default:
		return nil
	}
}

func (l *loggerImpl) Debug(msg string, fields ...zap.Field) { l.base.Debug(msg, fields...) }
func (l *loggerImpl) Info(msg string, fields ...zap.Field)  { l.base.Info(msg, fields...) }
func (l *loggerImpl) Warn(msg string, fields ...zap.Field)  { l.base.Warn(msg, fields...) }
func (l *loggerImpl) Error(msg string, fields ...zap.Field) { l.base.Error(msg, fields...) }

func (l *loggerImpl) With(fields ...zap.Field) Logger { return wrap(l.base.With(fields...)) }
func (l *loggerImpl) Named(name string) Logger       { return wrap(l.base.Named(name)) }

func (l *loggerImpl) Sync() error { return l.base.Sync() }

// Field constructors re-exported from zap so callers need not import it.
func String(key, val string) zap.Field                { return zap.String(key, val) }
func Int(key string, val int) zap.Field               { return zap.Int(key, val) }
func Stringer(key string, val fmt.Stringer) zap.Field { return zap.Stringer(key, val) }
func Error(err error) zap.Field                       { return zap.Error(err) }
