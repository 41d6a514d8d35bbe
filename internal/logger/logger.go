package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin key/value facade over zap's sugared logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a logger for the given mode ("development" or "production").
func New(mode string) (*Logger, error) {
	var (
		base *zap.Logger
		err  error
	)

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "development", "dev":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		base, err = cfg.Build()
	case "production", "prod":
		base, err = zap.NewProduction()
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	zap.ReplaceGlobals(base)
	return &Logger{sugar: base.Sugar()}, nil
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// With returns a child logger carrying the extra key/value pairs.
func (l *Logger) With(kv ...any) *Logger {
	if l == nil {
		return Nop().With(kv...)
	}
	return &Logger{sugar: l.sugar.With(kv...)}
}

func (l *Logger) Debug(msg string, kv ...any) { l.get().Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.get().Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.get().Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.get().Errorw(msg, kv...) }

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.get().Sync()
}

func (l *Logger) get() *zap.SugaredLogger {
	if l == nil || l.sugar == nil {
		return zap.NewNop().Sugar()
	}
	return l.sugar
}
