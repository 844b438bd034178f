package applog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger wraps a zap.SugaredLogger to satisfy Logger, grounded on
// common/mzap/zap.go's ZapWithTraceLogger wrapper.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ Logger = (*ZapLogger)(nil)

// NewZapLogger builds a production-profile zap logger at the given level.
func NewZapLogger(level Level, env string) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(toZapLevel(level))

	if env == "local" || env == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(toZapLevel(level))
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &ZapLogger{sugar: base.Sugar()}, nil
}

func toZapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) Info(args ...any)            { l.sugar.Info(args...) }
func (l *ZapLogger) Infof(f string, args ...any)  { l.sugar.Infof(f, args...) }
func (l *ZapLogger) Warn(args ...any)             { l.sugar.Warn(args...) }
func (l *ZapLogger) Warnf(f string, args ...any)  { l.sugar.Warnf(f, args...) }
func (l *ZapLogger) Error(args ...any)            { l.sugar.Error(args...) }
func (l *ZapLogger) Errorf(f string, args ...any) { l.sugar.Errorf(f, args...) }
func (l *ZapLogger) Debug(args ...any)            { l.sugar.Debug(args...) }
func (l *ZapLogger) Debugf(f string, args ...any) { l.sugar.Debugf(f, args...) }
func (l *ZapLogger) Fatal(args ...any)            { l.sugar.Fatal(args...) }
func (l *ZapLogger) Fatalf(f string, args ...any) { l.sugar.Fatalf(f, args...) }

func (l *ZapLogger) WithFields(fields ...any) Logger {
	return &ZapLogger{sugar: l.sugar.With(fields...)}
}

func (l *ZapLogger) Sync() error { return l.sugar.Sync() }
