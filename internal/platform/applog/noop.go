package applog

// NoopLogger discards everything; used as the default in tests, grounded on
// common/mlog/nil.go's NoneLogger.
type NoopLogger struct{}

var _ Logger = NoopLogger{}

func (NoopLogger) Info(args ...any)             {}
func (NoopLogger) Infof(string, ...any)         {}
func (NoopLogger) Warn(args ...any)             {}
func (NoopLogger) Warnf(string, ...any)         {}
func (NoopLogger) Error(args ...any)            {}
func (NoopLogger) Errorf(string, ...any)        {}
func (NoopLogger) Debug(args ...any)            {}
func (NoopLogger) Debugf(string, ...any)        {}
func (NoopLogger) Fatal(args ...any)            {}
func (NoopLogger) Fatalf(string, ...any)        {}
func (NoopLogger) WithFields(...any) Logger     { return NoopLogger{} }
func (NoopLogger) Sync() error                  { return nil }
