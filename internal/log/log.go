// Package log provides the leveled logger threaded through every server
// subsystem. It mirrors the small logging.Logger interface the teacher
// threads through its language server (Debug/Info/WithValues), backed
// directly by zap rather than an intermediate wrapper package.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled, structured logger passed by value through every
// component constructor (lspserver.New, pool.New, scan.New, ...).
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	WithValues(keysAndValues ...interface{}) Logger
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// New constructs a Logger at the given level ("debug", "info", "warning",
// "error"). An unrecognized level falls back to "info".
func New(level string) Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		parseLevel(level),
	)
	return &zapLogger{s: zap.New(core).Sugar()}
}

// NewNop returns a Logger that discards everything, used as the default in
// tests and library constructors, matching the teacher's
// logging.NewNopLogger().
func NewNop() Logger {
	return &zapLogger{s: zap.NewNop().Sugar()}
}

func (l *zapLogger) Debug(msg string, kvs ...interface{}) {
	l.s.Debugw(msg, kvs...)
}

func (l *zapLogger) Info(msg string, kvs ...interface{}) {
	l.s.Infow(msg, kvs...)
}

func (l *zapLogger) Error(msg string, kvs ...interface{}) {
	l.s.Errorw(msg, kvs...)
}

func (l *zapLogger) WithValues(kvs ...interface{}) Logger {
	return &zapLogger{s: l.s.With(kvs...)}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warning", "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
