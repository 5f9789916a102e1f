// Package logging builds the zap loggers used by the binaries.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger. level is debug, info, warn or error (default info);
// format is json or console (default json). service, when set, is attached
// to every entry as service_name.
func New(level, format, service string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if service != "" {
		logger = logger.With(zap.String("service_name", service))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		logger = logger.With(zap.String("hostname", hostname))
	}
	return logger, nil
}

// Logger adapts a zap logger to the key/value Logger interface the service
// and HTTP layers expect.
type Logger struct {
	s *zap.SugaredLogger
}

// Core wraps z. A nil z yields a no-op logger.
func Core(z *zap.Logger) Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return Logger{s: z.Sugar()}
}

func (l Logger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l Logger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l Logger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l Logger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
