// Package logging builds the zap logger used across checkpointd.
package logging

import (
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wrenlabs/checkpointd/internal/config"
)

// Option customizes logger construction.
type Option func(*options)

type options struct {
	loggerProvider log.LoggerProvider
}

// WithLoggerProvider tees every log entry to the given OpenTelemetry log
// provider in addition to the configured encoder. A nil provider is
// ignored, so callers can pass Telemetry.LoggerProvider() unconditionally.
func WithLoggerProvider(lp log.LoggerProvider) Option {
	return func(o *options) {
		o.loggerProvider = lp
	}
}

// New creates a logger from config.
func New(cfg config.LoggingConfig, opts ...Option) (*zap.Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var zapCfg zap.Config
	switch cfg.Format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig = encoderCfg
		zapCfg.Encoding = "console"
	case "json":
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig = encoderCfg
	default:
		return nil, fmt.Errorf("invalid log format %q (must be 'json' or 'console')", cfg.Format)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if o.loggerProvider != nil {
		otelCore := otelzap.NewCore("checkpointd",
			otelzap.WithLoggerProvider(o.loggerProvider),
		)
		logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, otelCore)
		}))
	}

	return logger.With(zap.String("service", "checkpointd")), nil
}
