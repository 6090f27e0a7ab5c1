package config

import (
	"fmt"

	"github.com/hupe1980/biosphere/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BuildLogger creates the configured logger. The returned flush function
// must be called before the process exits.
func (c *Config) BuildLogger() (logging.Logger, func() error, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, nil, err
	}

	if c.Logging.Driver != "zap" {
		logger := logging.NewSlogLogger(level, c.Logging.Format, c.Logging.AddSource).WithComponent("biosphere")
		return logger, func() error { return nil }, nil
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	zcfg.DisableCaller = !c.Logging.AddSource
	if c.Logging.Format == "text" {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zl, err := zcfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger: %w", err)
	}

	adapter := logging.NewZapAdapter(zl)
	return adapter, adapter.Sync, nil
}

func zapLevel(l logging.LogLevel) zapcore.Level {
	switch l {
	case logging.LogLevelDebug:
		return zapcore.DebugLevel
	case logging.LogLevelWarn:
		return zapcore.WarnLevel
	case logging.LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
