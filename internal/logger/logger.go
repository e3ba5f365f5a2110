package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvProduction selects the JSON logger.
const EnvProduction = "production"

// ServiceName is attached to every entry.
const ServiceName = "electricity-weather-aggregation"

// New builds the application logger. Production gets JSON at info level with
// stack traces on errors, anything else a colored console logger at debug
// level. A non-empty level overrides the environment's default.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	opts := []zap.Option{zap.AddCaller()}

	if env == EnvProduction {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	log, err := cfg.Build(opts...)
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("service", ServiceName)), nil
}
