package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. LOG_LEVEL selects the minimum level and
// LOG_FORMAT=console switches from JSON to the development encoder.
func New() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if raw, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if err := level.Set(raw); err != nil {
			return nil, err
		}
	}

	cfg := zap.NewProductionConfig()
	if os.Getenv("LOG_FORMAT") == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}
