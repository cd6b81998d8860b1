package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the production logger. LOG_LEVEL overrides the default info level.
func New() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "time"

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		level, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	return cfg.Build()
}
