package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qredo/attestation-console/internal/config"
)

// NewLogger builds the service logger from the logging config. Unknown levels fall back to info.
func NewLogger(cfg *config.Logging) *zap.SugaredLogger {
	var zapCfg zap.Config
	if cfg.Format == "text" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapCfg.Level = level
	zapCfg.DisableStacktrace = true

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}

	return logger.Sugar()
}

// NewTestLogger returns a development logger for tests
func NewTestLogger() *zap.SugaredLogger {
	logger, _ := zap.NewDevelopment()
	return logger.Sugar()
}
