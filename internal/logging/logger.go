// Package logging builds the process-wide zap logger. An ingest run is
// a short-lived batch, so the production configuration keeps sampling
// off and every per-zone line is emitted.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns the logger for the selected mode: a colored console
// encoder for development, JSON without sampling for production.
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
		cfg.DisableStacktrace = false
		cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	}
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
