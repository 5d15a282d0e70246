// Package logger builds the service's zap loggers and carries request-scoped
// loggers through contexts, gin and gorm.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string
	// Sampling thins repeated entries (same level and message) under load
	Sampling bool
}

const defaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DefaultConfig is the development setup: colored console output
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "console", Output: "stdout", TimeFormat: defaultTimeFormat}
}

// ProductionConfig writes sampled JSON lines to stdout
func ProductionConfig() *Config {
	return &Config{Level: "info", Format: "json", Output: "stdout", TimeFormat: defaultTimeFormat, Sampling: true}
}

// New builds a logger from cfg. Unknown formats and unopenable outputs are errors.
func New(cfg *Config) (*zap.Logger, error) {
	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
		Encoding:          strings.ToLower(cfg.Format),
		EncoderConfig:     encoderConfig(cfg),
		OutputPaths:       []string{outputPath(cfg.Output)},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	if zc.Encoding == "" {
		zc.Encoding = "json"
	}
	if cfg.Sampling {
		zc.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	}
	return zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// NewForEnvironment starts from the production config when env is
// "production" and the development one otherwise; non-empty level, format
// and output override it.
func NewForEnvironment(env, level, format, output string) (*zap.Logger, error) {
	cfg := DefaultConfig()
	if env == "production" {
		cfg = ProductionConfig()
	}
	for dst, v := range map[*string]string{&cfg.Level: level, &cfg.Format: format, &cfg.Output: output} {
		if v != "" {
			*dst = v
		}
	}
	return New(cfg)
}

// parseLevel maps a configured level name to zap, defaulting to info
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig(cfg *Config) zapcore.EncoderConfig {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = defaultTimeFormat
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	if strings.EqualFold(cfg.Format, "console") {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return ec
}

func outputPath(output string) string {
	switch strings.ToLower(output) {
	case "", "stdout":
		return "stdout"
	case "stderr":
		return "stderr"
	default:
		return output
	}
}
