package logging

import (
	"fmt"

	"github.com/mikey/mail-lens/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes a logger based on configuration. When logging.file
// is set, entries go to that file as well as stderr.
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	level := parseLevel(cfg.GetString("logging.level"))
	logConfig := baseConfig(cfg.GetString("logging.format") == "json", level)
	if file := cfg.GetString("logging.file"); file != "" {
		logConfig.OutputPaths = append(logConfig.OutputPaths, file)
	}
	return build(logConfig)
}

// InitConsoleLogger initializes a console-friendly logger for the single-file tool
func InitConsoleLogger(verbose bool, jsonFormat bool) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return build(baseConfig(jsonFormat, level))
}

func parseLevel(raw string) zapcore.Level {
	level, err := zapcore.ParseLevel(raw)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func baseConfig(jsonFormat bool, level zapcore.Level) zap.Config {
	var logConfig zap.Config
	if jsonFormat {
		logConfig = zap.NewProductionConfig()
	} else {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig
}

func build(logConfig zap.Config) (*zap.Logger, error) {
	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
