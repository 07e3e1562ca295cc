// Package logging builds the diagnostic logger of the command line tool.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select how the logger is built
type Options struct {
	// Verbose selects zap's development configuration at debug level
	Verbose bool
	// Level is a zap level name; ignored when Verbose is set
	Level string
	// File receives log output in addition to stderr when set
	File string
}

// New builds a sugared logger. Logs go to stderr; stdout carries documents.
func New(opts Options) (*zap.SugaredLogger, error) {
	var z zap.Config
	if opts.Verbose {
		// Development configuration with more verbose output
		z = zap.NewDevelopmentConfig()
	} else {
		z = zap.NewProductionConfig()
		z.Sampling = nil
		if opts.Level != "" {
			level, err := zapcore.ParseLevel(opts.Level)
			if err != nil {
				return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
			}
			z.Level = zap.NewAtomicLevelAt(level)
		}
	}

	z.OutputPaths = []string{"stderr"}
	z.ErrorOutputPaths = []string{"stderr"}
	if opts.File != "" {
		z.OutputPaths = append(z.OutputPaths, opts.File)
	}

	logger, err := z.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
