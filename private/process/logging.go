// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package process

import (
	"os"
	"runtime"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string `help:"the minimum log level to log, overridden by -v" default:"warn"`
	Development bool   `help:"if true, set logging to development mode" default:"false"`
	Caller      bool   `help:"if true, log function filename and line number" default:"false"`
	Stack       bool   `help:"if true, log stack traces" default:"false"`
	Encoding    string `help:"configures log encoding. can either be 'console' or 'json'" default:"console"`
	Output      string `help:"can be stdout, stderr, or a filename" default:"stderr"`
}

// VerbosityLevel maps the number of -v flags to a level: none is warn, one
// is info and more is debug.
func VerbosityLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zapcore.WarnLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// NewLogger creates a new logger configured by config. A positive verbosity
// overrides the configured level.
func NewLogger(config LogConfig, verbosity int) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if config.Level != "" {
		if err := level.UnmarshalText([]byte(config.Level)); err != nil {
			return nil, Error.New("invalid log level %q: %v", config.Level, err)
		}
	}
	if verbosity > 0 {
		level = VerbosityLevel(verbosity)
	}

	encoding := config.Encoding
	if encoding == "" {
		encoding = "console"
	}
	output := config.Output
	if output == "" {
		output = "stderr"
	}

	levelEncoder := zapcore.CapitalColorLevelEncoder
	if runtime.GOOS == "windows" || encoding == "json" {
		levelEncoder = zapcore.CapitalLevelEncoder
	}

	timeKey := "T"
	if os.Getenv("MINUS80_LOG_NOTIME") != "" {
		// using environment variable MINUS80_LOG_NOTIME to avoid additional flags
		timeKey = ""
	}

	logger, err := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       config.Development,
		DisableCaller:     !config.Caller,
		DisableStacktrace: !config.Stack,
		Encoding:          encoding,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        timeKey,
			LevelKey:       "L",
			NameKey:        "N",
			CallerKey:      "C",
			MessageKey:     "M",
			StacktraceKey:  "S",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    levelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{output},
	}.Build()
	return logger, Error.Wrap(err)
}
