// Package logging builds the zap logger shared by the crawler: a console
// core on stderr and, when a file is configured, a rotated JSON core.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where and how much to log.
type Options struct {
	Level   string
	File    string
	Verbose bool

	// Console receives human-readable output. Defaults to stderr.
	Console io.Writer
}

// EncoderConfig is the production encoder config with capital levels and
// ISO8601 timestamps.
func EncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// Rotator returns the rotating writer used for log files.
func Rotator(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:  path,
		MaxSize:   200,
		LocalTime: true,
		Compress:  true,
	}
}

// New builds a logger from opts. The returned closer flushes the log file
// and must be closed before the process exits.
func New(opts Options) (*zap.Logger, io.Closer, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(EncoderConfig()),
			zapcore.Lock(zapcore.AddSync(console)),
			level,
		),
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotator := Rotator(opts.File)
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(EncoderConfig()),
			zapcore.AddSync(rotator),
			level,
		))
		closer = rotator
	}

	stackLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.DPanicLevel
	})

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(stackLevel))
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
