package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Options controls where and how verbosely the zerolog backed logger writes.
type Options struct {
	// Verbose enables debug level output.
	Verbose bool
	// File, when set, receives JSON lines instead of the console writer.
	File string
	// Writer is the console destination. Defaults to os.Stderr.
	Writer io.Writer
}

// New builds a zerolog backed Logger. The returned closer releases the log
// file when one was opened and is a no-op otherwise.
func New(opts Options) (Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		logFile, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		zl := zerolog.New(logFile).Level(level).With().Timestamp().Logger()
		return NewZerologAdapter(&zl), logFile, nil
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	zl := zerolog.New(console).Level(level).With().Timestamp().Logger()
	return NewZerologAdapter(&zl), nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ZerologAdapter adapts zerolog.Logger to our Logger interface
type ZerologAdapter struct {
	logger *zerolog.Logger
}

func NewZerologAdapter(zl *zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: zl}
}

func (z *ZerologAdapter) Debug(msg string) { z.logger.Debug().Msg(msg) }
func (z *ZerologAdapter) Info(msg string)  { z.logger.Info().Msg(msg) }
func (z *ZerologAdapter) Warn(msg string)  { z.logger.Warn().Msg(msg) }
func (z *ZerologAdapter) Error(msg string) { z.logger.Error().Msg(msg) }
func (z *ZerologAdapter) Fatal(msg string) { z.logger.Fatal().Msg(msg) }
func (z *ZerologAdapter) WithField(key string, value interface{}) Logger {
	newLogger := z.logger.With().Interface(key, value).Logger()
	return &ZerologAdapter{logger: &newLogger}
}
