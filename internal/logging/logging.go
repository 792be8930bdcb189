// Package logging builds the process-wide slog logger: JSON to stdout and,
// optionally, JSON to a size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig holds file logging configuration.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns default file logging settings.
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a JSON logger at level writing to console and, when file.Path
// is set, to a rotated log file. The returned Closer releases the file.
// A nil console discards console output.
func New(level string, console io.Writer, file FileConfig) (*slog.Logger, io.Closer) {
	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}

	var closer io.Closer = nopCloser{}
	if file.Path != "" {
		fw := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
			Compress:   file.Compress,
		}
		writers = append(writers, fw)
		closer = fw
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
	return logger, closer
}

// Default is New writing to stdout.
func Default(level, logFile string) (*slog.Logger, io.Closer) {
	var file FileConfig
	if logFile != "" {
		file = DefaultFileConfig(logFile)
	}
	return New(level, os.Stdout, file)
}
