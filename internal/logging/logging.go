// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions enables a rotating JSON log file alongside stdout. An empty Path disables it.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a JSON logger, or a console logger in dev. Unknown levels fall back to info.
func New(level, env string, file FileOptions) zerolog.Logger {
	var out io.Writer = os.Stdout
	if env == "dev" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	if file.Path != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    orDefault(file.MaxSizeMB, 100),
			MaxBackups: orDefault(file.MaxBackups, 5),
			MaxAge:     orDefault(file.MaxAgeDays, 28),
			Compress:   true,
		})
	}

	return build(out, level)
}

func NewWithWriter(w io.Writer, level, env string) zerolog.Logger {
	if env == "dev" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return build(w, level)
}

func build(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
