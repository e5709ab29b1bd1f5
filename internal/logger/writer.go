package logger

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures the rotating file sink.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewWriter returns base alone when no file path is configured, otherwise
// base tee'd into a rotating log file.
func NewWriter(base io.Writer, cfg FileConfig) io.Writer {
	if cfg.Path == "" {
		return base
	}

	file := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	return io.MultiWriter(base, file)
}
