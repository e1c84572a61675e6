// Package logging wires an optional rotating-file sink behind
// golibs/log, the way the teacher's main package configures its own log
// output: golibs/log always writes to stderr, and lumberjack is layered in
// as an io.Writer only when a file path is configured.
package logging

import (
	"io"
	"os"

	"github.com/AdguardTeam/golibs/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures the optional rotating-file sink.
type FileConfig struct {
	// Path is the log file's location. Empty disables the file sink
	// entirely (stderr only).
	Path string

	// MaxSizeMB is the size in megabytes a log file reaches before
	// rotation. Zero uses lumberjack's own default (100MB).
	MaxSizeMB int

	// MaxBackups is the number of rotated files to retain. Zero keeps all.
	MaxBackups int

	// MaxAgeDays is the number of days to retain rotated files. Zero keeps
	// them indefinitely.
	MaxAgeDays int

	// Compress gzips rotated files.
	Compress bool
}

// UseRotatingFile points golibs/log's output at both stderr and a
// lumberjack-managed rotating file, per cfg. Calling it with an empty Path
// is a no-op — stderr-only logging, golibs/log's default.
func UseRotatingFile(cfg FileConfig) {
	if cfg.Path == "" {
		return
	}
	sink := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, sink))
}
