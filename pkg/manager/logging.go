package manager

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const logEnvVar = "PROFILE_SELECTOR_LOG"

// LogOptions controls the rotated log file.
type LogOptions struct {
	// Path overrides the log file. "-" logs to stderr, "off" discards.
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultLogPath returns ~/.config/profile-selector/logs/selector.log.
func DefaultLogPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs", "selector.log"), nil
}

// NewLogger opens the selector log. The TUI owns the terminal, so logs go to a
// size-rotated file unless PROFILE_SELECTOR_LOG or opts.Path says otherwise.
// The returned closer must be called on exit.
func NewLogger(opts LogOptions) (*log.Logger, io.Closer, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(logEnvVar))
	}
	switch path {
	case "off":
		return log.New(io.Discard, "", 0), io.NopCloser(nil), nil
	case "-":
		return log.New(os.Stderr, "", log.LstdFlags), io.NopCloser(nil), nil
	case "":
		p, err := DefaultLogPath()
		if err != nil {
			return nil, nil, err
		}
		path = p
	}
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}

	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    orDefault(opts.MaxSizeMB, 5),
		MaxBackups: orDefault(opts.MaxBackups, 3),
		MaxAge:     orDefault(opts.MaxAgeDays, 14),
		Compress:   true,
	}
	return log.New(lj, "", log.LstdFlags|log.Lmicroseconds), lj, nil
}

// Logf writes to l, or nowhere when l is nil.
func Logf(l *log.Logger, format string, args ...any) {
	if l == nil {
		return
	}
	l.Printf(format, args...)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
