// Package logging sets up the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// EnvLogDir overrides the log directory when no explicit one is given.
	EnvLogDir = "HOTKEYD_LOG_PATH"
	fileName  = "hotkeyd.log"
)

var (
	mu      sync.Mutex
	logFile *os.File
)

// ResolveDir picks the log directory: explicit path first, then the
// environment, then the per-user cache directory.
func ResolveDir(path string) (string, error) {
	if path == "" {
		path = os.Getenv(EnvLogDir)
	}
	if path != "" {
		if filepath.IsAbs(path) {
			return path, nil
		}
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(wd, path), nil
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve log dir: %w", err)
	}
	return filepath.Join(cache, "hotkeyd", "logs"), nil
}

// ParseLevel maps a config level name to a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// Init builds a logger writing to stderr and, when dir is non-empty, to
// dir/hotkeyd.log. The result is also installed as the global logger.
func Init(level zerolog.Level, dir string) (zerolog.Logger, error) {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return zerolog.Nop(), fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, fileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), err
		}
		logFile = f
		writers = append(writers, zerolog.ConsoleWriter{Out: f, TimeFormat: "2006-01-02 15:04:05", NoColor: true})
	}

	logger := New(zerolog.MultiLevelWriter(writers...), level)
	log.Logger = logger
	return logger, nil
}

// New builds a logger on w with the common context fields.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Int("pid", os.Getpid()).Logger()
}

// Close releases the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
