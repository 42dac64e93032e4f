package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"weather-contract-tester/internal/config"
)

// Logger provides logging functionality
type Logger struct {
	*logrus.Logger
	file *os.File
}

// NewLogger creates a new logger instance. With cfg.Dir set, everything is
// also written to a timestamped run log in that directory.
func NewLogger(cfg config.LogConfig) (*Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		defer log.WithField("level", cfg.Level).Warn("Invalid log level, defaulting to info")
	}
	log.SetLevel(level)

	l := &Logger{Logger: log}
	if cfg.Dir == "" {
		return l, nil
	}

	// Create log directory if it doesn't exist
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(cfg.Dir, fmt.Sprintf("run_%s.log", timestamp))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stderr, file))
	l.file = file
	return l, nil
}

// Discard returns a logger that writes nowhere, for tests.
func Discard() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{Logger: log}
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
