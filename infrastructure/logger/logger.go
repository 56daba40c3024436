package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Level  string
	Format string
	// File is appended to, created if missing, and mirrored to stdout. Empty logs to stdout only.
	File string
}

// Setup configures the standard logrus logger. The returned closer releases the log file.
func Setup(config Config) (io.Closer, error) {
	return setup(logrus.StandardLogger(), config)
}

func setup(log *logrus.Logger, config Config) (io.Closer, error) {
	level := config.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)

	switch strings.ToLower(config.Format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", config.Format)
	}

	if config.File == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}

	f, err := os.OpenFile(config.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
