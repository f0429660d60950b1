// Package logging builds the logrus loggers used across emailfinder.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/optimode/emailfinder/config"
)

const timestampFormat = "2006-01-02 15:04:05"

// New returns a logger writing to w with the configured level and format.
// DEBUG and LOG_LEVEL from the environment take precedence over cfg.Level.
func New(cfg config.LogConfig, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			DisableQuote:    true,
			TimestampFormat: timestampFormat,
		})
	}

	logger.SetLevel(ParseLevel(cfg.Level))
	if os.Getenv("DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		logger.SetLevel(ParseLevel(env))
	}
	return logger
}

// ParseLevel is logrus.ParseLevel with an info fallback.
func ParseLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Nop returns a logger that discards everything.
func Nop() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
