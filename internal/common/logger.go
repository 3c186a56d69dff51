package common

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Loggable interface for types that support custom logging.
type Loggable interface {
	SetLogger(logger logrus.FieldLogger)
	GetLogger() logrus.FieldLogger
}

// LoggerMixin provides common logging functionality.
type LoggerMixin struct {
	Logger logrus.FieldLogger
}

// NewLoggerMixin creates a new logger mixin with the standard logger.
func NewLoggerMixin() LoggerMixin {
	return LoggerMixin{
		Logger: logrus.StandardLogger(),
	}
}

// SetLogger sets a custom logger.
func (l *LoggerMixin) SetLogger(logger logrus.FieldLogger) {
	if logger != nil {
		l.Logger = logger
	}
}

// GetLogger returns the logger.
func (l *LoggerMixin) GetLogger() logrus.FieldLogger {
	if l.Logger == nil {
		l.Logger = logrus.StandardLogger()
	}
	return l.Logger
}

// NewLogger builds a logrus logger from a level name and a format ("json" or "text").
// Unknown levels fall back to info.
func NewLogger(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
