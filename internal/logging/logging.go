// Package logging builds the process logger.
//
// Logs go to stderr by default because stdout carries the MCP protocol.
// Components log through an entry tagged with their name:
//
//	log := logging.Component(logger, "session")
//	log.WithField("index", 3).Debug("preview rendered")
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a logger at the given level ("debug", "info", "warn", "error")
// and format ("text" or "json"). A nil out means stderr.
func New(level, format string, out io.Writer) (*logrus.Logger, error) {
	if out == nil {
		out = os.Stderr
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}

	return logger, nil
}

// ParseLevel maps a level name to a logrus level. Empty means info.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return logrus.InfoLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	}
	return logrus.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// Discard returns a logger that writes nowhere. Used by tests and as the
// fallback when a component is given no logger.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Component returns an entry tagged with the component name.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	if logger == nil {
		logger = Discard()
	}
	return logger.WithField("component", name)
}
