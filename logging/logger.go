// Package logging builds the logrus loggers shared by sitechat components.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields represents structured logging fields
type Fields = logrus.Fields

// LevelEnv names the environment variable that sets the log level.
const LevelEnv = "SITECHAT_LOG_LEVEL"

// NewLogger creates a text logger writing to stderr at the level named by
// SITECHAT_LOG_LEVEL.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(ParseLevel(os.Getenv(LevelEnv)))
	return logger
}

// Discard returns a logger that drops everything
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(name string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
