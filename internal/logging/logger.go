package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Field keys shared by every component so log queries stay uniform.
const (
	FieldComponent = "component"
	FieldExchange  = "exchange"
	FieldSymbol    = "symbol"
	FieldCycleID   = "cycle_id"
)

// NewLogger builds the process logger. Production and staging emit JSON,
// everything else uses the human-readable text formatter.
func NewLogger(logLevel string, environment string) *logrus.Logger {
	return newLogger(os.Stdout, logLevel, environment)
}

func newLogger(out io.Writer, logLevel string, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(ParseLogrusLevel(logLevel))

	switch strings.ToLower(environment) {
	case "production", "staging":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}
	return logger
}

// WithComponent scopes a logger to a named component.
func WithComponent(logger logrus.FieldLogger, component string) *logrus.Entry {
	return logger.WithField(FieldComponent, component)
}

// WithExchange scopes a logger to one exchange.
func WithExchange(logger logrus.FieldLogger, exchange string) *logrus.Entry {
	return logger.WithField(FieldExchange, exchange)
}

// WithSymbol scopes a logger to one market pair.
func WithSymbol(logger logrus.FieldLogger, symbol string) *logrus.Entry {
	return logger.WithField(FieldSymbol, symbol)
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
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
