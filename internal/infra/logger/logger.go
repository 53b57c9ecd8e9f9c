// internal/infra/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"

	"bitewise_backend/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is the global logger instance
var Log = logrus.New()

// Init configures the global logger from the application configuration.
func Init(cfg *config.AppConfig) {
	configure(Log, cfg, os.Stdout)
}

// New returns a separately configured logger writing to out.
func New(cfg *config.AppConfig, out io.Writer) *logrus.Logger {
	l := logrus.New()
	configure(l, cfg, out)
	return l
}

func configure(l *logrus.Logger, cfg *config.AppConfig, out io.Writer) {
	l.SetOutput(out)

	// Level
	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		l.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	// Deployed environments ship JSON to the log collector
	if isDeployed(cfg.Environment) {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
			FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	l.Debugf("Log level set to: %s, environment: %s", l.GetLevel(), cfg.Environment)
}

func isDeployed(environment string) bool {
	switch strings.ToLower(environment) {
	case "production", "staging":
		return true
	}
	return false
}

// Component returns an entry tagged with the component name, e.g. "reminder" or "aggregator".
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
