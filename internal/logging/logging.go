package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// InitializeLogger configures the global logger: JSON output on stdout at the
// given level. An unknown level falls back to info.
func InitializeLogger(level string) {
	log = logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{}) // Use JSON format for structured logs
	log.SetOutput(os.Stdout)                  // Log to standard output

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		log.WithFields(logrus.Fields{"level": level}).Warn("Unknown log level, using info")
	}
	log.SetLevel(lvl)
}

// Logger returns the global logger.
func Logger() *logrus.Logger {
	return log
}

// Info logs informational messages.
func Info(message string, fields map[string]interface{}) {
	log.WithFields(fields).Info(message)
}

// Warn logs warnings.
func Warn(message string, fields map[string]interface{}) {
	log.WithFields(fields).Warn(message)
}

// Error logs error messages.
func Error(message string, fields map[string]interface{}) {
	log.WithFields(fields).Error(message)
}

// Debug logs debug messages.
func Debug(message string, fields map[string]interface{}) {
	log.WithFields(fields).Debug(message)
}

// Fatal logs the message and exits.
func Fatal(message string, fields map[string]interface{}) {
	log.WithFields(fields).Fatal(message)
}
