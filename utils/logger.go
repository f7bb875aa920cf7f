package utils

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

const isoTimestamp = "2006-01-02T15:04:05Z07:00"

// JSON to stdout at info level until ConfigureLogger runs
func init() {
	log.SetOutput(os.Stdout)
	ConfigureLogger("info", "json")
}

// ConfigureLogger applies the configured level and output format.
// Unknown levels fall back to info, unknown formats to JSON.
func ConfigureLogger(level, format string) {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(formatterFor(format))
}

func formatterFor(format string) log.Formatter {
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return &log.TextFormatter{FullTimestamp: true, TimestampFormat: isoTimestamp}
	}
	return &log.JSONFormatter{TimestampFormat: isoTimestamp}
}

func Debug(message string, fields map[string]any) {
	log.WithFields(fields).Debug(message)
}

// Info logs a message at info level with optional fields
func Info(message string, fields map[string]any) {
	log.WithFields(fields).Info(message)
}

// Warn logs recoverable problems: rejected input, failed side effects
func Warn(message string, fields map[string]any) {
	log.WithFields(fields).Warn(message)
}

// Error logs failures that leave a request or background job unfinished
func Error(message string, fields map[string]any) {
	log.WithFields(fields).Error(message)
}

// Fatal logs and exits the process
func Fatal(message string, fields map[string]any) {
	log.WithFields(fields).Fatal(message)
}
