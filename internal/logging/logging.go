// Package logging builds the structured loggers used across volley.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Output formats accepted by New.
const (
	FormatText   = "text"
	FormatLogfmt = "logfmt"
	FormatJSON   = "json"
)

// ParseLevel parses a level name. Unknown or empty names yield info.
func ParseLevel(name string) log.Level {
	lvl, err := log.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// New creates a logger writing to w. Unknown formats fall back to text.
func New(w io.Writer, level, format string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter(format),
	})
	return logger
}

func formatter(format string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		return log.JSONFormatter
	case FormatLogfmt:
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// SetDefault installs logger as the package-level charm logger, so that
// components falling back to log.Default share its settings.
func SetDefault(logger *log.Logger) {
	log.SetDefault(logger)
}
