// Package logging configures the process-wide logger.
//
// Output goes to stderr so it never interleaves with command output. The
// level comes from WHARF_LOG_LEVEL and the format from WHARF_LOG_FORMAT
// ("json" for machine consumption, text otherwise).
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	levelEnv  = "WHARF_LOG_LEVEL"
	formatEnv = "WHARF_LOG_FORMAT"
)

// New returns a logger entry tagged with the given component name.
func New(component string) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	if os.Getenv(formatEnv) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
		})
	}

	log.SetLevel(logrus.InfoLevel)
	if raw := os.Getenv(levelEnv); raw != "" {
		if level, err := logrus.ParseLevel(raw); err == nil {
			log.SetLevel(level)
		}
	}

	return log.WithField("component", component)
}

// Discard returns a logger entry that writes nowhere. Used as the default
// when a caller passes no logger.
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}
