// Package logging builds the logr.Logger used throughout ipfix-inspect, backed by logrus
package logging

import (
	"fmt"
	"io"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
)

// New creates a logger writing to w. logr's V(1) maps to logrus' debug level, V(2) and above
// to trace, so "debug" is needed to see per-packet decode diagnostics.
func New(w io.Writer, level, format string) (logr.Logger, error) {
	l := logrus.New()
	l.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logr.Discard(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.SetLevel(lvl)

	switch format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return logr.Discard(), fmt.Errorf("invalid log format %q", format)
	}

	return logrusr.New(l), nil
}
