package main

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// newLogger builds the process logger. LOG_LEVEL picks the level and
// LOG_FORMAT=json switches to the JSON formatter used for daemon log files.
func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)

	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	}

	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "trace":
		l.SetLevel(logrus.TraceLevel)
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// discardLogger is used by tests and by components constructed without one.
func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
