package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. Unknown levels fall back to info.
func New(level string, jsonFormat bool) *logrus.Logger {
	return newLogger(os.Stdout, level, jsonFormat)
}

func newLogger(out io.Writer, level string, jsonFormat bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if jsonFormat {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
