// internal/logging/logging.go
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tamzrod/bci-streamer/internal/config"
)

// New builds the process logger and returns a closer for its output.
//
// Disabled logging keeps error-level output only. A configured file is
// rotated by lumberjack; otherwise output goes to stderr.
func New(cfg config.LoggingConfig) (*logrus.Logger, func() error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	if !cfg.Enabled {
		level = logrus.ErrorLevel
	}
	log.SetLevel(level)

	var out io.Writer = os.Stderr
	closer := func() error { return nil }

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out = rotator
		closer = rotator.Close
	}
	log.SetOutput(out)

	return log, closer
}

// Component returns a logger entry tagged with the component name.
// A nil logger falls back to the logrus standard logger.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithField("component", name)
}
