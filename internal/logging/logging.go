// Package logging builds the process logger handed to every component.
package logging

import (
	"fmt"
	"io"
	"strings"

	"regcheck/internal/config"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to out at the configured level and format.
func New(cfg config.LoggingConfig, out io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(out)

	level := logrus.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	return l, nil
}
