package output

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. format is "text" or "json"; an
// empty level means info.
func NewLogger(w io.Writer, level, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)

	switch format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q (use text or json)", format)
	}

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)
	return logger, nil
}
