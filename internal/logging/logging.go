// Package logging provides per-component logrus loggers configured from config.Config.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
)

var (
	mu      sync.Mutex
	base    = logrus.New()
	loggers = make(map[string]*logrus.Entry)
)

func init() {
	apply(base, config.DefaultConfig(), os.Stderr)
}

// Configure applies cfg to the shared logger. Component loggers handed out
// earlier pick up the change. Output goes to w (stderr in production): stdout
// carries CLI JSON and the MCP stdio transport.
func Configure(cfg *config.Config, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	apply(base, cfg, w)
}

// NewLogger returns the logger for a component, creating it on first use.
func NewLogger(component string) *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()

	if entry, ok := loggers[component]; ok {
		return entry
	}
	entry := base.WithField("component", component)
	loggers[component] = entry
	return entry
}

func apply(logger *logrus.Logger, cfg *config.Config, w io.Writer) {
	logger.SetOutput(w)

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}
