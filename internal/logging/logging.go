package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

var (
	once sync.Once
	root *log.Logger
)

// Root returns the process logger, creating it with debug level on first use.
func Root() *log.Logger {
	once.Do(func() {
		root = New(os.Stderr, log.DebugLevel)
	})
	return root
}

// New builds a logger in the house style: timestamps, caller and a fixed prefix.
func New(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "incipisphere",
	})
	l.SetLevel(level)
	return l
}

// ParseLevel maps a config level name onto a log level.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	case "fatal":
		return log.FatalLevel, nil
	}
	return 0, errors.Newf("unknown log level %q", name)
}

// SetLevel changes the level of the root logger.
func SetLevel(level log.Level) {
	Root().SetLevel(level)
}

// Component returns a child of the root logger tagged with the component name.
func Component(name string) *log.Logger {
	return Root().With("component", name)
}

// Discard returns a logger that writes nowhere. Used by tests and headless tools.
func Discard() *log.Logger {
	return New(io.Discard, log.FatalLevel)
}
