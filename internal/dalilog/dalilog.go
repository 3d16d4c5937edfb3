// Package dalilog constructs the one charmbracelet/log logger shared by
// the adapter driver, the simulator bus, and the CLI tools, so every
// component logs with the same structured key/value fields instead of
// format strings.
package dalilog

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options configures New. The zero value is sensible: text-styled
// output to stderr at info level.
type Options struct {
	// Writer receives log output. Defaults to os.Stderr.
	Writer io.Writer
	// Level is the minimum level logged. Defaults to log.InfoLevel.
	Level log.Level
	// Debug raises Level to log.DebugLevel, overriding Level.
	Debug bool
	// Prefix names the component in every line (e.g. "dali-discover").
	Prefix string
}

// New builds a logger per opts. CLI binaries call this once in main and
// pass the result down to the driver they open.
func New(opts Options) *log.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          opts.Prefix,
	})
	level := opts.Level
	if opts.Debug {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}
