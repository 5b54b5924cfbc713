// Package logger owns the process-wide zerolog logger. main builds it once
// from LOG_LEVEL and NODE_ENV; code without a logger injected can fall back
// to Get.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	// Level is one of debug, info, warn or error. Anything else means info.
	Level string
	// Pretty switches to the console writer used in development.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service is stamped on every line when set.
	Service string
}

var (
	mu      sync.Mutex
	built   bool
	current zerolog.Logger
)

// Init builds the shared logger and returns it. Later calls return the logger
// built by the first one and ignore their options.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if built {
		return current
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	w := opts.Output
	if w == nil {
		w = os.Stdout
	}
	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	level := ParseLevel(opts.Level)
	zerolog.SetGlobalLevel(level)

	fields := zerolog.New(w).Level(level).With().Timestamp()
	if opts.Service != "" {
		fields = fields.Str("service", opts.Service)
	}
	current = fields.Logger()
	built = true

	return current
}

// Get panics when Init has not run.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if !built {
		panic("logger: Get() called before Init()")
	}
	return current
}

// Reset forgets the shared logger and restores the global level. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	built = false
	current = zerolog.Logger{}
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

// ParseLevel reads a LOG_LEVEL value. Case and surrounding spaces are ignored
// and "warning" is accepted for warn.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
