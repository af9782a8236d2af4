// Package logger holds the process-wide zerolog logger for the account
// system. Call Init once from main, then Get from anywhere that cannot be
// handed a logger explicitly.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "account-system"

// Options controls how the logger is built.
type Options struct {
	// Level is the minimum level to emit: trace, debug, info, warn or error.
	// Unknown values fall back to info.
	Level string
	// Pretty switches to the human-readable console writer. Production
	// deployments should leave it off and ship JSON.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
}

var (
	instance    zerolog.Logger
	once        sync.Once
	initialized bool
)

// Init builds the singleton logger. Repeated calls return the logger built
// by the first call.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		if opts.Pretty {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		}

		lvl := parseLevel(opts.Level)
		zerolog.SetGlobalLevel(lvl)

		instance = zerolog.New(out).
			Level(lvl).
			With().
			Timestamp().
			Str("service", serviceName).
			Logger()

		initialized = true
	})
	return instance
}

// Get returns the singleton logger. Panics when Init has not run yet, which
// points at a wiring bug rather than a runtime condition worth handling.
func Get() zerolog.Logger {
	if !initialized {
		panic("logger: Get() called before Init()")
	}
	return instance
}

// Reset tears the singleton down so the next Init rebuilds it. Test use only.
func Reset() {
	once = sync.Once{}
	instance = zerolog.Logger{}
	initialized = false
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
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
