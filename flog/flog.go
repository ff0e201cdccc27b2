// Package flog centralizes Flux's structured logging so the compiler, VM,
// cache, and module graph all write through one configured zerolog.Logger
// instead of each reaching for fmt.Println independently.
package flog

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Log is the package-wide logger. Default: human-readable console output at
// info level. Set FLUX_LOG_FORMAT=json for machine-readable output and
// FLUX_LOG_LEVEL to adjust verbosity (debug, info, warn, error).
var Log zerolog.Logger

func init() {
	level := zerolog.InfoLevel
	if v := os.Getenv("FLUX_LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var writer zerolog.ConsoleWriter
	if os.Getenv("FLUX_LOG_FORMAT") == "json" {
		Log = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
		return
	}
	writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	Log = zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// For returns a child logger tagged with a component name, e.g.
// flog.For("compiler").Debug().Msg("compiling module")
func For(component string) zerolog.Logger {
	return Log.With().Str("component", component).Logger()
}
