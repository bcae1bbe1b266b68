// Package telemetry wires zerolog for this engine's components: a
// console writer for interactive/demo use, a component field on every
// logger so reconstruction-loop tracing can be filtered independently
// of commit-map or cache logging.
package telemetry

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger tagged with component, writing to stderr through
// a human-readable console writer. Level defaults to InfoLevel; callers
// needing verbose reconstruction-loop tracing should call
// .Level(zerolog.DebugLevel) or .Level(zerolog.TraceLevel) on the
// result.
func New(component string) zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
