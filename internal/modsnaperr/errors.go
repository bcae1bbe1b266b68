// Package modsnaperr defines the closed error enum the reconstruction
// engine and its collaborators report, wrapping each sentinel with a
// stack-annotated error via github.com/pkg/errors so a data-shape
// violation or internal-invariant failure keeps its origin.
package modsnaperr

import (
	"github.com/pkg/errors"
)

// Error is the closed set of sentinel failures the reconstruction
// engine and its collaborators can report. Expected misses (NotFound)
// are returned verbatim to callers; everything else is a hard abort.
type Error int

const (
	// NotFound is an expected miss: a cache lookup, commit-map lookup
	// or bucket lookup found nothing. Callers treat it as input to the
	// next step, never as a fault.
	NotFound Error = iota + 1
	// NonReconstructible means the rollback loop reached a page whose
	// LSN is the zero sentinel before finding a guaranteed target.
	NonReconstructible
	// LogCorrupt means a log cursor SET failed or a record was too
	// short to decode.
	LogCorrupt
	// UnknownRecord means the dispatcher was given a record type
	// outside its closed table.
	UnknownRecord
	// OutOfMemory means an allocator failure mid-reconstruction.
	OutOfMemory
	// IoError means the buffer-pool pin failed.
	IoError
	// Fatal is a generic invariant violation: an unroutable page
	// target, a commit-map bucket/entry mismatch, or anything else
	// that indicates corruption or a dispatcher bug and must never be
	// swallowed.
	Fatal
)

func (e Error) Error() string {
	switch e {
	case NotFound:
		return "modsnap: not found"
	case NonReconstructible:
		return "modsnap: page is not reconstructible to the requested snapshot"
	case LogCorrupt:
		return "modsnap: log is corrupt"
	case UnknownRecord:
		return "modsnap: unknown log record type"
	case OutOfMemory:
		return "modsnap: out of memory"
	case IoError:
		return "modsnap: buffer pool io error"
	case Fatal:
		return "modsnap: fatal invariant violation"
	default:
		return "modsnap: unknown error"
	}
}

// Wrap attaches a stack trace to sentinel without losing its identity:
// errors.Is(Wrap(sentinel, "..."), sentinel) still holds.
func Wrap(sentinel Error, message string) error {
	return errors.Wrap(sentinel, message)
}

// Wrapf is Wrap with a format string.
func Wrapf(sentinel Error, format string, args ...interface{}) error {
	return errors.Wrapf(sentinel, format, args...)
}

// Is reports whether err is, or wraps, the given sentinel.
func Is(err error, sentinel Error) bool {
	return errors.Is(err, sentinel)
}
