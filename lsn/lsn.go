// Package lsn defines the log sequence number used throughout modsnap
// to order page edits and commit records.
package lsn

import "fmt"

// LSN is a totally ordered (file, offset) pair identifying a position in
// the write-ahead log. File numbers and offsets both grow monotonically
// within a well-formed log.
type LSN struct {
	File   int32
	Offset int64
}

// Zero is the sentinel meaning "never written". A page carrying the zero
// LSN has no undo history: reconstruction that reaches it mid-loop fails
// with NonReconstructible.
var Zero = LSN{}

// NotLogged marks a page whose edits predate logging discipline. It
// always satisfies IsGuaranteedTarget.
var NotLogged = LSN{File: -1, Offset: -1}

// IsZero reports whether l is the zero sentinel.
func (l LSN) IsZero() bool {
	return l == Zero
}

// IsNotLogged reports whether l is the not-logged sentinel.
func (l LSN) IsNotLogged() bool {
	return l == NotLogged
}

// Compare returns -1, 0 or 1 as l is less than, equal to, or greater
// than other, under lexicographic (file, offset) ordering. The
// sentinels are ordered like any other value: NotLogged sorts before
// everything because File is -1, and callers must special-case it via
// IsNotLogged rather than relying on Compare for its semantics.
func (l LSN) Compare(other LSN) int {
	switch {
	case l.File < other.File:
		return -1
	case l.File > other.File:
		return 1
	case l.Offset < other.Offset:
		return -1
	case l.Offset > other.Offset:
		return 1
	default:
		return 0
	}
}

// Less reports whether l orders strictly before other.
func (l LSN) Less(other LSN) bool {
	return l.Compare(other) < 0
}

// LessOrEqual reports whether l orders at or before other.
func (l LSN) LessOrEqual(other LSN) bool {
	return l.Compare(other) <= 0
}

// GreaterOrEqual reports whether l orders at or after other.
func (l LSN) GreaterOrEqual(other LSN) bool {
	return l.Compare(other) >= 0
}

func (l LSN) String() string {
	switch {
	case l.IsNotLogged():
		return "<not-logged>"
	case l.IsZero():
		return "<zero>"
	default:
		return fmt.Sprintf("(%d,%d)", l.File, l.Offset)
	}
}
