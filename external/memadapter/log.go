// Package memadapter provides in-memory implementations of the
// external package's collaborator interfaces, used by tests and by the
// cmd/modsnap-bench demo in place of a real storage engine's WAL and
// buffer pool.
package memadapter

import (
	"encoding/binary"
	"sync"

	"github.com/luigitni/modsnap/internal/modsnaperr"
	"github.com/luigitni/modsnap/lsn"
	"github.com/rs/zerolog"
)

// Log is an in-memory stand-in for a multi-logfile write-ahead log:
// records are length-prefixed and addressed by a stable position.
// Block/file management belongs to the host storage engine, not to
// this snapshot engine, which only ever reads records back - so each
// logfile here is simply a growing byte slice, and LSN.Offset
// addresses a record's start directly.
type Log struct {
	mu    sync.RWMutex
	log   zerolog.Logger
	files map[int32][]byte
}

// NewLog creates an empty in-memory log with no logfiles yet.
func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log, files: make(map[int32][]byte)}
}

// Append writes record to the named logfile and returns the LSN at
// which it was stored.
func (l *Log) Append(fileNum int32, record []byte) lsn.LSN {
	l.mu.Lock()
	defer l.mu.Unlock()

	buf := l.files[fileNum]
	offset := int64(len(buf))

	var lenPrefix [8]byte
	binary.LittleEndian.PutUint64(lenPrefix[:], uint64(len(record)))

	buf = append(buf, lenPrefix[:]...)
	buf = append(buf, record...)
	l.files[fileNum] = buf

	return lsn.LSN{File: fileNum, Offset: offset}
}

// Fetch implements external.Log.
func (l *Log) Fetch(at lsn.LSN) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	buf, ok := l.files[at.File]
	if !ok {
		return nil, modsnaperr.Wrapf(modsnaperr.NotFound, "memadapter: logfile %d not present", at.File)
	}

	off := int(at.Offset)
	if off < 0 || off+8 > len(buf) {
		return nil, modsnaperr.Wrapf(modsnaperr.LogCorrupt, "memadapter: lsn %s out of range for logfile %d (len %d)", at, at.File, len(buf))
	}

	n := int(binary.LittleEndian.Uint64(buf[off : off+8]))
	start := off + 8
	if start+n > len(buf) {
		return nil, modsnaperr.Wrapf(modsnaperr.LogCorrupt, "memadapter: record at %s overruns logfile %d", at, at.File)
	}

	out := make([]byte, n)
	copy(out, buf[start:start+n])
	return out, nil
}

// Reclaim discards a logfile wholesale, the in-memory counterpart of a
// host engine deleting a reclaimed WAL segment after
// commitmap.Map.DeleteLogfileTxns runs at checkpoint.
func (l *Log) Reclaim(fileNum int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.files, fileNum)
	l.log.Debug().Int32("file_num", fileNum).Msg("memadapter: reclaimed logfile")
}
