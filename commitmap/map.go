// Package commitmap implements the transaction commit-LSN index: for
// every uniquely-identified transaction, the LSN at which it
// committed, bucketed by logfile for O(|bucket|) bulk reclamation at
// checkpoint. It answers "did transaction X commit at or before LSN
// Y", a question a single linear log scan never needs to ask.
package commitmap

import (
	"sync"

	"github.com/luigitni/modsnap/internal/modsnaperr"
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/lsn"
	"github.com/rs/zerolog"
)

// Map is the commit-LSN index. Zero value is not usable; use New.
type Map struct {
	mu sync.Mutex
	log zerolog.Logger

	entries map[storage.UTXNID]lsn.LSN
	buckets map[int32]map[storage.UTXNID]struct{}

	smallestLogfile int32
	highestLogfile  int32

	modsnapStartLSN      lsn.LSN
	highestCheckpointLSN lsn.LSN
}

// New creates an empty commit map: empty indexes, extremes at -1, and
// zeroed checkpoint / modsnap-start LSNs.
func New(log zerolog.Logger) *Map {
	return &Map{
		log:             log,
		entries:         make(map[storage.UTXNID]lsn.LSN),
		buckets:         make(map[int32]map[storage.UTXNID]struct{}),
		smallestLogfile: -1,
		highestLogfile:  -1,
	}
}

// Destroy frees every entry and both indexes.
func (m *Map) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[storage.UTXNID]lsn.LSN)
	m.buckets = make(map[int32]map[storage.UTXNID]struct{})
	m.smallestLogfile = -1
	m.highestLogfile = -1
	m.modsnapStartLSN = lsn.LSN{}
	m.highestCheckpointLSN = lsn.LSN{}
}

// Add inserts an entry. No-op when utxnid is the reserved internal
// value, when commitLSN is the zero LSN, or when the entry already
// exists.
func (m *Map) Add(utxnid storage.UTXNID, commitLSN lsn.LSN) {
	if utxnid == storage.InternalUTXNID || commitLSN.IsZero() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.addNoLock(utxnid, commitLSN)
}

func (m *Map) addNoLock(utxnid storage.UTXNID, commitLSN lsn.LSN) {
	if _, exists := m.entries[utxnid]; exists {
		return
	}

	m.entries[utxnid] = commitLSN

	bucket, ok := m.buckets[commitLSN.File]
	if !ok {
		bucket = make(map[storage.UTXNID]struct{})
		m.buckets[commitLSN.File] = bucket
	}
	bucket[utxnid] = struct{}{}

	if m.smallestLogfile == -1 || commitLSN.File < m.smallestLogfile {
		m.smallestLogfile = commitLSN.File
	}

	if commitLSN.GreaterOrEqual(m.modsnapStartLSN) {
		m.modsnapStartLSN = commitLSN
		if m.highestLogfile == -1 || commitLSN.File > m.highestLogfile {
			m.highestLogfile = commitLSN.File
		}
	}

	m.log.Debug().
		Uint64("utxnid", uint64(utxnid)).
		Stringer("commit_lsn", commitLSN).
		Msg("commit map: added entry")
}

// Remove deletes the entry and unlinks it from its logfile bucket.
// Fails with NotFound if absent. Callers that remove the entry holding
// the highest commit LSN are contractually required to call
// SetModsnapStartLSN with a replacement afterwards.
func (m *Map) Remove(utxnid storage.UTXNID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.removeNoLock(utxnid)
}

func (m *Map) removeNoLock(utxnid storage.UTXNID) error {
	commitLSN, ok := m.entries[utxnid]
	if !ok {
		return modsnaperr.NotFound
	}

	delete(m.entries, utxnid)

	bucket, ok := m.buckets[commitLSN.File]
	if !ok {
		// Invariant 1 violated: an entry existed with no corresponding
		// bucket. This is corruption, not a miss.
		return modsnaperr.Wrapf(modsnaperr.Fatal, "commit map: entry %d has no bucket for logfile %d", utxnid, commitLSN.File)
	}

	delete(bucket, utxnid)

	if len(bucket) == 0 {
		delete(m.buckets, commitLSN.File)
		m.adjustExtremesAfterBucketRemoval(commitLSN.File)
	}

	return nil
}

// adjustExtremesAfterBucketRemoval re-scans the bucket index after the
// bucket for removedFile was just destroyed, advancing smallestLogfile
// upward or highestLogfile downward as needed.
func (m *Map) adjustExtremesAfterBucketRemoval(removedFile int32) {
	if len(m.buckets) == 0 {
		m.smallestLogfile = -1
		m.highestLogfile = -1
		return
	}

	if removedFile == m.smallestLogfile {
		for f := removedFile + 1; f <= m.highestLogfile; f++ {
			if _, ok := m.buckets[f]; ok {
				m.smallestLogfile = f
				break
			}
		}
	}

	if removedFile == m.highestLogfile {
		for f := removedFile - 1; f >= m.smallestLogfile; f-- {
			if _, ok := m.buckets[f]; ok {
				m.highestLogfile = f
				break
			}
		}
	}
}

// Get returns the commit LSN for utxnid, or NotFound if it is absent.
// Callers that treat a lookup miss as "still in progress" follow this
// convention deliberately: an unindexed transaction must be assumed to
// commit after any finite snapshot, never before it.
func (m *Map) Get(utxnid storage.UTXNID) (lsn.LSN, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.entries[utxnid]
	if !ok {
		return lsn.LSN{}, modsnaperr.NotFound
	}
	return l, nil
}

// DeleteLogfileTxns removes every entry in the named logfile bucket and
// destroys the bucket, updating extremes. Equivalent to calling Remove
// for every utxnid in the bucket, amortized under a single mutex
// acquisition.
func (m *Map) DeleteLogfileTxns(fileNum int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.buckets[fileNum]
	if !ok {
		return modsnaperr.NotFound
	}

	ids := make([]storage.UTXNID, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}

	for _, id := range ids {
		if err := m.removeNoLock(id); err != nil {
			return err
		}
	}

	m.log.Debug().Int32("file_num", fileNum).Int("count", len(ids)).Msg("commit map: reclaimed logfile")

	return nil
}

// GetHighestCheckpointLSN returns the LSN of the most recently
// completed checkpoint.
func (m *Map) GetHighestCheckpointLSN() lsn.LSN {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.highestCheckpointLSN
}

// SetHighestCheckpointLSN atomically records a newly completed
// checkpoint's LSN.
func (m *Map) SetHighestCheckpointLSN(l lsn.LSN) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.highestCheckpointLSN = l
}

// GetModsnapStartLSN returns the largest commit-LSN currently present
// in the map.
func (m *Map) GetModsnapStartLSN() lsn.LSN {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modsnapStartLSN
}

// SetModsnapStartLSN overwrites the largest-commit-LSN watermark.
// Required after removing the entry that held the previous value,
// since the map can no longer answer "what's the highest commit LSN"
// from its own state.
func (m *Map) SetModsnapStartLSN(l lsn.LSN) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modsnapStartLSN = l
}

// SmallestLogfile returns the minimum file_num over non-empty buckets,
// or -1 if the map is empty. The reconstruction engine reads this
// under the map mutex once per reconstruction call to guard against
// concurrent reclamation.
func (m *Map) SmallestLogfile() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.smallestLogfile
}

// HighestLogfile returns the maximum file_num over non-empty buckets,
// or -1 if the map is empty.
func (m *Map) HighestLogfile() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.highestLogfile
}
