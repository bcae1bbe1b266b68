package logrecord_test

import (
	"testing"

	"github.com/luigitni/modsnap/internal/modsnaperr"
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/lsn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	w := &logrecord.Writer{}
	h := logrecord.Header{
		Type:    logrecord.AddRemove,
		TxID:    storage.TxID(5),
		PrevLSN: lsn.LSN{File: 2, Offset: 99},
		UTXNID:  storage.UTXNID(777),
	}
	logrecord.WriteHeader(w, h)

	got, r, err := logrecord.ParseHeader(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.Empty(t, r.Remaining())
}

func TestFileIDLoggingBias(t *testing.T) {
	w := &logrecord.Writer{}
	h := logrecord.Header{
		Type:          logrecord.Relink,
		TxID:          1,
		PrevLSN:       lsn.LSN{File: 1, Offset: 1},
		UTXNID:        storage.UTXNID(1),
		FileIDLogging: true,
	}
	logrecord.WriteHeader(w, h)

	got, _, err := logrecord.ParseHeader(w.Bytes())
	require.NoError(t, err)
	assert.True(t, got.FileIDLogging)
	assert.Equal(t, logrecord.Relink, got.Type)
}

func TestUnknownRecordType(t *testing.T) {
	w := &logrecord.Writer{}
	logrecord.WriteHeader(w, logrecord.Header{Type: logrecord.RecType(999), UTXNID: 1})

	_, _, err := logrecord.ParseHeader(w.Bytes())
	require.Error(t, err)
	assert.True(t, modsnaperr.Is(err, modsnaperr.UnknownRecord))
}

func TestTooShortRecord(t *testing.T) {
	_, _, err := logrecord.ParseHeader([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, modsnaperr.Is(err, modsnaperr.LogCorrupt))
}

func TestVarBytesRoundTrip(t *testing.T) {
	w := &logrecord.Writer{}
	w.WriteVarBytes([]byte("hello world"))

	r := logrecord.NewReader(w.Bytes())
	got, err := r.ReadVarBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), got)
}
