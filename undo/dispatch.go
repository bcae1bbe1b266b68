package undo

import (
	"github.com/luigitni/modsnap/internal/modsnaperr"
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
)

// Decode is the record dispatcher: it reads the common header,
// normalizes the file-id-logging bias, rejects unknown types and
// records with no externally unique transaction id (not eligible for
// snapshot use), and routes the remaining payload bytes to the decoder
// of the named family.
//
// Colocated with the handlers in this same package rather than split
// out as its own package: a separate dispatcher package would need to
// import every per-family constructor, and every per-family file would
// need to import the dispatcher's RecType-keyed registration helper
// back, an import cycle a flat one-package-per-concern layout avoids
// entirely.
func Decode(raw []byte) (Record, error) {
	h, r, err := logrecord.ParseHeader(raw)
	if err != nil {
		return nil, err
	}

	if h.UTXNID == storage.InternalUTXNID {
		return nil, modsnaperr.Wrapf(modsnaperr.LogCorrupt, "undo: record of type %s carries no unique transaction id", h.Type)
	}

	b, err := decodeBase(h, r)
	if err != nil {
		return nil, err
	}

	switch h.Type {
	case logrecord.AddRemove:
		return decodeAddRemove(b, r)
	case logrecord.BigRecord:
		return decodeBigRecord(b, r)
	case logrecord.OverflowRefcount:
		return decodeOverflowRefcount(b, r)
	case logrecord.Relink:
		return decodeRelink(b, r)
	case logrecord.PageAlloc:
		return decodePageAlloc(b, r)
	case logrecord.PageFree:
		return decodePageFree(b, r)
	case logrecord.PageFreeData:
		return decodePageFreeData(b, r)
	case logrecord.BTreeSplit:
		return decodeBTreeSplit(b, r)
	case logrecord.BTreeReverseSplit:
		return decodeBTreeReverseSplit(b, r)
	case logrecord.BTreeReplace:
		return decodeBTreeReplace(b, r)
	case logrecord.BTreeAdjust:
		return decodeBTreeAdjust(b, r)
	case logrecord.BTreeCountAdjust:
		return decodeBTreeCountAdjust(b, r)
	case logrecord.BTreeCursorDelete:
		return decodeBTreeCursorDelete(b, r)
	case logrecord.BTreePrefix:
		return decodeBTreePrefix(b, r)
	default:
		// Unreachable: logrecord.ParseHeader already rejected anything
		// outside its knownTypes table.
		return nil, modsnaperr.Wrapf(modsnaperr.UnknownRecord, "undo: unhandled record type %s", h.Type)
	}
}

// decodeBase reads the fields every family shares after the common
// header: the target page number, and the owning file id when the
// record was logged in file-id-logging mode.
func decodeBase(h logrecord.Header, r *logrecord.Reader) (base, error) {
	pageNo, err := r.ReadPageNo()
	if err != nil {
		return base{}, err
	}

	b := base{
		op:            h.Type,
		txID:          h.TxID,
		utxnid:        h.UTXNID,
		prevLSN:       h.PrevLSN,
		pageNo:        pageNo,
		fileIDLogging: h.FileIDLogging,
	}

	if h.FileIDLogging {
		fileID, err := r.ReadFileID()
		if err != nil {
			return base{}, err
		}
		b.fileID = fileID
	}

	return b, nil
}
