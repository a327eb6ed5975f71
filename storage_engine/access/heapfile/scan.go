// Sequential scan with an optional equality/inequality predicate over a
// fixed byte offset of each record, plus mark/reset for restartable
// subscans. Grounded in original_source/Stage4/heapfile.C's
// HeapFileScan — with one correction: the original's scanNext restarts
// from curPage->firstRecord() on every call, so after the first match it
// would return the same RID forever rather than advancing. spec.md §8's
// scan-completeness property ("a subsequent full scan returns exactly
// the RIDs whose key satisfies key op v") only holds if each call
// resumes after the previously returned record, so that is what this
// does — curRec anchors the resume point the way the original intended
// but didn't implement.
package heapfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"heapcore/storage_engine/bufferpool"
	"heapcore/storage_engine/filestore"
	"heapcore/storageerr"
)

// Scan specializes a HeapFile with a scan predicate.
type Scan struct {
	*HeapFile

	hasFilter bool
	offset    int
	length    int
	typ       Datatype
	op        Operator
	filter    []byte

	markedPageNo int64
	markedRec    RID
}

// OpenScan opens name as a heap file and wraps it for scanning.
func OpenScan(name string, store *filestore.Store, pool *bufferpool.Manager) (*Scan, error) {
	hf, err := Open(name, store, pool)
	if err != nil {
		return nil, err
	}
	return &Scan{HeapFile: hf, markedPageNo: hf.curPageNo, markedRec: NullRID}, nil
}

// StartScan installs a predicate. Passing a nil filter makes the scan
// match every record. Validates offset/length/type/op per spec.md §4.4,
// failing with ErrBadScanParm on any violation. Integer and float
// filters are 4 bytes (native int32/float32), matching the original's
// sizeof(int)==sizeof(float)==4 assumption.
func (s *Scan) StartScan(offset, length int, typ Datatype, filter []byte, op Operator) error {
	if filter == nil {
		s.hasFilter = false
		return nil
	}

	validType := typ == Integer || typ == Float || typ == String
	validOp := op >= LT && op <= NE
	if offset < 0 || length < 1 || !validType || !validOp || len(filter) != length {
		return storageerr.ErrBadScanParm
	}
	if (typ == Integer || typ == Float) && length != 4 {
		return storageerr.ErrBadScanParm
	}

	s.hasFilter = true
	s.offset = offset
	s.length = length
	s.typ = typ
	s.filter = filter
	s.op = op
	return nil
}

// ScanNext advances to the next matching record without unpinning its
// page — the caller may follow up with GetRecord, MarkDirty or
// DeleteRecord against the returned RID while the page stays pinned.
// Returns ErrFileEOF once there is no next page or no next match.
func (s *Scan) ScanNext() (RID, error) {
	if s.curPage == nil {
		s.curPageNo = firstPage(s.headerPage)
		if s.curPageNo == -1 {
			return NullRID, storageerr.ErrFileEOF
		}
		pg, err := s.pool.ReadPage(s.file, s.curPageNo)
		if err != nil {
			return NullRID, err
		}
		s.curPage = pg
		s.curDirty = false
		s.curRec = NullRID
	}

	for {
		var slot uint16
		var err error
		if s.curRec == NullRID {
			slot, err = FirstRecord(s.curPage)
		} else {
			slot, err = NextRecord(s.curPage, s.curRec.SlotNo)
		}

		for err == nil {
			rec, gerr := GetRecord(s.curPage, slot)
			if gerr != nil {
				return NullRID, gerr
			}
			if s.matchRec(rec) {
				rid := RID{PageNo: s.curPageNo, SlotNo: slot}
				s.curRec = rid
				return rid, nil
			}
			slot, err = NextRecord(s.curPage, slot)
		}

		next := GetNextPage(s.curPage)
		if next == -1 {
			return NullRID, storageerr.ErrFileEOF
		}

		if err := s.pool.UnpinPage(s.file, s.curPageNo, s.curDirty); err != nil {
			return NullRID, err
		}
		pg, err := s.pool.ReadPage(s.file, next)
		if err != nil {
			s.curPage = nil
			s.curPageNo = 0
			return NullRID, err
		}
		s.curPageNo = next
		s.curPage = pg
		s.curDirty = false
		s.curRec = NullRID
	}
}

// matchRec evaluates the scan predicate against rec, per spec.md §4.4.
func (s *Scan) matchRec(rec Record) bool {
	if !s.hasFilter {
		return true
	}
	if s.offset+s.length-1 >= len(rec.Data) {
		return false
	}

	var diff float64
	switch s.typ {
	case Integer:
		attr := int32(binary.LittleEndian.Uint32(rec.Data[s.offset:]))
		fltr := int32(binary.LittleEndian.Uint32(s.filter))
		diff = float64(attr - fltr)
	case Float:
		attr := math.Float32frombits(binary.LittleEndian.Uint32(rec.Data[s.offset:]))
		fltr := math.Float32frombits(binary.LittleEndian.Uint32(s.filter))
		diff = float64(attr - fltr)
	case String:
		diff = float64(bytes.Compare(rec.Data[s.offset:s.offset+s.length], s.filter))
	}

	switch s.op {
	case LT:
		return diff < 0
	case LTE:
		return diff <= 0
	case EQ:
		return diff == 0
	case GTE:
		return diff >= 0
	case GT:
		return diff > 0
	case NE:
		return diff != 0
	}
	return false
}

// MarkScan snapshots the scan's current position.
func (s *Scan) MarkScan() {
	s.markedPageNo = s.curPageNo
	s.markedRec = s.curRec
}

// ResetScan restores the position captured by MarkScan. If the marked
// page differs from the current page, the current page is unpinned and
// the marked one re-pinned (treated as non-dirty immediately after);
// otherwise only curRec rewinds and no I/O happens.
func (s *Scan) ResetScan() error {
	if s.markedPageNo != s.curPageNo {
		if s.curPage != nil {
			if err := s.pool.UnpinPage(s.file, s.curPageNo, s.curDirty); err != nil {
				return err
			}
		}
		s.curPageNo = s.markedPageNo
		s.curRec = s.markedRec
		pg, err := s.pool.ReadPage(s.file, s.curPageNo)
		if err != nil {
			return err
		}
		s.curPage = pg
		s.curDirty = false
		return nil
	}
	s.curRec = s.markedRec
	return nil
}

// EndScan unpins the current page, carrying its dirty flag, and nulls
// the cursor. Idempotent.
func (s *Scan) EndScan() error {
	if s.curPage == nil {
		return nil
	}
	err := s.pool.UnpinPage(s.file, s.curPageNo, s.curDirty)
	s.curPage = nil
	s.curPageNo = 0
	s.curDirty = false
	return err
}

// DeleteRecord deletes the scan's current record, per spec.md §4.4.
func (s *Scan) DeleteRecord() error {
	if s.curPage == nil {
		return fmt.Errorf("heapfile: delete: no current record")
	}
	if err := DeleteRecord(s.curPage, s.curRec.SlotNo); err != nil {
		return err
	}
	s.curDirty = true
	setRecCnt(s.headerPage, recCnt(s.headerPage)-1)
	s.hdrDirty = true
	return nil
}

// MarkDirty flags the scan's current page dirty.
func (s *Scan) MarkDirty() {
	s.curDirty = true
}
