// Insert scan, grounded in original_source/Stage4/heapfile.C's
// InsertFileScan: a HeapFile specialization that keeps the heap file's
// last data page pinned as an insert target and only reaches for a new
// page once that one is full.
package heapfile

import (
	"errors"
	"fmt"

	"heapcore/storage_engine/bufferpool"
	"heapcore/storage_engine/filestore"
	"heapcore/storage_engine/page"
	"heapcore/storageerr"
)

// maxRecordLen is the largest record InsertRecord will accept: a page
// with nothing else on it must still be able to hold one slot plus the
// record itself.
const maxRecordLen = page.Size - headerSize - slotSize

// InsertScan specializes a HeapFile for appending records.
type InsertScan struct {
	*HeapFile
}

// OpenInsertScan opens name as a heap file and wraps it for inserts.
func OpenInsertScan(name string, store *filestore.Store, pool *bufferpool.Manager) (*InsertScan, error) {
	hf, err := Open(name, store, pool)
	if err != nil {
		return nil, err
	}
	return &InsertScan{HeapFile: hf}, nil
}

// InsertRecord appends data to the file's last page, pinning it as the
// current page if it isn't already (OpenInsertScan, like Open, leaves
// the heap file's first data page current, which after a reopen of a
// multi-page file is not necessarily the tail). If the last page has no
// room, a new page is allocated, linked onto the chain, and made the
// new current/last page before retrying — which must then succeed,
// since data already passed the maxRecordLen check against a page with
// zero existing records.
func (s *InsertScan) InsertRecord(data []byte) (RID, error) {
	if len(data) > maxRecordLen {
		return NullRID, storageerr.ErrInvalidRecLen
	}

	lastPageNo := lastPage(s.headerPage)
	if s.curPage == nil || s.curPageNo != lastPageNo {
		if s.curPage != nil {
			if err := s.pool.UnpinPage(s.file, s.curPageNo, s.curDirty); err != nil {
				return NullRID, fmt.Errorf("heapfile: insert: unpin stale current page: %w", err)
			}
			s.curPage = nil
			s.curPageNo = 0
		}
		pg, err := s.pool.ReadPage(s.file, lastPageNo)
		if err != nil {
			return NullRID, fmt.Errorf("heapfile: insert: read last page: %w", err)
		}
		s.curPageNo = lastPageNo
		s.curPage = pg
		s.curDirty = false
	}

	slot, err := InsertRecord(s.curPage, data)
	if err == nil {
		s.curDirty = true
		rid := RID{PageNo: s.curPageNo, SlotNo: slot}
		s.curRec = rid
		setRecCnt(s.headerPage, recCnt(s.headerPage)+1)
		s.hdrDirty = true
		return rid, nil
	}
	if !errors.Is(err, storageerr.ErrNoSpace) {
		return NullRID, err
	}

	oldPageNo := s.curPageNo
	oldPage := s.curPage

	newPageNo, newPage, aerr := s.pool.AllocPage(s.file)
	if aerr != nil {
		return NullRID, fmt.Errorf("heapfile: insert: alloc new page: %w", aerr)
	}
	InitPage(newPage)
	SetNextPage(oldPage, newPageNo)

	if uerr := s.pool.UnpinPage(s.file, oldPageNo, true); uerr != nil {
		return NullRID, fmt.Errorf("heapfile: insert: unpin full page: %w", uerr)
	}

	setLastPage(s.headerPage, newPageNo)
	setPageCnt(s.headerPage, pageCnt(s.headerPage)+1)
	s.hdrDirty = true

	s.curPageNo = newPageNo
	s.curPage = newPage
	s.curDirty = false

	slot, err = InsertRecord(s.curPage, data)
	if err != nil {
		return NullRID, fmt.Errorf("heapfile: insert: retry on fresh page: %w", err)
	}
	s.curDirty = true
	rid := RID{PageNo: s.curPageNo, SlotNo: slot}
	s.curRec = rid
	setRecCnt(s.headerPage, recCnt(s.headerPage)+1)
	return rid, nil
}
