package heapfile

import (
	"errors"
	"fmt"
	"log"

	"heapcore/storage_engine/bufferpool"
	"heapcore/storage_engine/filestore"
	"heapcore/storageerr"
)

// Create initializes a brand-new heap file: a header page plus one empty
// data page, mirroring original_source/Stage4/heapfile.C's
// createHeapFile. Returns ErrFileExists if name is already present.
func Create(name string, store *filestore.Store, pool *bufferpool.Manager) error {
	if h, err := store.OpenFile(name); err == nil {
		store.CloseFile(h)
		return storageerr.ErrFileExists
	} else if !errors.Is(err, storageerr.ErrFileNotFound) {
		return err
	}

	if err := store.CreateFile(name); err != nil {
		return fmt.Errorf("heapfile: create %s: %w", name, err)
	}
	h, err := store.OpenFile(name)
	if err != nil {
		return fmt.Errorf("heapfile: open after create %s: %w", name, err)
	}

	hdrPageNo, hdrPg, err := pool.AllocPage(h)
	if err != nil {
		return fmt.Errorf("heapfile: alloc header page: %w", err)
	}
	initHeader(hdrPg, name)

	dataPageNo, dataPg, err := pool.AllocPage(h)
	if err != nil {
		return fmt.Errorf("heapfile: alloc first data page: %w", err)
	}
	InitPage(dataPg)

	setFirstPage(hdrPg, dataPageNo)
	setLastPage(hdrPg, dataPageNo)
	setPageCnt(hdrPg, 1)

	if err := pool.UnpinPage(h, hdrPageNo, true); err != nil {
		return fmt.Errorf("heapfile: unpin header page: %w", err)
	}
	if err := pool.UnpinPage(h, dataPageNo, true); err != nil {
		return fmt.Errorf("heapfile: unpin first data page: %w", err)
	}
	if err := pool.FlushFile(h); err != nil {
		return fmt.Errorf("heapfile: flush %s: %w", name, err)
	}
	return store.CloseFile(h)
}

// Destroy removes a heap file's backing file entirely.
func Destroy(name string, store *filestore.Store) error {
	return store.DestroyFile(name)
}

// Open pins the header page and the first data page and returns a ready
// HeapFile, mirroring the original HeapFile constructor.
func Open(name string, store *filestore.Store, pool *bufferpool.Manager) (*HeapFile, error) {
	h, err := store.OpenFile(name)
	if err != nil {
		return nil, fmt.Errorf("heapfile: open %s: %w", name, err)
	}

	headerPageNo, err := h.GetFirstPage()
	if err != nil {
		return nil, fmt.Errorf("heapfile: get first page of %s: %w", name, err)
	}
	headerPage, err := pool.ReadPage(h, headerPageNo)
	if err != nil {
		return nil, fmt.Errorf("heapfile: read header page of %s: %w", name, err)
	}

	curPageNo := firstPage(headerPage)
	curPage, err := pool.ReadPage(h, curPageNo)
	if err != nil {
		return nil, fmt.Errorf("heapfile: read first data page of %s: %w", name, err)
	}

	return &HeapFile{
		store:        store,
		pool:         pool,
		file:         h,
		headerPageNo: headerPageNo,
		headerPage:   headerPage,
		curPageNo:    curPageNo,
		curPage:      curPage,
		curRec:       NullRID,
	}, nil
}

// Close unpins the current and header pages, carrying their dirty
// flags, then closes the underlying file. Like the original's
// destructor, it cannot propagate errors — it logs them instead
// (spec.md §4.3, §7).
func (hf *HeapFile) Close() {
	if hf.curPage != nil {
		if err := hf.pool.UnpinPage(hf.file, hf.curPageNo, hf.curDirty); err != nil {
			log.Printf("heapfile: unpin data page on close: %v", err)
		}
		hf.curPage = nil
		hf.curPageNo = 0
		hf.curDirty = false
	}

	if err := hf.pool.UnpinPage(hf.file, hf.headerPageNo, hf.hdrDirty); err != nil {
		log.Printf("heapfile: unpin header page on close: %v", err)
	}

	if err := hf.pool.FlushFile(hf.file); err != nil {
		log.Printf("heapfile: flush on close: %v", err)
	}

	if err := hf.store.CloseFile(hf.file); err != nil {
		log.Printf("heapfile: close file on close: %v", err)
	}
}

// GetRecCnt returns the number of live records in the file.
func (hf *HeapFile) GetRecCnt() int64 {
	return recCnt(hf.headerPage)
}

// GetRecord retrieves an arbitrary record by RID. If rid is not on the
// currently pinned page, the current page is unpinned and the requested
// page is read and pinned in its place.
func (hf *HeapFile) GetRecord(rid RID) (Record, error) {
	if rid.PageNo == hf.curPageNo {
		rec, err := GetRecord(hf.curPage, rid.SlotNo)
		hf.curRec = rid
		return rec, err
	}

	if err := hf.pool.UnpinPage(hf.file, hf.curPageNo, hf.curDirty); err != nil {
		return Record{}, err
	}

	newPage, err := hf.pool.ReadPage(hf.file, rid.PageNo)
	if err != nil {
		hf.curPage = nil
		hf.curPageNo = 0
		return Record{}, err
	}

	hf.curPage = newPage
	hf.curPageNo = rid.PageNo
	hf.curDirty = false
	hf.curRec = rid
	return GetRecord(hf.curPage, rid.SlotNo)
}
