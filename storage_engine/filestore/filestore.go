// Package filestore implements the byte-addressable, page-oriented file
// abstraction the buffer pool and heap file layer treat as an opaque
// external collaborator (spec.md's "file store": AllocatePage, ReadPage,
// WritePage, DisposePage, GetFirstPage).
//
// It is adapted from the teacher's storage_engine/disk_manager, trimmed
// to one concern: each heap file is exactly one OS file, pages are
// numbered locally within that file starting at 0, and there is no
// global page-ID scheme — the global fileID<<32|localNum encoding the
// teacher needs (to let index pages and heap pages from many tables
// share one address space) has no job here, since a Handle always knows
// which file it is.
package filestore

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/zeebo/blake3"

	"heapcore/storage_engine/page"
	"heapcore/storageerr"
)

// Handle is an open file. While a path is open, OpenFile returns the same
// Handle for it; a Handle obtained after the previous one was closed is a
// distinct object — the page index keys on Handle identity
// (pointer-equivalence), never on path, matching spec.md §4.1.
type Handle struct {
	path string
	f    *os.File

	mu        sync.Mutex
	numPages  int64 // pages currently allocated (may include disposed holes)
	disposed  map[int64]bool
}

// Each page is written to disk as a record of checksumSize bytes of
// BLAKE3 checksum of the payload followed by the Size bytes of page content.
// This is new behavior beyond spec.md's file store (which leaves the
// on-disk format of pages unspecified) — it gives the "external
// collaborator" a concrete integrity check without touching any
// in-scope semantics: a checksum failure surfaces as storageerr.ErrUnix,
// the same error the spec already uses for I/O failures.
const checksumSize = 32 // blake3.Size

func onDiskRecordSize() int64 {
	return int64(checksumSize + page.Size)
}

// Store owns the set of open Handles. It has no buffer-pool knowledge —
// every call reads or writes straight through to disk.
type Store struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// New returns an empty Store.
func New() *Store {
	return &Store{handles: make(map[string]*Handle)}
}

// CreateFile creates a new, empty backing file. Returns ErrFileExists if
// the file is already present.
func (s *Store) CreateFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return storageerr.ErrFileExists
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			return storageerr.ErrFileExists
		}
		return fmt.Errorf("filestore: create %s: %w", path, err)
	}
	return f.Close()
}

// DestroyFile removes the backing file entirely. It is an error to
// destroy a file that has an open Handle.
func (s *Store) DestroyFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, open := s.handles[path]; open {
		return fmt.Errorf("filestore: destroy %s: file is open", path)
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return storageerr.ErrFileNotFound
		}
		return fmt.Errorf("filestore: destroy %s: %w", path, err)
	}
	return nil
}

// OpenFile opens an existing backing file and returns a Handle to it.
func (s *Store) OpenFile(path string) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.handles[path]; ok {
		return h, nil
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storageerr.ErrFileNotFound
		}
		return nil, fmt.Errorf("filestore: open %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("filestore: stat %s: %w", path, err)
	}

	h := &Handle{
		path:     path,
		f:        f,
		numPages: stat.Size() / onDiskRecordSize(),
		disposed: make(map[int64]bool),
	}
	s.handles[path] = h
	return h, nil
}

// CloseFile flushes and closes a Handle. The backing file's pages
// survive the close; only the in-process Handle goes away.
func (s *Store) CloseFile(h *Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.f.Sync(); err != nil {
		return fmt.Errorf("filestore: sync %s: %w", h.path, err)
	}
	if err := h.f.Close(); err != nil {
		return fmt.Errorf("filestore: close %s: %w", h.path, err)
	}
	delete(s.handles, h.path)
	return nil
}

// AllocatePage grows the file by one page and returns its page number.
// The page is not written until the caller's first WritePage.
func (h *Handle) AllocatePage() (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pageNo := h.numPages
	h.numPages++
	return pageNo, nil
}

// DisposePage marks a page number as reclaimed. The core never reuses a
// disposed page number; the hole is simply never read again.
func (h *Handle) DisposePage(pageNo int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if pageNo < 0 || pageNo >= h.numPages {
		return fmt.Errorf("filestore: dispose: page %d out of range", pageNo)
	}
	h.disposed[pageNo] = true
	return nil
}

// GetFirstPage returns the page number of page 0 — the file-header page
// by convention of every caller in this module.
func (h *Handle) GetFirstPage() (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.numPages == 0 {
		return 0, fmt.Errorf("filestore: %s has no pages", h.path)
	}
	return 0, nil
}

// ReadPage reads pageNo into pg, verifying its checksum.
func (h *Handle) ReadPage(pageNo int64, pg *page.Page) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if pageNo < 0 || pageNo >= h.numPages {
		return fmt.Errorf("filestore: read: page %d out of range", pageNo)
	}
	if h.disposed[pageNo] {
		return fmt.Errorf("filestore: read: page %d was disposed", pageNo)
	}

	buf := make([]byte, onDiskRecordSize())
	off := pageNo * onDiskRecordSize()
	n, err := h.f.ReadAt(buf, off)
	if err != nil && n != len(buf) {
		// A page that was allocated but never written back yet (still
		// only resident in a dirty buffer frame) reads as all zero.
		if n == 0 {
			zero(pg)
			return nil
		}
		return fmt.Errorf("%w: filestore: read page %d: %v", storageerr.ErrUnix, pageNo, err)
	}

	sum := buf[:checksumSize]
	payload := buf[checksumSize:]
	got := blake3.Sum256(payload)
	if !bytes.Equal(sum, got[:]) {
		return fmt.Errorf("%w: filestore: page %d failed checksum", storageerr.ErrUnix, pageNo)
	}
	copy(pg.Data[:], payload)
	return nil
}

// WritePage writes pg to pageNo, stamping a fresh checksum.
func (h *Handle) WritePage(pageNo int64, pg *page.Page) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if pageNo < 0 {
		return fmt.Errorf("filestore: write: negative page %d", pageNo)
	}

	sum := blake3.Sum256(pg.Data[:])
	buf := make([]byte, onDiskRecordSize())
	copy(buf, sum[:])
	copy(buf[checksumSize:], pg.Data[:])

	off := pageNo * onDiskRecordSize()
	if _, err := h.f.WriteAt(buf, off); err != nil {
		return fmt.Errorf("%w: filestore: write page %d: %v", storageerr.ErrUnix, pageNo, err)
	}
	if pageNo >= h.numPages {
		h.numPages = pageNo + 1
	}
	delete(h.disposed, pageNo)
	return nil
}

func zero(pg *page.Page) {
	for i := range pg.Data {
		pg.Data[i] = 0
	}
}
