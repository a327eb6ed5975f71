// Package bufferpool implements the fixed-size buffer pool: a dense
// array of frames, a parallel array of descriptors, a page index, and a
// clock-algorithm replacer. This is the teacher's BufferPool rewritten
// from LRU (a map plus an access-order slice) to the exact clock
// algorithm spec.md §4.2 requires, with pins, dirty bits and ref bits
// tracked in frameDesc instead of on the page itself.
//
// Logging keeps the teacher's own "[BufferPool] ..." fmt.Printf
// convention — nothing in this dependency tree pulls in a structured
// logging library, so neither does this.
package bufferpool

import (
	"fmt"
	"log"
	"unsafe"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dustin/go-humanize"

	"heapcore/storage_engine/filestore"
	"heapcore/storage_engine/page"
	"heapcore/storage_engine/pageindex"
	"heapcore/storageerr"
)

// Verbose turns on the teacher-style per-operation trace lines. Off by
// default; neither the tests nor the demo driver turn it on.
var Verbose = false

func trace(format string, args ...any) {
	if Verbose {
		fmt.Printf("[BufferPool] "+format+"\n", args...)
	}
}

// New builds a pool of numFrames frames backed by store.
func New(numFrames int, store *filestore.Store) *Manager {
	cache, err := ristretto.NewCache(&ristretto.Config[int64, struct{}]{
		NumCounters: int64(numFrames) * 10,
		MaxCost:     int64(numFrames) * 10,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		// telemetry is optional; a construction failure here must never
		// block the pool from working.
		cache = nil
	}

	m := &Manager{
		frames:         make([]page.Page, numFrames),
		descs:          make([]frameDesc, numFrames),
		index:          pageindex.New(numFrames),
		store:          store,
		clockHand:      numFrames - 1,
		approxHitCache: cache,
	}
	for i := range m.descs {
		m.descs[i].frameNo = i
	}
	return m
}

func handleKey(file *filestore.Handle, pageNo int64) pageindex.Key {
	return pageindex.Key{File: uintptr(unsafe.Pointer(file)), PageNo: pageNo}
}

// ReadPage pins the page (file, pageNo), loading it from the file store
// on a miss. The returned *page.Page aliases pool storage and is only
// valid while pinned.
func (m *Manager) ReadPage(file *filestore.Handle, pageNo int64) (*page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := handleKey(file, pageNo)
	if frameNo, err := m.index.Lookup(key); err == nil {
		d := &m.descs[frameNo]
		d.refBit = true
		d.pinCnt++
		m.hits++
		m.recordTelemetry(pageNo, true)
		trace("HIT  file=%p page=%d frame=%d pinCnt=%d", file, pageNo, frameNo, d.pinCnt)
		return &m.frames[frameNo], nil
	}

	frameNo, err := m.allocBuf()
	if err != nil {
		return nil, err
	}
	m.misses++
	m.recordTelemetry(pageNo, false)

	if err := file.ReadPage(pageNo, &m.frames[frameNo]); err != nil {
		return nil, err
	}
	m.diskReads++

	if err := m.index.Insert(key, frameNo); err != nil {
		return nil, err
	}
	d := &m.descs[frameNo]
	d.file = file
	d.pageNo = pageNo
	d.pinCnt = 1
	d.refBit = true
	d.dirty = false
	d.valid = true

	trace("MISS file=%p page=%d frame=%d — loaded from disk", file, pageNo, frameNo)
	return &m.frames[frameNo], nil
}

func (m *Manager) recordTelemetry(pageNo int64, hit bool) {
	if m.approxHitCache == nil {
		return
	}
	m.approxHitCache.Get(pageNo)
	if !hit {
		m.approxHitCache.Set(pageNo, struct{}{}, 1)
	}
}

// UnpinPage decrements the pin count for (file, pageNo). If dirtyHint is
// true, the frame's dirty bit is set — it is never cleared here; dirty
// bits only clear on write-back or FlushFile, per spec.md §5.
func (m *Manager) UnpinPage(file *filestore.Handle, pageNo int64, dirtyHint bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameNo, err := m.index.Lookup(handleKey(file, pageNo))
	if err != nil {
		return err
	}
	d := &m.descs[frameNo]
	if d.pinCnt == 0 {
		return storageerr.ErrPageNotPinned
	}
	d.pinCnt--
	if dirtyHint {
		d.dirty = true
	}
	return nil
}

// AllocPage asks the file store for a new page, pins a frame for it and
// returns both the page number and the (zeroed) page.
func (m *Manager) AllocPage(file *filestore.Handle) (int64, *page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pageNo, err := file.AllocatePage()
	if err != nil {
		return 0, nil, err
	}

	frameNo, err := m.allocBuf()
	if err != nil {
		return 0, nil, err
	}

	if err := m.index.Insert(handleKey(file, pageNo), frameNo); err != nil {
		return 0, nil, err
	}

	d := &m.descs[frameNo]
	d.file = file
	d.pageNo = pageNo
	d.pinCnt = 1
	d.refBit = true
	d.dirty = false
	d.valid = true

	for i := range m.frames[frameNo].Data {
		m.frames[frameNo].Data[i] = 0
	}

	trace("ALLOC file=%p page=%d frame=%d", file, pageNo, frameNo)
	return pageNo, &m.frames[frameNo], nil
}

// DisposePage evicts (file, pageNo) from the pool if present and forwards
// to the file store's DisposePage.
func (m *Manager) DisposePage(file *filestore.Handle, pageNo int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := handleKey(file, pageNo)
	if frameNo, err := m.index.Lookup(key); err == nil {
		m.descs[frameNo] = frameDesc{frameNo: frameNo}
		if err := m.index.Remove(key); err != nil {
			return err
		}
	}
	return file.DisposePage(pageNo)
}

// FlushFile writes back every dirty, valid frame belonging to file and
// removes it from the index. Returns ErrPagePinned without changing any
// state if a pinned frame belongs to file.
func (m *Manager) FlushFile(file *filestore.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.descs {
		d := &m.descs[i]
		if d.valid && d.file == file {
			if d.pinCnt > 0 {
				return storageerr.ErrPagePinned
			}
		}
	}

	for i := range m.descs {
		d := &m.descs[i]
		if d.valid && d.file == file {
			if d.dirty {
				trace("FLUSH file=%p page=%d frame=%d", d.file, d.pageNo, d.frameNo)
				if err := file.WritePage(d.pageNo, &m.frames[i]); err != nil {
					return err
				}
				m.diskWrites++
				d.dirty = false
			}
			if err := m.index.Remove(handleKey(d.file, d.pageNo)); err != nil {
				return err
			}
			*d = frameDesc{frameNo: d.frameNo}
		} else if !d.valid && d.file == file {
			return storageerr.ErrBadBuffer
		}
	}
	return nil
}

// allocBuf runs the clock algorithm to select a free frame, evicting a
// victim and writing it back if dirty. The pre-scan for "every frame
// pinned" is required — without it the main loop can spin forever
// clearing ref bits on a fully-pinned pool (spec.md §4.2, §9).
func (m *Manager) allocBuf() (int, error) {
	exceeded := true
	for i := range m.descs {
		if m.descs[i].pinCnt == 0 {
			exceeded = false
			break
		}
	}
	if exceeded {
		return 0, storageerr.ErrBufferExceeded
	}

	n := len(m.descs)
	for {
		m.clockHand = (m.clockHand + 1) % n
		d := &m.descs[m.clockHand]

		if !d.valid {
			return m.clockHand, nil
		}
		if d.refBit {
			d.refBit = false
			continue
		}
		if d.pinCnt > 0 {
			continue
		}
		if d.dirty {
			if err := d.file.WritePage(d.pageNo, &m.frames[m.clockHand]); err != nil {
				return 0, fmt.Errorf("%w: %v", storageerr.ErrUnix, err)
			}
			m.diskWrites++
			d.dirty = false
		}
		if err := m.index.Remove(handleKey(d.file, d.pageNo)); err != nil {
			return 0, err
		}
		frameNo := m.clockHand
		m.descs[frameNo] = frameDesc{frameNo: frameNo}
		return frameNo, nil
	}
}

// Close tears down the pool: every valid, dirty frame is written back
// directly through the file store, with no pin check — mirroring the
// original destructor's unconditional flush. Like a destructor, it does
// not propagate write-back failures: each one is logged, the remaining
// frames are still written, and Close returns nil.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.descs {
		d := &m.descs[i]
		if d.valid && d.dirty {
			trace("CLOSE flushing file=%p page=%d frame=%d (%s)",
				d.file, d.pageNo, d.frameNo, humanize.Bytes(page.Size))
			if err := d.file.WritePage(d.pageNo, &m.frames[i]); err != nil {
				log.Printf("bufferpool: write back page %d on close: %v", d.pageNo, err)
				continue
			}
			m.diskWrites++
		}
	}
	return nil
}
