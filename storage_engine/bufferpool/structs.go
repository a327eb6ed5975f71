package bufferpool

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"heapcore/storage_engine/filestore"
	"heapcore/storage_engine/page"
	"heapcore/storage_engine/pageindex"
)

// frameDesc is the per-frame bookkeeping the spec calls the "buffer
// descriptor" — kept in a parallel array to the raw pages, the way the
// original BufDesc/Page split keeps metadata out of the page bytes.
type frameDesc struct {
	file    *filestore.Handle
	pageNo  int64
	pinCnt  int
	dirty   bool
	valid   bool
	refBit  bool
	frameNo int
}

// Manager is the fixed-size buffer pool: N frames, N descriptors, a page
// index, and a clock hand. Works on a single file store and is meant to
// be constructed once and threaded into every HeapFile opened against
// it — it is process-wide state, per spec.md §4.2/§9.
type Manager struct {
	mu sync.Mutex

	frames []page.Page
	descs  []frameDesc
	index  *pageindex.Index
	store  *filestore.Store

	clockHand int

	// telemetry only — never consulted by allocBuf.
	hits, misses   int64
	diskReads      int64
	diskWrites     int64
	approxHitCache *ristretto.Cache[int64, struct{}]
}

// Stats is the buffer pool's diagnostic snapshot, a direct port of the
// original's bufStats counters plus the pin/dirty counts the teacher's
// own (never-populated) BufferPoolStats declares.
type Stats struct {
	Capacity    int
	PinnedPages int
	DirtyPages  int
	ValidPages  int
	DiskReads   int64
	DiskWrites  int64
	Hits        int64
	Misses      int64
	// HitRate is an approximate, ristretto-derived hit ratio — independent
	// telemetry alongside the exact Hits/Misses counters above, never
	// consulted by the clock replacer.
	HitRate float64
}
