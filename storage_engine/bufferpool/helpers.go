package bufferpool

import (
	"fmt"
	"strings"
)

// Stats reports the pool's current occupancy alongside the original
// design's diskreads/diskwrites counters (see original_source/part3/buf.C's
// bufStats) and an approximate ristretto-derived hit rate.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Capacity:  len(m.descs),
		DiskReads: m.diskReads,
		DiskWrites: m.diskWrites,
		Hits:      m.hits,
		Misses:    m.misses,
	}
	for i := range m.descs {
		if m.descs[i].valid {
			s.ValidPages++
			if m.descs[i].pinCnt > 0 {
				s.PinnedPages++
			}
			if m.descs[i].dirty {
				s.DirtyPages++
			}
		}
	}
	if m.approxHitCache != nil {
		if metrics := m.approxHitCache.Metrics; metrics != nil {
			s.HitRate = metrics.Ratio()
		}
	}
	return s
}

// DumpFrames renders one line per frame, a port of the original's
// BufMgr::printSelf used for debugging pin leaks.
func (m *Manager) DumpFrames() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "buffer pool: %d frames\n", len(m.descs))
	for i := range m.descs {
		d := &m.descs[i]
		fmt.Fprintf(&b, "%d\tpinCnt=%d", i, d.pinCnt)
		if d.valid {
			fmt.Fprintf(&b, "\tvalid\tpage=%d\tdirty=%v\trefBit=%v", d.pageNo, d.dirty, d.refBit)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// NumFrames returns the pool's fixed frame count.
func (m *Manager) NumFrames() int {
	return len(m.descs)
}
