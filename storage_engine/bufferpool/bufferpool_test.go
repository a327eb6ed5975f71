package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapcore/storage_engine/filestore"
	"heapcore/storage_engine/page"
	"heapcore/storageerr"
)

func newTestFile(t *testing.T, store *filestore.Store) *filestore.Handle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.heap")
	require.NoError(t, store.CreateFile(path))
	h, err := store.OpenFile(path)
	require.NoError(t, err)
	return h
}

func TestAllocPageThenReadPageIsHit(t *testing.T) {
	store := filestore.New()
	h := newTestFile(t, store)
	m := New(4, store)

	pageNo, pg, err := m.AllocPage(h)
	require.NoError(t, err)
	pg.Data[0] = 0x42
	require.NoError(t, m.UnpinPage(h, pageNo, true))

	before := m.Stats().Hits
	got, err := m.ReadPage(h, pageNo)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), got.Data[0])
	assert.Equal(t, before+1, m.Stats().Hits)
	require.NoError(t, m.UnpinPage(h, pageNo, false))
}

func TestUnpinUnpinnedPageFails(t *testing.T) {
	store := filestore.New()
	h := newTestFile(t, store)
	m := New(4, store)

	pageNo, _, err := m.AllocPage(h)
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(h, pageNo, false))

	err = m.UnpinPage(h, pageNo, false)
	assert.ErrorIs(t, err, storageerr.ErrPageNotPinned)
}

func TestAllPinnedExceedsBuffer(t *testing.T) {
	store := filestore.New()
	h := newTestFile(t, store)
	m := New(2, store)

	_, _, err := m.AllocPage(h)
	require.NoError(t, err)
	_, _, err = m.AllocPage(h)
	require.NoError(t, err)

	_, _, err = m.AllocPage(h)
	assert.ErrorIs(t, err, storageerr.ErrBufferExceeded)
}

func TestClockReplacerCyclesThroughFrames(t *testing.T) {
	store := filestore.New()
	h := newTestFile(t, store)
	m := New(2, store)

	p0, pg0, err := m.AllocPage(h)
	require.NoError(t, err)
	pg0.Data[0] = 1
	require.NoError(t, m.UnpinPage(h, p0, true))

	p1, _, err := m.AllocPage(h)
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(h, p1, false))
	_, err = m.ReadPage(h, p1)
	require.NoError(t, err)

	p2, _, err := m.AllocPage(h)
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(h, p2, false))

	_, err = m.ReadPage(h, p1)
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(h, p1, false))
}

func TestDirtyPageIsWrittenBackOnEviction(t *testing.T) {
	store := filestore.New()
	h := newTestFile(t, store)
	m := New(1, store)

	pageNo, pg, err := m.AllocPage(h)
	require.NoError(t, err)
	pg.Data[5] = 0x77
	require.NoError(t, m.UnpinPage(h, pageNo, true))

	_, _, err = m.AllocPage(h)
	require.NoError(t, err)

	var readBack page.Page
	require.NoError(t, h.ReadPage(pageNo, &readBack))
	assert.Equal(t, byte(0x77), readBack.Data[5])
}

func TestFlushFileFailsIfAnyFramePinned(t *testing.T) {
	store := filestore.New()
	h := newTestFile(t, store)
	m := New(2, store)

	_, _, err := m.AllocPage(h)
	require.NoError(t, err)

	err = m.FlushFile(h)
	assert.ErrorIs(t, err, storageerr.ErrPagePinned)
}
