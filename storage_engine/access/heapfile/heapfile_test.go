package heapfile

import (
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapcore/storage_engine/bufferpool"
	"heapcore/storage_engine/filestore"
	"heapcore/storageerr"
)

func newTestStore(t *testing.T) (*filestore.Store, *bufferpool.Manager, string) {
	t.Helper()
	store := filestore.New()
	pool := bufferpool.New(32, store)
	name := filepath.Join(t.TempDir(), "t.heap")
	return store, pool, name
}

func intRecord(v int32) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func TestCreateOpenClose(t *testing.T) {
	store, pool, name := newTestStore(t)
	require.NoError(t, Create(name, store, pool))
	assert.ErrorIs(t, Create(name, store, pool), storageerr.ErrFileExists)

	hf, err := Open(name, store, pool)
	require.NoError(t, err)
	assert.Equal(t, int64(0), hf.GetRecCnt())
	hf.Close()
}

func TestInsertAndGetRecord(t *testing.T) {
	store, pool, name := newTestStore(t)
	require.NoError(t, Create(name, store, pool))

	ins, err := OpenInsertScan(name, store, pool)
	require.NoError(t, err)

	var rids []RID
	for i := int32(0); i < 10; i++ {
		rid, err := ins.InsertRecord(intRecord(i))
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	assert.EqualValues(t, 10, ins.GetRecCnt())
	ins.Close()

	hf, err := Open(name, store, pool)
	require.NoError(t, err)
	defer hf.Close()

	for i, rid := range rids {
		rec, err := hf.GetRecord(rid)
		require.NoError(t, err)
		assert.Equal(t, int32(i), int32(binary.LittleEndian.Uint32(rec.Data)))
	}
}

func TestInsertRejectsOversizeRecord(t *testing.T) {
	store, pool, name := newTestStore(t)
	require.NoError(t, Create(name, store, pool))

	ins, err := OpenInsertScan(name, store, pool)
	require.NoError(t, err)
	defer ins.Close()

	_, err = ins.InsertRecord(make([]byte, maxRecordLen+1))
	assert.ErrorIs(t, err, storageerr.ErrInvalidRecLen)
}

func TestInsertSpillsToNewPage(t *testing.T) {
	store, pool, name := newTestStore(t)
	require.NoError(t, Create(name, store, pool))

	ins, err := OpenInsertScan(name, store, pool)
	require.NoError(t, err)

	recSize := 200
	n := 200
	for i := 0; i < n; i++ {
		data := make([]byte, recSize)
		binary.LittleEndian.PutUint32(data, uint32(i))
		_, err := ins.InsertRecord(data)
		require.NoError(t, err)
	}
	assert.EqualValues(t, n, ins.GetRecCnt())
	ins.Close()

	scan, err := OpenScan(name, store, pool)
	require.NoError(t, err)
	defer func() { scan.EndScan(); scan.Close() }()
	require.NoError(t, scan.StartScan(0, 0, Integer, nil, EQ))

	count := 0
	for {
		_, err := scan.ScanNext()
		if errors.Is(err, storageerr.ErrFileEOF) {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, n, count)
}

func TestScanWithPredicateMatchesExpectedCount(t *testing.T) {
	store, pool, name := newTestStore(t)
	require.NoError(t, Create(name, store, pool))

	ins, err := OpenInsertScan(name, store, pool)
	require.NoError(t, err)
	for i := int32(0); i < 50; i++ {
		_, err := ins.InsertRecord(intRecord(i))
		require.NoError(t, err)
	}
	ins.Close()

	scan, err := OpenScan(name, store, pool)
	require.NoError(t, err)
	defer func() { scan.EndScan(); scan.Close() }()

	filter := make([]byte, 4)
	binary.LittleEndian.PutUint32(filter, uint32(25))
	require.NoError(t, scan.StartScan(0, 4, Integer, filter, GTE))

	count := 0
	for {
		_, err := scan.ScanNext()
		if errors.Is(err, storageerr.ErrFileEOF) {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 25, count)
}

func TestDeleteRecordTombstonesRIDStaysInvalid(t *testing.T) {
	store, pool, name := newTestStore(t)
	require.NoError(t, Create(name, store, pool))

	ins, err := OpenInsertScan(name, store, pool)
	require.NoError(t, err)
	rid, err := ins.InsertRecord(intRecord(1))
	require.NoError(t, err)
	ins.Close()

	scan, err := OpenScan(name, store, pool)
	require.NoError(t, err)
	require.NoError(t, scan.StartScan(0, 0, Integer, nil, EQ))

	got, err := scan.ScanNext()
	require.NoError(t, err)
	assert.Equal(t, rid, got)
	require.NoError(t, scan.DeleteRecord())
	require.NoError(t, scan.EndScan())
	scan.Close()

	hf, err := Open(name, store, pool)
	require.NoError(t, err)
	defer hf.Close()
	assert.EqualValues(t, 0, hf.GetRecCnt())
	_, err = hf.GetRecord(rid)
	assert.Error(t, err)
}

func TestMarkAndResetScanRewindsCursor(t *testing.T) {
	store, pool, name := newTestStore(t)
	require.NoError(t, Create(name, store, pool))

	ins, err := OpenInsertScan(name, store, pool)
	require.NoError(t, err)
	for i := int32(0); i < 5; i++ {
		_, err := ins.InsertRecord(intRecord(i))
		require.NoError(t, err)
	}
	ins.Close()

	scan, err := OpenScan(name, store, pool)
	require.NoError(t, err)
	defer func() { scan.EndScan(); scan.Close() }()
	require.NoError(t, scan.StartScan(0, 0, Integer, nil, EQ))

	first, err := scan.ScanNext()
	require.NoError(t, err)
	scan.MarkScan()

	second, err := scan.ScanNext()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	require.NoError(t, scan.ResetScan())
	again, err := scan.ScanNext()
	require.NoError(t, err)
	assert.Equal(t, second, again)
}

// TestInsertAfterReopenAppendsToTrueTail covers an InsertScan reopened
// against a file whose header's last page is not its first — Open
// always pins the first data page as current, so InsertRecord must
// find its own way to header.last_page rather than spilling off
// whatever page happened to be pinned by Open.
func TestInsertAfterReopenAppendsToTrueTail(t *testing.T) {
	store, pool, name := newTestStore(t)
	require.NoError(t, Create(name, store, pool))

	recSize := 200
	ins, err := OpenInsertScan(name, store, pool)
	require.NoError(t, err)
	for i := 0; i < 30; i++ {
		data := make([]byte, recSize)
		binary.LittleEndian.PutUint32(data, uint32(i))
		_, err := ins.InsertRecord(data)
		require.NoError(t, err)
	}
	firstPageAfterFirstBatch := firstPage(ins.headerPage)
	lastPageAfterFirstBatch := lastPage(ins.headerPage)
	require.NotEqual(t, firstPageAfterFirstBatch, lastPageAfterFirstBatch)
	ins.Close()

	ins2, err := OpenInsertScan(name, store, pool)
	require.NoError(t, err)
	require.Equal(t, firstPageAfterFirstBatch, ins2.curPageNo)
	for i := 30; i < 60; i++ {
		data := make([]byte, recSize)
		binary.LittleEndian.PutUint32(data, uint32(i))
		_, err := ins2.InsertRecord(data)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 60, ins2.GetRecCnt())
	ins2.Close()

	hf, err := Open(name, store, pool)
	require.NoError(t, err)
	defer hf.Close()

	seen := map[int64]bool{}
	pageNo := firstPage(hf.headerPage)
	for pageNo != -1 {
		pg, err := pool.ReadPage(hf.file, pageNo)
		require.NoError(t, err)
		slot, serr := FirstRecord(pg)
		for serr == nil {
			rec, gerr := GetRecord(pg, slot)
			require.NoError(t, gerr)
			seen[int64(binary.LittleEndian.Uint32(rec.Data))] = true
			slot, serr = NextRecord(pg, slot)
		}
		next := GetNextPage(pg)
		require.NoError(t, pool.UnpinPage(hf.file, pageNo, false))
		pageNo = next
	}
	require.Len(t, seen, 60)
	for i := int64(0); i < 60; i++ {
		assert.True(t, seen[i], "record %d missing from chain — chain was likely orphaned", i)
	}
}
