// File-header page layout: page 0 of every heap file. Holds the fields
// spec.md §3/§6 names — file name, first/last data page, page count,
// record count — none of which belong to the slotted-page format, so
// this is a separate, simpler layout from slottedpage.go.
package heapfile

import (
	"encoding/binary"

	"heapcore/storage_engine/page"
)

const (
	hdrOffFirstPage = 0
	hdrOffLastPage  = 8
	hdrOffPageCnt   = 16
	hdrOffRecCnt    = 24
	hdrOffNameLen   = 32
	hdrOffName      = 34
)

// initHeader stamps a fresh header page for a brand-new heap file.
func initHeader(pg *page.Page, fileName string) {
	for i := range pg.Data {
		pg.Data[i] = 0
	}
	setFirstPage(pg, -1)
	setLastPage(pg, -1)
	setPageCnt(pg, 0)
	setRecCnt(pg, 0)
	setFileName(pg, fileName)
}

func setFileName(pg *page.Page, name string) {
	b := []byte(name)
	if len(b) > page.Size-hdrOffName {
		b = b[:page.Size-hdrOffName]
	}
	binary.LittleEndian.PutUint16(pg.Data[hdrOffNameLen:], uint16(len(b)))
	copy(pg.Data[hdrOffName:], b)
}

func fileName(pg *page.Page) string {
	n := binary.LittleEndian.Uint16(pg.Data[hdrOffNameLen:])
	return string(pg.Data[hdrOffName : hdrOffName+int(n)])
}

func firstPage(pg *page.Page) int64 {
	return int64(binary.LittleEndian.Uint64(pg.Data[hdrOffFirstPage:]))
}
func setFirstPage(pg *page.Page, v int64) {
	binary.LittleEndian.PutUint64(pg.Data[hdrOffFirstPage:], uint64(v))
}

func lastPage(pg *page.Page) int64 {
	return int64(binary.LittleEndian.Uint64(pg.Data[hdrOffLastPage:]))
}
func setLastPage(pg *page.Page, v int64) {
	binary.LittleEndian.PutUint64(pg.Data[hdrOffLastPage:], uint64(v))
}

func pageCnt(pg *page.Page) int64 {
	return int64(binary.LittleEndian.Uint64(pg.Data[hdrOffPageCnt:]))
}
func setPageCnt(pg *page.Page, v int64) {
	binary.LittleEndian.PutUint64(pg.Data[hdrOffPageCnt:], uint64(v))
}

func recCnt(pg *page.Page) int64 {
	return int64(binary.LittleEndian.Uint64(pg.Data[hdrOffRecCnt:]))
}
func setRecCnt(pg *page.Page, v int64) {
	binary.LittleEndian.PutUint64(pg.Data[hdrOffRecCnt:], uint64(v))
}
