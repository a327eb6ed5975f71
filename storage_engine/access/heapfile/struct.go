package heapfile

import (
	"heapcore/storage_engine/bufferpool"
	"heapcore/storage_engine/filestore"
	"heapcore/storage_engine/page"
)

// HeapFile is an opened heap file: the underlying file handle, the
// header page's pinned reference, and a "current page" cursor. Mirrors
// the private state of the original HeapFile class (filePtr,
// headerPage, headerPageNo, hdrDirtyFlag, curPage, curPageNo,
// curDirtyFlag, curRec) almost field for field.
type HeapFile struct {
	store *filestore.Store
	pool  *bufferpool.Manager

	file         *filestore.Handle
	headerPageNo int64
	headerPage   *page.Page
	hdrDirty     bool

	curPageNo int64
	curPage   *page.Page
	curDirty  bool

	curRec RID
}
