// Package storageerr holds the closed set of sentinel errors shared by the
// buffer pool, page index and heap file layers. Callers compare against
// these with errors.Is; internal call sites wrap them with fmt.Errorf so
// the originating context survives while the sentinel stays comparable.
package storageerr

import "errors"

var (
	ErrFileExists     = errors.New("storage: file already exists")
	ErrFileNotFound   = errors.New("storage: file not found")
	ErrNoMoreRecs     = errors.New("storage: no more records on page")
	ErrNoSpace        = errors.New("storage: page has no space for record")
	ErrInvalidRecLen  = errors.New("storage: record too large for a page")
	ErrBadScanParm    = errors.New("storage: invalid scan parameters")
	ErrHashNotFound   = errors.New("storage: key not found in page index")
	ErrHashTableError = errors.New("storage: duplicate key in page index")
	ErrBufferExceeded = errors.New("storage: buffer pool exhausted")
	ErrPageNotPinned  = errors.New("storage: page is not pinned")
	ErrPagePinned     = errors.New("storage: page is pinned")
	ErrBadBuffer      = errors.New("storage: invalid buffer frame")
	ErrUnix           = errors.New("storage: underlying I/O error")
	ErrFileEOF        = errors.New("storage: end of file reached")
)
