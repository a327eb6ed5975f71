// Package pageindex implements the buffer pool's page-to-frame mapping:
// (file handle identity, page number) → frame number.
//
// The original system backs this with an open BufHashTbl sized at
// ceil(1.2*numBufs) buckets with chaining and closed collision errors
// (HASHTABLEERROR on duplicate insert, HASHNOTFOUND on missing
// lookup/remove) rather than a generic associative map — spec.md §4.1
// keeps that sizing formula and those two distinct error cases, so this
// package is a real hash table with explicit buckets rather than a Go
// map wrapper. Buckets are chosen with xxhash, the same hash already
// pulled transitively into this dependency tree for ristretto's
// frequency sketch.
package pageindex

import (
	"github.com/cespare/xxhash/v2"

	"heapcore/storageerr"
)

// Key identifies a page within a particular open file. File is compared
// by identity (the pointer value), not by path — two Handles opened for
// the same underlying file are distinct keys, per spec.md §4.1.
type Key struct {
	File   uintptr // pointer identity of the file handle
	PageNo int64
}

type entry struct {
	key     Key
	frameNo int
	next    *entry
}

// Index is a fixed-bucket-count chained hash table mapping Key to a
// frame number.
type Index struct {
	buckets []*entry
	count   int
}

// New sizes the table at ceil(1.2*poolSize) buckets, per spec.md §4.1.
func New(poolSize int) *Index {
	n := (poolSize*12 + 9) / 10 // ceil(1.2*poolSize)
	if n < 1 {
		n = 1
	}
	return &Index{buckets: make([]*entry, n)}
}

func (ix *Index) bucket(k Key) int {
	h := xxhash.New()
	var buf [16]byte
	putUint64(buf[0:8], uint64(k.File))
	putUint64(buf[8:16], uint64(k.PageNo))
	h.Write(buf[:])
	return int(h.Sum64() % uint64(len(ix.buckets)))
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Lookup returns the frame number holding key, or ErrHashNotFound.
func (ix *Index) Lookup(k Key) (int, error) {
	for e := ix.buckets[ix.bucket(k)]; e != nil; e = e.next {
		if e.key == k {
			return e.frameNo, nil
		}
	}
	return 0, storageerr.ErrHashNotFound
}

// Insert adds key → frameNo. Returns ErrHashTableError if key is already
// present — collisions on key are forbidden, per spec.md §4.1.
func (ix *Index) Insert(k Key, frameNo int) error {
	b := ix.bucket(k)
	for e := ix.buckets[b]; e != nil; e = e.next {
		if e.key == k {
			return storageerr.ErrHashTableError
		}
	}
	ix.buckets[b] = &entry{key: k, frameNo: frameNo, next: ix.buckets[b]}
	ix.count++
	return nil
}

// Remove deletes key. Returns ErrHashNotFound if key is absent.
func (ix *Index) Remove(k Key) error {
	b := ix.bucket(k)
	var prev *entry
	for e := ix.buckets[b]; e != nil; e = e.next {
		if e.key == k {
			if prev == nil {
				ix.buckets[b] = e.next
			} else {
				prev.next = e.next
			}
			ix.count--
			return nil
		}
		prev = e
	}
	return storageerr.ErrHashNotFound
}

// Len returns the number of entries currently indexed.
func (ix *Index) Len() int {
	return ix.count
}
