// Command demo exercises a heap file end to end: create, insert a batch
// of fixed-format records, scan with a predicate, delete a match, and
// report buffer-pool stats before closing everything down.
package main

import (
	"encoding/binary"
	"errors"
	"log"
	"os"

	"heapcore/storage_engine/access/heapfile"
	"heapcore/storage_engine/bufferpool"
	"heapcore/storage_engine/filestore"
	"heapcore/storageerr"
)

const numFrames = 32

func main() {
	dir, err := os.MkdirTemp("", "heapcore-demo")
	if err != nil {
		log.Fatalf("mkdtemp: %v", err)
	}
	defer os.RemoveAll(dir)

	if err := os.Chdir(dir); err != nil {
		log.Fatalf("chdir: %v", err)
	}

	store := filestore.New()
	pool := bufferpool.New(numFrames, store)

	const fileName = "orders.heap"
	if err := heapfile.Create(fileName, store, pool); err != nil {
		log.Fatalf("create: %v", err)
	}

	ins, err := heapfile.OpenInsertScan(fileName, store, pool)
	if err != nil {
		log.Fatalf("open insert scan: %v", err)
	}

	for i := int32(0); i < 500; i++ {
		rec := make([]byte, 16)
		binary.LittleEndian.PutUint32(rec[0:], uint32(i))
		copy(rec[4:], []byte("order-padding..."))
		if _, err := ins.InsertRecord(rec); err != nil {
			log.Fatalf("insert %d: %v", i, err)
		}
	}
	log.Printf("inserted %d records", ins.GetRecCnt())
	ins.Close()

	scan, err := heapfile.OpenScan(fileName, store, pool)
	if err != nil {
		log.Fatalf("open scan: %v", err)
	}
	filter := make([]byte, 4)
	binary.LittleEndian.PutUint32(filter, uint32(250))
	if err := scan.StartScan(0, 4, heapfile.Integer, filter, heapfile.GTE); err != nil {
		log.Fatalf("start scan: %v", err)
	}

	var matched int
	for {
		_, err := scan.ScanNext()
		if errors.Is(err, storageerr.ErrFileEOF) {
			break
		}
		if err != nil {
			log.Fatalf("scan next: %v", err)
		}
		if matched == 0 {
			if err := scan.DeleteRecord(); err != nil {
				log.Fatalf("delete record: %v", err)
			}
		}
		matched++
	}
	log.Printf("matched %d records with key >= 250, deleted the first", matched)

	if err := scan.EndScan(); err != nil {
		log.Fatalf("end scan: %v", err)
	}
	scan.Close()

	log.Print(pool.DumpFrames())
	stats := pool.Stats()
	log.Printf("stats: %+v", stats)

	if err := pool.Close(); err != nil {
		log.Fatalf("close pool: %v", err)
	}
}
