// Slotted data-page layout, adapted from the teacher's
// storage_engine/access/heapfile_manager/heap_page.go. The teacher's
// layout carries an LSN and a page-type byte for WAL replay, neither of
// which applies here (spec.md's Non-goals explicitly exclude recovery);
// in their place this layout carries the one field the original C++
// slotted page actually needs that the teacher's didn't: a next-page
// pointer, so the heap file's data pages can form the linked chain
// spec.md §3/§6 describes.
//
// Binary layout (little-endian):
//
//	Offset  Size  Field
//	──────────────────────────────────────────
//	0       8     NextPageNo      int64  (-1 = none)
//	8       2     RecordEndPtr    uint16 — first free byte after last record
//	10      2     SlotRegionStart uint16 — first byte of slot directory
//	12      2     SlotCount       uint16 — total slot entries (live + tombstone)
//	──────────────────────────────────────────
//	14            headerSize
//
// Records grow forward from headerSize; the slot directory grows
// backward from page.Size. A slot is 4 bytes: Offset uint16, Length
// uint16. Length == 0 marks a tombstone — the slot stays in the
// directory so no other slot is renumbered, but the record is gone and
// a later insert may reuse the slot.
package heapfile

import (
	"encoding/binary"
	"fmt"

	"heapcore/storage_engine/page"
	"heapcore/storageerr"
)

const (
	offNextPageNo      = 0
	offRecordEndPtr    = 8
	offSlotRegionStart = 10
	offSlotCount       = 12

	headerSize = 14
	slotSize   = 4
)

// InitPage stamps a fresh slotted-page header: empty slot directory, no
// next page, records starting right after the header.
func InitPage(pg *page.Page) {
	for i := range pg.Data {
		pg.Data[i] = 0
	}
	binary.LittleEndian.PutUint64(pg.Data[offNextPageNo:], ^uint64(0))
	binary.LittleEndian.PutUint16(pg.Data[offRecordEndPtr:], headerSize)
	binary.LittleEndian.PutUint16(pg.Data[offSlotRegionStart:], page.Size)
	binary.LittleEndian.PutUint16(pg.Data[offSlotCount:], 0)
}

func getRecordEndPtr(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[offRecordEndPtr:])
}
func setRecordEndPtr(pg *page.Page, v uint16) {
	binary.LittleEndian.PutUint16(pg.Data[offRecordEndPtr:], v)
}

func getSlotRegionStart(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[offSlotRegionStart:])
}
func setSlotRegionStart(pg *page.Page, v uint16) {
	binary.LittleEndian.PutUint16(pg.Data[offSlotRegionStart:], v)
}

// SlotCount returns the number of slot-directory entries, live or
// tombstoned.
func SlotCount(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[offSlotCount:])
}
func setSlotCount(pg *page.Page, v uint16) {
	binary.LittleEndian.PutUint16(pg.Data[offSlotCount:], v)
}

// GetNextPage returns the next page number in the chain, or -1.
func GetNextPage(pg *page.Page) int64 {
	return int64(binary.LittleEndian.Uint64(pg.Data[offNextPageNo:]))
}

// SetNextPage links pg to the next page number in the chain.
func SetNextPage(pg *page.Page, pageNo int64) {
	binary.LittleEndian.PutUint64(pg.Data[offNextPageNo:], uint64(pageNo))
}

// FreeSpace returns the bytes available for a new record, including the
// slot entry it would consume.
func FreeSpace(pg *page.Page) int {
	free := int(getSlotRegionStart(pg)) - int(getRecordEndPtr(pg)) - slotSize
	if free < 0 {
		return 0
	}
	return free
}

func slotByteOffset(i uint16) int {
	return page.Size - (int(i)+1)*slotSize
}

func readSlot(pg *page.Page, i uint16) (offset, length uint16) {
	base := slotByteOffset(i)
	return binary.LittleEndian.Uint16(pg.Data[base:]),
		binary.LittleEndian.Uint16(pg.Data[base+2:])
}

func writeSlot(pg *page.Page, i uint16, offset, length uint16) {
	base := slotByteOffset(i)
	binary.LittleEndian.PutUint16(pg.Data[base:], offset)
	binary.LittleEndian.PutUint16(pg.Data[base+2:], length)
}

// FirstRecord returns the slot of the first live record on pg.
// Returns ErrNoMoreRecs if pg has no live records.
func FirstRecord(pg *page.Page) (uint16, error) {
	count := SlotCount(pg)
	for i := uint16(0); i < count; i++ {
		if _, length := readSlot(pg, i); length > 0 {
			return i, nil
		}
	}
	return 0, storageerr.ErrNoMoreRecs
}

// NextRecord returns the slot of the next live record after slot.
// Returns ErrNoMoreRecs at the end of the directory.
func NextRecord(pg *page.Page, slot uint16) (uint16, error) {
	count := SlotCount(pg)
	for i := slot + 1; i < count; i++ {
		if _, length := readSlot(pg, i); length > 0 {
			return i, nil
		}
	}
	return 0, storageerr.ErrNoMoreRecs
}

// GetRecord returns a copy of the record at slot.
func GetRecord(pg *page.Page, slot uint16) (Record, error) {
	if slot >= SlotCount(pg) {
		return Record{}, fmt.Errorf("heapfile: slot %d out of range", slot)
	}
	offset, length := readSlot(pg, slot)
	if length == 0 {
		return Record{}, fmt.Errorf("heapfile: slot %d is deleted", slot)
	}
	data := make([]byte, length)
	copy(data, pg.Data[offset:offset+length])
	return Record{Data: data}, nil
}

// InsertRecord appends data to pg and returns its slot. Returns
// ErrNoSpace if pg has no room.
func InsertRecord(pg *page.Page, data []byte) (uint16, error) {
	recLen := uint16(len(data))
	if FreeSpace(pg) < int(recLen) {
		return 0, storageerr.ErrNoSpace
	}

	// Reuse a tombstoned slot if one exists, so the slot directory does
	// not grow unboundedly under repeated insert/delete.
	slot := SlotCount(pg)
	for i := uint16(0); i < SlotCount(pg); i++ {
		if _, length := readSlot(pg, i); length == 0 {
			slot = i
			break
		}
	}

	recordOffset := getRecordEndPtr(pg)
	copy(pg.Data[recordOffset:], data)
	setRecordEndPtr(pg, recordOffset+recLen)
	writeSlot(pg, slot, recordOffset, recLen)

	if slot == SlotCount(pg) {
		setSlotRegionStart(pg, getSlotRegionStart(pg)-slotSize)
		setSlotCount(pg, SlotCount(pg)+1)
	}
	return slot, nil
}

// DeleteRecord tombstones slot. The slot entry survives so no other slot
// is renumbered; GetRecord on the deleted slot fails, the space is not
// reclaimed, and InsertRecord may reuse the slot.
func DeleteRecord(pg *page.Page, slot uint16) error {
	if slot >= SlotCount(pg) {
		return fmt.Errorf("heapfile: slot %d out of range", slot)
	}
	if _, length := readSlot(pg, slot); length == 0 {
		return fmt.Errorf("heapfile: slot %d already deleted", slot)
	}
	writeSlot(pg, slot, 0, 0)
	return nil
}
