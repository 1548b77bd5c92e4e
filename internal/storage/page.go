// Package storage implements the page-structured heap: slotted pages, a
// buffer pool that caches them, and the binary row codec that turns rows
// into page payloads.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"minidb/pkg/types"
)

const (
	// PageSize is the compile-time page size: 8 KiB.
	PageSize = 8192

	// PageHeaderSize is the fixed header length at the start of every page.
	PageHeaderSize = 24

	// ItemPointerSize is the fixed size of one item pointer: offset(2) +
	// length(2) + flags(1).
	ItemPointerSize = 5
)

// Page types (page_type discriminant in the header). Only PageTypeTable is
// written to the core's data files; the others are reserved for forward
// compatibility and the unintegrated B+tree sketch.
const (
	PageTypeTable uint8 = iota + 1
	PageTypeCatalog
	PageTypeBTreeInternal
	PageTypeBTreeLeaf
)

const itemPointerDeletedFlag = uint8(1)

var (
	// ErrNotEnoughSpace is returned by AddData when the page cannot fit
	// the payload plus a new item pointer.
	ErrNotEnoughSpace = errors.New("not enough space")
	// ErrItemNotFound is returned by GetItem/DeleteItem for an out-of-range
	// or deleted item id.
	ErrItemNotFound = errors.New("item not found")
)

// Page is a fixed-size slotted page:
//
//	[ header | item-pointer array -> ... <- tuple heap ]
//	 0                                          PageSize
//
// The item-pointer array grows upward from byte 24 (lower); the tuple heap
// grows downward from PageSize (upper). A page is full when upper-lower is
// smaller than the incoming payload plus one item pointer.
type Page struct {
	Data [PageSize]byte
}

// NewPage creates an empty page with the given id and type.
func NewPage(id types.PageID, pageType uint8) *Page {
	p := &Page{}
	binary.LittleEndian.PutUint32(p.Data[0:4], uint32(id))
	p.Data[4] = pageType
	p.setLower(PageHeaderSize)
	p.setUpper(PageSize)
	p.setItemCount(0)
	p.setSpecial(PageSize)
	return p
}

// PageID returns the page's id from the header.
func (p *Page) PageID() types.PageID {
	return types.PageID(binary.LittleEndian.Uint32(p.Data[0:4]))
}

// PageType returns the page's type discriminant from the header.
func (p *Page) PageType() uint8 { return p.Data[4] }

func (p *Page) lower() uint16     { return binary.LittleEndian.Uint16(p.Data[6:8]) }
func (p *Page) setLower(v uint16) { binary.LittleEndian.PutUint16(p.Data[6:8], v) }

func (p *Page) upper() uint16     { return binary.LittleEndian.Uint16(p.Data[8:10]) }
func (p *Page) setUpper(v uint16) { binary.LittleEndian.PutUint16(p.Data[8:10], v) }

func (p *Page) itemCount() uint16     { return binary.LittleEndian.Uint16(p.Data[10:12]) }
func (p *Page) setItemCount(v uint16) { binary.LittleEndian.PutUint16(p.Data[10:12], v) }

func (p *Page) special() uint16     { return binary.LittleEndian.Uint16(p.Data[12:14]) }
func (p *Page) setSpecial(v uint16) { binary.LittleEndian.PutUint16(p.Data[12:14], v) }

// ItemCount returns the number of item pointers, including tombstones.
func (p *Page) ItemCount() int { return int(p.itemCount()) }

// FreeSpace returns the number of bytes available between the end of the
// item-pointer array and the start of the tuple heap.
func (p *Page) FreeSpace() int {
	return int(p.upper()) - int(p.lower())
}

func itemPointerOffset(id uint16) int {
	return PageHeaderSize + int(id)*ItemPointerSize
}

func (p *Page) getItemPointer(id uint16) (offset, length uint16, flags uint8) {
	pos := itemPointerOffset(id)
	offset = binary.LittleEndian.Uint16(p.Data[pos : pos+2])
	length = binary.LittleEndian.Uint16(p.Data[pos+2 : pos+4])
	flags = p.Data[pos+4]
	return
}

func (p *Page) setItemPointer(id uint16, offset, length uint16, flags uint8) {
	pos := itemPointerOffset(id)
	binary.LittleEndian.PutUint16(p.Data[pos:pos+2], offset)
	binary.LittleEndian.PutUint16(p.Data[pos+2:pos+4], length)
	p.Data[pos+4] = flags
}

// AddData appends a tuple payload to the page and returns its item id.
// Fails with ErrNotEnoughSpace if free_space() < len(data)+5.
func (p *Page) AddData(data []byte) (uint16, error) {
	needed := len(data) + ItemPointerSize
	if p.FreeSpace() < needed {
		return 0, ErrNotEnoughSpace
	}

	newUpper := p.upper() - uint16(len(data))
	copy(p.Data[newUpper:p.upper()], data)
	p.setUpper(newUpper)

	id := p.itemCount()
	p.setItemPointer(id, newUpper, uint16(len(data)), 0)
	p.setLower(p.lower() + ItemPointerSize)
	p.setItemCount(id + 1)
	return id, nil
}

// GetItem returns the payload for item id. Fails with ErrItemNotFound if the
// id is out of range or the item's deleted flag is set.
func (p *Page) GetItem(id uint16) ([]byte, error) {
	if id >= p.itemCount() {
		return nil, ErrItemNotFound
	}
	offset, length, flags := p.getItemPointer(id)
	if flags&itemPointerDeletedFlag != 0 {
		return nil, ErrItemNotFound
	}
	out := make([]byte, length)
	copy(out, p.Data[offset:offset+length])
	return out, nil
}

// DeleteItem sets the deleted flag on an item pointer. The payload is left
// in place as a tombstone; space is not reclaimed.
func (p *Page) DeleteItem(id uint16) error {
	if id >= p.itemCount() {
		return ErrItemNotFound
	}
	offset, length, flags := p.getItemPointer(id)
	p.setItemPointer(id, offset, length, flags|itemPointerDeletedFlag)
	return nil
}

// ItemPointer describes one slot as seen by IterItemPointers.
type ItemPointer struct {
	ID      uint16
	Offset  uint16
	Length  uint16
	Deleted bool
}

// IterItemPointers returns every item pointer on the page, live and deleted.
func (p *Page) IterItemPointers() []ItemPointer {
	n := p.itemCount()
	out := make([]ItemPointer, 0, n)
	for id := uint16(0); id < n; id++ {
		offset, length, flags := p.getItemPointer(id)
		out = append(out, ItemPointer{
			ID:      id,
			Offset:  offset,
			Length:  length,
			Deleted: flags&itemPointerDeletedFlag != 0,
		})
	}
	return out
}

// Serialize returns the raw page bytes.
func (p *Page) Serialize() []byte {
	out := make([]byte, PageSize)
	copy(out, p.Data[:])
	return out
}

// DeserializePage loads a page from exactly PageSize bytes.
func DeserializePage(data []byte) (*Page, error) {
	if len(data) != PageSize {
		return nil, fmt.Errorf("page data must be %d bytes, got %d", PageSize, len(data))
	}
	p := &Page{}
	copy(p.Data[:], data)
	return p, nil
}
