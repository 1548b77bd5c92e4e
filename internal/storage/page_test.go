package storage

import (
	"bytes"
	"testing"

	"minidb/pkg/types"
)

func TestNewPageInitialState(t *testing.T) {
	p := NewPage(0, PageTypeTable)

	if p.PageID() != 0 {
		t.Errorf("PageID() = %d, want 0", p.PageID())
	}
	if p.PageType() != PageTypeTable {
		t.Errorf("PageType() = %d, want %d", p.PageType(), PageTypeTable)
	}
	if p.ItemCount() != 0 {
		t.Errorf("ItemCount() = %d, want 0", p.ItemCount())
	}
	if p.lower() != PageHeaderSize {
		t.Errorf("lower = %d, want %d", p.lower(), PageHeaderSize)
	}
	if p.upper() != PageSize {
		t.Errorf("upper = %d, want %d", p.upper(), PageSize)
	}
}

func TestAddData(t *testing.T) {
	p := NewPage(0, PageTypeTable)
	id, err := p.AddData([]byte("hello"))
	if err != nil {
		t.Fatalf("AddData() error = %v", err)
	}
	if id != 0 {
		t.Errorf("id = %d, want 0", id)
	}
	if p.ItemCount() != 1 {
		t.Errorf("ItemCount() = %d, want 1", p.ItemCount())
	}
}

func TestAddDataMultiple(t *testing.T) {
	p := NewPage(0, PageTypeTable)
	for i := 0; i < 5; i++ {
		id, err := p.AddData([]byte("data"))
		if err != nil {
			t.Fatalf("AddData(%d) error = %v", i, err)
		}
		if id != uint16(i) {
			t.Errorf("id = %d, want %d", id, i)
		}
	}
	if p.ItemCount() != 5 {
		t.Errorf("ItemCount() = %d, want 5", p.ItemCount())
	}
}

func TestAddDataPageFull(t *testing.T) {
	p := NewPage(0, PageTypeTable)
	big := make([]byte, 500)
	for {
		_, err := p.AddData(big)
		if err != nil {
			if err != ErrNotEnoughSpace {
				t.Fatalf("expected ErrNotEnoughSpace, got %v", err)
			}
			break
		}
	}
}

func TestGetItem(t *testing.T) {
	p := NewPage(0, PageTypeTable)
	data := []byte("test data")

	id, _ := p.AddData(data)
	got, err := p.GetItem(id)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("GetItem() = %q, want %q", got, data)
	}
}

func TestGetItemNotFound(t *testing.T) {
	p := NewPage(0, PageTypeTable)

	if _, err := p.GetItem(0); err != ErrItemNotFound {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}

	p.AddData([]byte("data"))
	if _, err := p.GetItem(1); err != ErrItemNotFound {
		t.Errorf("expected ErrItemNotFound for id 1, got %v", err)
	}
}

func TestDeleteItem(t *testing.T) {
	p := NewPage(0, PageTypeTable)
	id, _ := p.AddData([]byte("data"))

	if err := p.DeleteItem(id); err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	if _, err := p.GetItem(id); err != ErrItemNotFound {
		t.Errorf("expected ErrItemNotFound after delete, got %v", err)
	}
}

func TestDeleteItemNotFound(t *testing.T) {
	p := NewPage(0, PageTypeTable)
	if err := p.DeleteItem(0); err != ErrItemNotFound {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestIterItemPointersSkipsNothingButMarksDeleted(t *testing.T) {
	p := NewPage(0, PageTypeTable)
	p.AddData([]byte("a"))
	p.AddData([]byte("b"))
	id2, _ := p.AddData([]byte("c"))
	p.AddData([]byte("d"))

	p.DeleteItem(id2)

	ptrs := p.IterItemPointers()
	if len(ptrs) != 4 {
		t.Fatalf("IterItemPointers() returned %d pointers, want 4 (tombstones retained)", len(ptrs))
	}
	for _, ip := range ptrs {
		if ip.ID == id2 && !ip.Deleted {
			t.Error("deleted item should be marked Deleted in IterItemPointers")
		}
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	p := NewPage(42, PageTypeBTreeLeaf)
	p.AddData([]byte("data1"))
	p.AddData([]byte("data2"))

	serialized := p.Serialize()

	p2, err := DeserializePage(serialized)
	if err != nil {
		t.Fatalf("DeserializePage() error = %v", err)
	}

	if p2.PageID() != 42 {
		t.Errorf("PageID() = %d, want 42", p2.PageID())
	}
	if p2.PageType() != PageTypeBTreeLeaf {
		t.Errorf("PageType() = %d, want %d", p2.PageType(), PageTypeBTreeLeaf)
	}
	if p2.ItemCount() != 2 {
		t.Errorf("ItemCount() = %d, want 2", p2.ItemCount())
	}

	got, _ := p2.GetItem(0)
	if !bytes.Equal(got, []byte("data1")) {
		t.Errorf("item 0 = %q, want %q", got, "data1")
	}
	got, _ = p2.GetItem(1)
	if !bytes.Equal(got, []byte("data2")) {
		t.Errorf("item 1 = %q, want %q", got, "data2")
	}
}

func TestDeserializePageWrongSize(t *testing.T) {
	if _, err := DeserializePage(make([]byte, 10)); err == nil {
		t.Error("expected error for wrong-size buffer")
	}
}

// TestPageSpaceAccounting checks invariant 4 from the testable properties:
// lower + free_space() + (PageSize - upper) == PageSize and
// item_count*5 + 24 == lower, after any sequence of AddData on a fresh page.
func TestPageSpaceAccounting(t *testing.T) {
	p := NewPage(0, PageTypeTable)
	sizes := []int{10, 200, 37, 1}
	for _, n := range sizes {
		if _, err := p.AddData(make([]byte, n)); err != nil {
			t.Fatalf("AddData(%d) error = %v", n, err)
		}
		lower, upper := int(p.lower()), int(p.upper())
		if lower+p.FreeSpace()+(PageSize-upper) != PageSize {
			t.Errorf("space accounting violated: lower=%d free=%d upper=%d", lower, p.FreeSpace(), upper)
		}
		if p.ItemCount()*ItemPointerSize+PageHeaderSize != lower {
			t.Errorf("item_count*5+24 != lower: item_count=%d lower=%d", p.ItemCount(), lower)
		}
	}
}

// TestNoOverlap checks invariant 5: no two live item pointers' byte ranges
// overlap.
func TestNoOverlap(t *testing.T) {
	p := NewPage(0, PageTypeTable)
	p.AddData([]byte("aaaa"))
	p.AddData([]byte("bb"))
	p.AddData([]byte("ccccccc"))

	ptrs := p.IterItemPointers()
	for i := range ptrs {
		for j := range ptrs {
			if i == j {
				continue
			}
			a, b := ptrs[i], ptrs[j]
			if a.Offset < b.Offset+b.Length && b.Offset < a.Offset+a.Length {
				t.Errorf("item pointers %d and %d overlap", a.ID, b.ID)
			}
		}
	}
}

func TestInvalidPageIDDoesNotCollideWithPageZero(t *testing.T) {
	// Guards against accidentally aliasing InvalidPageID with a real id.
	if types.InvalidPageID == 0 {
		t.Error("InvalidPageID must not collide with page id 0")
	}
}
