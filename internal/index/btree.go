// Package index sketches a B+tree keyed index over the heap's RIDs. It is
// deliberately unreferenced by the query pipeline: spec.md lists indexes as
// a non-goal ("a sketched B+tree exists but is not integrated"), so this
// package exists as exactly that sketch, adapted to the same page and disk
// primitives internal/storage exposes rather than inventing its own.
package index

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"minidb/internal/storage"
	"minidb/pkg/types"
)

// EncodeKey encodes val into a fixed-size byte slice that preserves sort
// order under bytes.Compare.
//
//	Int64:   sign-bit flip + big-endian, so -1 < 0 < 1 in byte order.
//	Text/VarChar: raw UTF-8 bytes, zero-padded (and truncated) to keySize.
//	Bool:    single byte, 0x00 or 0x01.
func EncodeKey(val types.Value, keySize int) []byte {
	key := make([]byte, keySize)
	switch val.Type {
	case types.Int64:
		u := uint64(val.IntVal) ^ (1 << 63)
		binary.BigEndian.PutUint64(key[:min(8, keySize)], u)
	case types.Text, types.VarChar:
		copy(key, []byte(val.StrVal))
	case types.Bool:
		if val.BoolVal {
			key[0] = 0x01
		}
	}
	return key
}

const (
	// Node header, stored after the page header: isLeaf(1) + keyCount(2) +
	// reserved(1).
	nodeHeaderSize = 4
	ridSize        = 6 // PageID(4) + ItemID(2)
	pageIDSize     = 4
)

// RID identifies one heap tuple: the page it lives on and its item id
// within that page.
type RID struct {
	PageID types.PageID
	ItemID uint16
}

func (r RID) serialize() []byte {
	buf := make([]byte, ridSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.PageID))
	binary.LittleEndian.PutUint16(buf[4:6], r.ItemID)
	return buf
}

func deserializeRID(buf []byte) RID {
	return RID{
		PageID: types.PageID(binary.LittleEndian.Uint32(buf[0:4])),
		ItemID: binary.LittleEndian.Uint16(buf[4:6]),
	}
}

// BTree is an in-memory-cached B+tree backed by a single disk file, one
// page per node. It has no connection to the catalog or buffer pool: a
// caller builds one explicitly over a table's key column and is
// responsible for keeping it in sync with inserts, which SeqScanExec never
// does since the physical planner in internal/exec never constructs one.
type BTree struct {
	dm      *storage.DiskManager
	nodes   map[types.PageID]*node
	nextID  types.PageID
	root    types.PageID
	keySize int
	order   int
}

type node struct {
	id       types.PageID
	isLeaf   bool
	keys     [][]byte
	children []types.PageID // internal nodes: len(keys)+1
	values   []RID          // leaf nodes: len(keys)
}

// NewBTree creates an empty B+tree persisted to path, one node per page.
func NewBTree(path string, keySize int) (*BTree, error) {
	dm, err := storage.NewDiskManager(path)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	bt := &BTree{
		dm:      dm,
		nodes:   make(map[types.PageID]*node),
		keySize: keySize,
		order:   order(keySize),
	}
	root := &node{id: 0, isLeaf: true}
	bt.nodes[0] = root
	bt.nextID = 1
	return bt, nil
}

// LoadBTree reopens a tree previously written by Close, reconstructing
// every node from disk and identifying the root as the one node id no
// other node lists as a child.
func LoadBTree(path string, keySize int) (*BTree, error) {
	dm, err := storage.NewDiskManager(path)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	n, err := dm.NumPages()
	if err != nil {
		return nil, err
	}
	bt := &BTree{
		dm:      dm,
		nodes:   make(map[types.PageID]*node),
		keySize: keySize,
		order:   order(keySize),
		nextID:  types.PageID(n),
	}

	isChild := make(map[types.PageID]bool)
	for id := types.PageID(0); id < types.PageID(n); id++ {
		page, err := dm.ReadPage(id)
		if err != nil {
			return nil, fmt.Errorf("index: load node %d: %w", id, err)
		}
		nd := deserializeNode(page, keySize)
		bt.nodes[id] = nd
		for _, child := range nd.children {
			isChild[child] = true
		}
	}
	for id := range bt.nodes {
		if !isChild[id] {
			bt.root = id
			break
		}
	}
	return bt, nil
}

func order(keySize int) int {
	usable := storage.PageSize - storage.PageHeaderSize - nodeHeaderSize
	o := usable / (keySize + ridSize)
	if o < 3 {
		o = 3
	}
	return o
}

// Close flushes every dirty node and closes the backing file.
func (bt *BTree) Close() error {
	for id, n := range bt.nodes {
		if err := bt.save(id, n); err != nil {
			return err
		}
	}
	return bt.dm.Close()
}

func (bt *BTree) save(id types.PageID, n *node) error {
	page := storage.NewPage(id, storage.PageTypeBTreeLeaf)
	if !n.isLeaf {
		page = storage.NewPage(id, storage.PageTypeBTreeInternal)
	}
	serializeNode(page, n)
	return bt.dm.WritePage(page)
}

// Insert adds or overwrites the value stored under key.
func (bt *BTree) Insert(key []byte, rid RID) {
	k := bt.normalize(key)
	leaf, path := bt.findLeaf(k)
	bt.insertIntoLeaf(leaf, k, rid)
	if len(leaf.keys) > bt.order-1 {
		bt.splitLeaf(leaf, path)
	}
}

// Search returns the RID stored under key, if any.
func (bt *BTree) Search(key []byte) (RID, bool) {
	k := bt.normalize(key)
	leaf, _ := bt.findLeaf(k)
	for i, lk := range leaf.keys {
		if bytes.Equal(lk, k) {
			return leaf.values[i], true
		}
	}
	return RID{}, false
}

// Delete removes key, reporting whether it was present. Underflow is not
// rebalanced; this mirrors the sketch's scope (no integration, no
// durability guarantees beyond what the query pipeline never exercises).
func (bt *BTree) Delete(key []byte) bool {
	k := bt.normalize(key)
	leaf, _ := bt.findLeaf(k)
	for i, lk := range leaf.keys {
		if bytes.Equal(lk, k) {
			leaf.keys = append(leaf.keys[:i], leaf.keys[i+1:]...)
			leaf.values = append(leaf.values[:i], leaf.values[i+1:]...)
			return true
		}
	}
	return false
}

// ScanAll returns every RID stored in the tree, in key order.
func (bt *BTree) ScanAll() []RID {
	var out []RID
	bt.collect(bt.root, &out)
	return out
}

func (bt *BTree) collect(id types.PageID, out *[]RID) {
	n := bt.nodes[id]
	if n.isLeaf {
		*out = append(*out, n.values...)
		return
	}
	for _, child := range n.children {
		bt.collect(child, out)
	}
}

func (bt *BTree) findLeaf(key []byte) (*node, []types.PageID) {
	var path []types.PageID
	n := bt.nodes[bt.root]
	for !n.isLeaf {
		path = append(path, n.id)
		idx := 0
		for i, k := range n.keys {
			if bytes.Compare(key, k) >= 0 {
				idx = i + 1
			} else {
				break
			}
		}
		if idx >= len(n.children) {
			idx = len(n.children) - 1
		}
		n = bt.nodes[n.children[idx]]
	}
	return n, path
}

func (bt *BTree) insertIntoLeaf(n *node, key []byte, rid RID) {
	for i, k := range n.keys {
		if bytes.Equal(k, key) {
			n.values[i] = rid
			return
		}
	}
	idx := len(n.keys)
	for i, k := range n.keys {
		if bytes.Compare(key, k) < 0 {
			idx = i
			break
		}
	}
	n.keys = append(n.keys, nil)
	n.values = append(n.values, RID{})
	copy(n.keys[idx+1:], n.keys[idx:])
	copy(n.values[idx+1:], n.values[idx:])
	n.keys[idx] = key
	n.values[idx] = rid
}

func (bt *BTree) allocNode(isLeaf bool) *node {
	n := &node{id: bt.nextID, isLeaf: isLeaf}
	bt.nodes[bt.nextID] = n
	bt.nextID++
	return n
}

func (bt *BTree) splitLeaf(n *node, path []types.PageID) {
	mid := len(n.keys) / 2
	newLeaf := bt.allocNode(true)
	newLeaf.keys = append([][]byte{}, n.keys[mid:]...)
	newLeaf.values = append([]RID{}, n.values[mid:]...)
	n.keys = n.keys[:mid]
	n.values = n.values[:mid]

	bt.insertIntoParent(path, n.id, newLeaf.keys[0], newLeaf.id)
}

func (bt *BTree) insertIntoParent(path []types.PageID, left types.PageID, key []byte, right types.PageID) {
	if len(path) == 0 {
		newRoot := bt.allocNode(false)
		newRoot.keys = [][]byte{key}
		newRoot.children = []types.PageID{left, right}
		bt.root = newRoot.id
		return
	}

	parentID := path[len(path)-1]
	parent := bt.nodes[parentID]

	idx := len(parent.keys)
	for i, k := range parent.keys {
		if bytes.Compare(key, k) < 0 {
			idx = i
			break
		}
	}
	parent.keys = append(parent.keys, nil)
	parent.children = append(parent.children, 0)
	copy(parent.keys[idx+1:], parent.keys[idx:])
	copy(parent.children[idx+2:], parent.children[idx+1:])
	parent.keys[idx] = key
	parent.children[idx+1] = right

	if len(parent.keys) > bt.order-1 {
		bt.splitInternal(parent, path[:len(path)-1])
	}
}

func (bt *BTree) splitInternal(n *node, path []types.PageID) {
	mid := len(n.keys) / 2
	promote := n.keys[mid]

	newInternal := bt.allocNode(false)
	newInternal.keys = append([][]byte{}, n.keys[mid+1:]...)
	newInternal.children = append([]types.PageID{}, n.children[mid+1:]...)

	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]

	bt.insertIntoParent(path, n.id, promote, newInternal.id)
}

func (bt *BTree) normalize(key []byte) []byte {
	k := make([]byte, bt.keySize)
	copy(k, key)
	return k
}

// RootPageID returns the page id of the current root node.
func (bt *BTree) RootPageID() types.PageID { return bt.root }

func serializeNode(page *storage.Page, n *node) {
	if n.isLeaf {
		page.Data[storage.PageHeaderSize] = 1
	} else {
		page.Data[storage.PageHeaderSize] = 0
	}
	binary.LittleEndian.PutUint16(page.Data[storage.PageHeaderSize+1:storage.PageHeaderSize+3], uint16(len(n.keys)))

	offset := storage.PageHeaderSize + nodeHeaderSize
	if n.isLeaf {
		for i, k := range n.keys {
			copy(page.Data[offset:], k)
			offset += len(k)
			copy(page.Data[offset:], n.values[i].serialize())
			offset += ridSize
		}
		return
	}
	if len(n.children) > 0 {
		binary.LittleEndian.PutUint32(page.Data[offset:], uint32(n.children[0]))
	}
	offset += pageIDSize
	for i, k := range n.keys {
		copy(page.Data[offset:], k)
		offset += len(k)
		if i+1 < len(n.children) {
			binary.LittleEndian.PutUint32(page.Data[offset:], uint32(n.children[i+1]))
		}
		offset += pageIDSize
	}
}

func deserializeNode(page *storage.Page, keySize int) *node {
	n := &node{id: page.PageID()}
	n.isLeaf = page.Data[storage.PageHeaderSize] == 1
	keyCount := int(binary.LittleEndian.Uint16(page.Data[storage.PageHeaderSize+1 : storage.PageHeaderSize+3]))

	offset := storage.PageHeaderSize + nodeHeaderSize
	n.keys = make([][]byte, keyCount)
	if n.isLeaf {
		n.values = make([]RID, keyCount)
		for i := 0; i < keyCount; i++ {
			n.keys[i] = append([]byte{}, page.Data[offset:offset+keySize]...)
			offset += keySize
			n.values[i] = deserializeRID(page.Data[offset : offset+ridSize])
			offset += ridSize
		}
		return n
	}
	n.children = make([]types.PageID, keyCount+1)
	n.children[0] = types.PageID(binary.LittleEndian.Uint32(page.Data[offset:]))
	offset += pageIDSize
	for i := 0; i < keyCount; i++ {
		n.keys[i] = append([]byte{}, page.Data[offset:offset+keySize]...)
		offset += keySize
		n.children[i+1] = types.PageID(binary.LittleEndian.Uint32(page.Data[offset:]))
		offset += pageIDSize
	}
	return n
}
