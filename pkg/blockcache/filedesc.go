package blockcache

import (
	"container/list"
	"hash/crc32"
	"sync"
)

// fileDescriptor is the cache-side per-file record (spec.md §3). It owns
// the filename, a cached filename hash, a pointer to the currently-open
// handle (swapped on reopen), a per-file lock reserved for future
// finer-grained locking (spec.md §9 open question: defined but unused),
// and the ordered set of dirty frames keyed by bid.
type fileDescriptor struct {
	name     string
	nameHash uint32 // crc32 over the trailing 8 bytes of name, seed 0
	curfile  FileHandle

	mu sync.Mutex // reserved; never acquired, per spec.md §9

	// dirtySet holds one node per dirty frame belonging to this file,
	// ordered ascending by bid (spec.md §3 invariant 7). The original
	// keys this with a red-black tree; Go's stdlib has no sorted
	// container, so a sorted doubly-linked list is used instead, with a
	// side index for O(1) node lookup on removal. Insertion is O(k) in
	// the size of the dirty set, which is bounded by nblock.
	dirtySet   *list.List
	dirtyIndex map[BlockID]*list.Element
}

// dirtySetNode links an ordered-set position to the frame it guards
// (spec.md §3 "Dirty-set node").
type dirtySetNode struct {
	bid   BlockID
	frame *frame
}

func newFileDescriptor(name string) *fileDescriptor {
	return &fileDescriptor{
		name:       name,
		nameHash:   filenameHash(name),
		dirtySet:   list.New(),
		dirtyIndex: make(map[BlockID]*list.Element),
	}
}

// filenameHash is CRC-32 (IEEE) over the trailing 8 bytes of name, seed 0
// (spec.md §4.2), matching the original's crc32_8_last8. Shorter names are
// zero-padded on the left, since the original reads from a fixed-size
// stack buffer of the file's actual bytes and the last-8 window is only
// meaningful once a name reaches 8 bytes; padding keeps the hash stable
// and collision-free for the common case of short test fixtures.
func filenameHash(name string) uint32 {
	var window [8]byte
	b := []byte(name)
	if len(b) >= 8 {
		copy(window[:], b[len(b)-8:])
	} else {
		copy(window[8-len(b):], b)
	}
	return crc32.ChecksumIEEE(window[:])
}

// dirtySetInsert inserts a new node for f, fetched from pool, at its
// ascending-bid position and returns it. f.bid must not already be
// present. Allocating dirty-set nodes from a pool rather than letting each
// one escape individually mirrors the original's mempool_alloc, the
// external "memory pool used for small, churned allocations" spec.md §1
// scopes out as a collaborator but which this repo still needs a concrete
// stand-in for.
func (fd *fileDescriptor) dirtySetInsert(f *frame, pool *sync.Pool) *list.Element {
	var node *dirtySetNode
	if v := pool.Get(); v != nil {
		node = v.(*dirtySetNode)
		node.bid = f.bid
		node.frame = f
	} else {
		node = &dirtySetNode{bid: f.bid, frame: f}
	}

	for e := fd.dirtySet.Back(); e != nil; e = e.Prev() {
		if e.Value.(*dirtySetNode).bid < node.bid {
			elem := fd.dirtySet.InsertAfter(node, e)
			fd.dirtyIndex[f.bid] = elem
			return elem
		}
	}
	elem := fd.dirtySet.PushFront(node)
	fd.dirtyIndex[f.bid] = elem
	return elem
}

// dirtySetRemove unlinks the node for bid, if present, and releases it
// back to pool.
func (fd *fileDescriptor) dirtySetRemove(bid BlockID, pool *sync.Pool) {
	elem, ok := fd.dirtyIndex[bid]
	if !ok {
		return
	}
	fd.dirtySet.Remove(elem)
	delete(fd.dirtyIndex, bid)
	pool.Put(elem.Value)
}

// dirtySetEmpty reports whether the file has no unflushed dirty frames.
func (fd *fileDescriptor) dirtySetEmpty() bool {
	return fd.dirtySet.Len() == 0
}
