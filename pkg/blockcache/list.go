package blockcache

import "container/list"

// frameList is one of the three intrusive lists (free, clean, dirty),
// wrapping container/list the way the teacher's buffer pool and node
// cache wrap it (pkg/storage/buffer_pool.go, pkg/index/node_cache.go),
// plus the size counter spec.md §4.3 requires to drive the eviction ratio
// test without an O(n) scan.
type frameList struct {
	kind listKind
	l    *list.List
	n    int
}

func newFrameList(kind listKind) *frameList {
	return &frameList{kind: kind, l: list.New()}
}

// pushFront inserts f at the head (most recently used / most eligible end).
func (fl *frameList) pushFront(f *frame) {
	f.elem = fl.l.PushFront(f)
	f.kind = fl.kind
	fl.n++
}

// pushBack inserts f at the tail (deprioritized end).
func (fl *frameList) pushBack(f *frame) {
	f.elem = fl.l.PushBack(f)
	f.kind = fl.kind
	fl.n++
}

// remove unlinks f from this list. f must currently belong to it.
func (fl *frameList) remove(f *frame) {
	fl.l.Remove(f.elem)
	f.elem = nil
	fl.n--
}

// moveToFront re-positions f, already a member, to the head (LRU touch).
func (fl *frameList) moveToFront(f *frame) {
	fl.l.MoveToFront(f.elem)
}

// back returns the tail frame, or nil if the list is empty.
func (fl *frameList) back() *frame {
	e := fl.l.Back()
	if e == nil {
		return nil
	}
	return e.Value.(*frame)
}

// front returns the head frame, or nil if the list is empty.
func (fl *frameList) front() *frame {
	e := fl.l.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*frame)
}

func (fl *frameList) len() int { return fl.n }
