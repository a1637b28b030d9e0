package blockcache

// indexKey is the Block Index's key: a (file-descriptor identity, bid)
// pair (spec.md §4.1). Using the *fileDescriptor pointer directly gives
// exactly the "equality is file-descriptor identity" rule the spec
// states, without reimplementing the original's "bid + filename-hash"
// bucket arithmetic — Go's map already provides O(1) expected-time
// lookup keyed on that pair.
type indexKey struct {
	file *fileDescriptor
	bid  BlockID
}

// blockIndex is the hash map from (file, bid) to the frame currently
// caching that block (spec.md §4.1). A frame is reachable through it iff
// the frame is on the clean or dirty list (invariant 2).
type blockIndex struct {
	m map[indexKey]*frame
}

func newBlockIndex(capacityHint int) *blockIndex {
	return &blockIndex{m: make(map[indexKey]*frame, capacityHint)}
}

func (bi *blockIndex) lookup(fd *fileDescriptor, bid BlockID) (*frame, bool) {
	f, ok := bi.m[indexKey{fd, bid}]
	return f, ok
}

func (bi *blockIndex) insert(f *frame) {
	bi.m[indexKey{f.file, f.bid}] = f
}

func (bi *blockIndex) remove(f *frame) {
	delete(bi.m, indexKey{f.file, f.bid})
}
