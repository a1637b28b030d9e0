package blockcache

// BlockID identifies a block within a file's address space, in units of
// the cache's fixed block size.
type BlockID uint64

// BlkNotFound is the sentinel BlockID meaning "no block" (spec.md §6).
const BlkNotFound BlockID = ^BlockID(0)

// DirtyFlag selects the list a written frame lands on.
type DirtyFlag int

const (
	// Clean places the written frame on the clean list.
	Clean DirtyFlag = iota
	// Dirty places the written frame on the dirty list and links it into
	// its file's ordered dirty set.
	Dirty
)

// BlkMarkerBNode is the trailing-byte marker value recognized by the cache
// as "b-tree interior/leaf node" (spec.md §6). Any other value is treated
// as document payload; the cache does not otherwise interpret it.
const BlkMarkerBNode byte = 0xff

// FileStatus is the subset of file-manager state the cache consults. The
// classifier that assigns CompactOld lives outside the cache (spec.md §1);
// the cache only ever reads it.
type FileStatus int

const (
	// StatusNormal is an ordinary, non-compacting file.
	StatusNormal FileStatus = iota
	// StatusCompactOld marks a file as the source of an in-progress
	// compaction: its document blocks are about to be discarded, so the
	// cache deprioritizes them for LRU and never writes them back.
	StatusCompactOld
)

// FileHandle is the external file-manager contract the cache consumes
// (spec.md §6). Implementations own the file descriptor, filename, status,
// and the pwrite primitive; pkg/filemgr provides a concrete one.
type FileHandle interface {
	// Name returns the filename this handle addresses. The cache calls it
	// on every operation to find the file's descriptor, and copies it into
	// the descriptor when that descriptor is created.
	Name() string

	// Status returns the file's current status. Queried on every Read and
	// Write to decide LRU touch and list-insertion end; may change
	// out-of-band between calls (e.g. when compaction finishes).
	Status() FileStatus

	// PWrite writes buf at the given byte offset and returns the number
	// of bytes written, mirroring pwrite(2).
	PWrite(buf []byte, offset int64) (int, error)
}
