package blockcache

import "errors"

var (
	// ErrInvalidConfig is returned by Init when nblock or blocksize is non-positive.
	ErrInvalidConfig = errors.New("blockcache: invalid configuration")

	// ErrDirtySetNotEmpty is returned by DropFile when the file still has
	// unflushed dirty frames. The caller must Flush or DiscardDirty first.
	ErrDirtySetNotEmpty = errors.New("blockcache: drop-file with non-empty dirty set")

	// ErrFileNotFound is returned by DropFile for a file the directory does
	// not track. Read, WritePartial, Flush and the Discard operations treat
	// an untracked file as a miss or a no-op instead.
	ErrFileNotFound = errors.New("blockcache: file not tracked")

	// ErrShortWrite is returned when a flush's pwrite writes fewer bytes
	// than requested. Per spec, no state transitions are applied for the
	// failed run; the dirty frames remain dirty.
	ErrShortWrite = errors.New("blockcache: short write during flush")

	// ErrNoFreeFrame is a defensive error for an evictor that cannot make
	// progress (e.g. every frame is pinned by an in-flight flush); it
	// should never surface in single-writer operation.
	ErrNoFreeFrame = errors.New("blockcache: evictor made no progress")
)
