// Package filemgr provides a concrete file manager: the external
// collaborator spec.md §1 scopes out of the block cache (file descriptors,
// filenames, status, and the pwrite/pread primitives). Grounded on
// pkg/storage/disk_manager.go's os.File + sync.Mutex pairing, generalized
// from one fixed data file to any number of named files.
package filemgr

import (
	"fmt"
	"os"
	"sync"

	"github.com/mnohosten/blockcache/pkg/blockcache"
)

// Handle is a concrete blockcache.FileHandle backed by an *os.File.
type Handle struct {
	name string

	mu     sync.Mutex
	file   *os.File
	status blockcache.FileStatus
}

// Name implements blockcache.FileHandle.
func (h *Handle) Name() string { return h.name }

// Status implements blockcache.FileHandle.
func (h *Handle) Status() blockcache.FileStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// SetStatus changes the file's status. The classifier that decides when a
// file becomes the old generation of a compaction lives outside the cache
// (spec.md §1); this is the entry point such a caller uses.
func (h *Handle) SetStatus(s blockcache.FileStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = s
}

// PWrite implements blockcache.FileHandle using os.File.WriteAt, the Go
// idiom for pwrite(2) (mirrors disk_manager.go's WritePage wrapping
// WriteAt).
func (h *Handle) PWrite(buf []byte, offset int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.file.WriteAt(buf, offset)
}

// PRead reads len(buf) bytes starting at offset, mirroring pread(2). Not
// part of the blockcache.FileHandle contract (reads on miss are the
// caller's responsibility per spec.md §1), but needed by any caller that
// must fetch a block before writing it back through the cache.
func (h *Handle) PRead(buf []byte, offset int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.file.ReadAt(buf, offset)
}

// Sync flushes the underlying file to stable storage.
func (h *Handle) Sync() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.file.Sync()
}

// Close closes the underlying file descriptor.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.file.Close()
}

// Manager opens and tracks named files, handing out *Handle values to the
// cache. Generalizes disk_manager.go's single os.File to many, keyed by
// filename, the way the cache's own File Directory is keyed.
type Manager struct {
	mu    sync.Mutex
	files map[string]*Handle
}

// New creates an empty Manager.
func New() *Manager {
	return &Manager{files: make(map[string]*Handle)}
}

// Open opens (creating if necessary) the file at path and returns its
// Handle. If the Manager already has path open, the existing Handle is
// returned unchanged; the underlying os.File is not reopened (see Reopen).
func (m *Manager) Open(path string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.files[path]; ok {
		return h, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("filemgr: open %q: %w", path, err)
	}

	h := &Handle{name: path, file: f, status: blockcache.StatusNormal}
	m.files[path] = h
	return h, nil
}

// Reopen closes and reopens the file at path, keeping the same *Handle
// identity (and therefore the cache's file-directory entry) while
// swapping the underlying os.File — the scenario spec.md §4.2 names as
// "a hit updates curfile to reflect reopens".
func (m *Manager) Reopen(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.files[path]
	if !ok {
		return fmt.Errorf("filemgr: %q not open", path)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.file.Close(); err != nil {
		return fmt.Errorf("filemgr: close %q for reopen: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("filemgr: reopen %q: %w", path, err)
	}
	h.file = f
	return nil
}

// Close closes and forgets the file at path.
func (m *Manager) Close(path string) error {
	m.mu.Lock()
	h, ok := m.files[path]
	if ok {
		delete(m.files, path)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return h.Close()
}

// Lookup returns the Handle for path, if the Manager has it open.
func (m *Manager) Lookup(path string) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.files[path]
	return h, ok
}

// Names returns the filenames of every file currently open, for admin
// listing endpoints that need to enumerate what the cache is tracking.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	return names
}

// CloseAll closes every open file.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.files))
	for _, h := range m.files {
		handles = append(handles, h)
	}
	m.files = make(map[string]*Handle)
	m.mu.Unlock()

	var firstErr error
	for _, h := range handles {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
