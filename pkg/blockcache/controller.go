// Package blockcache implements a block cache sitting between a
// higher-level key/value storage engine and block-oriented file I/O. It
// serves fixed-size blocks identified by a (file, bid) pair, coalesces
// dirty writes into large sequential flushes, and balances clean
// recycling against write-back pressure.
package blockcache

import (
	"fmt"
	"log"
	"os"
	"sync"
)

var logger = log.New(os.Stderr, "[blockcache] ", log.LstdFlags)

// cacheStats accumulates diagnostic counters. They are exposed through
// Stats for operational visibility and never feed back into the eviction
// policy (spec.md §1 "does not track access statistics beyond list
// position").
type cacheStats struct {
	hits      uint64
	misses    uint64
	evictions uint64
	flushes   uint64
}

// Stats is a point-in-time snapshot of cache state, safe to read after the
// Cache has released its lock.
type Stats struct {
	NBlock int
	NFree  int
	NClean int
	NDirty int

	Hits      uint64
	Misses    uint64
	Evictions uint64
	Flushes   uint64

	// DirtyPerFile maps filename to its dirty-set size.
	DirtyPerFile map[string]int
}

// Cache is the block cache described by spec.md. All state lives in one
// instance (spec.md §9: "Reimplementations should encapsulate the entire
// state in a single instance passed explicitly").
type Cache struct {
	mu sync.Mutex // global cache lock (spec.md §5)

	cfg Config

	free  *frameList
	clean *frameList
	dirty *frameList

	index *blockIndex
	dir   *fileDirectory

	nodePool sync.Pool // pools *dirtySetNode allocations (spec.md §3, §9)

	stats cacheStats
}

// Init allocates nblock frames of blocksize bytes and returns a ready
// Cache (spec.md §6 "init(nblock, blocksize)").
func Init(cfg Config) (*Cache, error) {
	if cfg.NBlock <= 0 || cfg.BlockSize <= 0 {
		return nil, ErrInvalidConfig
	}
	if cfg.NBucket <= 0 {
		cfg.NBucket = DefaultNBucket
	}
	if cfg.NDicBucket <= 0 {
		cfg.NDicBucket = DefaultNDicBucket
	}
	if cfg.FlushUnit <= 0 {
		cfg.FlushUnit = DefaultFlushUnit
	}
	if cfg.EvictRatio <= 0 {
		cfg.EvictRatio = DefaultEvictRatio
	}

	c := &Cache{
		cfg:   cfg,
		free:  newFrameList(onFree),
		clean: newFrameList(onClean),
		dirty: newFrameList(onDirty),
		index: newBlockIndex(cfg.NBucket),
		dir:   newFileDirectory(cfg.NDicBucket),
	}

	for i := 0; i < cfg.NBlock; i++ {
		c.free.pushFront(newFrame(cfg.BlockSize))
	}

	logger.Printf("init: %d blocks * %d bytes", cfg.NBlock, cfg.BlockSize)
	return c, nil
}

// Shutdown releases the cache's state. The Cache must not be used
// afterward.
func (c *Cache) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.free = newFrameList(onFree)
	c.clean = newFrameList(onClean)
	c.dirty = newFrameList(onDirty)
	c.index = newBlockIndex(0)
	c.dir = newFileDirectory(0)
	logger.Printf("shutdown")
}

// Read implements spec.md §4.4 "read". It returns (0, nil) on either a
// file-level or block-level miss; the caller must fetch the block itself
// and subsequently Write it.
func (c *Cache) Read(file FileHandle, bid BlockID, out []byte) (int, error) {
	c.mu.Lock()

	fd, ok := c.dir.lookup(file.Name())
	if !ok {
		c.stats.misses++
		c.mu.Unlock()
		return 0, nil
	}
	fd.curfile = file

	f, ok := c.index.lookup(fd, bid)
	if !ok {
		c.stats.misses++
		c.mu.Unlock()
		return 0, nil
	}
	c.stats.hits++

	if file.Status() != StatusCompactOld {
		c.listFor(f).moveToFront(f)
	}

	f.mu.Lock()
	c.mu.Unlock()

	n := copy(out, f.buf)

	f.mu.Unlock()
	return n, nil
}

// Write implements spec.md §4.4 "write".
func (c *Cache) Write(file FileHandle, bid BlockID, in []byte, dirty DirtyFlag) (int, error) {
	c.mu.Lock()

	fd := c.dir.getOrCreate(file)

	f, hit := c.index.lookup(fd, bid)
	if !hit {
		var err error
		f, err = c.popFreeFrame()
		if err != nil {
			c.mu.Unlock()
			return 0, err
		}
		f.bid = bid
		f.file = fd
		c.index.insert(f)
	} else {
		c.listFor(f).remove(f)
	}

	wasDirty := f.kind == onDirty

	if dirty == Dirty {
		if !wasDirty {
			c.insertDirtyNode(fd, f)
		}
		f.kind = onDirty
	} else {
		if wasDirty {
			fd.dirtySetRemove(f.bid, &c.nodePool)
		}
		f.kind = onClean
	}

	// The marker is read from the frame's *existing* contents, before the
	// incoming buffer is copied in below — matching the reference design,
	// which reads this for a newly-acquired frame too (its prior binding's
	// trailing byte, stale or not).
	compactOldDoc := fd.curfile.Status() == StatusCompactOld && !f.isBNode()

	targetList := c.listByKind(f.kind)
	if compactOldDoc {
		targetList.pushBack(f)
	} else {
		targetList.pushFront(f)
	}

	f.mu.Lock()
	c.mu.Unlock()

	n := copy(f.buf, in)

	f.mu.Unlock()
	return n, nil
}

// WritePartial implements spec.md §4.4 "write-partial". On a miss it
// returns (0, nil) without allocating a frame: the caller must have
// already fetched the full block. The frame is unconditionally promoted
// to dirty. The cache does not verify that the caller previously loaded
// the full block (spec.md §9).
func (c *Cache) WritePartial(file FileHandle, bid BlockID, in []byte, offset, length int) (int, error) {
	c.mu.Lock()

	fd, ok := c.dir.lookup(file.Name())
	if !ok {
		c.stats.misses++
		c.mu.Unlock()
		return 0, nil
	}
	fd.curfile = file

	f, ok := c.index.lookup(fd, bid)
	if !ok {
		c.stats.misses++
		c.mu.Unlock()
		return 0, nil
	}
	c.stats.hits++

	c.listFor(f).remove(f)

	if f.kind != onDirty {
		c.insertDirtyNode(fd, f)
	}
	f.kind = onDirty

	compactOldDoc := fd.curfile.Status() == StatusCompactOld && !f.isBNode()
	if compactOldDoc {
		c.dirty.pushBack(f)
	} else {
		c.dirty.pushFront(f)
	}

	f.mu.Lock()
	c.mu.Unlock()

	n := copy(f.buf[offset:offset+length], in)

	f.mu.Unlock()
	return n, nil
}

// Flush implements spec.md §4.4 "flush": repeatedly invokes the batched
// flush routine with sync=true until the file's dirty set is empty. Held
// under the global lock for its entire duration, per spec.md §5: "the
// cache is single-writer during a flush".
func (c *Cache) Flush(file FileHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fd, ok := c.dir.lookup(file.Name())
	if !ok {
		return nil
	}

	for !fd.dirtySetEmpty() {
		n, err := c.batchedFlushPass(fd, modeSync)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("blockcache: flush of %q made no progress", fd.name)
		}
	}
	return nil
}

// DiscardDirty implements spec.md §4.4 "discard-dirty": dirty frames are
// returned to the free list without any I/O.
func (c *Cache) DiscardDirty(file FileHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fd, ok := c.dir.lookup(file.Name())
	if !ok {
		return nil
	}
	c.drainDirtyDiscard(fd)
	return nil
}

// DiscardClean implements spec.md §4.4 "discard-clean": every clean frame
// belonging to the file is unbound from the index and returned to the
// free list.
func (c *Cache) DiscardClean(file FileHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fd, ok := c.dir.lookup(file.Name())
	if !ok {
		return nil
	}

	for e := c.clean.l.Front(); e != nil; {
		next := e.Next()
		f := e.Value.(*frame)
		if f.file == fd {
			c.clean.l.Remove(e)
			c.clean.n--
			c.index.remove(f)
			f.file = nil
			f.bid = BlkNotFound
			c.free.pushFront(f)
		}
		e = next
	}
	return nil
}

// DropFile implements spec.md §4.4 "drop-file": removes the descriptor
// from the directory. While the dirty set is non-empty it refuses with
// ErrDirtySetNotEmpty and leaves the descriptor in place (spec.md §4.4,
// §7); an untracked file yields ErrFileNotFound.
func (c *Cache) DropFile(file FileHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fd, ok := c.dir.lookup(file.Name())
	if !ok {
		return ErrFileNotFound
	}
	if !fd.dirtySetEmpty() {
		return ErrDirtySetNotEmpty
	}
	c.dir.drop(file.Name())
	return nil
}

// Stats returns a point-in-time snapshot of cache state.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	perFile := make(map[string]int, len(c.dir.byName))
	for name, fd := range c.dir.byName {
		perFile[name] = fd.dirtySet.Len()
	}

	return Stats{
		NBlock:       c.cfg.NBlock,
		NFree:        c.free.len(),
		NClean:       c.clean.len(),
		NDirty:       c.dirty.len(),
		Hits:         c.stats.hits,
		Misses:       c.stats.misses,
		Evictions:    c.stats.evictions,
		Flushes:      c.stats.flushes,
		DirtyPerFile: perFile,
	}
}

// listFor returns the frameList f currently belongs to.
func (c *Cache) listFor(f *frame) *frameList {
	return c.listByKind(f.kind)
}

func (c *Cache) listByKind(k listKind) *frameList {
	switch k {
	case onFree:
		return c.free
	case onClean:
		return c.clean
	default:
		return c.dirty
	}
}

// insertDirtyNode allocates a dirty-set node from the pool (spec.md §3,
// §9's memory-pool collaborator) and links it into fd's ordered set.
func (c *Cache) insertDirtyNode(fd *fileDescriptor, f *frame) {
	fd.dirtySetInsert(f, &c.nodePool)
}
