package blockcache

import (
	"container/list"
	"fmt"
)

// flushMode selects whether a batched pass issues a pwrite (sync) or
// simply discards dirty frames without I/O (discard), per spec.md §4.5.
type flushMode int

const (
	modeSync flushMode = iota
	modeDiscard
)

// popFreeFrame returns a frame from the free list, running the evictor
// until one is available (spec.md §4.4 write step 2).
func (c *Cache) popFreeFrame() (*frame, error) {
	for {
		if f := c.free.front(); f != nil {
			c.free.remove(f)
			return f, nil
		}
		if err := c.runEvictionCycle(); err != nil {
			return nil, err
		}
	}
}

// runEvictionCycle performs exactly one step of the eviction policy
// (spec.md §4.5 "Evictor"): it either recycles the clean-list tail
// directly, or runs a batched flush pass (one consecutive run) on the
// file owning the dirty-list tail to make a clean frame available, then
// recycles that. The freed frame is unbound from the index and
// pushed to the free-list head.
func (c *Cache) runEvictionCycle() error {
	var victim *frame

	if c.clean.len() >= c.cfg.EvictRatio*c.dirty.len() {
		victim = c.clean.back()
	}

	// A flushed run may route every frame straight to the free list instead
	// of clean (compact-old document blocks, batchedFlushPass's discard
	// branch) and never produce a clean victim, so the loop also exits once
	// the free list itself has gained an entry.
	for victim == nil && c.free.front() == nil {
		df := c.dirty.back()
		if df == nil {
			// Nothing dirty left to flush; fall back to whatever clean
			// frame exists, even if the ratio test didn't call for it.
			victim = c.clean.back()
			break
		}
		if _, err := c.batchedFlushPass(df.file, modeSync); err != nil {
			return err
		}
		victim = c.clean.back()
	}

	if victim == nil {
		if c.free.front() != nil {
			// The flush pass already pushed a frame to free (compact-old
			// document block); let popFreeFrame pick it up directly.
			return nil
		}
		return ErrNoFreeFrame
	}

	c.clean.remove(victim)
	c.index.remove(victim)
	victim.file = nil
	victim.bid = BlkNotFound
	c.free.pushFront(victim)
	c.stats.evictions++
	return nil
}

// flushItem is one frame selected for inclusion in a sync run, collected
// before any state mutation so that a failed pwrite leaves the dirty set
// and dirty list untouched (spec.md §7: "no state transitions applied for
// the failed run").
type flushItem struct {
	node   *dirtySetNode
	marker byte
}

// batchedFlushPass implements spec.md §4.5 "Batched flush pass" for one
// file. In modeSync it collects a consecutive-bid run up to cfg.FlushUnit
// bytes, stamps checksums on b-tree frames, and issues one pwrite; only on
// success does it remove the run from the dirty set/list and route frames
// to clean or free. A run of compact-old document blocks is instead freed
// with no pwrite. In modeDiscard it drains the entire dirty set with no
// I/O, unconditionally returning every frame to the free list.
func (c *Cache) batchedFlushPass(fd *fileDescriptor, mode flushMode) (int, error) {
	if mode == modeDiscard {
		return c.drainDirtyDiscard(fd), nil
	}

	status := StatusNormal
	if fd.curfile != nil {
		status = fd.curfile.Status()
	}

	var items []flushItem
	var startBid, prevBid BlockID
	started, skipRun := false, false

	for e := fd.dirtySet.Front(); e != nil; e = e.Next() {
		node := e.Value.(*dirtySetNode)
		skip := status == StatusCompactOld && node.frame.marker() != BlkMarkerBNode
		if started && (node.bid != prevBid+1 || skip != skipRun) {
			break
		}
		if !started {
			startBid = node.bid
			skipRun = skip
			started = true
		}
		prevBid = node.bid
		items = append(items, flushItem{node: node, marker: node.frame.marker()})
		if len(items)*c.cfg.BlockSize >= c.cfg.FlushUnit {
			break
		}
	}

	if len(items) == 0 {
		return 0, nil
	}
	if skipRun {
		for _, it := range items {
			f := it.node.frame
			fd.dirtySetRemove(it.node.bid, &c.nodePool)
			c.dirty.remove(f)
			c.index.remove(f)
			f.file, f.bid = nil, BlkNotFound
			c.free.pushFront(f)
		}
		return len(items), nil
	}

	scratch := make([]byte, len(items)*c.cfg.BlockSize)
	for i, it := range items {
		f := it.node.frame
		f.mu.Lock()
		if it.marker == BlkMarkerBNode {
			stampChecksum(f.buf)
		}
		copy(scratch[i*c.cfg.BlockSize:], f.buf)
		f.mu.Unlock()
	}

	if fd.curfile == nil {
		return 0, fmt.Errorf("blockcache: flush of %q with no open file handle", fd.name)
	}
	n, err := fd.curfile.PWrite(scratch, int64(startBid)*int64(c.cfg.BlockSize))
	if err != nil {
		return 0, fmt.Errorf("blockcache: flush pwrite on %q: %w", fd.name, err)
	}
	if n != len(scratch) {
		return 0, ErrShortWrite
	}
	c.stats.flushes++

	for _, it := range items {
		f := it.node.frame
		fd.dirtySetRemove(it.node.bid, &c.nodePool)
		c.dirty.remove(f)

		keepClean := status != StatusCompactOld || it.marker == BlkMarkerBNode
		if keepClean {
			c.clean.pushFront(f)
		} else {
			// Compact-old document block: the compacted file replaces it,
			// so it must never be written back (spec.md §4.5 step 5).
			c.index.remove(f)
			f.file = nil
			f.bid = BlkNotFound
			c.free.pushFront(f)
		}
	}

	return len(items), nil
}

// drainDirtyDiscard removes every dirty frame of fd, returning each
// straight to the free list without any I/O (spec.md §4.4 discard-dirty).
func (c *Cache) drainDirtyDiscard(fd *fileDescriptor) int {
	count := 0
	for {
		var e *list.Element = fd.dirtySet.Front()
		if e == nil {
			break
		}
		node := e.Value.(*dirtySetNode)
		f := node.frame

		fd.dirtySetRemove(node.bid, &c.nodePool)
		c.dirty.remove(f)
		c.index.remove(f)
		f.file = nil
		f.bid = BlkNotFound
		c.free.pushFront(f)
		count++
	}
	return count
}
