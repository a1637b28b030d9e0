package blockcache

import (
	"sync"
	"testing"
)

// fakeFile is an in-memory FileHandle for exercising the cache without
// touching the filesystem, in the spirit of disk_manager_test.go's
// temp-dir fixtures but swapping real I/O for something inspectable.
type fakeFile struct {
	name   string
	status FileStatus

	mu     sync.Mutex
	writes int
	data   map[int64][]byte
}

func newFakeFile(name string) *fakeFile {
	return &fakeFile{name: name, data: make(map[int64][]byte)}
}

func (f *fakeFile) Name() string     { return f.name }
func (f *fakeFile) Status() FileStatus { return f.status }

func (f *fakeFile) PWrite(buf []byte, offset int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(buf))
	copy(cp, buf)
	f.data[offset] = cp
	f.writes++
	return len(buf), nil
}

func (f *fakeFile) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func testConfig(nblock int) Config {
	return DefaultConfig(nblock, 64)
}

func TestReadMissReturnsZero(t *testing.T) {
	c, err := Init(testConfig(4))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	f := newFakeFile("a.db")

	out := make([]byte, 64)
	n, err := c.Read(f, 0, out)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 on miss, got %d", n)
	}
}

func TestWriteThenReadHits(t *testing.T) {
	c, err := Init(testConfig(4))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	f := newFakeFile("a.db")

	in := make([]byte, 64)
	copy(in, []byte("hello"))
	if _, err := c.Write(f, 0, in, Clean); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out := make([]byte, 64)
	n, err := c.Read(f, 0, out)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 64 {
		t.Errorf("expected 64 bytes copied, got %d", n)
	}
	if string(out[:5]) != "hello" {
		t.Errorf("expected round-tripped content, got %q", out[:5])
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 0 {
		t.Errorf("expected 1 hit 0 misses, got hits=%d misses=%d", stats.Hits, stats.Misses)
	}
}

func TestBatchedFlushCoalescesConsecutiveRun(t *testing.T) {
	c, err := Init(testConfig(8))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	f := newFakeFile("a.db")
	buf := make([]byte, 64)

	// Two consecutive runs (0,1,2) and (5,6) separated by a gap at bid 3-4.
	for _, bid := range []BlockID{0, 1, 2, 5, 6} {
		if _, err := c.Write(f, bid, buf, Dirty); err != nil {
			t.Fatalf("Write(%d): %v", bid, err)
		}
	}

	if err := c.Flush(f); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if got := f.writeCount(); got != 2 {
		t.Errorf("expected exactly 2 pwrites for 2 consecutive runs, got %d", got)
	}

	stats := c.Stats()
	if stats.NDirty != 0 {
		t.Errorf("expected dirty list empty after flush, got %d", stats.NDirty)
	}
	if stats.NClean != 5 {
		t.Errorf("expected 5 clean frames after flush, got %d", stats.NClean)
	}
}

func TestEvictionRecyclesCleanUnderPressure(t *testing.T) {
	c, err := Init(testConfig(2))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	f := newFakeFile("a.db")
	buf := make([]byte, 64)

	for _, bid := range []BlockID{0, 1} {
		if _, err := c.Write(f, bid, buf, Clean); err != nil {
			t.Fatalf("Write(%d): %v", bid, err)
		}
	}
	// Touch bid 1 so bid 0 is the LRU clean tail.
	out := make([]byte, 64)
	if _, err := c.Read(f, 1, out); err != nil {
		t.Fatalf("Read: %v", err)
	}

	// A third distinct block forces the evictor to recycle bid 0's frame.
	if _, err := c.Write(f, 2, buf, Clean); err != nil {
		t.Fatalf("Write(2): %v", err)
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evictions)
	}

	// bid 0 should now be a miss.
	n, err := c.Read(f, 0, out)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 0 {
		t.Errorf("expected bid 0 evicted (miss), got n=%d", n)
	}
}

func TestEvictionForcesFlushWhenAllDirty(t *testing.T) {
	c, err := Init(testConfig(2))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	f := newFakeFile("a.db")
	buf := make([]byte, 64)

	if _, err := c.Write(f, 0, buf, Dirty); err != nil {
		t.Fatalf("Write(0): %v", err)
	}
	if _, err := c.Write(f, 1, buf, Dirty); err != nil {
		t.Fatalf("Write(1): %v", err)
	}

	// Both frames are dirty and no clean frame exists, so allocating a
	// third distinct block must flush at least one before recycling.
	if _, err := c.Write(f, 2, buf, Clean); err != nil {
		t.Fatalf("Write(2): %v", err)
	}

	if got := f.writeCount(); got == 0 {
		t.Errorf("expected eviction to have triggered at least one flush, got %d writes", got)
	}
	stats := c.Stats()
	if stats.NDirty+stats.NClean+stats.NFree != 2 {
		t.Errorf("expected exactly 2 occupied frames, got dirty=%d clean=%d free=%d",
			stats.NDirty, stats.NClean, stats.NFree)
	}
}

func TestCompactOldDocumentBlockDiscardedNotWritten(t *testing.T) {
	c, err := Init(testConfig(4))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	f := newFakeFile("a.db")
	f.status = StatusCompactOld

	docBuf := make([]byte, 64)
	docBuf[63] = 0x00 // not the b-tree marker
	if _, err := c.Write(f, 0, docBuf, Dirty); err != nil {
		t.Fatalf("Write doc: %v", err)
	}

	bnodeBuf := make([]byte, 64)
	bnodeBuf[63] = BlkMarkerBNode
	if _, err := c.Write(f, 1, bnodeBuf, Dirty); err != nil {
		t.Fatalf("Write bnode: %v", err)
	}

	if err := c.Flush(f); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	stats := c.Stats()
	if stats.NClean != 1 {
		t.Errorf("expected only the b-tree block to survive as clean, got %d", stats.NClean)
	}
	if stats.NFree != 3 {
		t.Errorf("expected the discarded document frame back on free, got nfree=%d", stats.NFree)
	}
}

func TestWritePartialMissReturnsZero(t *testing.T) {
	c, err := Init(testConfig(4))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	f := newFakeFile("a.db")

	n, err := c.WritePartial(f, 0, []byte("x"), 0, 1)
	if err != nil {
		t.Fatalf("WritePartial: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 on miss, got %d", n)
	}
}

func TestWritePartialOnExistingBlockPromotesToDirty(t *testing.T) {
	c, err := Init(testConfig(4))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	f := newFakeFile("a.db")
	buf := make([]byte, 64)

	if _, err := c.Write(f, 0, buf, Clean); err != nil {
		t.Fatalf("Write: %v", err)
	}

	n, err := c.WritePartial(f, 0, []byte("patched"), 10, 7)
	if err != nil {
		t.Fatalf("WritePartial: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7 bytes copied, got %d", n)
	}

	stats := c.Stats()
	if stats.NDirty != 1 || stats.NClean != 0 {
		t.Errorf("expected block promoted to dirty, got dirty=%d clean=%d", stats.NDirty, stats.NClean)
	}
}

func TestDiscardDirtyReturnsFramesWithoutIO(t *testing.T) {
	c, err := Init(testConfig(4))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	f := newFakeFile("a.db")
	buf := make([]byte, 64)

	if _, err := c.Write(f, 0, buf, Dirty); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := c.DiscardDirty(f); err != nil {
		t.Fatalf("DiscardDirty: %v", err)
	}

	if got := f.writeCount(); got != 0 {
		t.Errorf("expected no pwrite from a discard, got %d", got)
	}
	stats := c.Stats()
	if stats.NFree != 4 {
		t.Errorf("expected all frames free after discard, got %d", stats.NFree)
	}
}

func TestDropFileRejectsNonEmptyDirtySet(t *testing.T) {
	c, err := Init(testConfig(4))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	f := newFakeFile("a.db")
	buf := make([]byte, 64)

	if _, err := c.Write(f, 0, buf, Dirty); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := c.DropFile(f); err != ErrDirtySetNotEmpty {
		t.Errorf("expected ErrDirtySetNotEmpty, got %v", err)
	}

	if err := c.DiscardDirty(f); err != nil {
		t.Fatalf("DiscardDirty: %v", err)
	}
	if err := c.DropFile(f); err != nil {
		t.Errorf("expected drop to succeed once dirty set is empty, got %v", err)
	}
}
