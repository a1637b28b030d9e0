package blockcache

// fileDirectory is the hash map from filename to fileDescriptor
// (spec.md §4.2). Go's native map already gives the O(1) expected-time,
// byte-exact-equality lookup the spec calls for; the filename hash
// (fileDescriptor.nameHash) is still computed and retained for parity with
// the original's bucket-selection hash, but nothing reads it: bucketing is
// left to the runtime map rather than hand-rolled chaining. The directory never evicts (spec.md §4.2).
type fileDirectory struct {
	byName map[string]*fileDescriptor
}

func newFileDirectory(capacityHint int) *fileDirectory {
	return &fileDirectory{byName: make(map[string]*fileDescriptor, capacityHint)}
}

func (d *fileDirectory) lookup(name string) (*fileDescriptor, bool) {
	fd, ok := d.byName[name]
	return fd, ok
}

// getOrCreate returns the existing descriptor for name, or creates one.
// Either way, curfile is updated to reflect the caller's current handle
// (spec.md §4.2: "a hit updates curfile to the caller's current file
// handle to reflect reopens").
func (d *fileDirectory) getOrCreate(h FileHandle) *fileDescriptor {
	name := h.Name()
	fd, ok := d.byName[name]
	if !ok {
		fd = newFileDescriptor(name)
		d.byName[name] = fd
	}
	fd.curfile = h
	return fd
}

// drop removes a descriptor from the directory.
func (d *fileDirectory) drop(name string) {
	delete(d.byName, name)
}
