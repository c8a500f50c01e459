package alloc

// InodeAllocator allocates and frees inode numbers directly out of a Bitmap
// (bit i == inode i, no offset translation needed).
type InodeAllocator struct {
	bm *Bitmap
}

// NewInodeAllocator wraps bm as an inode-number allocator.
func NewInodeAllocator(bm *Bitmap) *InodeAllocator {
	return &InodeAllocator{bm: bm}
}

// AllocInodeBit finds the first free inode number, marks it allocated, and
// returns it.
func (a *InodeAllocator) AllocInodeBit() (uint32, error) {
	i, err := a.bm.AllocFirst()
	if err != nil {
		return 0, err
	}
	return uint32(i), nil
}

// ReleaseInode clears the bit for inode number ino.
func (a *InodeAllocator) ReleaseInode(ino uint32) error {
	return a.bm.Free(uint(ino))
}

// IsAllocated reports whether inode ino is currently marked used.
func (a *InodeAllocator) IsAllocated(ino uint32) bool {
	return a.bm.Get(uint(ino))
}
