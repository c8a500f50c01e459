package mount

import (
	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/tree"
)

// Stat is the platform-independent attribute bundle returned by Getattr,
// modeled on dargueta/disko's disko.FileStat but trimmed to what spec §4.G's
// getattr actually populates.
type Stat struct {
	Ino     uint32
	Mode    uint32
	Nlink   uint16
	Uid     uint32
	Gid     uint32
	Size    uint32
	Atime   uint32
	Mtime   uint32
	Ctime   uint32
	Blocks  uint32
	Blksize uint32
}

// ChildInfo is one entry emitted by Readdir.
type ChildInfo struct {
	Name     string
	InodeNum uint32
	FileType uint8
}

func errNotFound(path string) error {
	return ratsfs.NewErrorf(ratsfs.ENOENT, "no such file or directory: %q", path)
}

// resolve looks path up and turns a miss into ENOENT, so every operation
// below can treat "found" uniformly.
func (m *Mount) resolve(path string) (*tree.Dentry, error) {
	entry, found, _, err := m.Cache.Lookup(m.Root, path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errNotFound(path)
	}
	return entry, nil
}

func toStat(d *tree.Dentry) *Stat {
	n := d.Inode
	blocks := (n.Size + ratsfs.BlockSize - 1) / ratsfs.BlockSize
	return &Stat{
		Ino:     n.Num,
		Mode:    n.Mode,
		Nlink:   n.Nlink,
		Uid:     n.Uid,
		Gid:     n.Gid,
		Size:    n.Size,
		Atime:   n.Atime,
		Mtime:   n.Mtime,
		Ctime:   n.Ctime,
		Blocks:  blocks,
		Blksize: ratsfs.BlockSize,
	}
}

// Getattr implements spec §4.G's getattr.
func (m *Mount) Getattr(path string) (*Stat, error) {
	entry, err := m.resolve(path)
	if err != nil {
		return nil, err
	}
	return toStat(entry), nil
}

// Readdir implements spec §4.G's readdir. "." and ".." are not emitted here;
// the host adapter synthesizes them (spec §9 open question), since this
// package's Mount has no notion of a host-side fill callback.
func (m *Mount) Readdir(path string) ([]ChildInfo, error) {
	entry, err := m.resolve(path)
	if err != nil {
		return nil, err
	}
	if !entry.Inode.IsDir() {
		// Spec §4.G: readdir returns ENOENT "if missing or not a directory".
		return nil, errNotFound(path)
	}

	children := tree.Children(entry.Inode)
	out := make([]ChildInfo, 0, len(children))
	for _, c := range children {
		out = append(out, ChildInfo{Name: c.Name, InodeNum: c.InodeNum, FileType: c.FileType})
	}
	return out, nil
}

// resolveParentForCreate applies the shared parent-path extraction rule
// (spec §4.G) and loads the parent directory, returning EINVAL for an empty
// base name and ENOENT/ENOTDIR for a missing or non-directory parent.
func (m *Mount) resolveParentForCreate(path string) (parent *tree.Dentry, base string, err error) {
	parentPath, base := tree.SplitParentBase(path)
	if base == "" {
		return nil, "", ratsfs.NewErrorf(ratsfs.EINVAL, "empty base name in path %q", path)
	}

	parent, err = m.resolve(parentPath)
	if err != nil {
		return nil, "", err
	}
	if !parent.Inode.IsDir() {
		return nil, "", ratsfs.NewErrorf(ratsfs.ENOTDIR, "%q is not a directory", parentPath)
	}
	return parent, base, nil
}

func (m *Mount) create(path string, mode uint32, fileType uint8, modeBits uint32) (*tree.Dentry, error) {
	parent, base, err := m.resolveParentForCreate(path)
	if err != nil {
		return nil, err
	}
	if tree.FindChild(parent.Inode, base) != nil {
		return nil, ratsfs.NewErrorf(ratsfs.EEXIST, "already exists: %q", path)
	}

	num, err := m.Cache.InodeAlloc.AllocInodeBit()
	if err != nil {
		return nil, err
	}

	ts := nowSeconds()
	child := tree.NewDentry(base, num, fileType)
	child.Inode = &tree.Inode{
		Num:   num,
		Mode:  modeBits | (mode &^ ratsfs.ModeIFMT),
		Nlink: 1,
		Atime: ts,
		Mtime: ts,
		Ctime: ts,
	}
	tree.AllocDentry(parent, child)
	parent.Inode.Mtime = ts

	if err := m.Cache.SyncInode(parent.Inode); err != nil {
		return nil, err
	}
	return child, nil
}

// Mkdir implements spec §4.G's mkdir.
func (m *Mount) Mkdir(path string, mode uint32) error {
	_, err := m.create(path, mode, ratsfs.TypeDirectory, ratsfs.ModeIFDIR)
	return err
}

// Mknod implements spec §4.G's mknod (regular files only; the symlink type
// code is reserved but never realized, per spec Non-goals).
func (m *Mount) Mknod(path string, mode uint32) error {
	_, err := m.create(path, mode, ratsfs.TypeRegular, ratsfs.ModeIFREG)
	return err
}

// blockBounds returns the inclusive range of direct-block indices that
// overlap the byte range [offset, offset+length).
func blockBounds(offset int64, length int) (first, last int) {
	first = int(offset / ratsfs.BlockSize)
	last = int((offset + int64(length) - 1) / ratsfs.BlockSize)
	return first, last
}

// Write implements spec §4.G's write. A request that would push the file
// past MaxFileSize is rejected in full, per the boundary policy spec §8
// recommends.
func (m *Mount) Write(path string, data []byte, offset int64) (int, error) {
	entry, err := m.resolve(path)
	if err != nil {
		return 0, err
	}
	n := entry.Inode
	if n.IsDir() {
		return 0, ratsfs.NewErrorf(ratsfs.EISDIR, "cannot write to a directory: %q", path)
	}
	if offset < 0 {
		return 0, ratsfs.NewErrorf(ratsfs.EINVAL, "negative offset %d", offset)
	}
	end := offset + int64(len(data))
	if end > ratsfs.MaxFileSize {
		return 0, ratsfs.NewErrorf(ratsfs.ENOSPC, "write would grow file past %d bytes", ratsfs.MaxFileSize)
	}
	if len(data) == 0 {
		return 0, nil
	}

	firstBlock, lastBlock := blockBounds(offset, len(data))
	for k := firstBlock; k <= lastBlock; k++ {
		if n.Block[k] == 0 {
			abs, err := m.Cache.DataAlloc.AllocDataBlock()
			if err != nil {
				return 0, err
			}
			n.Block[k] = abs
		}

		blockStart := int64(k) * ratsfs.BlockSize
		blockEnd := blockStart + ratsfs.BlockSize

		writeStart := offset
		if blockStart > writeStart {
			writeStart = blockStart
		}
		writeEnd := end
		if blockEnd < writeEnd {
			writeEnd = blockEnd
		}

		srcOff := writeStart - offset
		chunk := data[srcOff : srcOff+(writeEnd-writeStart)]
		absOffset := int64(n.Block[k])*ratsfs.BlockSize + (writeStart - blockStart)
		if err := m.Shim.WriteAt(absOffset, chunk); err != nil {
			return 0, err
		}
	}

	if uint32(end) > n.Size {
		n.Size = uint32(end)
	}
	n.Mtime = nowSeconds()
	if err := m.Cache.SyncInode(n); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Read implements spec §4.G's read: len is clamped to size-off, and holes
// (unallocated direct blocks) read back as zeroes.
func (m *Mount) Read(path string, offset int64, length int) ([]byte, error) {
	entry, err := m.resolve(path)
	if err != nil {
		return nil, err
	}
	n := entry.Inode

	if offset < 0 || offset >= int64(n.Size) {
		return []byte{}, nil
	}
	if offset+int64(length) > int64(n.Size) {
		length = int(int64(n.Size) - offset)
	}
	if length <= 0 {
		return []byte{}, nil
	}

	out := make([]byte, length)
	firstBlock, lastBlock := blockBounds(offset, length)
	end := offset + int64(length)

	for k := firstBlock; k <= lastBlock; k++ {
		blockStart := int64(k) * ratsfs.BlockSize
		blockEnd := blockStart + ratsfs.BlockSize

		readStart := offset
		if blockStart > readStart {
			readStart = blockStart
		}
		readEnd := end
		if blockEnd < readEnd {
			readEnd = blockEnd
		}

		dstOff := readStart - offset
		size := int(readEnd - readStart)

		if k >= len(n.Block) || n.Block[k] == 0 {
			// Hole: leave the zero-initialized slice as-is.
			continue
		}
		absOffset := int64(n.Block[k])*ratsfs.BlockSize + (readStart - blockStart)
		chunk, err := m.Shim.ReadAt(absOffset, size)
		if err != nil {
			return nil, err
		}
		copy(out[dstOff:dstOff+int64(size)], chunk)
	}
	return out, nil
}

// Truncate implements spec §4.G's truncate.
func (m *Mount) Truncate(path string, size int64) error {
	if size < 0 || size > ratsfs.MaxFileSize {
		return ratsfs.NewErrorf(ratsfs.EINVAL, "invalid truncate size %d", size)
	}
	entry, err := m.resolve(path)
	if err != nil {
		return err
	}
	n := entry.Inode
	if n.IsDir() {
		return ratsfs.NewErrorf(ratsfs.EISDIR, "cannot truncate a directory: %q", path)
	}

	if uint32(size) < n.Size {
		keepBlocks := int((size + ratsfs.BlockSize - 1) / ratsfs.BlockSize)
		for k := keepBlocks; k < len(n.Block); k++ {
			if n.Block[k] != 0 {
				if err := m.Cache.DataAlloc.FreeDataBlock(n.Block[k]); err != nil {
					return err
				}
				n.Block[k] = 0
			}
		}
	}
	n.Size = uint32(size)
	n.Mtime = nowSeconds()
	return m.Cache.SyncInode(n)
}

// Unlink implements spec §4.G's unlink.
func (m *Mount) Unlink(path string) error {
	entry, err := m.resolve(path)
	if err != nil {
		return err
	}
	n := entry.Inode
	if n.IsDir() {
		return ratsfs.NewErrorf(ratsfs.EISDIR, "cannot unlink a directory: %q", path)
	}

	for _, b := range n.Block {
		if b != 0 {
			if err := m.Cache.DataAlloc.FreeDataBlock(b); err != nil {
				return err
			}
		}
	}
	if err := m.Cache.InodeAlloc.ReleaseInode(n.Num); err != nil {
		return err
	}

	parent := entry.Parent
	tree.DeleteDentry(parent, entry)
	n.Dentry = nil // break the dentry/inode cycle before it's dropped (spec §9)
	entry.Inode = nil

	parent.Inode.Mtime = nowSeconds()
	return m.Cache.SyncInode(parent.Inode)
}

// Rmdir implements spec §4.G's rmdir.
func (m *Mount) Rmdir(path string) error {
	entry, err := m.resolve(path)
	if err != nil {
		return err
	}
	n := entry.Inode
	if !n.IsDir() {
		return ratsfs.NewErrorf(ratsfs.ENOTDIR, "not a directory: %q", path)
	}
	if len(tree.Children(n)) > 0 {
		return ratsfs.NewErrorf(ratsfs.ENOTEMPTY, "directory not empty: %q", path)
	}

	for _, b := range n.Block {
		if b != 0 {
			if err := m.Cache.DataAlloc.FreeDataBlock(b); err != nil {
				return err
			}
		}
	}
	if err := m.Cache.InodeAlloc.ReleaseInode(n.Num); err != nil {
		return err
	}

	parent := entry.Parent
	tree.DeleteDentry(parent, entry)
	n.Dentry = nil
	entry.Inode = nil

	parent.Inode.Mtime = nowSeconds()
	return m.Cache.SyncInode(parent.Inode)
}

// Rename implements spec §4.G's rename.
func (m *Mount) Rename(from, to string) error {
	fromEntry, err := m.resolve(from)
	if err != nil {
		return err
	}

	toParentPath, toBase := tree.SplitParentBase(to)
	if toBase == "" {
		return ratsfs.NewErrorf(ratsfs.EINVAL, "empty base name in path %q", to)
	}
	toParent, err := m.resolve(toParentPath)
	if err != nil {
		return err
	}
	if !toParent.Inode.IsDir() {
		return ratsfs.NewErrorf(ratsfs.ENOTDIR, "%q is not a directory", toParentPath)
	}

	if existing := tree.FindChild(toParent.Inode, toBase); existing != nil {
		if err := m.Cache.LoadInode(existing); err != nil {
			return err
		}
		if existing.Inode.IsDir() != fromEntry.Inode.IsDir() {
			return ratsfs.NewErrorf(ratsfs.EEXIST, "cannot rename %q over %q: different kinds", from, to)
		}
		if existing.Inode.IsDir() && len(tree.Children(existing.Inode)) > 0 {
			return ratsfs.NewErrorf(ratsfs.ENOTEMPTY, "%q is not empty", to)
		}
		for _, b := range existing.Inode.Block {
			if b != 0 {
				if err := m.Cache.DataAlloc.FreeDataBlock(b); err != nil {
					return err
				}
			}
		}
		if err := m.Cache.InodeAlloc.ReleaseInode(existing.Inode.Num); err != nil {
			return err
		}
		tree.DeleteDentry(toParent, existing)
	}

	origParent := fromEntry.Parent
	tree.DeleteDentry(origParent, fromEntry)
	fromEntry.Name = toBase
	tree.AllocDentry(toParent, fromEntry)

	ts := nowSeconds()
	origParent.Inode.Mtime = ts
	toParent.Inode.Mtime = ts

	if err := m.Cache.SyncInode(origParent.Inode); err != nil {
		return err
	}
	if toParent.Inode.Num != origParent.Inode.Num {
		if err := m.Cache.SyncInode(toParent.Inode); err != nil {
			return err
		}
	}
	return nil
}

// Open implements spec §4.G's open: resolve and succeed.
func (m *Mount) Open(path string) error {
	_, err := m.resolve(path)
	return err
}

// Opendir implements spec §4.G's opendir: resolve and succeed.
func (m *Mount) Opendir(path string) error {
	_, err := m.resolve(path)
	return err
}

// Access implements spec §4.G's access: resolve and succeed. Permission
// enforcement is a documented Non-goal.
func (m *Mount) Access(path string) error {
	_, err := m.resolve(path)
	return err
}

// Utimens implements spec §4.G's utimens. A nil atime/mtime pair means "no
// explicit time given", in which case both are set to now; otherwise each
// non-nil pointer sets the corresponding field.
func (m *Mount) Utimens(path string, atime, mtime *uint32) error {
	entry, err := m.resolve(path)
	if err != nil {
		return err
	}
	n := entry.Inode

	if atime == nil && mtime == nil {
		ts := nowSeconds()
		n.Atime = ts
		n.Mtime = ts
	} else {
		if atime != nil {
			n.Atime = *atime
		}
		if mtime != nil {
			n.Mtime = *mtime
		}
	}
	return m.Cache.SyncInode(n)
}
