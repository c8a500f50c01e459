package tree

import (
	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/alloc"
	"github.com/ratsfs/ratsfs/block"
	"github.com/ratsfs/ratsfs/ondisk"
)

// Cache is the inode cache plus everything it needs to lazily load from and
// write back to disk: the block shim, the two bitmap allocators, and the
// inode table's starting block.
type Cache struct {
	Shim       *block.Shim
	InodeAlloc *alloc.InodeAllocator
	DataAlloc  *alloc.DataAllocator
	TableStart uint32
}

// NewCache builds a Cache over an already-mounted (or freshly formatted)
// image's allocators and inode table location.
func NewCache(shim *block.Shim, inodeAlloc *alloc.InodeAllocator, dataAlloc *alloc.DataAllocator, tableStart uint32) *Cache {
	return &Cache{Shim: shim, InodeAlloc: inodeAlloc, DataAlloc: dataAlloc, TableStart: tableStart}
}

// readInodeRecord reads and decodes inode number ino's on-disk record,
// without touching its directory contents.
func (c *Cache) readInodeRecord(ino uint32) (*Inode, error) {
	offset := ondisk.InodeOffset(c.TableStart, ino)
	buf, err := c.Shim.ReadAt(offset, ondisk.InodeRecordSize)
	if err != nil {
		return nil, err
	}
	od, err := ondisk.DecodeInode(buf)
	if err != nil {
		return nil, err
	}
	return fromOnDisk(od), nil
}

// LoadInode populates d.Inode by reading inode number d.InodeNum from disk,
// fixing up the back-pointer (n.Dentry = d), per spec §4.D. If the inode is
// a directory, its immediate children are synthesized as unlinked-inode
// dentries (lazy fan-out, spec §9): their own Inode fields stay nil until a
// later Lookup or LoadInode reaches them.
//
// Calling LoadInode on a dentry that's already loaded is a safe no-op.
func (c *Cache) LoadInode(d *Dentry) error {
	if d.Inode != nil {
		return nil
	}

	n, err := c.readInodeRecord(d.InodeNum)
	if err != nil {
		return err
	}
	n.Dentry = d
	d.Inode = n
	d.FileType = n.TypeCode()

	if n.IsDir() {
		for _, blockNum := range n.Block {
			if blockNum == 0 {
				continue
			}
			buf, err := c.Shim.ReadBlock(blockNum)
			if err != nil {
				return err
			}
			entries, err := ondisk.SplitDirBlock(buf)
			if err != nil {
				return err
			}
			// Spec §4.D: slots are scanned in reverse within a block while
			// blocks are scanned in order, and children are prepended —
			// callers must not depend on resulting sibling order.
			for i := len(entries) - 1; i >= 0; i-- {
				e := entries[i]
				child := NewDentry(e.NameString(), e.InodeNum, e.FileType)
				AllocDentry(d, child)
			}
		}
	}
	return nil
}

// NewRootDentry builds the unpopulated root dentry, attached under no
// parent, for a fresh mount to populate via LoadInode.
func NewRootDentry(rootInodeNum uint32) *Dentry {
	return NewDentry("/", rootInodeNum, ratsfs.TypeDirectory)
}
