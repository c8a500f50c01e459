// Package tree implements the in-memory inode cache, the directory tree it
// hangs off of, lazy loading, recursive write-back, and path resolution
// (components D and E).
//
// Grounded on dargueta/disko's drivers/common/basedriver (Dentry/ObjectHandle
// split, lazy population) and drivers/unixv1/inode.go (direct-block-only
// inode shape), generalized to the spec's fixed six-direct-block layout and
// prepend-ordered sibling lists (spec §4.D/§9).
package tree

import (
	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/ondisk"
)

// Inode is the in-memory mirror of an on-disk inode record, plus the links
// spec §3 adds: a non-owning back-pointer to its owning dentry, an owning
// pointer to the head of its children list (directories only), and an
// optional raw data buffer that regular files never populate (they go
// through Block directly).
type Inode struct {
	Num   uint32
	Mode  uint32
	Size  uint32
	Atime uint32
	Mtime uint32
	Ctime uint32
	Uid   uint32
	Gid   uint32
	Nlink uint16
	Block [ratsfs.DirectBlockCount]uint32

	Dentry     *Dentry // non-owning
	FirstChild *Dentry // owning, directories only
	Data       []byte  // unused by regular files
}

// IsDir reports whether the inode's mode marks it as a directory.
func (n *Inode) IsDir() bool {
	return n.Mode&ratsfs.ModeIFMT == ratsfs.ModeIFDIR
}

// TypeCode returns the directory-entry file-type code matching this inode's
// mode. The inode's mode is authoritative once loaded (spec §9).
func (n *Inode) TypeCode() uint8 {
	switch n.Mode & ratsfs.ModeIFMT {
	case ratsfs.ModeIFDIR:
		return ratsfs.TypeDirectory
	case ratsfs.ModeIFLNK:
		return ratsfs.TypeSymlink
	default:
		return ratsfs.TypeRegular
	}
}

// NumBlocksUsed reports how many direct block slots are occupied.
func (n *Inode) NumBlocksUsed() int {
	count := 0
	for _, b := range n.Block {
		if b != 0 {
			count++
		}
	}
	return count
}

func fromOnDisk(od *ondisk.Inode) *Inode {
	n := &Inode{
		Num:   od.InodeNum,
		Mode:  od.Mode,
		Size:  od.Size,
		Atime: od.Atime,
		Mtime: od.Mtime,
		Ctime: od.Ctime,
		Uid:   od.Uid,
		Gid:   od.Gid,
		Nlink: od.Nlink,
		Block: od.Block,
	}
	return n
}

func (n *Inode) toOnDisk() *ondisk.Inode {
	return &ondisk.Inode{
		InodeNum: n.Num,
		Mode:     n.Mode,
		Size:     n.Size,
		Atime:    n.Atime,
		Mtime:    n.Mtime,
		Ctime:    n.Ctime,
		Uid:      n.Uid,
		Gid:      n.Gid,
		Nlink:    n.Nlink,
		Block:    n.Block,
	}
}
