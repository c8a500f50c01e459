package tree

import (
	"github.com/hashicorp/go-multierror"
	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/ondisk"
)

// SyncInode recursively writes n (and, if it's a directory, every loaded
// child) back to disk, per spec §4.D:
//
//  1. If n is a directory, repack its children list into directory blocks,
//     allocating fresh data blocks for slots that don't have one yet, set
//     n.Size to the number of blocks actually used times BlockSize, and
//     recurse into every child whose inode is loaded.
//  2. Encode n's own 128-byte record and write it to the inode table.
//
// Errors from independent children are collected with go-multierror (as the
// teacher's own recursive directory removal does) instead of aborting on the
// first failure, so one bad subtree doesn't hide syncing the rest.
func (c *Cache) SyncInode(n *Inode) error {
	var result *multierror.Error

	if n.IsDir() {
		if err := c.syncDirectoryBlocks(n); err != nil {
			result = multierror.Append(result, err)
		}
		for _, child := range Children(n) {
			if child.Inode == nil {
				continue
			}
			if err := c.SyncInode(child.Inode); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	od := n.toOnDisk()
	buf, err := od.Encode()
	if err != nil {
		result = multierror.Append(result, err)
		return result.ErrorOrNil()
	}

	offset := ondisk.InodeOffset(c.TableStart, n.Num)
	if err := c.Shim.WriteAt(offset, buf); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (c *Cache) syncDirectoryBlocks(n *Inode) error {
	var result *multierror.Error

	children := Children(n)
	blocksUsed := 0
	idx := 0

	for k := 0; k < len(n.Block) && idx < len(children); k++ {
		end := idx + ondisk.EntriesPerBlock
		if end > len(children) {
			end = len(children)
		}
		chunk := children[idx:end]

		if n.Block[k] == 0 {
			abs, err := c.DataAlloc.AllocDataBlock()
			if err != nil {
				result = multierror.Append(result, err)
				break
			}
			n.Block[k] = abs
		}

		buf := make([]byte, ratsfs.BlockSize)
		for i, child := range chunk {
			fileType := child.FileType
			if child.Inode != nil {
				fileType = child.Inode.TypeCode()
			}
			de, err := ondisk.NewDirEntry(child.InodeNum, child.Name, fileType)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			encoded, err := de.Encode()
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			copy(buf[i*ondisk.DirEntrySize:(i+1)*ondisk.DirEntrySize], encoded)
		}

		if err := c.Shim.WriteBlock(n.Block[k], buf); err != nil {
			result = multierror.Append(result, err)
		}
		idx = end
		blocksUsed++
	}

	if idx < len(children) {
		result = multierror.Append(result, ratsfs.NewErrorf(ratsfs.ENOSPC,
			"directory has %d children, only room for %d across %d direct blocks",
			len(children), blocksUsed*ondisk.EntriesPerBlock, len(n.Block)))
	}

	// Blocks the directory no longer needs (the child count shrank, e.g. via
	// rmdir/unlink) must be freed and zeroed, mirroring Truncate's shrink
	// path: a stale nonzero n.Block[k] would otherwise be rescanned and its
	// leftover directory entries resurrected by LoadInode after a remount.
	for k := blocksUsed; k < len(n.Block); k++ {
		if n.Block[k] != 0 {
			if err := c.DataAlloc.FreeDataBlock(n.Block[k]); err != nil {
				result = multierror.Append(result, err)
				continue
			}
			n.Block[k] = 0
		}
	}

	n.Size = uint32(blocksUsed) * ratsfs.BlockSize
	return result.ErrorOrNil()
}
