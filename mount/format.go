// Package mount implements mount/format/unmount (component F) and the 14
// filesystem upcall handlers (component G), grounded on dargueta/disko's
// drivers/common/basedriver (CommonDriver's path normalization, Mkdir/
// Remove/Truncate/ReadDir family) and drivers/unixv1/format.go (the
// region-sizing heuristic and root-inode bootstrap this package's Format
// generalizes to the spec's fixed six-direct-block layout).
package mount

import (
	"time"

	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/alloc"
	"github.com/ratsfs/ratsfs/block"
	"github.com/ratsfs/ratsfs/ondisk"
	"github.com/ratsfs/ratsfs/tree"
)

// Mount holds everything live for one mounted image: the block shim, the
// superblock as currently in effect, the two bitmap allocators, the inode
// cache, and the root directory entry.
//
// A Mount is not a package-level singleton (spec §9's open question): it is
// constructed by Open/Format and threaded explicitly into the host adapter
// by its caller.
type Mount struct {
	Shim    *block.Shim
	SB      *ondisk.Superblock
	InodeBm *alloc.Bitmap
	DataBm  *alloc.Bitmap
	Cache   *tree.Cache
	Root    *tree.Dentry
}

// nowSeconds returns the current time as the 32-bit Unix-seconds timestamp
// the on-disk inode format stores.
func nowSeconds() uint32 {
	return uint32(time.Now().Unix())
}

// Format lays out a fresh image on dev: superblock (block 0), inode bitmap
// (block 1), data bitmap (block 2), the inode table, and the data region,
// per spec §4.F. The region-sizing heuristic is the teacher's: one inode
// block (8 inodes, each up to 6 direct blocks) costs 1+48 = 49 blocks of
// address space.
func Format(dev block.Device) (*Mount, error) {
	size, err := dev.Size()
	if err != nil {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "query device size: %s", err)
	}

	totalBlocks := uint32(size / ratsfs.BlockSize)
	const reserved = 3 // superblock + inode bitmap + data bitmap
	if totalBlocks <= reserved {
		return nil, ratsfs.NewErrorf(ratsfs.EINVAL, "device too small: %d blocks", totalBlocks)
	}

	available := totalBlocks - reserved
	inodeBlks := available / 49
	if inodeBlks == 0 {
		return nil, ratsfs.NewErrorf(ratsfs.EINVAL, "device too small to hold any inodes")
	}
	dataStart := reserved + inodeBlks
	inodeCount := inodeBlks * ratsfs.InodesPerBlock

	// A single bitmap block holds BlockSize*8 bits; the format algorithm
	// reserves exactly one block for each bitmap (spec §4.F), so neither the
	// inode count nor the data region may exceed that.
	const bitsPerBitmapBlock = ratsfs.BlockSize * 8
	dataBlockCount := totalBlocks - dataStart
	if inodeCount > bitsPerBitmapBlock || dataBlockCount > bitsPerBitmapBlock {
		return nil, ratsfs.NewErrorf(ratsfs.EINVAL,
			"device too large for single-block bitmaps: %d blocks (max data region is %d blocks)",
			totalBlocks, bitsPerBitmapBlock)
	}

	shim := block.New(dev)

	inodeBm := alloc.New(shim, 1, 1, uint(inodeCount))
	dataBm := alloc.New(shim, 2, 1, uint(totalBlocks-dataStart))
	if err := inodeBm.Set(0, false); err != nil { // force a clean, persisted zero bitmap
		return nil, err
	}
	if err := dataBm.Set(0, false); err != nil {
		return nil, err
	}

	inodeAlloc := alloc.NewInodeAllocator(inodeBm)
	dataAlloc := alloc.NewDataAllocator(dataBm, shim, dataStart)
	cache := tree.NewCache(shim, inodeAlloc, dataAlloc, reserved)

	rootNum, err := inodeAlloc.AllocInodeBit()
	if err != nil {
		return nil, err
	}

	ts := nowSeconds()
	root := tree.NewRootDentry(rootNum)
	root.Inode = &tree.Inode{
		Num:   rootNum,
		Mode:  ratsfs.ModeIFDIR | 0o755,
		Nlink: 1,
		Uid:   0,
		Gid:   0,
		Atime: ts,
		Mtime: ts,
		Ctime: ts,
	}

	if err := cache.SyncInode(root.Inode); err != nil {
		return nil, err
	}

	sb := &ondisk.Superblock{
		Magic:            ratsfs.Magic,
		BlockSize:        ratsfs.BlockSize,
		TotalBlocks:      totalBlocks,
		InodeCount:       inodeCount,
		InodesPerBlock:   ratsfs.InodesPerBlock,
		SuperblockRegion: ondisk.Region{Start: 0, Len: 1},
		InodeBitmap:      ondisk.Region{Start: 1, Len: 1},
		DataBitmap:       ondisk.Region{Start: 2, Len: 1},
		InodeTable:       ondisk.Region{Start: reserved, Len: inodeBlks},
		DataRegion:       ondisk.Region{Start: dataStart, Len: totalBlocks - dataStart},
		RootInode:        rootNum,
	}
	if err := writeSuperblock(shim, sb); err != nil {
		return nil, err
	}

	return &Mount{
		Shim:    shim,
		SB:      sb,
		InodeBm: inodeBm,
		DataBm:  dataBm,
		Cache:   cache,
		Root:    root,
	}, nil
}

func writeSuperblock(shim *block.Shim, sb *ondisk.Superblock) error {
	buf, err := sb.Encode()
	if err != nil {
		return err
	}
	return shim.WriteBlock(0, buf)
}
