package mount

import (
	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/alloc"
	"github.com/ratsfs/ratsfs/block"
	"github.com/ratsfs/ratsfs/ondisk"
	"github.com/ratsfs/ratsfs/tree"
)

// Open mounts dev: it reads the first block and checks the magic number. A
// match loads the existing image; a mismatch formats a fresh one, per spec
// §4.F. This is the entry point the CLI's init hook (and any other host)
// should call.
func Open(dev block.Device) (*Mount, error) {
	shim := block.New(dev)

	buf, err := shim.ReadBlock(0)
	if err != nil {
		return nil, err
	}
	sb, err := ondisk.DecodeSuperblock(buf)
	if err != nil {
		return nil, err
	}

	if sb.Magic != ratsfs.Magic {
		return Format(dev)
	}
	return load(shim, sb)
}

func load(shim *block.Shim, sb *ondisk.Superblock) (*Mount, error) {
	inodeBm, err := alloc.Load(shim, sb.InodeBitmap.Start, sb.InodeBitmap.Len, uint(sb.InodeCount))
	if err != nil {
		return nil, err
	}
	dataBm, err := alloc.Load(shim, sb.DataBitmap.Start, sb.DataBitmap.Len, uint(sb.DataRegion.Len))
	if err != nil {
		return nil, err
	}

	inodeAlloc := alloc.NewInodeAllocator(inodeBm)
	dataAlloc := alloc.NewDataAllocator(dataBm, shim, sb.DataRegion.Start)
	cache := tree.NewCache(shim, inodeAlloc, dataAlloc, sb.InodeTable.Start)

	root := tree.NewRootDentry(sb.RootInode)
	if err := cache.LoadInode(root); err != nil {
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

// Unmount flushes the in-memory tree back to disk and releases the mount,
// per spec §4.F: sync_inode(root), re-emit the superblock, write the
// bitmaps, fsync, close. Ordering matches spec §5: data blocks, then
// bitmaps, then inodes are already durable from the operations that ran
// during the session; this call's own write order is inode tree, then
// superblock, then bitmaps, then fsync.
func (m *Mount) Unmount() error {
	if err := m.Cache.SyncInode(m.Root.Inode); err != nil {
		return err
	}
	if err := writeSuperblock(m.Shim, m.SB); err != nil {
		return err
	}
	if err := m.InodeBm.Flush(); err != nil {
		return err
	}
	if err := m.DataBm.Flush(); err != nil {
		return err
	}
	if err := m.Shim.Sync(); err != nil {
		return err
	}
	return m.Shim.Close()
}
