// Package alloc implements the first-fit bitmap allocator (component B) used
// for both the inode bitmap and the data-block bitmap. The same type serves
// both; callers distinguish them only by the limit they scan up to and by
// what they do with the returned index.
//
// Grounded on dargueta/disko's drivers/common/allocatormap.go (the first-fit
// scan-set-persist pattern) layered over github.com/boljen/go-bitmap, whose
// LSB-first-within-byte bit numbering is exactly what spec §4.B requires.
package alloc

import (
	"github.com/boljen/go-bitmap"
	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/block"
)

// Bitmap is an in-memory mirror of one on-disk bitmap region, kept
// byte-identical to disk after every mutating call returns.
type Bitmap struct {
	bits       bitmap.Bitmap
	shim       *block.Shim
	startBlock uint32
	blockCount uint32
	// limit is the number of bits that are meaningful to scan; the region may
	// have more physical capacity than this (rounded up to a whole block).
	limit uint
}

// New creates a zero (all-clear) bitmap covering blockCount blocks starting
// at startBlock, used when formatting a fresh image.
func New(shim *block.Shim, startBlock, blockCount uint32, limit uint) *Bitmap {
	return &Bitmap{
		bits:       bitmap.New(int(blockCount) * ratsfs.BlockSize * 8),
		shim:       shim,
		startBlock: startBlock,
		blockCount: blockCount,
		limit:      limit,
	}
}

// Load reads an existing bitmap region back from disk.
func Load(shim *block.Shim, startBlock, blockCount uint32, limit uint) (*Bitmap, error) {
	b := New(shim, startBlock, blockCount, limit)
	for i := uint32(0); i < blockCount; i++ {
		data, err := shim.ReadBlock(startBlock + i)
		if err != nil {
			return nil, err
		}
		copy(b.bits[i*ratsfs.BlockSize:(i+1)*ratsfs.BlockSize], data)
	}
	return b, nil
}

// persist writes the entire bitmap region back to disk. Spec §4.B calls
// writing the whole block on every mutation "a deliberate simplification";
// correctness only requires the bit be durable before the call returns.
func (b *Bitmap) persist() error {
	for i := uint32(0); i < b.blockCount; i++ {
		chunk := b.bits[i*ratsfs.BlockSize : (i+1)*ratsfs.BlockSize]
		if err := b.shim.WriteBlock(b.startBlock+i, chunk); err != nil {
			return err
		}
	}
	return nil
}

// Get reports whether bit i is set.
func (b *Bitmap) Get(i uint) bool {
	return b.bits.Get(int(i))
}

// AllocFirst scans for the first clear bit in [0, limit), sets it, persists
// the bitmap, and returns its index. Returns ENOSPC if the bitmap is full.
func (b *Bitmap) AllocFirst() (uint, error) {
	for i := uint(0); i < b.limit; i++ {
		if !b.bits.Get(int(i)) {
			b.bits.Set(int(i), true)
			if err := b.persist(); err != nil {
				return 0, err
			}
			return i, nil
		}
	}
	return 0, ratsfs.NewErrorf(ratsfs.ENOSPC, "bitmap exhausted (limit %d)", b.limit)
}

// Set forces bit i to an explicit value and persists the bitmap. Used by
// Format to persist a clean, all-zero bitmap before the first allocation.
func (b *Bitmap) Set(i uint, value bool) error {
	b.bits.Set(int(i), value)
	return b.persist()
}

// Free clears bit i and persists the bitmap.
func (b *Bitmap) Free(i uint) error {
	b.bits.Set(int(i), false)
	return b.persist()
}

// Limit returns the number of bits considered allocatable.
func (b *Bitmap) Limit() uint {
	return b.limit
}

// Flush re-persists the entire bitmap region. Every mutating call already
// persists immediately; this exists for the unmount path, which re-emits
// everything unconditionally per spec §4.F.
func (b *Bitmap) Flush() error {
	return b.persist()
}
