package alloc

import (
	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/block"
)

// DataAllocator allocates and frees absolute data-block numbers. Bit i of
// the underlying bitmap corresponds to absolute block dataStart+i.
type DataAllocator struct {
	bm        *Bitmap
	shim      *block.Shim
	dataStart uint32
}

// NewDataAllocator wraps bm, translating bit indices to absolute block
// numbers relative to dataStart.
func NewDataAllocator(bm *Bitmap, shim *block.Shim, dataStart uint32) *DataAllocator {
	return &DataAllocator{bm: bm, shim: shim, dataStart: dataStart}
}

// AllocDataBlock finds the first free data block, marks it allocated, zeroes
// it on disk, and returns its absolute block number.
func (d *DataAllocator) AllocDataBlock() (uint32, error) {
	i, err := d.bm.AllocFirst()
	if err != nil {
		return 0, err
	}
	abs := d.dataStart + uint32(i)
	if err := d.shim.ZeroBlock(abs); err != nil {
		return 0, err
	}
	return abs, nil
}

// FreeDataBlock clears the bit for the absolute block abs. Contents are left
// as-is on disk, per spec.
func (d *DataAllocator) FreeDataBlock(abs uint32) error {
	if abs < d.dataStart {
		return ratsfs.NewErrorf(ratsfs.EINVAL, "block %d precedes data region (starts at %d)", abs, d.dataStart)
	}
	return d.bm.Free(uint(abs - d.dataStart))
}

// IsAllocated reports whether the absolute block abs is currently marked
// used.
func (d *DataAllocator) IsAllocated(abs uint32) bool {
	if abs < d.dataStart {
		return false
	}
	return d.bm.Get(uint(abs - d.dataStart))
}
