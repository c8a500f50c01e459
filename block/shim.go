package block

import (
	"io"

	"github.com/ratsfs/ratsfs"
)

// Shim adapts a Device's fixed SectorSize transfers to arbitrary byte-range
// reads and writes. All superblock, bitmap, inode-table, and data-block I/O
// funnels through one of these.
//
// Grounded on dargueta/disko's drivers/common/blockstream.go: the enclosing
// aligned range is computed, the driver fills a staging buffer, and the
// caller's slice is copied out of (or overlaid into) that buffer.
type Shim struct {
	dev Device
}

// New wraps dev in a Shim.
func New(dev Device) *Shim {
	return &Shim{dev: dev}
}

func floorSector(offset int64) int64 {
	return (offset / ratsfs.SectorSize) * ratsfs.SectorSize
}

func ceilSector(offset int64) int64 {
	return ((offset + ratsfs.SectorSize - 1) / ratsfs.SectorSize) * ratsfs.SectorSize
}

// stage reads the full aligned sector range covering [offset, offset+length)
// into a freshly allocated buffer, along with the aligned start used to
// compute the caller's relative offset into it.
func (s *Shim) stage(offset int64, length int) (buf []byte, alignedStart int64, err error) {
	alignedStart = floorSector(offset)
	alignedEnd := ceilSector(offset + int64(length))
	buf = make([]byte, alignedEnd-alignedStart)

	if _, err := s.dev.Seek(alignedStart, io.SeekStart); err != nil {
		return nil, 0, ratsfs.NewErrorf(ratsfs.EIO, "seek to offset %d: %s", alignedStart, err)
	}
	if _, err := io.ReadFull(s.dev, buf); err != nil {
		return nil, 0, ratsfs.NewErrorf(ratsfs.EIO, "read %d bytes at offset %d: %s", len(buf), alignedStart, err)
	}
	return buf, alignedStart, nil
}

// ReadAt returns exactly length bytes starting at offset.
func (s *Shim) ReadAt(offset int64, length int) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	buf, alignedStart, err := s.stage(offset, length)
	if err != nil {
		return nil, err
	}
	rel := offset - alignedStart
	out := make([]byte, length)
	copy(out, buf[rel:rel+int64(length)])
	return out, nil
}

// WriteAt overlays data onto the enclosing aligned sector range and writes
// the whole range back.
func (s *Shim) WriteAt(offset int64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	buf, alignedStart, err := s.stage(offset, len(data))
	if err != nil {
		return err
	}
	rel := offset - alignedStart
	copy(buf[rel:rel+int64(len(data))], data)

	if _, err := s.dev.Seek(alignedStart, io.SeekStart); err != nil {
		return ratsfs.NewErrorf(ratsfs.EIO, "seek to offset %d: %s", alignedStart, err)
	}
	if _, err := s.dev.Write(buf); err != nil {
		return ratsfs.NewErrorf(ratsfs.EIO, "write %d bytes at offset %d: %s", len(buf), alignedStart, err)
	}
	return nil
}

// ReadBlock reads one logical BlockSize-byte block.
func (s *Shim) ReadBlock(blockNum uint32) ([]byte, error) {
	return s.ReadAt(int64(blockNum)*ratsfs.BlockSize, ratsfs.BlockSize)
}

// WriteBlock writes one logical BlockSize-byte block. data must be exactly
// BlockSize bytes.
func (s *Shim) WriteBlock(blockNum uint32, data []byte) error {
	if len(data) != ratsfs.BlockSize {
		return ratsfs.NewErrorf(ratsfs.EINVAL, "block write must be %d bytes, got %d", ratsfs.BlockSize, len(data))
	}
	return s.WriteAt(int64(blockNum)*ratsfs.BlockSize, data)
}

// ZeroBlock overwrites one logical block with null bytes.
func (s *Shim) ZeroBlock(blockNum uint32) error {
	return s.WriteBlock(blockNum, make([]byte, ratsfs.BlockSize))
}

// Sync flushes the underlying device.
func (s *Shim) Sync() error {
	if err := s.dev.Sync(); err != nil {
		return ratsfs.NewErrorf(ratsfs.EIO, "sync: %s", err)
	}
	return nil
}

// Close closes the underlying device.
func (s *Shim) Close() error {
	return s.dev.Close()
}

// Device exposes the wrapped Device, e.g. so format can query its Size().
func (s *Shim) Device() Device {
	return s.dev
}
