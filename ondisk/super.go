// Package ondisk implements the fixed-width binary codec (component C) for
// the three on-disk record types: superblock, inode, and directory entry.
// Every field is encoded in order with encoding/binary, composed with
// github.com/noxer/bytewriter to write sequentially into a pre-sliced output
// buffer — the same pairing dargueta/disko's file_systems/unixv1/format.go
// uses to lay out its own superblock and inode table.
//
// There is no cross-platform compatibility goal (spec §3/§6): this picks
// binary.LittleEndian as a concrete stand-in for "host order", exactly as
// the teacher's format.go already does.
package ondisk

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"
	"github.com/ratsfs/ratsfs"
)

// SuperblockSize is the fixed on-disk size of the superblock record.
const SuperblockSize = ratsfs.BlockSize

// Region describes one contiguous span of logical blocks.
type Region struct {
	Start uint32
	Len   uint32
}

// Superblock mirrors spec §3's on-disk superblock record.
type Superblock struct {
	Magic          uint32
	BlockSize      uint32
	TotalBlocks    uint32
	InodeCount     uint32
	InodesPerBlock uint32

	SuperblockRegion Region
	InodeBitmap      Region
	DataBitmap       Region
	InodeTable       Region
	DataRegion       Region

	RootInode uint32
}

func init() {
	// Compile/test-time packing assertion required by spec §4.C.
	var sb Superblock
	buf, err := sb.Encode()
	if err != nil {
		panic(err)
	}
	if len(buf) != SuperblockSize {
		panic("ondisk: superblock encodes to the wrong size")
	}
}

// Encode packs sb into a zero-padded SuperblockSize-byte buffer.
func (sb *Superblock) Encode() ([]byte, error) {
	buf := make([]byte, SuperblockSize)
	w := bytewriter.New(buf)

	fields := []any{
		sb.Magic,
		sb.BlockSize,
		sb.TotalBlocks,
		sb.InodeCount,
		sb.InodesPerBlock,
		sb.SuperblockRegion.Start, sb.SuperblockRegion.Len,
		sb.InodeBitmap.Start, sb.InodeBitmap.Len,
		sb.DataBitmap.Start, sb.DataBitmap.Len,
		sb.InodeTable.Start, sb.InodeTable.Len,
		sb.DataRegion.Start, sb.DataRegion.Len,
		sb.RootInode,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return nil, ratsfs.NewErrorf(ratsfs.EIO, "encode superblock: %s", err)
		}
	}
	return buf, nil
}

// DecodeSuperblock unpacks a SuperblockSize-byte buffer into a Superblock.
func DecodeSuperblock(buf []byte) (*Superblock, error) {
	if len(buf) < SuperblockSize {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "superblock buffer too short: %d bytes", len(buf))
	}
	r := bytes.NewReader(buf)
	sb := &Superblock{}

	targets := []any{
		&sb.Magic,
		&sb.BlockSize,
		&sb.TotalBlocks,
		&sb.InodeCount,
		&sb.InodesPerBlock,
		&sb.SuperblockRegion.Start, &sb.SuperblockRegion.Len,
		&sb.InodeBitmap.Start, &sb.InodeBitmap.Len,
		&sb.DataBitmap.Start, &sb.DataBitmap.Len,
		&sb.InodeTable.Start, &sb.InodeTable.Len,
		&sb.DataRegion.Start, &sb.DataRegion.Len,
		&sb.RootInode,
	}
	for _, t := range targets {
		if err := binary.Read(r, binary.LittleEndian, t); err != nil {
			return nil, ratsfs.NewErrorf(ratsfs.EIO, "decode superblock: %s", err)
		}
	}
	return sb, nil
}
