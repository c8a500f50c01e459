package ondisk

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"
	"github.com/ratsfs/ratsfs"
)

// InodeRecordSize is the fixed on-disk size of one inode record.
const InodeRecordSize = ratsfs.InodeSize

// Inode mirrors spec §3's on-disk inode record.
type Inode struct {
	InodeNum uint32
	Mode     uint32
	Size     uint32
	Atime    uint32
	Mtime    uint32
	Ctime    uint32
	Uid      uint32
	Gid      uint32
	Nlink    uint16
	Block    [ratsfs.DirectBlockCount]uint32
}

func init() {
	var n Inode
	buf, err := n.Encode()
	if err != nil {
		panic(err)
	}
	if len(buf) != InodeRecordSize {
		panic("ondisk: inode encodes to the wrong size")
	}
}

// Encode packs n into a zero-padded InodeRecordSize-byte buffer.
func (n *Inode) Encode() ([]byte, error) {
	buf := make([]byte, InodeRecordSize)
	w := bytewriter.New(buf)

	fields := []any{
		n.InodeNum, n.Mode, n.Size, n.Atime, n.Mtime, n.Ctime, n.Uid, n.Gid, n.Nlink,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return nil, ratsfs.NewErrorf(ratsfs.EIO, "encode inode: %s", err)
		}
	}
	for _, b := range n.Block {
		if err := binary.Write(w, binary.LittleEndian, b); err != nil {
			return nil, ratsfs.NewErrorf(ratsfs.EIO, "encode inode block ptr: %s", err)
		}
	}
	return buf, nil
}

// DecodeInode unpacks an InodeRecordSize-byte buffer into an Inode.
func DecodeInode(buf []byte) (*Inode, error) {
	if len(buf) < InodeRecordSize {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "inode buffer too short: %d bytes", len(buf))
	}
	r := bytes.NewReader(buf)
	n := &Inode{}

	targets := []any{
		&n.InodeNum, &n.Mode, &n.Size, &n.Atime, &n.Mtime, &n.Ctime, &n.Uid, &n.Gid, &n.Nlink,
	}
	for _, t := range targets {
		if err := binary.Read(r, binary.LittleEndian, t); err != nil {
			return nil, ratsfs.NewErrorf(ratsfs.EIO, "decode inode: %s", err)
		}
	}
	for i := range n.Block {
		if err := binary.Read(r, binary.LittleEndian, &n.Block[i]); err != nil {
			return nil, ratsfs.NewErrorf(ratsfs.EIO, "decode inode block ptr: %s", err)
		}
	}
	return n, nil
}

// IsDir reports whether the inode's mode bits mark it as a directory.
func (n *Inode) IsDir() bool {
	return n.Mode&ratsfs.ModeIFMT == ratsfs.ModeIFDIR
}

// InodeOffset computes the byte offset of inode ino within the inode table,
// given the table's starting block.
func InodeOffset(tableStart uint32, ino uint32) int64 {
	blockIdx := ino / ratsfs.InodesPerBlock
	slotIdx := ino % ratsfs.InodesPerBlock
	return int64(tableStart+blockIdx)*ratsfs.BlockSize + int64(slotIdx)*InodeRecordSize
}
