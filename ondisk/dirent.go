package ondisk

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"
	"github.com/ratsfs/ratsfs"
)

// DirEntrySize is the fixed on-disk size of one directory-entry record:
// InodeNum(4) + RecLen(2) + NameLen(1) + FileType(1) + Name(MaxNameLen).
const DirEntrySize = 4 + 2 + 1 + 1 + ratsfs.MaxNameLen

// EntriesPerBlock is how many directory-entry records fit in one logical
// block, per spec §3 ("a block holds ⌊1024/record-size⌋ entries").
const EntriesPerBlock = ratsfs.BlockSize / DirEntrySize

func init() {
	if EntriesPerBlock < 1 {
		panic("ondisk: directory entry record is larger than one block")
	}
	var e DirEntry
	buf, err := e.Encode()
	if err != nil {
		panic(err)
	}
	if len(buf) != DirEntrySize {
		panic("ondisk: directory entry encodes to the wrong size")
	}
}

// DirEntry mirrors spec §3's on-disk directory-entry record. reclen is
// written but never consulted on load (spec §9 open question); entries are
// fixed-width.
type DirEntry struct {
	InodeNum uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
	Name     [ratsfs.MaxNameLen]byte
}

// NewDirEntry builds a DirEntry for name, NUL-padding it to fill the fixed
// name field. name must be shorter than MaxNameLen (room for the
// terminator); a longer name returns EINVAL rather than being truncated.
func NewDirEntry(inodeNum uint32, name string, fileType uint8) (*DirEntry, error) {
	if len(name)+1 > ratsfs.MaxNameLen {
		return nil, ratsfs.NewErrorf(ratsfs.EINVAL, "name %q exceeds max length %d", name, ratsfs.MaxNameLen-1)
	}
	e := &DirEntry{
		InodeNum: inodeNum,
		RecLen:   DirEntrySize,
		NameLen:  uint8(len(name)),
		FileType: fileType,
	}
	copy(e.Name[:], name)
	return e, nil
}

// IsFree reports whether this slot is unoccupied: per spec §3, an entry
// whose name field begins with a zero byte is free.
func (e *DirEntry) IsFree() bool {
	return e.Name[0] == 0
}

// NameString returns the NUL-terminated name as a Go string.
func (e *DirEntry) NameString() string {
	n := bytes.IndexByte(e.Name[:], 0)
	if n < 0 {
		n = len(e.Name)
	}
	return string(e.Name[:n])
}

// Encode packs e into a DirEntrySize-byte buffer.
func (e *DirEntry) Encode() ([]byte, error) {
	buf := make([]byte, DirEntrySize)
	w := bytewriter.New(buf)

	if err := binary.Write(w, binary.LittleEndian, e.InodeNum); err != nil {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "encode dirent inode num: %s", err)
	}
	if err := binary.Write(w, binary.LittleEndian, e.RecLen); err != nil {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "encode dirent reclen: %s", err)
	}
	if err := binary.Write(w, binary.LittleEndian, e.NameLen); err != nil {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "encode dirent namelen: %s", err)
	}
	if err := binary.Write(w, binary.LittleEndian, e.FileType); err != nil {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "encode dirent filetype: %s", err)
	}
	if _, err := w.Write(e.Name[:]); err != nil {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "encode dirent name: %s", err)
	}
	return buf, nil
}

// DecodeDirEntry unpacks a DirEntrySize-byte buffer into a DirEntry.
func DecodeDirEntry(buf []byte) (*DirEntry, error) {
	if len(buf) < DirEntrySize {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "dirent buffer too short: %d bytes", len(buf))
	}
	r := bytes.NewReader(buf)
	e := &DirEntry{}

	if err := binary.Read(r, binary.LittleEndian, &e.InodeNum); err != nil {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "decode dirent inode num: %s", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &e.RecLen); err != nil {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "decode dirent reclen: %s", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &e.NameLen); err != nil {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "decode dirent namelen: %s", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &e.FileType); err != nil {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "decode dirent filetype: %s", err)
	}
	if _, err := r.Read(e.Name[:]); err != nil {
		return nil, ratsfs.NewErrorf(ratsfs.EIO, "decode dirent name: %s", err)
	}
	return e, nil
}

// SplitDirBlock decodes every slot in a BlockSize-byte directory block,
// skipping free slots.
func SplitDirBlock(block []byte) ([]*DirEntry, error) {
	var out []*DirEntry
	for i := 0; i < EntriesPerBlock; i++ {
		slot := block[i*DirEntrySize : (i+1)*DirEntrySize]
		e, err := DecodeDirEntry(slot)
		if err != nil {
			return nil, err
		}
		if e.IsFree() {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
