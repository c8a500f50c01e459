// Package ratsfs defines the mode flags, region layout constants, and error
// type shared by every layer of the filesystem engine: the block shim, the
// bitmap allocators, the on-disk codec, the in-memory tree, and the mount
// operations.
package ratsfs

import (
	"fmt"
	"syscall"
)

// Magic is the superblock magic number, "RATS" read as a big-endian
// 32-bit word.
const Magic uint32 = 0x52415453

// BlockSize is the logical block size, in bytes. Every region (bitmaps,
// inode table, data blocks) is addressed in units of this size.
const BlockSize = 1024

// SectorSize is the driver's fixed transfer granularity, in bytes.
const SectorSize = 512

// InodeSize is the fixed on-disk size of one inode record, in bytes.
const InodeSize = 128

// InodesPerBlock is how many inode records fit in one logical block.
const InodesPerBlock = BlockSize / InodeSize

// MaxNameLen is the maximum file name length, in bytes, including the NUL
// terminator, as encoded in a directory entry.
const MaxNameLen = 128

// DirectBlockCount is the number of direct block pointers an inode holds.
// There is no indirect addressing.
const DirectBlockCount = 6

// MaxFileSize is the largest a regular file's size may grow to.
const MaxFileSize = DirectBlockCount * BlockSize

// File type codes stored in a directory entry and in sync'd dentries.
const (
	TypeRegular   = 0
	TypeDirectory = 1
	TypeSymlink   = 2
)

// POSIX mode bits the engine stores and echoes back, but never enforces.
const (
	ModePerm  = 0o7777
	ModeIFMT  = 0o170000
	ModeIFDIR = 0o040000
	ModeIFREG = 0o100000
	ModeIFLNK = 0o120000
)

// DriverError is a POSIX errno wrapped with an optional descriptive message.
// Every failure path in block, alloc, ondisk, tree, and mount returns one of
// these (or wraps one via errors.As); only the host adapter unwraps it into
// the bare syscall.Errno a FUSE upcall returns.
type DriverError struct {
	Errno   syscall.Errno
	message string
}

func (e *DriverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.Errno.Error()
}

func (e *DriverError) Unwrap() error {
	return e.Errno
}

// NewError builds a DriverError with the errno's default message.
func NewError(errno syscall.Errno) *DriverError {
	return &DriverError{Errno: errno}
}

// NewErrorf builds a DriverError with a formatted message, the errno string
// still prefixed so callers logging just err.Error() keep the errno name.
func NewErrorf(errno syscall.Errno, format string, args ...any) *DriverError {
	return &DriverError{
		Errno:   errno,
		message: fmt.Sprintf("%s: %s", errno.Error(), fmt.Sprintf(format, args...)),
	}
}

// Errno convenience constants, named the way the spec names them.
const (
	ENOENT   = syscall.ENOENT
	EEXIST   = syscall.EEXIST
	ENOSPC   = syscall.ENOSPC
	EISDIR   = syscall.EISDIR
	ENOTDIR  = syscall.ENOTDIR
	EINVAL   = syscall.EINVAL
	EIO      = syscall.EIO
	ENOTEMPTY = syscall.ENOTEMPTY
	ENOSYS   = syscall.ENOSYS
)
