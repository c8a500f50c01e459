package device

import (
	"github.com/xaionaro-go/bytesextra"
)

// MemDevice is a block.Device backed by a fixed-size in-memory byte slice.
// It exists so unit tests can exercise the whole mount/format/unmount path
// without touching the real filesystem.
//
// Grounded on dargueta/disko's testing/images.go, which wraps
// bytesextra.NewReadWriteSeeker the same way to hand drivers a fixed-size
// io.ReadWriteSeeker in tests.
type MemDevice struct {
	rw   *bytesextra.ReadWriteSeeker
	size int64
}

// NewMemDevice allocates a zero-filled in-memory device of exactly size
// bytes.
func NewMemDevice(size int64) *MemDevice {
	buf := make([]byte, size)
	rw := bytesextra.NewReadWriteSeeker(buf)
	return &MemDevice{rw: rw, size: size}
}

// NewMemDeviceFromBytes wraps an already-populated buffer (e.g. a decoded
// golden test image) as a fixed-size device; writes never grow it past
// len(data).
func NewMemDeviceFromBytes(data []byte) *MemDevice {
	rw := bytesextra.NewReadWriteSeeker(data)
	return &MemDevice{rw: rw, size: int64(len(data))}
}

func (d *MemDevice) Read(p []byte) (int, error)  { return d.rw.Read(p) }
func (d *MemDevice) Write(p []byte) (int, error) { return d.rw.Write(p) }
func (d *MemDevice) Seek(offset int64, whence int) (int64, error) {
	return d.rw.Seek(offset, whence)
}
func (d *MemDevice) Sync() error  { return nil }
func (d *MemDevice) Close() error { return nil }
func (d *MemDevice) Size() (int64, error) { return d.size, nil }
