// Package device provides two concrete implementations of block.Device: a
// real backing file, and an in-memory image for tests, grounded on
// dargueta/disko's testing/images.go.
package device

import "os"

// FileDevice is a block.Device backed by a real file on the host filesystem.
type FileDevice struct {
	f *os.File
}

// OpenFile opens path for reading and writing, creating it if it does not
// exist.
func OpenFile(path string) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileDevice{f: f}, nil
}

func (d *FileDevice) Read(p []byte) (int, error)                 { return d.f.Read(p) }
func (d *FileDevice) Write(p []byte) (int, error)                { return d.f.Write(p) }
func (d *FileDevice) Seek(offset int64, whence int) (int64, error) { return d.f.Seek(offset, whence) }
func (d *FileDevice) Sync() error                                 { return d.f.Sync() }
func (d *FileDevice) Close() error                                { return d.f.Close() }

func (d *FileDevice) Size() (int64, error) {
	info, err := d.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Truncate grows or shrinks the backing file to exactly size bytes.
func (d *FileDevice) Truncate(size int64) error {
	return d.f.Truncate(size)
}
