// Package rtestutil provides test-only helpers for building backing devices:
// a plain in-memory device, and a loader for gzip+RLE8 golden image fixtures.
//
// Grounded directly on dargueta/disko's testing/images.go (LoadDiskImage):
// decompress via utilities/compression, check the expected size, and wrap
// the result as an io.ReadWriteSeeker via xaionaro-go/bytesextra.
package rtestutil

import (
	"bytes"
	"io"
	"testing"

	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/block"
	"github.com/ratsfs/ratsfs/device"
	"github.com/ratsfs/ratsfs/utilities/compression"
	"github.com/stretchr/testify/require"
)

// NewMemImage returns a fresh zero-filled in-memory device of totalBlocks
// logical blocks, ready for mount.Format.
func NewMemImage(totalBlocks uint32) block.Device {
	return device.NewMemDeviceFromBytes(make([]byte, int64(totalBlocks)*ratsfs.BlockSize))
}

// LoadGoldenImage decompresses a gzip+RLE8 golden image fixture (the format
// cmd/unzipimage decompresses) and returns it as a block.Device of exactly
// totalBlocks logical blocks.
func LoadGoldenImage(t *testing.T, compressedImageBytes []byte, totalBlocks uint32) block.Device {
	t.Helper()
	require.Greater(t, len(compressedImageBytes), 0, "compressed image is empty")

	imageBytes, err := compression.DecompressImageToBytes(bytes.NewReader(compressedImageBytes))
	require.NoError(t, err)
	require.Equal(
		t,
		int64(totalBlocks)*ratsfs.BlockSize,
		int64(len(imageBytes)),
		"uncompressed image is the wrong size",
	)
	return device.NewMemDeviceFromBytes(imageBytes)
}

// DumpImage reads every byte back out of dev, for building new golden
// fixtures (feed the result to compression.CompressImage).
func DumpImage(dev block.Device) ([]byte, error) {
	if _, err := dev.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(dev)
}
