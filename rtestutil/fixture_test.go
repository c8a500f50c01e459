package rtestutil

import (
	"bytes"
	"testing"

	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/mount"
	"github.com/ratsfs/ratsfs/utilities/compression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemImageSize(t *testing.T) {
	dev := NewMemImage(128)
	size, err := dev.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 128*ratsfs.BlockSize, size)
}

func TestDumpImageRoundTrip(t *testing.T) {
	dev := NewMemImage(4)
	_, err := dev.Write([]byte("hello"))
	require.NoError(t, err)

	data, err := DumpImage(dev)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data[:5])
	assert.Len(t, data, 4*ratsfs.BlockSize)
}

// TestLoadGoldenImageRoundTrip exercises the full golden-fixture path: format
// a small image, dump it, gzip+RLE8 compress it the way a committed fixture
// would be, then decompress and mount it back via LoadGoldenImage. Built at
// test time rather than checked in as a binary blob, since producing one
// requires running the real compressor (see DESIGN.md's rtestutil/ note).
func TestLoadGoldenImageRoundTrip(t *testing.T) {
	const totalBlocks = 64

	formatted, err := mount.Format(NewMemImage(totalBlocks))
	require.NoError(t, err)
	require.NoError(t, formatted.Mkdir("/greetings", 0o755))
	require.NoError(t, formatted.Mknod("/greetings/hello.txt", 0o644))
	_, err = formatted.Write("/greetings/hello.txt", []byte("hello, golden image"), 0)
	require.NoError(t, err)
	require.NoError(t, formatted.Unmount())

	rawImage, err := DumpImage(formatted.Shim.Device())
	require.NoError(t, err)

	var compressed bytes.Buffer
	_, err = compression.CompressImage(bytes.NewReader(rawImage), &compressed)
	require.NoError(t, err)
	require.Less(t, compressed.Len(), len(rawImage), "golden image should compress smaller than raw")

	golden := LoadGoldenImage(t, compressed.Bytes(), totalBlocks)

	reopened, err := mount.Open(golden)
	require.NoError(t, err)

	got, err := reopened.Read("/greetings/hello.txt", 0, len("hello, golden image"))
	require.NoError(t, err)
	assert.Equal(t, "hello, golden image", string(got))
}
