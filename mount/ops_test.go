package mount

import (
	"errors"
	"testing"

	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testImageBlocks = 256

func newTestMount(t *testing.T) *Mount {
	t.Helper()
	dev := device.NewMemDevice(testImageBlocks * ratsfs.BlockSize)
	m, err := Format(dev)
	require.NoError(t, err)
	return m
}

func errnoOf(t *testing.T, err error) error {
	t.Helper()
	var de *ratsfs.DriverError
	require.True(t, errors.As(err, &de), "expected a *ratsfs.DriverError, got %T: %v", err, err)
	return de.Errno
}

func TestFormatProducesEmptyRoot(t *testing.T) {
	m := newTestMount(t)
	st, err := m.Getattr("/")
	require.NoError(t, err)
	assert.True(t, st.Mode&ratsfs.ModeIFMT == ratsfs.ModeIFDIR)

	entries, err := m.Readdir("/")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMkdirAndReaddir(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mkdir("/a", 0o755))
	require.NoError(t, m.Mkdir("/b", 0o700))

	entries, err := m.Readdir("/")
	require.NoError(t, err)
	names := map[string]uint8{}
	for _, e := range entries {
		names[e.Name] = e.FileType
	}
	assert.Equal(t, ratsfs.TypeDirectory, int(names["a"]))
	assert.Equal(t, ratsfs.TypeDirectory, int(names["b"]))

	st, err := m.Getattr("/a")
	require.NoError(t, err)
	assert.EqualValues(t, 0o755|ratsfs.ModeIFDIR, st.Mode)
}

func TestMkdirDuplicateNameFails(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mkdir("/dup", 0o755))
	err := m.Mkdir("/dup", 0o755)
	require.Error(t, err)
	assert.Equal(t, ratsfs.EEXIST, errnoOf(t, err))
}

func TestMkdirMissingParentFails(t *testing.T) {
	m := newTestMount(t)
	err := m.Mkdir("/missing/child", 0o755)
	require.Error(t, err)
	assert.Equal(t, ratsfs.ENOENT, errnoOf(t, err))
}

func TestMknodWriteReadRoundTrip(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mknod("/f", 0o644))

	payload := []byte("hello, ratsfs")
	n, err := m.Write("/f", payload, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	st, err := m.Getattr("/f")
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), st.Size)

	got, err := m.Read("/f", 0, len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestWriteAcrossBlockBoundary(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mknod("/f", 0o644))

	payload := make([]byte, 2000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	_, err := m.Write("/f", payload, 500)
	require.NoError(t, err)

	got, err := m.Read("/f", 500, len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Bytes before the write offset should read back as zero (a hole).
	head, err := m.Read("/f", 0, 500)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 500), head)
}

func TestWriteRejectsOverMaxFileSize(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mknod("/big", 0o644))
	_, err := m.Write("/big", make([]byte, ratsfs.MaxFileSize+1), 0)
	require.Error(t, err)
	assert.Equal(t, ratsfs.ENOSPC, errnoOf(t, err))
}

func TestWriteRejectsDirectory(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mkdir("/d", 0o755))
	_, err := m.Write("/d", []byte("x"), 0)
	require.Error(t, err)
	assert.Equal(t, ratsfs.EISDIR, errnoOf(t, err))
}

func TestReadClampsToFileSize(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mknod("/f", 0o644))
	_, err := m.Write("/f", []byte("12345"), 0)
	require.NoError(t, err)

	got, err := m.Read("/f", 2, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("345"), got)

	got2, err := m.Read("/f", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, got2)
}

func TestTruncateShrinkFreesBlocks(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mknod("/f", 0o644))
	_, err := m.Write("/f", make([]byte, 3000), 0)
	require.NoError(t, err)

	entry, err := m.resolve("/f")
	require.NoError(t, err)
	dropped := []uint32{entry.Inode.Block[1], entry.Inode.Block[2]}
	for _, b := range dropped {
		require.NotZero(t, b)
	}

	require.NoError(t, m.Truncate("/f", 10))
	st, err := m.Getattr("/f")
	require.NoError(t, err)
	assert.EqualValues(t, 10, st.Size)
	assert.Zero(t, entry.Inode.Block[1])
	assert.Zero(t, entry.Inode.Block[2])
	for _, b := range dropped {
		assert.False(t, m.Cache.DataAlloc.IsAllocated(b))
	}

	got, err := m.Read("/f", 0, 10)
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestTruncateRejectsOverLimit(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mknod("/f", 0o644))
	err := m.Truncate("/f", ratsfs.MaxFileSize+1)
	require.Error(t, err)
	assert.Equal(t, ratsfs.EINVAL, errnoOf(t, err))
}

func TestUnlinkFreesInodeAndName(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mknod("/f", 0o644))
	require.NoError(t, m.Unlink("/f"))

	_, err := m.Getattr("/f")
	require.Error(t, err)
	assert.Equal(t, ratsfs.ENOENT, errnoOf(t, err))

	entries, err := m.Readdir("/")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnlinkRejectsDirectory(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mkdir("/d", 0o755))
	err := m.Unlink("/d")
	require.Error(t, err)
	assert.Equal(t, ratsfs.EISDIR, errnoOf(t, err))
}

func TestRmdirRequiresEmpty(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mkdir("/d", 0o755))
	require.NoError(t, m.Mknod("/d/f", 0o644))

	err := m.Rmdir("/d")
	require.Error(t, err)
	assert.Equal(t, ratsfs.ENOTEMPTY, errnoOf(t, err))

	require.NoError(t, m.Unlink("/d/f"))
	require.NoError(t, m.Rmdir("/d"))

	_, err = m.Getattr("/d")
	require.Error(t, err)
	assert.Equal(t, ratsfs.ENOENT, errnoOf(t, err))
}

func TestRenameMovesEntry(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mkdir("/src", 0o755))
	require.NoError(t, m.Mkdir("/dst", 0o755))
	require.NoError(t, m.Mknod("/src/f", 0o644))
	_, err := m.Write("/src/f", []byte("payload"), 0)
	require.NoError(t, err)

	require.NoError(t, m.Rename("/src/f", "/dst/g"))

	_, err = m.Getattr("/src/f")
	require.Error(t, err)
	assert.Equal(t, ratsfs.ENOENT, errnoOf(t, err))

	got, err := m.Read("/dst/g", 0, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestRenameOverwritesSameKind(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mknod("/a", 0o644))
	require.NoError(t, m.Mknod("/b", 0o644))
	_, err := m.Write("/a", []byte("AAA"), 0)
	require.NoError(t, err)

	require.NoError(t, m.Rename("/a", "/b"))
	got, err := m.Read("/b", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("AAA"), got)

	entries, err := m.Readdir("/")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRenameRejectsCrossKindOverwrite(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mknod("/a", 0o644))
	require.NoError(t, m.Mkdir("/b", 0o755))

	err := m.Rename("/a", "/b")
	require.Error(t, err)
	assert.Equal(t, ratsfs.EEXIST, errnoOf(t, err))
}

func TestOpenOpendirAccess(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mknod("/f", 0o644))
	require.NoError(t, m.Mkdir("/d", 0o755))

	require.NoError(t, m.Open("/f"))
	require.NoError(t, m.Opendir("/d"))
	require.NoError(t, m.Access("/f"))

	err := m.Open("/missing")
	require.Error(t, err)
	assert.Equal(t, ratsfs.ENOENT, errnoOf(t, err))
}

func TestUtimensExplicitAndDefault(t *testing.T) {
	m := newTestMount(t)
	require.NoError(t, m.Mknod("/f", 0o644))

	at := uint32(1000)
	mt := uint32(2000)
	require.NoError(t, m.Utimens("/f", &at, &mt))
	st, err := m.Getattr("/f")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, st.Atime)
	assert.EqualValues(t, 2000, st.Mtime)

	require.NoError(t, m.Utimens("/f", nil, nil))
	st2, err := m.Getattr("/f")
	require.NoError(t, err)
	assert.NotEqual(t, uint32(1000), st2.Atime)
}

func TestUnmountThenOpenPreservesTree(t *testing.T) {
	dev := device.NewMemDevice(testImageBlocks * ratsfs.BlockSize)
	m, err := Format(dev)
	require.NoError(t, err)

	require.NoError(t, m.Mkdir("/d", 0o755))
	require.NoError(t, m.Mknod("/d/f", 0o644))
	_, err = m.Write("/d/f", []byte("durable"), 0)
	require.NoError(t, err)
	require.NoError(t, m.Unmount())

	reopened, err := Open(dev)
	require.NoError(t, err)

	got, err := reopened.Read("/d/f", 0, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), got)

	entries, err := reopened.Readdir("/d")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f", entries[0].Name)
}

func TestUnlinkThenRemountDoesNotResurrectEntry(t *testing.T) {
	dev := device.NewMemDevice(testImageBlocks * ratsfs.BlockSize)
	m, err := Format(dev)
	require.NoError(t, err)

	require.NoError(t, m.Mkdir("/d", 0o755))
	require.NoError(t, m.Mknod("/d/f", 0o644))
	require.NoError(t, m.Unlink("/d/f"))
	require.NoError(t, m.Unmount())

	reopened, err := Open(dev)
	require.NoError(t, err)

	entries, err := reopened.Readdir("/d")
	require.NoError(t, err)
	assert.Empty(t, entries, "unlinked entry must not reappear after remount")
}

func TestDirectoryShrinkAcrossBlockBoundaryThenRemount(t *testing.T) {
	dev := device.NewMemDevice(4096 * ratsfs.BlockSize)
	m, err := Format(dev)
	require.NoError(t, err)
	require.NoError(t, m.Mkdir("/d", 0o755))

	// 7 entries/block: create 8 children so the directory spans a second
	// direct block, then remove enough to fall back to a single block.
	names := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		name := "/d/" + string(rune('a'+i))
		require.NoError(t, m.Mknod(name, 0o644))
		names = append(names, name)
	}
	for _, name := range names[:7] {
		require.NoError(t, m.Unlink(name))
	}
	require.NoError(t, m.Unmount())

	reopened, err := Open(dev)
	require.NoError(t, err)

	entries, err := reopened.Readdir("/d")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "h", entries[0].Name)
}

func TestDirectoryCapacityExhaustion(t *testing.T) {
	// Large enough that the inode and data-block pools outlast the
	// directory's fixed 6-direct-block * 7-entries/block = 42 entry cap.
	dev := device.NewMemDevice(4096 * ratsfs.BlockSize)
	m, err := Format(dev)
	require.NoError(t, err)
	require.NoError(t, m.Mkdir("/d", 0o755))

	// 6 direct blocks * 7 entries/block = 42 is the maximum a directory can
	// hold with no indirect addressing.
	var lastErr error
	created := 0
	for i := 0; i < 64; i++ {
		name := "/d/" + string(rune('a'+(i%26))) + string(rune('0'+(i/26)))
		if err := m.Mknod(name, 0o644); err != nil {
			lastErr = err
			break
		}
		created++
	}
	require.Error(t, lastErr)
	assert.Equal(t, ratsfs.ENOSPC, errnoOf(t, lastErr))
	assert.LessOrEqual(t, created, 42)
}
