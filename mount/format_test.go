package mount

import (
	"testing"

	"github.com/ratsfs/ratsfs"
	"github.com/ratsfs/ratsfs/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRejectsDeviceTooSmall(t *testing.T) {
	dev := device.NewMemDevice(2 * ratsfs.BlockSize)
	_, err := Format(dev)
	require.Error(t, err)
	assert.Equal(t, ratsfs.EINVAL, errnoOf(t, err))
}

func TestFormatAcceptsMaxSafeSize(t *testing.T) {
	// 8365 blocks is the largest device the single-block bitmap layout can
	// address; see profile/profiles.csv's "max" entry.
	dev := device.NewMemDevice(8365 * ratsfs.BlockSize)
	m, err := Format(dev)
	require.NoError(t, err)
	assert.LessOrEqual(t, m.SB.InodeCount, uint32(ratsfs.BlockSize*8))
	assert.LessOrEqual(t, m.SB.DataRegion.Len, uint32(ratsfs.BlockSize*8))
}

func TestFormatRejectsDeviceOverBitmapCapacity(t *testing.T) {
	// One block past the safe ceiling overflows the data bitmap's single
	// block of backing bits.
	dev := device.NewMemDevice(8366 * ratsfs.BlockSize)
	_, err := Format(dev)
	require.Error(t, err)
	assert.Equal(t, ratsfs.EINVAL, errnoOf(t, err))
}
