package disk_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/ostafen/oasis/internal/imd"
	"github.com/stretchr/testify/require"
)

func fill(size int, b byte) []byte {
	return bytes.Repeat([]byte{b}, size)
}

func saveIMD(t *testing.T, img *imd.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.imd")
	require.NoError(t, img.Save(path))
	return path
}

func TestIMDMapping256(t *testing.T) {
	img := &imd.Image{
		Comment: "IMD 1.18: test",
		Tracks: []imd.Track{{
			Mode: 0, Cylinder: 0, Head: 0,
			Sectors: []imd.Sector{
				// Interleaved on disk; the mapping runs in ID order.
				{ID: 1, Size: 256, Data: fill(256, 0x11)},
				{ID: 3, Size: 256, Data: fill(256, 0x33)},
				{ID: 2, Size: 256, Data: fill(256, 0x22)},
			},
		}},
	}

	d, err := disk.OpenIMD(saveIMD(t, img), false)
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, 3, d.TotalSectors())

	var buf [disk.SectorSize]byte
	for lba, want := range []byte{0x11, 0x22, 0x33} {
		n, err := d.ReadSectors(lba, buf[:])
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, fill(256, want), buf[:])
	}
}

func TestIMDMapping128Pairs(t *testing.T) {
	img := &imd.Image{
		Comment: "IMD 1.18: test",
		Tracks: []imd.Track{{
			Mode: 0, Cylinder: 0, Head: 0,
			Sectors: []imd.Sector{
				{ID: 1, Size: 128, Data: fill(128, 0xA1)},
				{ID: 2, Size: 128, Data: fill(128, 0xA2)},
				{ID: 3, Size: 128, Data: fill(128, 0xA3)},
				{ID: 4, Size: 128, Data: fill(128, 0xA4)},
			},
		}},
	}

	d, err := disk.OpenIMD(saveIMD(t, img), false)
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, 2, d.TotalSectors())

	var buf [disk.SectorSize]byte
	n, err := d.ReadSectors(0, buf[:])
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, fill(128, 0xA1), buf[:128]) // low half first
	require.Equal(t, fill(128, 0xA2), buf[128:])
}

func TestIMDOddPairRejected(t *testing.T) {
	img := &imd.Image{
		Comment: "IMD 1.18: test",
		Tracks: []imd.Track{{
			Sectors: []imd.Sector{
				{ID: 1, Size: 128, Data: fill(128, 0)},
				{ID: 2, Size: 128, Data: fill(128, 0)},
				{ID: 3, Size: 128, Data: fill(128, 0)},
			},
		}},
	}

	_, err := disk.OpenIMD(saveIMD(t, img), false)
	require.Error(t, err)
}

func TestIMDBadSectorZeroFilled(t *testing.T) {
	img := &imd.Image{
		Comment: "IMD 1.18: test",
		Tracks: []imd.Track{{
			Sectors: []imd.Sector{
				{ID: 1, Size: 256, Data: fill(256, 0x11)},
				{ID: 2, Size: 256, Data: fill(256, 0x22), HasError: true},
			},
		}},
	}

	d, err := disk.OpenIMD(saveIMD(t, img), false)
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, []int{1}, d.BadSectors())

	var buf [disk.SectorSize]byte
	n, err := d.ReadSectors(1, buf[:])
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, fill(256, 0), buf[:]) // flagged sectors read as zeroes
}

func TestIMDWriteBack(t *testing.T) {
	img := &imd.Image{
		Comment: "IMD 1.18: test",
		Tracks: []imd.Track{{
			Sectors: []imd.Sector{
				{ID: 1, Size: 256, Data: fill(256, 0x00)},
			},
		}},
	}
	path := saveIMD(t, img)

	d, err := disk.OpenIMD(path, true)
	require.NoError(t, err)

	_, err = d.WriteSectors(0, fill(256, 0x7E))
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d2, err := disk.OpenIMD(path, false)
	require.NoError(t, err)
	defer d2.Close()

	var buf [disk.SectorSize]byte
	_, err = d2.ReadSectors(0, buf[:])
	require.NoError(t, err)
	require.Equal(t, fill(256, 0x7E), buf[:])
}
