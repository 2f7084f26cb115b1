package disk_test

import (
	"testing"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/stretchr/testify/require"
)

func TestDEBRoundTrip(t *testing.T) {
	deb := &disk.DEB{
		Format:      disk.OrgSequential,
		RecordCount: 120,
		BlockCount:  3,
		StartSector: 40,
		FFD1:        80,
		Timestamp:   disk.Timestamp{Month: 4, Day: 23, Year: 1985, Hour: 14, Minute: 30},
		OwnerID:     1,
		FFD2:        51,
	}
	deb.SetName("hello", "basic")

	var wire [disk.DEBSize]byte
	deb.MarshalBinary(wire[:])

	got := &disk.DEB{}
	require.NoError(t, got.UnmarshalBinary(wire[:]))
	require.Equal(t, deb, got)
}

func TestFileFormat(t *testing.T) {
	require.True(t, disk.FileFormat(0x00).IsEmpty())
	require.True(t, disk.FileFormat(0xFF).IsDeleted())
	require.True(t, disk.FileFormat(0x84).IsSynonym())
	require.False(t, disk.FileFormat(0xFF).IsSynonym())

	f := disk.FileFormat(disk.OrgSequential | 0x20)
	require.True(t, f.IsRegular())
	require.Equal(t, byte(disk.OrgSequential), f.Org())
	require.Equal(t, byte(0x20), f.Attributes())
	require.Equal(t, byte('S'), f.Char())

	// Unknown organization bits do not make a regular file.
	require.False(t, disk.FileFormat(0x05).IsRegular())
}

func TestDEBNamePadding(t *testing.T) {
	deb := &disk.DEB{Format: disk.OrgDirect}
	deb.SetName("abc", "x")

	require.Equal(t, "ABC", deb.NameString())
	require.Equal(t, "X", deb.TypeString())
	require.Equal(t, [8]byte{'A', 'B', 'C', ' ', ' ', ' ', ' ', ' '}, deb.Name)
	require.Equal(t, "ABC.X", deb.DisplayName())
}

func TestDEBRecordLen(t *testing.T) {
	deb := &disk.DEB{Format: disk.OrgIndexed, FFD1: 3<<9 | 128}
	require.Equal(t, 128, deb.RecordLen())
	require.Equal(t, 3, deb.KeyLen())

	deb = &disk.DEB{Format: disk.OrgDirect, FFD1: 256}
	require.Equal(t, 256, deb.RecordLen())
}

func TestDEBLogicalSize(t *testing.T) {
	direct := &disk.DEB{Format: disk.OrgDirect, RecordCount: 10, FFD1: 128, BlockCount: 2}
	require.Equal(t, 1280, direct.LogicalSize())

	reloc := &disk.DEB{Format: disk.OrgRelocatable, BlockCount: 2, FFD2: 1500}
	require.Equal(t, 1500, reloc.LogicalSize())

	abs := &disk.DEB{Format: disk.OrgAbsolute, BlockCount: 2}
	require.Equal(t, 2048, abs.LogicalSize())
}

func TestDEBClearDeleted(t *testing.T) {
	deb := &disk.DEB{Format: disk.OrgSequential, BlockCount: 4, StartSector: 12}
	deb.SetName("gone", "txt")

	deb.ClearDeleted()
	require.True(t, deb.Format.IsDeleted())
	require.Equal(t, uint16(0), deb.BlockCount)
	require.Equal(t, uint16(0), deb.StartSector)
	require.Equal(t, "", deb.NameString())
}
