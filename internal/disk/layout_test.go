package disk_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/stretchr/testify/require"
)

var testGeometry = disk.Geometry{
	Heads:           1,
	Cylinders:       40,
	SectorsPerTrack: 8,
	DirEntries:      16,
}

// newTestLayout formats a fresh raw image in a temp dir.
func newTestLayout(t *testing.T) *disk.DiskLayout {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.img")
	c, err := disk.CreateRaw(path, testGeometry.TotalSectors())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	layout, err := disk.Format(c, testGeometry, "TESTDISK")
	require.NoError(t, err)
	return layout
}

func seqTemplate(name, ftype string) *disk.DEB {
	deb := &disk.DEB{Format: disk.OrgSequential}
	deb.SetName(name, ftype)
	return deb
}

func TestBuildAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.img")
	c, err := disk.CreateRaw(path, testGeometry.TotalSectors())
	require.NoError(t, err)

	built, err := disk.Build(c, testGeometry, "mydisk")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c2, err := disk.OpenRaw(path, false)
	require.NoError(t, err)
	defer c2.Close()

	layout, err := disk.LoadLayout(c2)
	require.NoError(t, err)

	require.Equal(t, "MYDISK", layout.FS.LabelString())
	require.Equal(t, built.FS.FreeBlocks, layout.FS.FreeBlocks)
	require.Equal(t, built.FS.DirEntriesMax, layout.FS.DirEntriesMax)
	require.Len(t, layout.Dir, 16)
	require.Equal(t, 0, layout.FreeSlot())
}

func TestCreateAndReadSequential(t *testing.T) {
	layout := newTestLayout(t)

	data := bytes.Repeat([]byte("HELLO WORLD\r"), 60) // spans three sectors

	deb, err := layout.CreateFile(seqTemplate("hello", "txt"), data)
	require.NoError(t, err)
	require.Equal(t, "HELLO.TXT", deb.DisplayName())
	require.NotZero(t, deb.StartSector)
	require.NotZero(t, deb.FFD2)

	got, err := layout.ReadFile(deb)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(got), len(data))
	require.Equal(t, data, got[:len(data)])

	// The tail of the last sector is zero padding.
	for _, b := range got[len(data):] {
		require.Zero(t, b)
	}

	require.Equal(t, int(layout.FS.FreeBlocks), layout.Alloc.CountFreeUpTo(layout.TotalBlocks()))
}

func TestCreateAndReadContiguous(t *testing.T) {
	layout := newTestLayout(t)

	data := bytes.Repeat([]byte{0xAB}, 1000)

	template := &disk.DEB{Format: disk.OrgDirect, FFD1: 128, RecordCount: 8}
	template.SetName("recs", "dat")

	deb, err := layout.CreateFile(template, data)
	require.NoError(t, err)
	require.Equal(t, uint16(1), deb.BlockCount)

	got, err := layout.ReadFile(deb)
	require.NoError(t, err)
	require.Equal(t, 8*128, len(got))
	require.Equal(t, data, got[:1000])
}

func TestCreateReplacesExisting(t *testing.T) {
	layout := newTestLayout(t)

	_, err := layout.CreateFile(seqTemplate("same", "txt"), []byte("first\r"))
	require.NoError(t, err)

	deb, err := layout.CreateFile(seqTemplate("same", "txt"), []byte("second\r"))
	require.NoError(t, err)

	require.Len(t, layout.FindDEB("SAME.TXT", -1), 1)

	got, err := layout.ReadFile(deb)
	require.NoError(t, err)
	require.Equal(t, []byte("second\r"), got[:7])
	require.Equal(t, int(layout.FS.FreeBlocks), layout.Alloc.CountFreeUpTo(layout.TotalBlocks()))
}

func TestCreateDirectoryFull(t *testing.T) {
	layout := newTestLayout(t)

	for i := 0; i < 16; i++ {
		_, err := layout.CreateFile(seqTemplate("file", string(rune('A'+i))), []byte("x\r"))
		require.NoError(t, err)
	}

	_, err := layout.CreateFile(seqTemplate("onemore", "txt"), []byte("x\r"))
	require.ErrorIs(t, err, disk.ErrDirectoryFull)
}

func TestEraseSequentialChain(t *testing.T) {
	layout := newTestLayout(t)

	// Hand-build a wandering chain over LBAs 40, 44, 60, 61, touching
	// blocks 10, 11 and 15.
	writeChainSector := func(lba, next int) {
		var sector [disk.SectorSize]byte
		sector[disk.SectorSize-2] = byte(next)
		sector[disk.SectorSize-1] = byte(next >> 8)
		_, err := layout.Container().WriteSectors(lba, sector[:])
		require.NoError(t, err)
	}
	writeChainSector(40, 44)
	writeChainSector(44, 60)
	writeChainSector(60, 61)
	writeChainSector(61, 0)

	for _, b := range []int{10, 11, 15} {
		require.NoError(t, layout.Alloc.SetState(b, true))
	}

	deb := &disk.DEB{
		Format:      disk.OrgSequential,
		BlockCount:  3,
		StartSector: 40,
		FFD2:        61,
	}
	deb.SetName("chain", "txt")
	layout.Dir[0] = *deb
	layout.FS.FreeBlocks = uint16(layout.Alloc.CountFreeUpTo(layout.TotalBlocks()))

	freeBefore := int(layout.FS.FreeBlocks)

	require.NoError(t, layout.EraseAt(0))

	for _, b := range []int{10, 11, 15} {
		allocated, err := layout.Alloc.IsAllocated(b)
		require.NoError(t, err)
		require.False(t, allocated, "block %d still allocated", b)
	}
	require.Equal(t, freeBefore+3, int(layout.FS.FreeBlocks))
	require.True(t, layout.Dir[0].Format.IsDeleted())
}

func TestEraseNoMatch(t *testing.T) {
	layout := newTestLayout(t)

	erased, err := layout.Erase("NOPE.TXT", -1)
	require.NoError(t, err)
	require.False(t, erased)
}

func TestSequentialCycleDetected(t *testing.T) {
	layout := newTestLayout(t)

	writeChainSector := func(lba, next int) {
		var sector [disk.SectorSize]byte
		sector[disk.SectorSize-2] = byte(next)
		sector[disk.SectorSize-1] = byte(next >> 8)
		_, err := layout.Container().WriteSectors(lba, sector[:])
		require.NoError(t, err)
	}
	writeChainSector(40, 44)
	writeChainSector(44, 40)

	deb := &disk.DEB{
		Format:      disk.OrgSequential,
		BlockCount:  2,
		StartSector: 40,
		FFD2:        44,
	}
	deb.SetName("loop", "txt")

	_, err := layout.ReadFile(deb)
	require.ErrorIs(t, err, disk.ErrChainCycle)
}

func TestSequentialTailMismatch(t *testing.T) {
	layout := newTestLayout(t)

	var sector [disk.SectorSize]byte
	_, err := layout.Container().WriteSectors(40, sector[:])
	require.NoError(t, err)

	deb := &disk.DEB{
		Format:      disk.OrgSequential,
		BlockCount:  1,
		StartSector: 40,
		FFD2:        99, // directory disagrees with the chain
	}
	deb.SetName("tail", "txt")

	_, err = layout.ReadFile(deb)
	require.ErrorIs(t, err, disk.ErrChainTail)
}

func TestRename(t *testing.T) {
	layout := newTestLayout(t)

	_, err := layout.CreateFile(seqTemplate("old", "txt"), []byte("data\r"))
	require.NoError(t, err)

	renamed, err := layout.Rename("OLD.TXT", "new.bas", -1)
	require.NoError(t, err)
	require.True(t, renamed)

	require.Empty(t, layout.FindDEB("OLD.TXT", -1))
	require.Len(t, layout.FindDEB("NEW.BAS", -1), 1)
}

func TestRenameCollision(t *testing.T) {
	layout := newTestLayout(t)

	_, err := layout.CreateFile(seqTemplate("a", "txt"), []byte("a\r"))
	require.NoError(t, err)
	_, err = layout.CreateFile(seqTemplate("b", "txt"), []byte("b\r"))
	require.NoError(t, err)

	_, err = layout.Rename("A.TXT", "B.TXT", -1)
	require.ErrorIs(t, err, disk.ErrNameTaken)
}

func TestRenameAmbiguous(t *testing.T) {
	layout := newTestLayout(t)

	_, err := layout.CreateFile(seqTemplate("a", "txt"), []byte("a\r"))
	require.NoError(t, err)
	_, err = layout.CreateFile(seqTemplate("b", "txt"), []byte("b\r"))
	require.NoError(t, err)

	_, err = layout.Rename("*.TXT", "C.TXT", -1)
	require.ErrorIs(t, err, disk.ErrAmbiguousMatch)
}

func TestWriteProtect(t *testing.T) {
	layout := newTestLayout(t)
	require.NoError(t, layout.SetWriteProtect(true))

	_, err := layout.CreateFile(seqTemplate("x", "txt"), []byte("x\r"))
	require.ErrorIs(t, err, disk.ErrWriteProtected)

	_, err = layout.Erase("*.*", -1)
	require.NoError(t, err) // nothing matches, no-op before the WP check

	require.NoError(t, layout.SetWriteProtect(false))
	_, err = layout.CreateFile(seqTemplate("x", "txt"), []byte("x\r"))
	require.NoError(t, err)
}

func TestClear(t *testing.T) {
	layout := newTestLayout(t)

	_, err := layout.CreateFile(seqTemplate("junk", "txt"), []byte("junk\r"))
	require.NoError(t, err)

	require.NoError(t, layout.Clear())
	require.Empty(t, layout.FindDEB("*.*", -1))
	require.Equal(t, int(layout.FS.FreeBlocks), layout.Alloc.CountFreeUpTo(layout.TotalBlocks()))
}

func TestCheckCleanDisk(t *testing.T) {
	layout := newTestLayout(t)

	_, err := layout.CreateFile(seqTemplate("good", "txt"), []byte("all good here\r"))
	require.NoError(t, err)

	result := layout.Check("*.*", -1)
	require.Equal(t, 1, result.FilesChecked)
	require.Zero(t, result.Errors(), "findings: %v", result.Findings)
}

func TestCheckFindsOrphanAndSharing(t *testing.T) {
	layout := newTestLayout(t)

	// An allocated block no file claims.
	require.NoError(t, layout.Alloc.SetState(50, true))
	layout.FS.FreeBlocks = uint16(layout.Alloc.CountFreeUpTo(layout.TotalBlocks()))

	result := layout.Check("*.*", -1)
	require.NotZero(t, result.Errors())

	// Two files claiming the same sectors.
	layout = newTestLayout(t)
	for i, name := range []string{"one", "two"} {
		deb := &disk.DEB{Format: disk.OrgDirect, BlockCount: 1, StartSector: 80, FFD1: 256, RecordCount: 4}
		deb.SetName(name, "dat")
		layout.Dir[i] = *deb
	}
	require.NoError(t, layout.Alloc.SetState(20, true))
	layout.FS.FreeBlocks = uint16(layout.Alloc.CountFreeUpTo(layout.TotalBlocks()))

	result = layout.Check("*.*", -1)

	shared := false
	for _, f := range result.Findings {
		if f.Severity == disk.SeverityError && f.File == "TWO.DAT" {
			shared = true
		}
	}
	require.True(t, shared, "findings: %v", result.Findings)
}
