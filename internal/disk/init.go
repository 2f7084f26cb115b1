// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package disk

import (
	"fmt"
	"time"
)

// Geometry describes a disk for initialization.
type Geometry struct {
	Heads           int
	Cylinders       int
	SectorsPerTrack int
	DirEntries      int // rounded up to a multiple of 8
}

// TotalSectors is the sector count the geometry implies.
func (g Geometry) TotalSectors() int {
	return g.Heads * g.Cylinders * g.SectorsPerTrack
}

func (g Geometry) validate() error {
	if g.Heads < 1 || g.Heads > 255 ||
		g.Cylinders < 1 || g.Cylinders > 255 ||
		g.SectorsPerTrack < 1 || g.SectorsPerTrack > 255 {
		return fmt.Errorf("invalid geometry %d/%d/%d", g.Heads, g.Cylinders, g.SectorsPerTrack)
	}
	if g.DirEntries < 1 || g.DirEntries > 255*8 {
		return fmt.Errorf("invalid directory size %d", g.DirEntries)
	}
	return nil
}

// Format blanks the container and builds fresh filesystem surfaces for
// the geometry. For raw images blanking is implicit; for IMD containers
// every readable sector is filled first.
func Format(c Container, geom Geometry, label string) (*DiskLayout, error) {
	if imdc, ok := c.(*IMDImage); ok {
		imdc.Blank(0xE5)
	} else {
		zero := make([]byte, SectorSize)
		for lba := 0; lba < c.TotalSectors(); lba++ {
			if _, err := c.WriteSectors(lba, zero); err != nil {
				return nil, err
			}
		}
	}
	return Build(c, geom, label)
}

// Build writes fsblock, allocation map and an empty directory onto an
// already formatted container.
func Build(c Container, geom Geometry, label string) (*DiskLayout, error) {
	if err := geom.validate(); err != nil {
		return nil, err
	}

	dirSectors := (geom.DirEntries + 7) / 8

	totalBlocks := geom.TotalSectors() / SectorsPerBlock
	bitmapBytes := (totalBlocks + 7) / 8

	// Sector 1 carries the first bitmap slice; the rest spills into
	// additional AM sectors.
	extraAM := 0
	if bitmapBytes > SectorSize-fsBlockSize {
		extraAM = (bitmapBytes - (SectorSize - fsBlockSize) + SectorSize - 1) / SectorSize
	}
	if extraAM > AdditionalAMSectorsMask {
		return nil, fmt.Errorf("geometry needs %d allocation-map sectors; the format allows %d",
			extraAM+1, AdditionalAMSectorsMask+1)
	}

	fs := &FSBlock{
		Timestamp:     TimestampFromTime(time.Now()),
		NumHeads:      byte(geom.Heads),
		NumCyl:        byte(geom.Cylinders),
		NumSectors:    byte(geom.SectorsPerTrack),
		DirEntriesMax: byte(dirSectors),
		Flags:         byte(extraAM),
	}
	if err := fs.SetLabel(label); err != nil {
		return nil, err
	}

	bitmap := make([]byte, (SectorSize-fsBlockSize)+extraAM*SectorSize)
	alloc := NewAllocMap(bitmap)

	layout := &DiskLayout{
		container: c,
		FS:        fs,
		Alloc:     alloc,
		Dir:       make([]DEB, dirSectors*8),
	}

	if err := layout.reserveSystemBlocks(); err != nil {
		return nil, err
	}

	fs.FreeBlocks = uint16(alloc.CountFreeUpTo(layout.TotalBlocks()))

	if err := layout.WriteFSBlockAndAM(); err != nil {
		return nil, err
	}
	if err := layout.WriteDirectory(); err != nil {
		return nil, err
	}
	return layout, nil
}

// Clear wipes the directory and rebuilds the allocation map from scratch,
// preserving geometry and label.
func (l *DiskLayout) Clear() error {
	if l.poisoned {
		return ErrPoisoned
	}
	if l.FS.WriteProtected() {
		return ErrWriteProtected
	}

	for i := range l.Dir {
		l.Dir[i] = DEB{}
	}

	bitmap := l.Alloc.Bytes()
	for i := range bitmap {
		bitmap[i] = 0
	}
	if err := l.reserveSystemBlocks(); err != nil {
		return err
	}

	l.FS.FreeBlocks = uint16(l.Alloc.CountFreeUpTo(l.TotalBlocks()))

	if err := l.WriteFSBlockAndAM(); err != nil {
		return err
	}
	return l.WriteDirectory()
}

// reserveSystemBlocks marks the blocks holding the boot sector, fsblock,
// allocation map and directory as allocated, plus every block past the
// physical end of the disk that the bitmap can still represent.
func (l *DiskLayout) reserveSystemBlocks() error {
	systemSectors := l.FS.DirStartSector() + l.FS.DirSectorsMax()
	systemBlocks := (systemSectors + SectorsPerBlock - 1) / SectorsPerBlock

	for b := 0; b < systemBlocks; b++ {
		if err := l.Alloc.SetState(b, true); err != nil {
			return err
		}
	}

	physicalBlocks := l.container.TotalSectors() / SectorsPerBlock
	for b := physicalBlocks; b < l.Alloc.NumBlocks(); b++ {
		if err := l.Alloc.SetState(b, true); err != nil {
			return err
		}
	}
	return nil
}

// Label rewrites the volume label.
func (l *DiskLayout) Label(label string) error {
	if l.poisoned {
		return ErrPoisoned
	}
	if err := l.FS.SetLabel(label); err != nil {
		return err
	}
	return l.WriteFSBlockAndAM()
}

// SetWriteProtect toggles the write-protect flag.
func (l *DiskLayout) SetWriteProtect(wp bool) error {
	if l.poisoned {
		return ErrPoisoned
	}
	l.FS.SetWriteProtected(wp)
	return l.WriteFSBlockAndAM()
}
