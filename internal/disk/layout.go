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
	"errors"
	"fmt"
)

// ErrPoisoned marks a layout whose writeback failed; no further mutation
// is allowed on it.
var ErrPoisoned = errors.New("layout poisoned by failed writeback")

// DiskLayout is the decoded metadata of an open image: filesystem block,
// allocation map and directory, all in host order. Mutators update the
// in-memory state first and then write back the affected surfaces.
type DiskLayout struct {
	container Container
	FS        *FSBlock
	Alloc     *AllocMap
	Dir       []DEB

	poisoned bool
}

// LoadLayout reads and validates the filesystem surfaces of an open
// container.
func LoadLayout(c Container) (*DiskLayout, error) {
	var sector1 [SectorSize]byte
	if n, err := c.ReadSectors(1, sector1[:]); err != nil {
		return nil, err
	} else if n != 1 {
		return nil, fmt.Errorf("image too small for a filesystem block")
	}

	fs, err := ParseFSBlock(sector1[:])
	if err != nil {
		return nil, err
	}

	extraAM := fs.AdditionalAMSectors()
	dirStart := fs.DirStartSector()
	dirSectors := fs.DirSectorsMax()

	if dirStart+dirSectors > c.TotalSectors() {
		return nil, fmt.Errorf("directory extends past end of image (%d sectors)", c.TotalSectors())
	}

	// Splice the allocation bitmap: the tail of sector 1 plus any
	// additional AM sectors.
	bitmap := make([]byte, (SectorSize-fsBlockSize)+extraAM*SectorSize)
	copy(bitmap, sector1[fsBlockSize:])

	if extraAM > 0 {
		extra := make([]byte, extraAM*SectorSize)
		if n, err := c.ReadSectors(2, extra); err != nil {
			return nil, err
		} else if n != extraAM {
			return nil, fmt.Errorf("image too small for %d allocation-map sectors", extraAM)
		}
		copy(bitmap[SectorSize-fsBlockSize:], extra)
	}

	dirBuf := make([]byte, dirSectors*SectorSize)
	if n, err := c.ReadSectors(dirStart, dirBuf); err != nil {
		return nil, err
	} else if n != dirSectors {
		return nil, fmt.Errorf("image too small for %d directory sectors", dirSectors)
	}

	dir := make([]DEB, dirSectors*8)
	for i := range dir {
		if err := dir[i].UnmarshalBinary(dirBuf[i*DEBSize:]); err != nil {
			return nil, err
		}
	}

	return &DiskLayout{
		container: c,
		FS:        fs,
		Alloc:     NewAllocMap(bitmap),
		Dir:       dir,
	}, nil
}

// Container exposes the underlying sector store for read paths.
func (l *DiskLayout) Container() Container {
	return l.container
}

// TotalBlocks is the 1K-block capacity implied by the physical sector
// count, which the allocation map may over-represent.
func (l *DiskLayout) TotalBlocks() int {
	blocks := l.container.TotalSectors() / SectorsPerBlock
	if m := l.Alloc.NumBlocks(); blocks > m {
		blocks = m
	}
	return blocks
}

// WriteFSBlockAndAM writes sector 1 (fsblock plus the first bitmap slice)
// and any additional allocation-map sectors.
func (l *DiskLayout) WriteFSBlockAndAM() error {
	if l.poisoned {
		return ErrPoisoned
	}

	var sector1 [SectorSize]byte
	l.FS.Serialize(sector1[:])

	bitmap := l.Alloc.Bytes()
	copy(sector1[fsBlockSize:], bitmap)

	if _, err := l.container.WriteSectors(1, sector1[:]); err != nil {
		l.poisoned = true
		return fmt.Errorf("writeback of filesystem block failed: %w", err)
	}

	if extra := l.FS.AdditionalAMSectors(); extra > 0 {
		rest := make([]byte, extra*SectorSize)
		copy(rest, bitmap[SectorSize-fsBlockSize:])
		if _, err := l.container.WriteSectors(2, rest); err != nil {
			l.poisoned = true
			return fmt.Errorf("writeback of allocation map failed: %w", err)
		}
	}
	return nil
}

// WriteDirectory writes every directory sector back to the image.
func (l *DiskLayout) WriteDirectory() error {
	if l.poisoned {
		return ErrPoisoned
	}

	buf := make([]byte, l.FS.DirSectorsMax()*SectorSize)
	for i := range l.Dir {
		l.Dir[i].MarshalBinary(buf[i*DEBSize : (i+1)*DEBSize])
	}

	if _, err := l.container.WriteSectors(l.FS.DirStartSector(), buf); err != nil {
		l.poisoned = true
		return fmt.Errorf("writeback of directory failed: %w", err)
	}
	return nil
}

// FindDEB returns the indices of regular entries matching pattern and
// owner filter.
func (l *DiskLayout) FindDEB(pattern string, owner int) []int {
	var matches []int
	for i := range l.Dir {
		if MatchDEB(&l.Dir[i], pattern, owner) {
			matches = append(matches, i)
		}
	}
	return matches
}

// FreeSlot returns the index of the first empty or deleted directory
// entry, or -1 when the directory is full.
func (l *DiskLayout) FreeSlot() int {
	for i := range l.Dir {
		if l.Dir[i].Format.IsEmpty() || l.Dir[i].Format.IsDeleted() {
			return i
		}
	}
	return -1
}
