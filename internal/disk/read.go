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

var (
	// ErrChainCycle is returned when a sequential link chain revisits a
	// sector.
	ErrChainCycle = errors.New("cycle in sequential sector chain")

	// ErrChainTooLong is returned when a chain exceeds the sector count
	// its DEB allocates by more than chainSlack sectors.
	ErrChainTooLong = errors.New("sequential chain longer than allocation")

	// ErrChainTail is returned when the observed last chain sector does
	// not match the DEB's recorded one.
	ErrChainTail = errors.New("sequential chain tail does not match directory entry")
)

// chainSlack tolerates a couple of dangling sectors past the allocated
// count before a walk is abandoned as runaway.
const chainSlack = 2

// ReadFile returns the content of a regular file, trimmed to its logical
// length. The layout is not mutated.
func (l *DiskLayout) ReadFile(deb *DEB) ([]byte, error) {
	if !deb.Format.IsRegular() {
		return nil, fmt.Errorf("not a regular file entry")
	}
	if deb.BlockCount == 0 {
		return nil, nil
	}

	if deb.Format.Org() == OrgSequential {
		data, _, err := l.readSequential(deb)
		return data, err
	}
	return l.readContiguous(deb)
}

// readContiguous reads block_count*4 sectors from start_sector and trims
// to the organization's logical length.
func (l *DiskLayout) readContiguous(deb *DEB) ([]byte, error) {
	sectors := int(deb.BlockCount) * SectorsPerBlock
	buf := make([]byte, sectors*SectorSize)

	n, err := l.container.ReadSectors(int(deb.StartSector), buf)
	if err != nil {
		return nil, err
	}
	buf = buf[:n*SectorSize]

	logical := deb.LogicalSize()
	if logical > len(buf) {
		// A record count larger than the allocation; keep what the disk
		// actually holds.
		logical = len(buf)
	}
	return buf[:logical], nil
}

// readSequential walks the link chain from start_sector, collecting 254
// payload bytes per sector, and returns the data plus the LBA of the
// final sector. The walk is bounded by the DEB's allocated sector count
// plus chainSlack and guarded against cycles with a visited bitmap.
func (l *DiskLayout) readSequential(deb *DEB) ([]byte, int, error) {
	maxSectors := int(deb.BlockCount)*SectorsPerBlock + chainSlack
	visited := make([]byte, (l.container.TotalSectors()+7)/8)

	data := make([]byte, 0, int(deb.BlockCount)*SectorsPerBlock*SeqDataPerSector)

	var sector [SectorSize]byte
	lba := int(deb.StartSector)
	last := lba

	for count := 0; lba != 0; count++ {
		if count >= maxSectors {
			return nil, 0, fmt.Errorf("file %s: %w", deb.DisplayName(), ErrChainTooLong)
		}
		if lba >= l.container.TotalSectors() {
			return nil, 0, fmt.Errorf("file %s: link to sector %d outside image",
				deb.DisplayName(), lba)
		}
		if visited[lba/8]&(1<<(lba%8)) != 0 {
			return nil, 0, fmt.Errorf("file %s: %w at sector %d", deb.DisplayName(), ErrChainCycle, lba)
		}
		visited[lba/8] |= 1 << (lba % 8)

		if n, err := l.container.ReadSectors(lba, sector[:]); err != nil {
			return nil, 0, err
		} else if n != 1 {
			return nil, 0, fmt.Errorf("file %s: sector %d unreadable", deb.DisplayName(), lba)
		}

		data = append(data, sector[:SeqDataPerSector]...)
		last = lba
		lba = int(sector[SectorSize-2]) | int(sector[SectorSize-1])<<8
	}

	if last != int(deb.FFD2) {
		return data, last, fmt.Errorf("file %s: last sector %d, directory says %d: %w",
			deb.DisplayName(), last, deb.FFD2, ErrChainTail)
	}
	return data, last, nil
}

// WalkChain visits every sector of a sequential file in chain order,
// without reading payloads into memory beyond one sector at a time.
// It is used by erase and by the consistency checker.
func (l *DiskLayout) WalkChain(deb *DEB, visit func(lba int) error) (int, error) {
	maxSectors := int(deb.BlockCount)*SectorsPerBlock + chainSlack
	visited := make([]byte, (l.container.TotalSectors()+7)/8)

	var sector [SectorSize]byte
	lba := int(deb.StartSector)
	last := lba

	for count := 0; lba != 0; count++ {
		if count >= maxSectors {
			return last, ErrChainTooLong
		}
		if lba >= l.container.TotalSectors() {
			return last, fmt.Errorf("link to sector %d outside image", lba)
		}
		if visited[lba/8]&(1<<(lba%8)) != 0 {
			return last, ErrChainCycle
		}
		visited[lba/8] |= 1 << (lba % 8)

		if err := visit(lba); err != nil {
			return last, err
		}

		if n, err := l.container.ReadSectors(lba, sector[:]); err != nil {
			return last, err
		} else if n != 1 {
			return last, fmt.Errorf("sector %d unreadable", lba)
		}

		last = lba
		lba = int(sector[SectorSize-2]) | int(sector[SectorSize-1])<<8
	}
	return last, nil
}
