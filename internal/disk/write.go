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
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrDirectoryFull is returned when no directory slot is free.
	ErrDirectoryFull = errors.New("directory is full")

	// ErrWriteProtected is returned when mutating a protected image.
	ErrWriteProtected = errors.New("disk is write protected")

	// ErrNameTaken is returned when a rename target already exists.
	ErrNameTaken = errors.New("a file with that name already exists")

	// ErrAmbiguousMatch is returned when a single-file operation matches
	// more than one entry.
	ErrAmbiguousMatch = errors.New("pattern matches more than one file")
)

// CreateFile writes data into the image as a new file described by the
// template DEB (format, name, type, owner, FFD fields and timestamp). An
// existing file of the same name, type and owner is erased first. On any
// failure after allocation the reserved blocks are released in memory and
// nothing is flushed.
func (l *DiskLayout) CreateFile(template *DEB, data []byte) (*DEB, error) {
	if l.poisoned {
		return nil, ErrPoisoned
	}
	if l.FS.WriteProtected() {
		return nil, ErrWriteProtected
	}
	if !template.Format.IsRegular() {
		return nil, fmt.Errorf("invalid file format byte 0x%02X", byte(template.Format))
	}

	// Replace semantics: drop any previous file of the same name.
	if old := l.FindDEB(template.DisplayName(), int(template.OwnerID)); len(old) == 1 {
		if err := l.EraseAt(old[0]); err != nil {
			return nil, err
		}
	}

	slot := l.FreeSlot()
	if slot < 0 {
		return nil, ErrDirectoryFull
	}

	deb := *template

	var err error
	if deb.Format.Org() == OrgSequential {
		err = l.writeSequential(&deb, data)
	} else {
		err = l.writeContiguous(&deb, data)
	}
	if err != nil {
		return nil, err
	}

	l.Dir[slot] = deb
	l.FS.FreeBlocks = uint16(l.Alloc.CountFreeUpTo(l.TotalBlocks()))

	if err := l.WriteFSBlockAndAM(); err != nil {
		return nil, err
	}
	if err := l.WriteDirectory(); err != nil {
		return nil, err
	}
	return &l.Dir[slot], nil
}

// writeContiguous allocates one best-fit run and writes the payload
// linearly, zero padding the final block.
func (l *DiskLayout) writeContiguous(deb *DEB, payload []byte) error {
	blocks := (len(payload) + BlockSize - 1) / BlockSize
	if blocks == 0 {
		blocks = 1
	}

	start, err := l.Alloc.Allocate(blocks)
	if err != nil {
		return err
	}

	buf := make([]byte, blocks*BlockSize)
	copy(buf, payload)

	deb.BlockCount = uint16(blocks)
	deb.StartSector = uint16(start * SectorsPerBlock)

	if _, err := l.container.WriteSectors(start*SectorsPerBlock, buf); err != nil {
		// Roll back the reservation; no metadata was flushed yet.
		_ = l.Alloc.Deallocate(start, blocks)
		return err
	}
	return nil
}

// writeSequential allocates block by block and threads the 2-byte links
// through the payload sectors, 254 data bytes per sector. Sector use
// within a block runs 0..3 before moving to the next block.
func (l *DiskLayout) writeSequential(deb *DEB, payload []byte) error {
	sectorsNeeded := (len(payload) + SeqDataPerSector - 1) / SeqDataPerSector
	if sectorsNeeded == 0 {
		sectorsNeeded = 1
	}
	blocks := (sectorsNeeded + SectorsPerBlock - 1) / SectorsPerBlock

	blockList := make([]int, 0, blocks)
	rollback := func() {
		for _, b := range blockList {
			_ = l.Alloc.Deallocate(b, 1)
		}
	}

	for i := 0; i < blocks; i++ {
		b, err := l.Alloc.Allocate(1)
		if err != nil {
			rollback()
			return err
		}
		blockList = append(blockList, b)
	}

	lbaOf := func(sectorIdx int) int {
		return blockList[sectorIdx/SectorsPerBlock]*SectorsPerBlock + sectorIdx%SectorsPerBlock
	}

	var sector [SectorSize]byte
	for i := 0; i < sectorsNeeded; i++ {
		for j := range sector {
			sector[j] = 0
		}

		off := i * SeqDataPerSector
		end := off + SeqDataPerSector
		if end > len(payload) {
			end = len(payload)
		}
		copy(sector[:], payload[off:end])

		next := 0
		if i+1 < sectorsNeeded {
			next = lbaOf(i + 1)
		}
		sector[SectorSize-2] = byte(next)
		sector[SectorSize-1] = byte(next >> 8)

		if _, err := l.container.WriteSectors(lbaOf(i), sector[:]); err != nil {
			rollback()
			return err
		}
	}

	deb.BlockCount = uint16(blocks)
	deb.StartSector = uint16(lbaOf(0))
	deb.FFD2 = uint16(lbaOf(sectorsNeeded - 1))
	return nil
}

// SequentialStats fills the record fields a sequential text file carries:
// record_count is the line count and FFD1 the longest line, both derived
// from carriage-return delimited records.
func SequentialStats(data []byte) (records, longest int) {
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\r')
		if i < 0 {
			i = len(data)
			records++
			if i > longest {
				longest = i
			}
			break
		}
		records++
		if i > longest {
			longest = i
		}
		data = data[i+1:]
	}
	return records, longest
}

// Erase removes the single file matching pattern and owner. Matching no
// entry is a no-op; matching several is an error.
func (l *DiskLayout) Erase(pattern string, owner int) (bool, error) {
	matches := l.FindDEB(pattern, owner)
	if len(matches) == 0 {
		return false, nil
	}
	if len(matches) > 1 {
		return false, ErrAmbiguousMatch
	}
	return true, l.EraseAt(matches[0])
}

// EraseAt deallocates the blocks of the directory entry at index and
// marks it deleted, then flushes the directory and filesystem surfaces.
func (l *DiskLayout) EraseAt(index int) error {
	if l.poisoned {
		return ErrPoisoned
	}
	if l.FS.WriteProtected() {
		return ErrWriteProtected
	}

	deb := &l.Dir[index]
	if !deb.Format.IsRegular() {
		return fmt.Errorf("entry %d is not a regular file", index)
	}

	if deb.Format.Org() == OrgSequential && deb.BlockCount > 0 {
		// The chain may wander: collect the distinct blocks it touches.
		blocks := map[int]bool{}
		if _, err := l.WalkChain(deb, func(lba int) error {
			blocks[lba/SectorsPerBlock] = true
			return nil
		}); err != nil {
			return fmt.Errorf("erase %s: %w", deb.DisplayName(), err)
		}
		for b := range blocks {
			if err := l.Alloc.Deallocate(b, 1); err != nil {
				return fmt.Errorf("erase %s: block %d: %w", deb.DisplayName(), b, err)
			}
		}
	} else if deb.BlockCount > 0 {
		start := int(deb.StartSector) / SectorsPerBlock
		if err := l.Alloc.Deallocate(start, int(deb.BlockCount)); err != nil {
			return fmt.Errorf("erase %s: %w", deb.DisplayName(), err)
		}
	}

	deb.ClearDeleted()
	l.FS.FreeBlocks = uint16(l.Alloc.CountFreeUpTo(l.TotalBlocks()))

	if err := l.WriteDirectory(); err != nil {
		return err
	}
	return l.WriteFSBlockAndAM()
}

// Rename changes the name and type of the single file matching pattern.
// Matching no entry is a no-op; matching several, or colliding with an
// existing file in the same owner scope, is an error.
func (l *DiskLayout) Rename(pattern, newName string, owner int) (bool, error) {
	if l.poisoned {
		return false, ErrPoisoned
	}
	if l.FS.WriteProtected() {
		return false, ErrWriteProtected
	}

	matches := l.FindDEB(pattern, owner)
	if len(matches) == 0 {
		return false, nil
	}
	if len(matches) > 1 {
		return false, ErrAmbiguousMatch
	}

	target, err := ParseHostFilename(newName)
	if err != nil {
		return false, err
	}

	deb := &l.Dir[matches[0]]
	for i := range l.Dir {
		other := &l.Dir[i]
		if i == matches[0] || !other.Format.IsRegular() || other.OwnerID != deb.OwnerID {
			continue
		}
		if other.Name == target.Name && other.Type == target.Type {
			return false, fmt.Errorf("rename to %s: %w", target.DisplayName(), ErrNameTaken)
		}
	}

	deb.Name = target.Name
	deb.Type = target.Type
	return true, l.WriteDirectory()
}
