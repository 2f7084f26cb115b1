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
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	// fsBlockSize is the byte count of the filesystem-block fields at the
	// start of sector 1; the rest of the sector holds the first slice of
	// the allocation bitmap.
	fsBlockSize = 32

	// LabelLen is the size of the volume label.
	LabelLen = 8

	// AdditionalAMSectorsMask selects the count of allocation-map sectors
	// beyond sector 1 from the fs_flags byte.
	AdditionalAMSectorsMask = 0x3F

	// WriteProtectFlag is the write-protect bit of fs_flags.
	WriteProtectFlag = 0x80
)

// FSBlock is the filesystem block stored at the start of sector 1, in host
// byte order.
type FSBlock struct {
	Label      [LabelLen]byte
	Timestamp  Timestamp
	NumHeads   byte
	NumCyl     byte
	NumSectors byte // sectors per track
	DirEntriesMax byte // units of 8 entries (one directory sector each)
	Reserved   uint16
	FreeBlocks uint16
	Flags      byte
}

// ParseFSBlock decodes the filesystem block from the first bytes of
// sector 1.
func ParseFSBlock(sector []byte) (*FSBlock, error) {
	if len(sector) < fsBlockSize {
		return nil, fmt.Errorf("filesystem block truncated: %d bytes", len(sector))
	}

	fs := &FSBlock{}
	copy(fs.Label[:], sector[0:8])
	fs.Timestamp = UnpackTimestamp([3]byte{sector[8], sector[9], sector[10]})
	// sector[11:23] is reserved
	fs.NumHeads = sector[23]
	fs.NumCyl = sector[24]
	fs.NumSectors = sector[25]
	fs.DirEntriesMax = sector[26]
	fs.Reserved = binary.LittleEndian.Uint16(sector[27:29])
	fs.FreeBlocks = binary.LittleEndian.Uint16(sector[29:31])
	fs.Flags = sector[31]
	return fs, nil
}

// Serialize encodes the filesystem block into the first fsBlockSize bytes
// of dst.
func (fs *FSBlock) Serialize(dst []byte) {
	for i := 0; i < fsBlockSize; i++ {
		dst[i] = 0
	}
	copy(dst[0:8], fs.Label[:])
	ts := fs.Timestamp.Pack()
	copy(dst[8:11], ts[:])
	dst[23] = fs.NumHeads
	dst[24] = fs.NumCyl
	dst[25] = fs.NumSectors
	dst[26] = fs.DirEntriesMax
	binary.LittleEndian.PutUint16(dst[27:29], fs.Reserved)
	binary.LittleEndian.PutUint16(dst[29:31], fs.FreeBlocks)
	dst[31] = fs.Flags
}

// AdditionalAMSectors is the count of allocation-map sectors beyond the
// slice embedded in sector 1.
func (fs *FSBlock) AdditionalAMSectors() int {
	return int(fs.Flags & AdditionalAMSectorsMask)
}

// WriteProtected reports the state of the write-protect flag.
func (fs *FSBlock) WriteProtected() bool {
	return fs.Flags&WriteProtectFlag != 0
}

// SetWriteProtected sets or clears the write-protect flag.
func (fs *FSBlock) SetWriteProtected(wp bool) {
	if wp {
		fs.Flags |= WriteProtectFlag
	} else {
		fs.Flags &^= WriteProtectFlag
	}
}

// DirSectorsMax is the directory length in sectors: each dir_entries_max
// unit is one sector of eight 32-byte entries.
func (fs *FSBlock) DirSectorsMax() int {
	return int(fs.DirEntriesMax)
}

// DirStartSector is the LBA of the first directory sector: boot sector,
// fsblock sector, then any additional allocation-map sectors.
func (fs *FSBlock) DirStartSector() int {
	return 2 + fs.AdditionalAMSectors()
}

// PhysicalSectors is the sector count implied by the recorded geometry.
func (fs *FSBlock) PhysicalSectors() int {
	return int(fs.NumHeads) * int(fs.NumCyl) * int(fs.NumSectors)
}

// LabelString returns the volume label with trailing spaces removed.
func (fs *FSBlock) LabelString() string {
	return strings.TrimRight(string(fs.Label[:]), " \x00")
}

// SetLabel stores an uppercased, space-padded volume label.
func (fs *FSBlock) SetLabel(label string) error {
	if len(label) > LabelLen {
		return fmt.Errorf("label %q longer than %d characters", label, LabelLen)
	}
	copy(fs.Label[:], padName(strings.ToUpper(label), LabelLen))
	return nil
}

func padName(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	for i := len(s); i < n; i++ {
		b[i] = ' '
	}
	return b
}
