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
	"strings"
)

// DEBSize is the on-disk size of a directory entry block.
const DEBSize = 32

// File organizations, the low five bits of a non-empty file_format byte.
const (
	OrgRelocatable = 0x01
	OrgAbsolute    = 0x02
	OrgSequential  = 0x04
	OrgDirect      = 0x08
	OrgIndexed     = 0x10
	OrgKeyed       = 0x18
)

const (
	// FileFormatMask selects the organization bits of file_format.
	FileFormatMask = 0x1F

	formatEmpty   = 0x00
	formatDeleted = 0xFF
	synonymFlag   = 0x80
)

// Masks of the Indexed/Keyed FFD1 field: low nine bits carry the record
// length, the high bits the key length.
const (
	IndexedRecordLenMask = 0x1FF
	IndexedKeyLenShift   = 9
)

// FileFormat is the raw file_format byte of a DEB.
type FileFormat byte

func (f FileFormat) IsEmpty() bool   { return f == formatEmpty }
func (f FileFormat) IsDeleted() bool { return f == formatDeleted }

// IsSynonym reports whether the entry is a synonym for another file.
func (f FileFormat) IsSynonym() bool {
	return !f.IsDeleted() && f&synonymFlag != 0
}

// Org returns the organization bits of a regular entry.
func (f FileFormat) Org() byte {
	return byte(f) & FileFormatMask
}

// Attributes returns the attribute bits above the organization field.
func (f FileFormat) Attributes() byte {
	return byte(f) &^ FileFormatMask
}

// IsRegular reports whether the entry describes a live file: neither an
// empty slot, the deleted marker, a synonym, nor an unknown organization.
func (f FileFormat) IsRegular() bool {
	if f.IsEmpty() || f.IsDeleted() || f.IsSynonym() {
		return false
	}
	switch f.Org() {
	case OrgRelocatable, OrgAbsolute, OrgSequential, OrgDirect, OrgIndexed, OrgKeyed:
		return true
	}
	return false
}

// Char returns the single-letter organization code used in listings and
// host filename suffixes.
func (f FileFormat) Char() byte {
	switch f.Org() {
	case OrgRelocatable:
		return 'R'
	case OrgAbsolute:
		return 'A'
	case OrgSequential:
		return 'S'
	case OrgDirect:
		return 'D'
	case OrgIndexed:
		return 'I'
	case OrgKeyed:
		return 'K'
	}
	return '?'
}

func orgFromChar(c byte) (byte, bool) {
	switch c {
	case 'R':
		return OrgRelocatable, true
	case 'A':
		return OrgAbsolute, true
	case 'S':
		return OrgSequential, true
	case 'D':
		return OrgDirect, true
	case 'I':
		return OrgIndexed, true
	case 'K':
		return OrgKeyed, true
	}
	return 0, false
}

// DEB is a directory entry block in host byte order.
type DEB struct {
	Format      FileFormat
	Name        [FNameLen]byte
	Type        [FTypeLen]byte
	RecordCount uint16
	BlockCount  uint16
	StartSector uint16
	FFD1        uint16
	Timestamp   Timestamp
	OwnerID     byte
	SharedFromOwner byte
	FFD2        uint16
}

// UnmarshalBinary decodes the 32-byte wire form of a DEB, swapping the
// five 16-bit fields from little-endian.
func (d *DEB) UnmarshalBinary(data []byte) error {
	if len(data) < DEBSize {
		return ErrSectorOutOfRange
	}

	d.Format = FileFormat(data[0])
	copy(d.Name[:], data[1:9])
	copy(d.Type[:], data[9:17])
	d.RecordCount = binary.LittleEndian.Uint16(data[17:19])
	d.BlockCount = binary.LittleEndian.Uint16(data[19:21])
	d.StartSector = binary.LittleEndian.Uint16(data[21:23])
	d.FFD1 = binary.LittleEndian.Uint16(data[23:25])
	d.Timestamp = UnpackTimestamp([3]byte{data[25], data[26], data[27]})
	d.OwnerID = data[28]
	d.SharedFromOwner = data[29]
	d.FFD2 = binary.LittleEndian.Uint16(data[30:32])
	return nil
}

// MarshalBinary encodes the DEB into its 32-byte wire form.
func (d *DEB) MarshalBinary(dst []byte) {
	dst[0] = byte(d.Format)
	copy(dst[1:9], d.Name[:])
	copy(dst[9:17], d.Type[:])
	binary.LittleEndian.PutUint16(dst[17:19], d.RecordCount)
	binary.LittleEndian.PutUint16(dst[19:21], d.BlockCount)
	binary.LittleEndian.PutUint16(dst[21:23], d.StartSector)
	binary.LittleEndian.PutUint16(dst[23:25], d.FFD1)
	ts := d.Timestamp.Pack()
	copy(dst[25:28], ts[:])
	dst[28] = d.OwnerID
	dst[29] = d.SharedFromOwner
	binary.LittleEndian.PutUint16(dst[30:32], d.FFD2)
}

// NameString returns the file name with trailing spaces removed.
func (d *DEB) NameString() string {
	return strings.TrimRight(string(d.Name[:]), " ")
}

// TypeString returns the file type with trailing spaces removed.
func (d *DEB) TypeString() string {
	return strings.TrimRight(string(d.Type[:]), " ")
}

// SetName stores an uppercased, space-padded name and type.
func (d *DEB) SetName(name, ftype string) {
	copy(d.Name[:], padName(strings.ToUpper(name), FNameLen))
	copy(d.Type[:], padName(strings.ToUpper(ftype), FTypeLen))
}

// RecordLen is the per-record byte length implied by the organization.
func (d *DEB) RecordLen() int {
	switch d.Format.Org() {
	case OrgIndexed, OrgKeyed:
		return int(d.FFD1 & IndexedRecordLenMask)
	default:
		return int(d.FFD1)
	}
}

// KeyLen is the key length of an Indexed or Keyed file.
func (d *DEB) KeyLen() int {
	return int(d.FFD1 >> IndexedKeyLenShift)
}

// LogicalSize is the file's byte length as implied by the DEB fields, as
// opposed to the rounded-up allocated size.
func (d *DEB) LogicalSize() int {
	allocated := int(d.BlockCount) * BlockSize

	switch d.Format.Org() {
	case OrgSequential:
		// A sequential file's true length comes from walking the chain;
		// the DEB only bounds it by the allocated sector count.
		return int(d.BlockCount) * SectorsPerBlock * SeqDataPerSector
	case OrgDirect:
		return int(d.RecordCount) * int(d.FFD1)
	case OrgIndexed, OrgKeyed:
		return int(d.RecordCount) * int(d.FFD1&IndexedRecordLenMask)
	case OrgRelocatable:
		return int(d.FFD2)
	default: // Absolute: the full allocation
		return allocated
	}
}

// ClearDeleted resets the entry to the deleted marker: name and type are
// space padded and every numeric field zeroed.
func (d *DEB) ClearDeleted() {
	*d = DEB{Format: formatDeleted}
	copy(d.Name[:], padName("", FNameLen))
	copy(d.Type[:], padName("", FTypeLen))
}
