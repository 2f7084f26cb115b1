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

// Package disk implements the OASIS on-disk data model: sector-addressed
// container I/O over raw and ImageDisk images, the filesystem block, the
// 1K-block allocation map, the directory of 32-byte entry blocks, and the
// file readers, writers and consistency checks built on top of them.
package disk

import (
	"fmt"
	"time"
)

const (
	// SectorSize is the fixed OASIS logical sector size.
	SectorSize = 256

	// BlockSize is the allocation unit: four consecutive sectors.
	BlockSize = 1024

	// SectorsPerBlock is BlockSize / SectorSize.
	SectorsPerBlock = BlockSize / SectorSize

	FNameLen = 8
	FTypeLen = 8

	// SeqDataPerSector is the payload carried by one sequential-file
	// sector; the remaining two bytes hold the link to the next sector.
	SeqDataPerSector = SectorSize - 2
)

// yearBase is the origin of the 4-bit year field of a packed timestamp.
const yearBase = 1977

// Timestamp is an OASIS file timestamp in host form. Seconds are not
// representable on disk.
type Timestamp struct {
	Month  int // 1..12
	Day    int // 1..31
	Year   int // 1977..1992
	Hour   int // 0..23
	Minute int // 0..59
}

// Pack encodes the timestamp into its 3-byte on-disk form:
//
//	MMMM DDDD | D YYYY HHH | HH MMMMMM
//
// Out-of-range fields are clamped to the representable range.
func (t Timestamp) Pack() [3]byte {
	month := clamp(t.Month, 1, 12)
	day := clamp(t.Day, 1, 31)
	year := clamp(t.Year-yearBase, 0, 15)
	hour := clamp(t.Hour, 0, 23)
	minute := clamp(t.Minute, 0, 59)

	var b [3]byte
	b[0] = byte(month<<4 | day>>1)
	b[1] = byte((day&1)<<7 | year<<3 | hour>>2)
	b[2] = byte((hour&3)<<6 | minute)
	return b
}

// UnpackTimestamp decodes a 3-byte on-disk timestamp.
func UnpackTimestamp(b [3]byte) Timestamp {
	return Timestamp{
		Month:  int(b[0] >> 4),
		Day:    int(b[0]&0x0F)<<1 | int(b[1]>>7),
		Year:   int(b[1]>>3&0x0F) + yearBase,
		Hour:   int(b[1]&0x07)<<2 | int(b[2]>>6),
		Minute: int(b[2] & 0x3F),
	}
}

// TimestampFromTime converts a host time to the nearest representable
// OASIS timestamp.
func TimestampFromTime(tm time.Time) Timestamp {
	return Timestamp{
		Month:  int(tm.Month()),
		Day:    tm.Day(),
		Year:   clamp(tm.Year(), yearBase, yearBase+15),
		Hour:   tm.Hour(),
		Minute: tm.Minute(),
	}
}

// Time converts the timestamp to a host time.Time in the local zone.
func (t Timestamp) Time() time.Time {
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, t.Minute, 0, 0, time.Local)
}

// IsValid reports whether every field lies in its on-disk range.
func (t Timestamp) IsValid() bool {
	return t.Month >= 1 && t.Month <= 12 &&
		t.Day >= 1 && t.Day <= 31 &&
		t.Year >= yearBase && t.Year <= yearBase+15 &&
		t.Hour >= 0 && t.Hour <= 23 &&
		t.Minute >= 0 && t.Minute <= 59
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%02d/%02d/%02d %02d:%02d", t.Month, t.Day, t.Year%100, t.Hour, t.Minute)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
