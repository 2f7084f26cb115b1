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
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrSectorOutOfRange is returned for an LBA past the end of the image.
	ErrSectorOutOfRange = errors.New("sector address out of range")

	// ErrReadOnly is returned when writing to an image opened read-only.
	ErrReadOnly = errors.New("image is open read-only")
)

// A Container provides uniform access to the 256-byte logical sectors of
// an OASIS disk image, independent of the underlying file format.
type Container interface {
	// ReadSectors reads len(buf)/SectorSize sectors starting at lba into
	// buf. It returns the number of whole sectors read; a short count
	// means the image ends before the requested run. buf never receives
	// a partial sector.
	ReadSectors(lba int, buf []byte) (int, error)

	// WriteSectors writes len(buf)/SectorSize sectors starting at lba.
	WriteSectors(lba int, buf []byte) (int, error)

	// TotalSectors is the number of addressable 256-byte sectors.
	TotalSectors() int

	// Flush persists any buffered state to the backing file.
	Flush() error

	Close() error
}

// Open opens a disk image by path. Files with an .imd extension are
// treated as ImageDisk containers; everything else as a flat sector dump.
func Open(path string, writable bool) (Container, error) {
	if strings.EqualFold(filepath.Ext(path), ".imd") {
		return OpenIMD(path, writable)
	}
	return OpenRaw(path, writable)
}

// RawImage is a flat file of 256-byte sectors: sector n lives at byte
// offset n*SectorSize.
type RawImage struct {
	f        *os.File
	size     int64
	writable bool
}

// OpenRaw opens a raw sector image.
func OpenRaw(path string, writable bool) (*RawImage, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}

	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %q: %w", path, err)
	}

	finfo, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat image %q: %w", path, err)
	}

	return &RawImage{
		f:        f,
		size:     finfo.Size(),
		writable: writable,
	}, nil
}

// CreateRaw creates (or truncates) a raw image sized for the given number
// of sectors.
func CreateRaw(path string, sectors int) (*RawImage, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create image %q: %w", path, err)
	}

	size := int64(sectors) * SectorSize
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to size image %q: %w", path, err)
	}

	return &RawImage{f: f, size: size, writable: true}, nil
}

func (r *RawImage) TotalSectors() int {
	return int(r.size / SectorSize)
}

func (r *RawImage) ReadSectors(lba int, buf []byte) (int, error) {
	count := len(buf) / SectorSize
	if lba < 0 || count == 0 {
		return 0, ErrSectorOutOfRange
	}

	total := r.TotalSectors()
	if lba >= total {
		return 0, nil
	}
	if lba+count > total {
		count = total - lba
	}

	n, err := r.f.ReadAt(buf[:count*SectorSize], int64(lba)*SectorSize)
	if err != nil {
		return n / SectorSize, fmt.Errorf("read sector %d: %w", lba, err)
	}
	return count, nil
}

func (r *RawImage) WriteSectors(lba int, buf []byte) (int, error) {
	count := len(buf) / SectorSize
	if lba < 0 || count == 0 {
		return 0, ErrSectorOutOfRange
	}
	if !r.writable {
		return 0, ErrReadOnly
	}

	if _, err := r.f.WriteAt(buf[:count*SectorSize], int64(lba)*SectorSize); err != nil {
		return 0, fmt.Errorf("write sector %d: %w", lba, err)
	}

	if end := int64(lba+count) * SectorSize; end > r.size {
		r.size = end
	}
	return count, nil
}

func (r *RawImage) Flush() error {
	return r.f.Sync()
}

func (r *RawImage) Close() error {
	return r.f.Close()
}
