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

// Package imd reads and writes ImageDisk (.IMD) archive files. An image is
// an ASCII comment terminated by 0x1A followed by a sequence of track
// records, each carrying a sector numbering map and per-sector data records
// with status flags.
package imd

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Sector data record types.
const (
	recUnavailable        = 0x00
	recNormal             = 0x01
	recCompressed         = 0x02
	recNormalDeleted      = 0x03
	recCompressedDeleted  = 0x04
	recNormalError        = 0x05
	recCompressedError    = 0x06
	recDeletedError       = 0x07
	recCompressedDelError = 0x08
)

const commentTerminator = 0x1A

// Sector is a single sector of a track, decompressed into its full size.
type Sector struct {
	ID          int // sector number from the track's numbering map
	Size        int // 128 << size code
	Deleted     bool
	HasError    bool // the imager recorded a data error for this sector
	Unavailable bool // no data could be read at all
	Data        []byte
}

// Track is one side of one cylinder.
type Track struct {
	Mode     byte
	Cylinder byte
	Head     byte // low bits only; map-presence flags are consumed on load
	Sectors  []Sector

	sectorMap []byte
	cylMap    []byte
	headMap   []byte
}

// Image is a fully decoded ImageDisk file.
type Image struct {
	Comment string
	Tracks  []Track
}

// Load parses an ImageDisk file.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read IMD file %q: %w", path, err)
	}
	return Decode(data)
}

// Decode parses raw ImageDisk bytes.
func Decode(data []byte) (*Image, error) {
	end := bytes.IndexByte(data, commentTerminator)
	if end < 0 {
		return nil, fmt.Errorf("missing IMD comment terminator")
	}

	img := &Image{Comment: string(data[:end])}

	pos := end + 1
	for pos < len(data) {
		track, n, err := decodeTrack(data[pos:])
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", len(img.Tracks), err)
		}
		img.Tracks = append(img.Tracks, track)
		pos += n
	}
	return img, nil
}

func decodeTrack(data []byte) (Track, int, error) {
	if len(data) < 5 {
		return Track{}, 0, io.ErrUnexpectedEOF
	}

	mode, cyl, head := data[0], data[1], data[2]
	numSectors := int(data[3])
	sizeCode := data[4]

	if mode > 5 {
		return Track{}, 0, fmt.Errorf("invalid mode byte 0x%02X", mode)
	}
	if sizeCode > 6 {
		return Track{}, 0, fmt.Errorf("invalid sector size code 0x%02X", sizeCode)
	}
	sectorSize := 128 << sizeCode

	pos := 5
	take := func(n int) ([]byte, error) {
		if pos+n > len(data) {
			return nil, io.ErrUnexpectedEOF
		}
		b := data[pos : pos+n]
		pos += n
		return b, nil
	}

	sectorMap, err := take(numSectors)
	if err != nil {
		return Track{}, 0, err
	}

	track := Track{
		Mode:      mode,
		Cylinder:  cyl,
		Head:      head & 0x3F,
		sectorMap: append([]byte(nil), sectorMap...),
	}

	// Optional sector cylinder / head maps, flagged in the head byte.
	if head&0x80 != 0 {
		if track.cylMap, err = take(numSectors); err != nil {
			return Track{}, 0, err
		}
	}
	if head&0x40 != 0 {
		if track.headMap, err = take(numSectors); err != nil {
			return Track{}, 0, err
		}
	}

	track.Sectors = make([]Sector, numSectors)
	for i := 0; i < numSectors; i++ {
		rec, err := take(1)
		if err != nil {
			return Track{}, 0, err
		}

		sec := Sector{
			ID:   int(sectorMap[i]),
			Size: sectorSize,
		}

		switch rec[0] {
		case recUnavailable:
			sec.Unavailable = true
			sec.Data = make([]byte, sectorSize)
		case recNormal, recNormalDeleted, recNormalError, recDeletedError:
			raw, err := take(sectorSize)
			if err != nil {
				return Track{}, 0, err
			}
			sec.Data = append([]byte(nil), raw...)
		case recCompressed, recCompressedDeleted, recCompressedError, recCompressedDelError:
			fill, err := take(1)
			if err != nil {
				return Track{}, 0, err
			}
			sec.Data = bytes.Repeat(fill[:1], sectorSize)
		default:
			return Track{}, 0, fmt.Errorf("invalid sector record type 0x%02X", rec[0])
		}

		switch rec[0] {
		case recNormalDeleted, recCompressedDeleted, recDeletedError, recCompressedDelError:
			sec.Deleted = true
		}
		switch rec[0] {
		case recNormalError, recCompressedError, recDeletedError, recCompressedDelError:
			sec.HasError = true
		}

		track.Sectors[i] = sec
	}

	return track, pos, nil
}

// Encode serializes the image back to ImageDisk bytes. Sectors whose bytes
// are all identical are stored compressed, as the original imager would.
func (img *Image) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(img.Comment)
	buf.WriteByte(commentTerminator)

	for i := range img.Tracks {
		t := &img.Tracks[i]

		head := t.Head
		if t.cylMap != nil {
			head |= 0x80
		}
		if t.headMap != nil {
			head |= 0x40
		}

		sizeCode := byte(0)
		if len(t.Sectors) > 0 {
			for s := t.Sectors[0].Size >> 8; s != 0; s >>= 1 {
				sizeCode++
			}
		}

		buf.Write([]byte{t.Mode, t.Cylinder, head, byte(len(t.Sectors)), sizeCode})
		for _, sec := range t.Sectors {
			buf.WriteByte(byte(sec.ID))
		}
		buf.Write(t.cylMap)
		buf.Write(t.headMap)

		for _, sec := range t.Sectors {
			buf.WriteByte(recordType(&sec))
			if sec.Unavailable {
				continue
			}
			if fill, ok := uniformFill(sec.Data); ok {
				buf.WriteByte(fill)
			} else {
				buf.Write(sec.Data)
			}
		}
	}
	return buf.Bytes()
}

// Save writes the image back to path.
func (img *Image) Save(path string) error {
	if err := os.WriteFile(path, img.Encode(), 0644); err != nil {
		return fmt.Errorf("failed to write IMD file %q: %w", path, err)
	}
	return nil
}

func recordType(sec *Sector) byte {
	if sec.Unavailable {
		return recUnavailable
	}

	_, compressed := uniformFill(sec.Data)
	switch {
	case sec.Deleted && sec.HasError && compressed:
		return recCompressedDelError
	case sec.Deleted && sec.HasError:
		return recDeletedError
	case sec.HasError && compressed:
		return recCompressedError
	case sec.HasError:
		return recNormalError
	case sec.Deleted && compressed:
		return recCompressedDeleted
	case sec.Deleted:
		return recNormalDeleted
	case compressed:
		return recCompressed
	default:
		return recNormal
	}
}

func uniformFill(data []byte) (byte, bool) {
	if len(data) == 0 {
		return 0, false
	}
	for _, b := range data[1:] {
		if b != data[0] {
			return 0, false
		}
	}
	return data[0], true
}
