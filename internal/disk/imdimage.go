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
	"sort"

	"github.com/ostafen/oasis/internal/imd"
)

// imdSlot maps one OASIS 256-byte sector onto IMD storage: either a single
// 256-byte IMD sector, or a pair of 128-byte sectors (low half first).
type imdSlot struct {
	track    int
	low      int // index into track.Sectors
	high     int // second half of a 128-byte pair, or -1
}

// IMDImage adapts an ImageDisk file to the Container interface. OASIS
// sectors are mapped in track scan order, each track visited in ascending
// IMD sector ID; 128-byte sectors are paired into 256-byte slots.
type IMDImage struct {
	path     string
	img      *imd.Image
	slots    []imdSlot
	writable bool
	dirty    bool
}

// OpenIMD opens and validates an ImageDisk container.
func OpenIMD(path string, writable bool) (*IMDImage, error) {
	img, err := imd.Load(path)
	if err != nil {
		return nil, err
	}

	slots, err := mapIMDSectors(img)
	if err != nil {
		return nil, fmt.Errorf("unsupported IMD layout in %q: %w", path, err)
	}

	return &IMDImage{
		path:     path,
		img:      img,
		slots:    slots,
		writable: writable,
	}, nil
}

// mapIMDSectors validates the image against the OASIS mapping rules and
// builds the LBA table.
func mapIMDSectors(img *imd.Image) ([]imdSlot, error) {
	var slots []imdSlot

	for ti := range img.Tracks {
		track := &img.Tracks[ti]

		// Index sectors of this track in ascending sector-ID order.
		order := make([]int, len(track.Sectors))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(i, j int) bool {
			return track.Sectors[order[i]].ID < track.Sectors[order[j]].ID
		})

		// The ID-order walk pairs 128-byte sectors as it goes. Rule 2
		// guarantees every half precedes the track's 256-byte sectors,
		// so emission order matches the mapping order.
		pendingHalf := -1
		seen256 := false

		for _, si := range order {
			sec := &track.Sectors[si]
			switch sec.Size {
			case 128:
				if seen256 {
					return nil, fmt.Errorf(
						"track %d: 128-byte sector %d follows a 256-byte sector", ti, sec.ID)
				}
				if pendingHalf < 0 {
					pendingHalf = si
				} else {
					slots = append(slots, imdSlot{track: ti, low: pendingHalf, high: si})
					pendingHalf = -1
				}
			case 256:
				seen256 = true
				slots = append(slots, imdSlot{track: ti, low: si, high: -1})
			default:
				return nil, fmt.Errorf(
					"track %d: sector %d has unsupported size %d", ti, sec.ID, sec.Size)
			}
		}

		if pendingHalf >= 0 {
			return nil, fmt.Errorf("track %d: odd number of 128-byte sectors", ti)
		}
	}
	return slots, nil
}

func (d *IMDImage) TotalSectors() int {
	return len(d.slots)
}

// BadSectors returns the OASIS LBAs whose backing IMD sectors are flagged
// as unreadable or unavailable.
func (d *IMDImage) BadSectors() []int {
	var bad []int
	for lba, slot := range d.slots {
		if d.slotBad(slot) {
			bad = append(bad, lba)
		}
	}
	return bad
}

func (d *IMDImage) slotBad(slot imdSlot) bool {
	track := &d.img.Tracks[slot.track]
	low := &track.Sectors[slot.low]
	if low.HasError || low.Unavailable {
		return true
	}
	if slot.high >= 0 {
		high := &track.Sectors[slot.high]
		return high.HasError || high.Unavailable
	}
	return false
}

func (d *IMDImage) ReadSectors(lba int, buf []byte) (int, error) {
	count := len(buf) / SectorSize
	if lba < 0 || count == 0 {
		return 0, ErrSectorOutOfRange
	}
	if lba >= len(d.slots) {
		return 0, nil
	}
	if lba+count > len(d.slots) {
		count = len(d.slots) - lba
	}

	for i := 0; i < count; i++ {
		slot := d.slots[lba+i]
		dst := buf[i*SectorSize : (i+1)*SectorSize]

		// Unreadable sectors come back zero-filled; the consistency
		// checker reports them separately.
		if d.slotBad(slot) {
			for j := range dst {
				dst[j] = 0
			}
			continue
		}

		track := &d.img.Tracks[slot.track]
		if slot.high < 0 {
			copy(dst, track.Sectors[slot.low].Data)
		} else {
			copy(dst[:128], track.Sectors[slot.low].Data)
			copy(dst[128:], track.Sectors[slot.high].Data)
		}
	}
	return count, nil
}

func (d *IMDImage) WriteSectors(lba int, buf []byte) (int, error) {
	count := len(buf) / SectorSize
	if lba < 0 || count == 0 {
		return 0, ErrSectorOutOfRange
	}
	if !d.writable {
		return 0, ErrReadOnly
	}
	if lba+count > len(d.slots) {
		return 0, ErrSectorOutOfRange
	}

	for i := 0; i < count; i++ {
		slot := d.slots[lba+i]
		src := buf[i*SectorSize : (i+1)*SectorSize]

		track := &d.img.Tracks[slot.track]
		if slot.high < 0 {
			copy(track.Sectors[slot.low].Data, src)
		} else {
			copy(track.Sectors[slot.low].Data, src[:128])
			copy(track.Sectors[slot.high].Data, src[128:])
		}
	}

	d.dirty = true
	return count, nil
}

func (d *IMDImage) Flush() error {
	if !d.dirty {
		return nil
	}
	if err := d.img.Save(d.path); err != nil {
		return err
	}
	d.dirty = false
	return nil
}

func (d *IMDImage) Close() error {
	return d.Flush()
}

// Blank overwrites every readable sector with the fill byte, the IMD
// equivalent of a low-level format.
func (d *IMDImage) Blank(fill byte) {
	for ti := range d.img.Tracks {
		track := &d.img.Tracks[ti]
		for si := range track.Sectors {
			sec := &track.Sectors[si]
			if sec.Unavailable {
				continue
			}
			for j := range sec.Data {
				sec.Data[j] = fill
			}
		}
	}
	d.dirty = true
}
