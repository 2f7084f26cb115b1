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
	"math/bits"
)

var (
	// ErrNoSpace is returned when no free run is large enough.
	ErrNoSpace = errors.New("no free block run large enough")

	// ErrNotAllocated is returned when deallocating a block that is
	// already free.
	ErrNotAllocated = errors.New("block is not allocated")

	// ErrBlockOutOfRange is returned for a block number past the map.
	ErrBlockOutOfRange = errors.New("block number out of range")
)

// AllocMap is the bitmap of 1K allocation blocks. Bit value 1 means the
// block is allocated; bit 0, free. Bit n of the map is bit 7-n%8 of byte
// n/8, matching the on-disk layout.
type AllocMap struct {
	bits []byte
}

// NewAllocMap returns a map backed by the given bitmap bytes. The slice is
// retained, so mutations write through to the caller's buffer.
func NewAllocMap(bitmap []byte) *AllocMap {
	return &AllocMap{bits: bitmap}
}

// Bytes exposes the backing bitmap for serialization.
func (m *AllocMap) Bytes() []byte {
	return m.bits
}

// NumBlocks is the number of blocks the bitmap can represent.
func (m *AllocMap) NumBlocks() int {
	return len(m.bits) * 8
}

// IsAllocated reports the state of one block.
func (m *AllocMap) IsAllocated(block int) (bool, error) {
	if block < 0 || block >= m.NumBlocks() {
		return false, ErrBlockOutOfRange
	}
	return m.bits[block/8]&(0x80>>(block%8)) != 0, nil
}

// SetState marks one block allocated or free.
func (m *AllocMap) SetState(block int, allocated bool) error {
	if block < 0 || block >= m.NumBlocks() {
		return ErrBlockOutOfRange
	}
	mask := byte(0x80 >> (block % 8))
	if allocated {
		m.bits[block/8] |= mask
	} else {
		m.bits[block/8] &^= mask
	}
	return nil
}

// CountFree returns the number of free blocks in the whole map.
func (m *AllocMap) CountFree() int {
	free := 0
	for _, b := range m.bits {
		free += 8 - bits.OnesCount8(b)
	}
	return free
}

// CountFreeUpTo counts free blocks among the first limit blocks only, the
// population the fsblock free_blocks field must agree with.
func (m *AllocMap) CountFreeUpTo(limit int) int {
	if limit > m.NumBlocks() {
		limit = m.NumBlocks()
	}
	free := 0
	for block := 0; block < limit; block++ {
		if m.bits[block/8]&(0x80>>(block%8)) == 0 {
			free++
		}
	}
	return free
}

// LargestFreeRun returns the length of the longest run of free blocks.
func (m *AllocMap) LargestFreeRun() int {
	largest, run := 0, 0
	for block := 0; block < m.NumBlocks(); block++ {
		if m.bits[block/8]&(0x80>>(block%8)) == 0 {
			run++
			if run > largest {
				largest = run
			}
		} else {
			run = 0
		}
	}
	return largest
}

// Allocate reserves n contiguous blocks using a best-fit scan: among all
// free runs of length >= n, the one whose length is closest to n wins;
// a later run of equal length supersedes an earlier one. It returns the
// first block of the chosen run.
func (m *AllocMap) Allocate(n int) (int, error) {
	if n <= 0 {
		return 0, ErrBlockOutOfRange
	}

	bestStart, bestLen := -1, -1

	runStart, runLen := -1, 0
	consider := func() {
		if runLen >= n && (bestLen < 0 || runLen <= bestLen) {
			bestStart, bestLen = runStart, runLen
		}
	}

	total := m.NumBlocks()
	for block := 0; block < total; block++ {
		if m.bits[block/8]&(0x80>>(block%8)) == 0 {
			if runLen == 0 {
				runStart = block
			}
			runLen++
		} else {
			consider()
			runLen = 0
		}
	}
	consider()

	if bestStart < 0 {
		return 0, ErrNoSpace
	}

	for block := bestStart; block < bestStart+n; block++ {
		m.bits[block/8] |= 0x80 >> (block % 8)
	}
	return bestStart, nil
}

// Deallocate frees n blocks starting at start. Every block in the range
// must currently be allocated; otherwise the map is left unchanged.
func (m *AllocMap) Deallocate(start, n int) error {
	if start < 0 || n <= 0 || start+n > m.NumBlocks() {
		return ErrBlockOutOfRange
	}

	for block := start; block < start+n; block++ {
		if m.bits[block/8]&(0x80>>(block%8)) == 0 {
			return ErrNotAllocated
		}
	}
	for block := start; block < start+n; block++ {
		m.bits[block/8] &^= 0x80 >> (block % 8)
	}
	return nil
}
