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

// Package ascii converts text between host and OASIS conventions: lines
// end with a carriage return on disk, a SUB byte marks end of file, and
// only seven-bit characters are representable.
package ascii

import "bytes"

// SUB is the OASIS end-of-file marker for sequential text.
const SUB = 0x1A

// IsText reports whether data looks like 7-bit text a sequential file
// can carry: no high bits and no NUL bytes before an EOF marker.
func IsText(data []byte) bool {
	for _, b := range data {
		if b == SUB {
			break
		}
		if b >= 0x80 || b == 0 {
			return false
		}
	}
	return true
}

// ToOASIS converts host text for storage: lone LF becomes CR, CR LF
// collapses to CR, and the text is terminated with a SUB marker.
func ToOASIS(data []byte) []byte {
	out := make([]byte, 0, len(data)+1)
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\r':
			out = append(out, '\r')
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
		case '\n':
			out = append(out, '\r')
		default:
			out = append(out, data[i])
		}
	}
	return append(out, SUB)
}

// FromOASIS converts stored text for the host: CR becomes LF and the
// tail from the first SUB marker onward is dropped.
func FromOASIS(data []byte) []byte {
	if i := bytes.IndexByte(data, SUB); i >= 0 {
		data = data[:i]
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\r':
			out = append(out, '\n')
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
		default:
			out = append(out, data[i])
		}
	}
	return out
}
