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

// Package pcap records serial traffic to a libpcap capture file using the
// RTAC serial link type, so transfers can be inspected in Wireshark.
package pcap

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

// Traffic direction event codes of the RTAC serial pseudo-header.
const (
	EventTX = 0x01
	EventRX = 0x02
)

const (
	magicNumber  = 0xA1B2C3D4
	versionMajor = 2
	versionMinor = 4

	// linkTypeRTACSerial is the DLT for serial-line captures with the
	// 12-byte RTAC pseudo-header.
	linkTypeRTACSerial = 250

	pseudoHeaderLen = 12
	snapLen         = 65535
)

// Writer appends timestamped serial records to a capture file.
type Writer struct {
	f *os.File
}

// Create opens a capture file and writes the global header.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file %q: %w", path, err)
	}

	var hdr [24]byte
	binary.LittleEndian.PutUint32(hdr[0:4], magicNumber)
	binary.LittleEndian.PutUint16(hdr[4:6], versionMajor)
	binary.LittleEndian.PutUint16(hdr[6:8], versionMinor)
	// thiszone and sigfigs stay zero.
	binary.LittleEndian.PutUint32(hdr[16:20], snapLen)
	binary.LittleEndian.PutUint32(hdr[20:24], linkTypeRTACSerial)

	if _, err := f.Write(hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write capture header: %w", err)
	}
	return &Writer{f: f}, nil
}

// Record writes one traffic event. The payload is masked to 7 bits, the
// width of the OASIS serial line.
func (w *Writer) Record(event byte, payload []byte) error {
	now := time.Now()
	sec := uint32(now.Unix())
	usec := uint32(now.Nanosecond() / 1000)

	masked := make([]byte, len(payload))
	for i, b := range payload {
		masked[i] = b & 0x7F
	}

	var rec [16 + pseudoHeaderLen]byte
	binary.LittleEndian.PutUint32(rec[0:4], sec)
	binary.LittleEndian.PutUint32(rec[4:8], usec)
	binary.LittleEndian.PutUint32(rec[8:12], uint32(pseudoHeaderLen+len(masked)))
	binary.LittleEndian.PutUint32(rec[12:16], uint32(pseudoHeaderLen+len(masked)))

	// RTAC pseudo-header: big-endian timestamp, event type, control-line
	// state, two reserved bytes.
	binary.BigEndian.PutUint32(rec[16:20], sec)
	binary.BigEndian.PutUint32(rec[20:24], usec)
	rec[24] = event
	rec[25] = 0 // control lines not sampled

	if _, err := w.f.Write(rec[:]); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	if _, err := w.f.Write(masked); err != nil {
		return fmt.Errorf("failed to write capture payload: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.f.Close()
}
