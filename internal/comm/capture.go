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
package comm

import "github.com/ostafen/oasis/internal/pcap"

// CapturePort wraps a Port and mirrors its traffic into a pcap file.
// Capture failures are swallowed: diagnosis must never break a transfer.
type CapturePort struct {
	Port
	w *pcap.Writer
}

// WithCapture layers capture recording over a port.
func WithCapture(p Port, w *pcap.Writer) *CapturePort {
	return &CapturePort{Port: p, w: w}
}

func (c *CapturePort) Read(p []byte) (int, error) {
	n, err := c.Port.Read(p)
	if n > 0 {
		_ = c.w.Record(pcap.EventRX, p[:n])
	}
	return n, err
}

func (c *CapturePort) Write(p []byte) (int, error) {
	n, err := c.Port.Write(p)
	if n > 0 {
		_ = c.w.Record(pcap.EventTX, p[:n])
	}
	return n, err
}
