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

import "errors"

// ErrTimeout is the soft-timeout signal the state machines fold into
// their retry counters.
var ErrTimeout = errors.New("timed out waiting for peer")

// Port is the character-device contract the protocol engines run over.
// Read blocks up to the driver's configured timeout and returns (0, nil)
// when it expires with nothing received.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// readByte fetches one incoming octet masked to 7 bits, translating an
// empty read into ErrTimeout.
func readByte(p Port) (byte, error) {
	var buf [1]byte
	n, err := p.Read(buf[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrTimeout
	}
	return buf[0] & 0x7F, nil
}

// writeAll pushes the whole buffer through the port.
func writeAll(p Port, buf []byte) error {
	for len(buf) > 0 {
		n, err := p.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// sendAck emits DLE '0' or DLE '1' for the given toggle.
func sendAck(p Port, toggle int) error {
	return writeAll(p, []byte{DLE, byte('0' + toggle&1)})
}
