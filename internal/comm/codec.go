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

// Package comm implements the OASIS serial file-transfer protocol: the
// DLE-framed link-layer packet codec with shift-state escapes, run-length
// compression and LRC checksum, and the stop-and-wait sender and receiver
// state machines built on it.
package comm

import (
	"errors"
	"fmt"
)

// Link-layer control octets.
const (
	STX = 0x02
	ETX = 0x03
	EOT = 0x04
	ENQ = 0x05
	VT  = 0x0B
	SO  = 0x0E
	SI  = 0x0F
	DLE = 0x10
	CAN = 0x18
	ESC = 0x1B
	SUB = 0x1A
	RUB = 0x7F
)

// Packet commands.
const (
	CmdOpen  = 'O'
	CmdWrite = 'W'
	CmdClose = 'C'
)

// XfrBlockSize is the payload carried by one WRITE packet.
const XfrBlockSize = 256

// SeqPayloadSize is the data portion of a sequential WRITE packet; the
// final two bytes carry the sector sequence number.
const SeqPayloadSize = XfrBlockSize - 2

// maxDecodedLen bounds a decoded payload; anything larger is a malformed
// or hostile packet.
const maxDecodedLen = 512

// maxRun is the longest run one DLE VT record can encode.
const maxRun = 127

var (
	// ErrBadChecksum is returned when the received LRC does not match.
	ErrBadChecksum = errors.New("bad packet checksum")

	// ErrMalformedPacket is returned for framing violations.
	ErrMalformedPacket = errors.New("malformed packet")
)

// LRC computes the OASIS 7-bit longitudinal check over buf: an 8-bit sum
// folded through the hardware's high-bit masking.
func LRC(buf []byte) byte {
	var sum byte
	for _, b := range buf {
		sum += b
	}
	return (sum | 0xC0) & 0x7F
}

// EncodePacket frames a command and payload:
//
//	DLE STX CMD <escaped payload> DLE ETX LRC RUB
//
// The payload encoding tracks a shift state carrying the high bit of the
// emitted bytes, doubles literal DLEs, sends ESC as DLE CAN, and
// compresses runs of four or more identical bytes as DLE VT <count>,
// where count is the total run length.
func EncodePacket(cmd byte, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+16)
	out = append(out, DLE, STX, cmd)

	var shift byte

	emit := func(b byte) {
		enc := b - shift
		switch enc {
		case DLE:
			out = append(out, DLE, DLE)
		case ESC:
			out = append(out, DLE, CAN)
		default:
			out = append(out, enc)
		}
	}

	for i := 0; i < len(payload); {
		b := payload[i]

		if b&0x80 != shift {
			if b&0x80 != 0 {
				out = append(out, DLE, SI)
				shift = 0x80
			} else {
				out = append(out, DLE, SO)
				shift = 0
			}
		}

		emit(b)

		// Runs of four or more collapse into a repeat record.
		if i+3 < len(payload) && payload[i+1] == b && payload[i+2] == b && payload[i+3] == b {
			run := 1
			for i+run < len(payload) && payload[i+run] == b && run < maxRun {
				run++
			}
			out = append(out, DLE, VT)
			emit(byte(run) + shift) // emit() subtracts the shift back off
			i += run
			continue
		}
		i++
	}

	out = append(out, DLE, ETX)
	out = append(out, LRC(out), RUB)
	return out
}

// RaiseMSB sets the high bit on the leading bytes of an encoded packet
// before transmission. The original sender raised only the first srcLen
// octets, srcLen being the pre-encoding payload length; the receiver
// masks every byte back to seven bits, so the quirk is harmless and is
// kept for wire fidelity.
func RaiseMSB(pkt []byte, srcLen int) {
	if srcLen > len(pkt) {
		srcLen = len(pkt)
	}
	for i := 0; i < srcLen; i++ {
		pkt[i] |= 0x80
	}
}

// MaskTo7Bits strips the high bit from every received byte in place.
func MaskTo7Bits(buf []byte) {
	for i := range buf {
		buf[i] &= 0x7F
	}
}

// DecodePacket is the inverse of EncodePacket. buf must begin with the
// DLE STX CMD header and have been masked to 7 bits. It returns the
// command, the decoded payload and the number of bytes of buf consumed
// through the trailing RUB.
func DecodePacket(buf []byte) (cmd byte, payload []byte, n int, err error) {
	if len(buf) < 3 || buf[0] != DLE || buf[1] != STX {
		return 0, nil, 0, fmt.Errorf("%w: missing DLE STX header", ErrMalformedPacket)
	}
	cmd = buf[2]

	var shift byte
	out := make([]byte, 0, XfrBlockSize)

	appendByte := func(b byte) error {
		if len(out) >= maxDecodedLen {
			return fmt.Errorf("%w: payload exceeds %d bytes", ErrMalformedPacket, maxDecodedLen)
		}
		out = append(out, b)
		return nil
	}

	// readEscaped resolves a possibly DLE-escaped literal at i, used for
	// run lengths that collide with control octets.
	readEscaped := func(i int) (byte, int, error) {
		if i >= len(buf) {
			return 0, 0, fmt.Errorf("%w: truncated escape", ErrMalformedPacket)
		}
		if buf[i] != DLE {
			return buf[i], 1, nil
		}
		if i+1 >= len(buf) {
			return 0, 0, fmt.Errorf("%w: truncated escape", ErrMalformedPacket)
		}
		switch buf[i+1] {
		case DLE:
			return DLE, 2, nil
		case CAN:
			return ESC, 2, nil
		}
		return 0, 0, fmt.Errorf("%w: unexpected DLE 0x%02X in run length", ErrMalformedPacket, buf[i+1])
	}

	for i := 3; i < len(buf); {
		b := buf[i]
		if b != DLE {
			if err := appendByte(b + shift); err != nil {
				return cmd, nil, 0, err
			}
			i++
			continue
		}

		if i+1 >= len(buf) {
			return cmd, nil, 0, fmt.Errorf("%w: truncated after DLE", ErrMalformedPacket)
		}

		switch c := buf[i+1]; c {
		case SI:
			shift = 0x80
			i += 2
		case SO:
			shift = 0
			i += 2
		case DLE:
			if err := appendByte(DLE ^ shift); err != nil {
				return cmd, nil, 0, err
			}
			i += 2
		case CAN:
			if err := appendByte(ESC ^ shift); err != nil {
				return cmd, nil, 0, err
			}
			i += 2
		case VT:
			count, used, err := readEscaped(i + 2)
			if err != nil {
				return cmd, nil, 0, err
			}
			if count < 1 || len(out) == 0 {
				return cmd, nil, 0, fmt.Errorf("%w: run record without preceding byte", ErrMalformedPacket)
			}
			last := out[len(out)-1]
			for r := 1; r < int(count); r++ {
				if err := appendByte(last); err != nil {
					return cmd, nil, 0, err
				}
			}
			i += 2 + used
		case ETX:
			if i+2 >= len(buf) {
				return cmd, nil, 0, fmt.Errorf("%w: missing checksum", ErrMalformedPacket)
			}
			if got, want := buf[i+2], LRC(buf[:i+2]); got != want {
				return cmd, nil, 0, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrBadChecksum, got, want)
			}
			consumed := i + 3
			if consumed < len(buf) && buf[consumed] == RUB {
				consumed++
			}
			return cmd, out, consumed, nil
		default:
			return cmd, nil, 0, fmt.Errorf("%w: unexpected DLE 0x%02X", ErrMalformedPacket, c)
		}
	}
	return cmd, nil, 0, fmt.Errorf("%w: no ETX terminator", ErrMalformedPacket)
}
