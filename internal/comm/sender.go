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

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/ostafen/oasis/internal/logger"
)

const (
	// enqRetries bounds the handshake attempts.
	enqRetries = 20

	// packetRetries bounds resends of a single packet.
	packetRetries = 5

	// ackScanLimit bounds how many junk octets a single ACK wait will
	// discard before counting a retry.
	ackScanLimit = 64
)

// Sender drives the transmitting side of a transfer session: ENQ
// handshake, OPEN/WRITE/CLOSE packets per file, alternating-toggle ACK
// tracking, and the closing EOT.
type Sender struct {
	port Port
	log  *logger.Logger

	// Pacing inserts a delay before each packet for slow peers.
	Pacing time.Duration

	// StrictHandshake rejects a handshake ACK carrying the wrong
	// toggle instead of proceeding as the reference implementation did.
	StrictHandshake bool

	toggle int
}

// NewSender returns a sender in the pre-handshake state.
func NewSender(port Port, log *logger.Logger) *Sender {
	return &Sender{port: port, log: log}
}

// Handshake prompts the receiver with ENQ until an ACK arrives. The
// session starts with toggle 0; a wrong-toggle ACK is tolerated unless
// StrictHandshake is set.
func (s *Sender) Handshake() error {
	for attempt := 0; attempt < enqRetries; attempt++ {
		// The reference sender prompts twice per attempt.
		if err := writeAll(s.port, []byte{ENQ, ENQ}); err != nil {
			return err
		}

		toggle, err := s.readAck()
		if err == ErrTimeout {
			s.log.Debugf("handshake attempt %d timed out", attempt+1)
			continue
		}
		if err != nil {
			return err
		}

		if toggle != 0 {
			s.log.Warnf("handshake ACK carried toggle %d", toggle)
			if s.StrictHandshake {
				continue
			}
		}
		s.toggle = 0
		return nil
	}
	return fmt.Errorf("handshake: %w", ErrTimeout)
}

// SendFile transmits one file: an OPEN packet carrying the wire-form DEB,
// WRITE packets with the content, and a CLOSE packet.
func (s *Sender) SendFile(deb *disk.DEB, data []byte) error {
	var debWire [disk.DEBSize]byte
	deb.MarshalBinary(debWire[:])

	if err := s.sendPacket(CmdOpen, debWire[:]); err != nil {
		return fmt.Errorf("OPEN %s: %w", deb.DisplayName(), err)
	}

	if deb.Format.Org() == disk.OrgSequential {
		if err := s.sendSequential(data); err != nil {
			return fmt.Errorf("WRITE %s: %w", deb.DisplayName(), err)
		}
	} else {
		for off := 0; off < len(data); off += XfrBlockSize {
			end := off + XfrBlockSize
			if end > len(data) {
				end = len(data)
			}
			if err := s.sendPacket(CmdWrite, data[off:end]); err != nil {
				return fmt.Errorf("WRITE %s: %w", deb.DisplayName(), err)
			}
		}
	}

	if err := s.sendPacket(CmdClose, nil); err != nil {
		return fmt.Errorf("CLOSE %s: %w", deb.DisplayName(), err)
	}
	return nil
}

// sendSequential slices the payload into fixed 256-byte packets: 254
// data bytes, SUB padded on the tail, followed by the 1-based sector
// sequence number in little-endian.
func (s *Sender) sendSequential(data []byte) error {
	sectors := (len(data) + SeqPayloadSize - 1) / SeqPayloadSize
	if sectors == 0 {
		sectors = 1
	}

	var pkt [XfrBlockSize]byte
	for seq := 1; seq <= sectors; seq++ {
		for i := range pkt {
			pkt[i] = SUB
		}

		off := (seq - 1) * SeqPayloadSize
		end := off + SeqPayloadSize
		if end > len(data) {
			end = len(data)
		}
		copy(pkt[:], data[off:end])

		binary.LittleEndian.PutUint16(pkt[SeqPayloadSize:], uint16(seq))

		if err := s.sendPacket(CmdWrite, pkt[:]); err != nil {
			return err
		}
	}
	return nil
}

// Finish ends the session with DLE EOT and waits briefly for the final
// ACK, which some receivers do not send.
func (s *Sender) Finish() error {
	if err := writeAll(s.port, []byte{DLE, EOT}); err != nil {
		return err
	}
	if _, err := s.readAck(); err != nil && err != ErrTimeout {
		return err
	}
	return nil
}

// sendPacket encodes, transmits and confirms one packet, retrying on
// timeout or a stale toggle.
func (s *Sender) sendPacket(cmd byte, payload []byte) error {
	pkt := EncodePacket(cmd, payload)
	RaiseMSB(pkt, len(payload))

	expect := s.toggle ^ 1

	for attempt := 0; attempt < packetRetries; attempt++ {
		if s.Pacing > 0 {
			time.Sleep(s.Pacing)
		}
		if err := writeAll(s.port, pkt); err != nil {
			return err
		}

		toggle, err := s.readAck()
		switch {
		case err == ErrTimeout:
			s.log.Debugf("no ACK for %c packet, attempt %d", cmd, attempt+1)
			continue
		case err != nil:
			return err
		case toggle != expect:
			s.log.Debugf("stale ACK toggle %d, attempt %d", toggle, attempt+1)
			continue
		}

		s.toggle = expect
		return nil
	}
	return ErrTimeout
}

// readAck scans incoming bytes for a DLE-digit acknowledgement and
// returns its toggle bit.
func (s *Sender) readAck() (int, error) {
	sawDLE := false
	for scanned := 0; scanned < ackScanLimit; scanned++ {
		b, err := readByte(s.port)
		if err != nil {
			return 0, err
		}

		switch {
		case b == DLE:
			sawDLE = true
		case sawDLE && (b == '0' || b == '1'):
			return int(b & 1), nil
		default:
			sawDLE = false
		}
	}
	return 0, ErrTimeout
}
