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

	"github.com/ostafen/oasis/internal/disk"
	"github.com/ostafen/oasis/internal/logger"
)

// MaxAckRetries bounds how many times the receiver re-offers the same
// ACK before giving up on the sender.
const MaxAckRetries = 5

// enqWaitReads bounds the idle reads spent waiting for a sender to
// appear.
const enqWaitReads = 600

// maxFrameLen bounds one encoded inbound frame.
const maxFrameLen = 2 * maxDecodedLen

// frameKind classifies one inbound wire event.
type frameKind int

const (
	framePacket frameKind = iota
	frameENQ
	frameEOT
)

// FileSink consumes the files a receive session produces. Open is called
// per OPEN packet with the transferred DEB, Write with each payload
// fragment trimmed to the file's logical length, Close when the file is
// complete.
type FileSink interface {
	Open(deb *disk.DEB) error
	Write(data []byte) error
	Close(deb *disk.DEB) error
}

// Receiver drives the receiving side of a transfer session.
type Receiver struct {
	port Port
	log  *logger.Logger
	sink FileSink

	toggle    int
	deb       *disk.DEB
	remaining int
	nextSeq   int
	open      bool
}

// NewReceiver returns a receiver delivering files to sink.
func NewReceiver(port Port, sink FileSink, log *logger.Logger) *Receiver {
	return &Receiver{port: port, log: log, sink: sink}
}

// Run services one whole session: wait for ENQ, then alternate ACKs and
// packets until EOT.
func (r *Receiver) Run() error {
	if err := r.waitENQ(); err != nil {
		return err
	}
	r.toggle = 0
	r.log.Info("sender connected")

	ackRetries := 0
	for {
		if err := sendAck(r.port, r.toggle); err != nil {
			return err
		}

		kind, frame, err := r.readFrame()
		if err == ErrTimeout {
			// Loop back and re-offer the same ACK a bounded number of
			// times before declaring the sender gone.
			ackRetries++
			if ackRetries >= MaxAckRetries {
				return fmt.Errorf("sender went away: %w", ErrTimeout)
			}
			continue
		}
		if err != nil {
			return err
		}
		ackRetries = 0

		switch kind {
		case frameEOT:
			r.log.Info("end of transmission")
			return sendAck(r.port, r.toggle)

		case frameENQ:
			// A restarting sender: fall back to a fresh handshake.
			r.log.Warn("ENQ mid-session, resetting toggle")
			r.toggle = 0
			continue

		case framePacket:
			cmd, payload, _, err := DecodePacket(frame)
			if err != nil {
				// Leaving the toggle alone makes the next ACK a NAK.
				r.log.Warnf("dropping packet: %v", err)
				continue
			}
			if err := r.dispatch(cmd, payload); err != nil {
				return err
			}
			r.toggle ^= 1
		}
	}
}

// waitENQ discards noise until the begin-session prompt arrives.
func (r *Receiver) waitENQ() error {
	for reads := 0; reads < enqWaitReads; {
		b, err := readByte(r.port)
		if err == ErrTimeout {
			reads++
			continue
		}
		if err != nil {
			return err
		}
		if b == ENQ {
			return nil
		}
	}
	return fmt.Errorf("no sender: %w", ErrTimeout)
}

// readFrame collects one wire event: a framed packet, a bare ENQ, or
// DLE EOT. Bytes are masked to 7 bits as they arrive.
func (r *Receiver) readFrame() (frameKind, []byte, error) {
	var (
		frame    []byte
		inPacket bool
		escaped  bool
		sawDLE   bool
	)

	for {
		b, err := readByte(r.port)
		if err != nil {
			return 0, nil, err
		}

		if !inPacket {
			switch {
			case b == ENQ:
				return frameENQ, nil, nil
			case sawDLE && b == EOT:
				return frameEOT, nil, nil
			case sawDLE && b == STX:
				frame = append(frame[:0], DLE, STX)
				inPacket = true
				sawDLE = false
			default:
				sawDLE = b == DLE
			}
			continue
		}

		if len(frame) >= maxFrameLen {
			return 0, nil, fmt.Errorf("%w: frame exceeds %d bytes", ErrMalformedPacket, maxFrameLen)
		}
		frame = append(frame, b)

		if escaped {
			escaped = false
			if b == ETX {
				// Checksum byte, then the RUB pad.
				for i := 0; i < 2; i++ {
					t, err := readByte(r.port)
					if err != nil {
						return 0, nil, err
					}
					frame = append(frame, t)
				}
				return framePacket, frame, nil
			}
			continue
		}
		escaped = b == DLE
	}
}

// dispatch applies one decoded packet to the session state.
func (r *Receiver) dispatch(cmd byte, payload []byte) error {
	switch cmd {
	case CmdOpen:
		deb := &disk.DEB{}
		if err := deb.UnmarshalBinary(payload); err != nil {
			return fmt.Errorf("OPEN payload is not a directory entry")
		}

		r.deb = deb
		r.remaining = deb.LogicalSize()
		r.nextSeq = 1
		r.open = true
		r.log.Infof("receiving %s (%d blocks)", deb.DisplayName(), deb.BlockCount)
		return r.sink.Open(deb)

	case CmdWrite:
		if !r.open {
			r.log.Warn("WRITE before OPEN, ignoring")
			return nil
		}

		data := payload
		if r.deb.Format.Org() == disk.OrgSequential {
			if len(payload) < 2 {
				r.log.Warn("short sequential packet, ignoring")
				return nil
			}
			seq := int(binary.LittleEndian.Uint16(payload[len(payload)-2:]))
			if seq != r.nextSeq {
				r.log.Warnf("sector sequence %d, expected %d", seq, r.nextSeq)
			}
			r.nextSeq = seq + 1
			data = payload[:len(payload)-2]
		}

		// Never write past the length the DEB implies.
		if len(data) > r.remaining {
			data = data[:r.remaining]
		}
		r.remaining -= len(data)

		if len(data) == 0 {
			return nil
		}
		return r.sink.Write(data)

	case CmdClose:
		if !r.open {
			return nil
		}
		r.open = false
		r.log.Infof("closed %s", r.deb.DisplayName())
		return r.sink.Close(r.deb)
	}

	r.log.Warnf("unknown command %q, ignoring", cmd)
	return nil
}
