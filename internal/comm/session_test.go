package comm_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/ostafen/oasis/internal/comm"
	"github.com/ostafen/oasis/internal/disk"
	"github.com/ostafen/oasis/internal/logger"
	"github.com/stretchr/testify/require"
)

// pipePort is an in-memory character device: reads time out with zero
// bytes like a serial driver with VTIME set.
type pipePort struct {
	in  chan byte
	out chan byte
}

func newPipe() (*pipePort, *pipePort) {
	a := make(chan byte, 65536)
	b := make(chan byte, 65536)
	return &pipePort{in: a, out: b}, &pipePort{in: b, out: a}
}

func (p *pipePort) Read(buf []byte) (int, error) {
	select {
	case c := <-p.in:
		buf[0] = c
		return 1, nil
	case <-time.After(100 * time.Millisecond):
		return 0, nil
	}
}

func (p *pipePort) Write(buf []byte) (int, error) {
	for _, c := range buf {
		p.out <- c
	}
	return len(buf), nil
}

// memSink collects received files in memory.
type memSink struct {
	files map[string][]byte
	cur   bytes.Buffer
}

func (s *memSink) Open(deb *disk.DEB) error {
	s.cur.Reset()
	return nil
}

func (s *memSink) Write(data []byte) error {
	_, err := s.cur.Write(data)
	return err
}

func (s *memSink) Close(deb *disk.DEB) error {
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[deb.DisplayName()] = append([]byte(nil), s.cur.Bytes()...)
	return nil
}

func quietLogger() *logger.Logger {
	return logger.New(io.Discard, logger.ErrorLevel)
}

func TestHandshake(t *testing.T) {
	sp, rp := newPipe()

	// Scripted receiver: sees ENQ, answers DLE '0'.
	done := make(chan error, 1)
	go func() {
		var b [1]byte
		for {
			n, _ := rp.Read(b[:])
			if n == 1 && b[0] == comm.ENQ {
				break
			}
		}
		_, err := rp.Write([]byte{comm.DLE, '0'})
		done <- err
	}()

	sender := comm.NewSender(sp, quietLogger())
	require.NoError(t, sender.Handshake())
	require.NoError(t, <-done)
}

func TestTransferSession(t *testing.T) {
	sp, rp := newPipe()

	sink := &memSink{}
	recv := comm.NewReceiver(rp, sink, quietLogger())

	done := make(chan error, 1)
	go func() {
		done <- recv.Run()
	}()

	sender := comm.NewSender(sp, quietLogger())
	require.NoError(t, sender.Handshake())

	// A sequential text file spanning several packets.
	seqData := bytes.Repeat([]byte("A LINE OF TEXT\r"), 40)
	seqDEB := &disk.DEB{
		Format:      disk.OrgSequential,
		BlockCount:  1,
		RecordCount: 40,
		FFD1:        14,
		Timestamp:   disk.Timestamp{Month: 4, Day: 23, Year: 1985, Hour: 14, Minute: 30},
	}
	seqDEB.SetName("notes", "txt")
	require.NoError(t, sender.SendFile(seqDEB, seqData))

	// A direct file with an odd tail.
	dirData := bytes.Repeat([]byte{0x5A}, 700)
	dirDEB := &disk.DEB{
		Format:      disk.OrgDirect,
		BlockCount:  1,
		RecordCount: 7,
		FFD1:        100,
		Timestamp:   disk.Timestamp{Month: 1, Day: 2, Year: 1984, Hour: 3, Minute: 4},
	}
	dirDEB.SetName("records", "dat")
	require.NoError(t, sender.SendFile(dirDEB, dirData))

	require.NoError(t, sender.Finish())
	require.NoError(t, <-done)

	require.Len(t, sink.files, 2)

	got := sink.files["NOTES.TXT"]
	require.GreaterOrEqual(t, len(got), len(seqData))
	require.Equal(t, seqData, got[:len(seqData)])
	for _, b := range got[len(seqData):] {
		require.Equal(t, byte(comm.SUB), b) // tail padding
	}

	require.Equal(t, dirData, sink.files["RECORDS.DAT"])
}

func TestReceiverNAKsCorruptPacket(t *testing.T) {
	sp, rp := newPipe()

	sink := &memSink{}
	recv := comm.NewReceiver(rp, sink, quietLogger())

	done := make(chan error, 1)
	go func() {
		done <- recv.Run()
	}()

	// Handshake by hand.
	_, err := sp.Write([]byte{comm.ENQ})
	require.NoError(t, err)
	require.Equal(t, 0, readAck(t, sp))

	// A corrupted OPEN packet must not flip the toggle: the same ACK
	// comes back.
	var wire [disk.DEBSize]byte
	deb := &disk.DEB{Format: disk.OrgDirect, BlockCount: 1, RecordCount: 1, FFD1: 8}
	deb.SetName("x", "y")
	deb.MarshalBinary(wire[:])

	pkt := comm.EncodePacket(comm.CmdOpen, wire[:])
	pkt[3] ^= 0x01
	_, err = sp.Write(pkt)
	require.NoError(t, err)
	require.Equal(t, 0, readAck(t, sp))

	// The intact retransmission flips it.
	pkt = comm.EncodePacket(comm.CmdOpen, wire[:])
	_, err = sp.Write(pkt)
	require.NoError(t, err)
	require.Equal(t, 1, readAck(t, sp))

	_, err = sp.Write([]byte{comm.DLE, comm.EOT})
	require.NoError(t, err)
	require.NoError(t, <-done)
}

// readAck consumes one DLE-digit acknowledgement from the wire.
func readAck(t *testing.T, p comm.Port) int {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	sawDLE := false
	var b [1]byte
	for time.Now().Before(deadline) {
		n, err := p.Read(b[:])
		require.NoError(t, err)
		if n == 0 {
			continue
		}
		c := b[0] & 0x7F
		switch {
		case c == comm.DLE:
			sawDLE = true
		case sawDLE && (c == '0' || c == '1'):
			return int(c & 1)
		default:
			sawDLE = false
		}
	}
	t.Fatal("no ACK before deadline")
	return -1
}
