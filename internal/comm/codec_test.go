package comm_test

import (
	"bytes"
	"testing"

	"github.com/ostafen/oasis/internal/comm"
	"github.com/stretchr/testify/require"
)

func TestLRC(t *testing.T) {
	require.Equal(t, byte(0x61), comm.LRC([]byte{0x10, 0x02, 'O'}))
	require.Equal(t, byte(0x40), comm.LRC(nil))
}

func TestEncodeRunLength(t *testing.T) {
	pkt := comm.EncodePacket(comm.CmdWrite, []byte{0x41, 0x41, 0x41, 0x41, 0x41})

	want := []byte{comm.DLE, comm.STX, 'W', 0x41, comm.DLE, comm.VT, 0x05, comm.DLE, comm.ETX}
	require.Equal(t, want, pkt[:len(want)])

	require.Equal(t, comm.LRC(pkt[:len(want)]), pkt[len(want)])
	require.Equal(t, byte(comm.RUB), pkt[len(want)+1])
	require.Len(t, pkt, len(want)+2)
}

func TestDecodeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		{0x00},
		[]byte("HELLO, WORLD\r"),
		bytes.Repeat([]byte{0x41}, 5),
		bytes.Repeat([]byte{0x41}, 200), // crosses the 127-byte run cap
		{0x10, 0x10, 0x10, 0x10, 0x10}, // a run of DLEs
		{0x1B, 0x1B, 0x1B, 0x1B},       // a run of ESCs
		{0x80, 0xFF, 0x10, 0x90, 0x1B, 0x9B, 0x7F, 0x00}, // shift flips
		bytes.Repeat([]byte{0xC5}, 300),
		{0x0B, 0x0E, 0x0F, 0x02, 0x03}, // control values as plain data
	}

	for _, cmd := range []byte{comm.CmdOpen, comm.CmdWrite, comm.CmdClose} {
		for _, payload := range payloads {
			pkt := comm.EncodePacket(cmd, payload)

			// Everything the encoder emits fits in seven bits.
			for i, b := range pkt {
				require.Less(t, b, byte(0x80), "offset %d", i)
			}

			gotCmd, got, n, err := comm.DecodePacket(pkt)
			require.NoError(t, err)
			require.Equal(t, cmd, gotCmd)
			require.Equal(t, len(pkt), n)

			if len(payload) == 0 {
				require.Empty(t, got)
			} else {
				require.Equal(t, payload, got)
			}
		}
	}
}

func TestDecodeRoundTripAfterWireMasking(t *testing.T) {
	payload := bytes.Repeat([]byte{0x99}, 64)

	pkt := comm.EncodePacket(comm.CmdWrite, payload)
	comm.RaiseMSB(pkt, len(payload))
	comm.MaskTo7Bits(pkt)

	cmd, got, _, err := comm.DecodePacket(pkt)
	require.NoError(t, err)
	require.Equal(t, byte(comm.CmdWrite), cmd)
	require.Equal(t, payload, got)
}

func TestDecodeBadChecksum(t *testing.T) {
	pkt := comm.EncodePacket(comm.CmdWrite, []byte("DATA"))
	pkt[3] ^= 0x01 // corrupt one payload byte

	_, _, _, err := comm.DecodePacket(pkt)
	require.ErrorIs(t, err, comm.ErrBadChecksum)
}

func TestDecodeMalformed(t *testing.T) {
	_, _, _, err := comm.DecodePacket([]byte{0x00, 0x01, 0x02})
	require.ErrorIs(t, err, comm.ErrMalformedPacket)

	// A header with no terminator.
	_, _, _, err = comm.DecodePacket([]byte{comm.DLE, comm.STX, 'W', 0x41})
	require.ErrorIs(t, err, comm.ErrMalformedPacket)
}
