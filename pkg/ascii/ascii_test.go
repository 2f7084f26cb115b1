package ascii_test

import (
	"testing"

	"github.com/ostafen/oasis/pkg/ascii"
	"github.com/stretchr/testify/require"
)

func TestToOASIS(t *testing.T) {
	require.Equal(t, []byte("ONE\rTWO\r\x1a"), ascii.ToOASIS([]byte("ONE\nTWO\n")))
	require.Equal(t, []byte("ONE\rTWO\r\x1a"), ascii.ToOASIS([]byte("ONE\r\nTWO\r\n")))
	require.Equal(t, []byte("NO NEWLINE\x1a"), ascii.ToOASIS([]byte("NO NEWLINE")))
}

func TestFromOASIS(t *testing.T) {
	require.Equal(t, []byte("ONE\nTWO\n"), ascii.FromOASIS([]byte("ONE\rTWO\r\x1a")))

	// Everything from the EOF marker on is dropped.
	require.Equal(t, []byte("DATA\n"), ascii.FromOASIS([]byte("DATA\r\x1aGARBAGE")))
}

func TestRoundTrip(t *testing.T) {
	host := []byte("10 PRINT \"HELLO\"\n20 GOTO 10\n")
	require.Equal(t, host, ascii.FromOASIS(ascii.ToOASIS(host)))
}

func TestIsText(t *testing.T) {
	require.True(t, ascii.IsText([]byte("PLAIN TEXT\r\n")))
	require.False(t, ascii.IsText([]byte{0x41, 0x80, 0x42}))
	require.False(t, ascii.IsText([]byte{0x41, 0x00}))

	// Bytes past the EOF marker do not matter.
	require.True(t, ascii.IsText([]byte{0x41, 0x1A, 0xFF}))
}
