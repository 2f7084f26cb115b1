package imd_test

import (
	"bytes"
	"testing"

	"github.com/ostafen/oasis/internal/imd"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	img := &imd.Image{
		Comment: "IMD 1.18: 01/01/1985 12:00:00\r\ntest image\r\n",
		Tracks: []imd.Track{
			{
				Mode: 3, Cylinder: 0, Head: 0,
				Sectors: []imd.Sector{
					{ID: 1, Size: 256, Data: bytes.Repeat([]byte{0xE5}, 256)},
					{ID: 2, Size: 256, Data: append(bytes.Repeat([]byte{0}, 255), 1)},
					{ID: 3, Size: 256, Data: bytes.Repeat([]byte{0}, 256), Deleted: true},
					{ID: 4, Size: 256, Data: bytes.Repeat([]byte{0xAA}, 256), HasError: true},
					{ID: 5, Size: 256, Unavailable: true, Data: make([]byte, 256)},
				},
			},
			{
				Mode: 3, Cylinder: 1, Head: 1,
				Sectors: []imd.Sector{
					{ID: 1, Size: 128, Data: bytes.Repeat([]byte{0x55}, 128)},
					{ID: 2, Size: 128, Data: bytes.Repeat([]byte{0x66}, 128)},
				},
			},
		},
	}

	decoded, err := imd.Decode(img.Encode())
	require.NoError(t, err)

	require.Equal(t, img.Comment, decoded.Comment)
	require.Len(t, decoded.Tracks, 2)

	for ti := range img.Tracks {
		want, got := img.Tracks[ti], decoded.Tracks[ti]
		require.Equal(t, want.Mode, got.Mode)
		require.Equal(t, want.Cylinder, got.Cylinder)
		require.Equal(t, want.Head, got.Head)
		require.Len(t, got.Sectors, len(want.Sectors))

		for si := range want.Sectors {
			require.Equal(t, want.Sectors[si], got.Sectors[si], "track %d sector %d", ti, si)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := imd.Decode([]byte("no comment terminator here"))
	require.Error(t, err)

	// Truncated track header after the comment.
	_, err = imd.Decode([]byte{'I', 'M', 'D', 0x1A, 0x00, 0x00})
	require.Error(t, err)

	// Invalid mode byte.
	_, err = imd.Decode([]byte{0x1A, 0xFF, 0x00, 0x00, 0x01, 0x00, 0x01, 0x01, 0xE5})
	require.Error(t, err)
}
