package disk_test

import (
	"testing"
	"time"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/stretchr/testify/require"
)

func TestTimestampRoundTrip(t *testing.T) {
	for _, ts := range []disk.Timestamp{
		{Month: 1, Day: 1, Year: 1977, Hour: 0, Minute: 0},
		{Month: 12, Day: 31, Year: 1992, Hour: 23, Minute: 59},
		{Month: 4, Day: 23, Year: 1985, Hour: 14, Minute: 30},
		{Month: 7, Day: 4, Year: 1981, Hour: 9, Minute: 41},
	} {
		require.Equal(t, ts, disk.UnpackTimestamp(ts.Pack()))
	}
}

func TestTimestampPack(t *testing.T) {
	ts := disk.Timestamp{Month: 4, Day: 23, Year: 1985, Hour: 14, Minute: 30}
	packed := ts.Pack()

	require.Equal(t, byte(0x4B), packed[0])
	require.Equal(t, byte(0xC3), packed[1])
	require.Equal(t, byte(0x9E), packed[2])
	require.Equal(t, ts, disk.UnpackTimestamp(packed))
}

func TestTimestampClamping(t *testing.T) {
	ts := disk.Timestamp{Month: 13, Day: 40, Year: 2020, Hour: 27, Minute: 75}
	got := disk.UnpackTimestamp(ts.Pack())

	require.Equal(t, 12, got.Month)
	require.Equal(t, 31, got.Day)
	require.Equal(t, 1992, got.Year)
	require.Equal(t, 23, got.Hour)
	require.Equal(t, 59, got.Minute)
}

func TestTimestampFromTime(t *testing.T) {
	tm := time.Date(1985, time.April, 23, 14, 30, 42, 0, time.Local)
	ts := disk.TimestampFromTime(tm)

	require.Equal(t, disk.Timestamp{Month: 4, Day: 23, Year: 1985, Hour: 14, Minute: 30}, ts)
	// Seconds are not representable.
	require.Equal(t, 0, ts.Time().Second())
}
