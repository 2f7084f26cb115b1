package disk_test

import (
	"testing"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*.*", "NAME.TYP", true},
		{"NAME.TYP", "NAME.TYP", true},
		{"N?ME.*", "NAME.TYP", true},
		{"name.typ", "NAME.TYP", true},
		{"NAME.TYP", "name.typ", true},
		{"N?ME.*", "NME.TYP", false},
		{"*.BAS", "HELLO.BAS", true},
		{"*.BAS", "HELLO.TXT", false},
		{"A*B", "AB", true},
		{"A*B", "AXXXB", true},
		{"A?B", "AB", false},
		{"*", "ANYTHING.AT", true},
		{"", "", true},
		{"", "X", false},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, disk.Match(tc.pattern, tc.name),
			"match(%q, %q)", tc.pattern, tc.name)
	}
}

func TestHostFilename(t *testing.T) {
	deb := &disk.DEB{Format: disk.OrgSequential, FFD1: 80}
	deb.SetName("hello", "bas")
	require.Equal(t, "HELLO.BAS", deb.DisplayName())
	require.Equal(t, "HELLO.BAS_S_80", deb.HostFilename())

	// Empty type keeps the trailing dot.
	deb = &disk.DEB{Format: disk.OrgDirect, FFD1: 256}
	deb.SetName("data", "")
	require.Equal(t, "DATA.", deb.DisplayName())
	require.Equal(t, "DATA._D_256", deb.HostFilename())
}

func TestParseHostFilename(t *testing.T) {
	deb, err := disk.ParseHostFilename("hello.bas_S_80")
	require.NoError(t, err)
	require.Equal(t, "HELLO.BAS", deb.DisplayName())
	require.Equal(t, byte(disk.OrgSequential), deb.Format.Org())
	require.Equal(t, uint16(80), deb.FFD1)

	// No suffix defaults to sequential.
	deb, err = disk.ParseHostFilename("readme.txt")
	require.NoError(t, err)
	require.Equal(t, "README.TXT", deb.DisplayName())
	require.Equal(t, byte(disk.OrgSequential), deb.Format.Org())

	deb, err = disk.ParseHostFilename("LOADER.CMD_A")
	require.NoError(t, err)
	require.Equal(t, byte(disk.OrgAbsolute), deb.Format.Org())

	_, err = disk.ParseHostFilename("waytoolongname.txt")
	require.Error(t, err)

	_, err = disk.ParseHostFilename("name.waytoolongtype")
	require.Error(t, err)
}

func TestHostFilenameRoundTrip(t *testing.T) {
	deb := &disk.DEB{Format: disk.OrgDirect, FFD1: 128}
	deb.SetName("records", "dat")

	got, err := disk.ParseHostFilename(deb.HostFilename())
	require.NoError(t, err)
	require.Equal(t, deb.Name, got.Name)
	require.Equal(t, deb.Type, got.Type)
	require.Equal(t, deb.Format, got.Format)
	require.Equal(t, deb.FFD1, got.FFD1)
}

func TestParseOwner(t *testing.T) {
	for _, s := range []string{"*", "-1", ""} {
		owner, err := disk.ParseOwner(s)
		require.NoError(t, err)
		require.Equal(t, -1, owner)
	}

	owner, err := disk.ParseOwner("42")
	require.NoError(t, err)
	require.Equal(t, 42, owner)

	_, err = disk.ParseOwner("256")
	require.Error(t, err)
	_, err = disk.ParseOwner("abc")
	require.Error(t, err)
}
