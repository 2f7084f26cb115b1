//go:build !linux
// +build !linux

package fuse

import (
	"fmt"

	"github.com/ostafen/oasis/internal/disk"
)

func Mount(mountpoint string, layout *disk.DiskLayout) error {
	return fmt.Errorf("FUSE mount is only supported on Linux")
}
