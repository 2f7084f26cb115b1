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
package cmd

import (
	"fmt"
	"os"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/spf13/cobra"
)

func DefineInitDiskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initdisk <image>",
		Short: "Initialize or relabel an OASIS disk image",
		Long: `The 'initdisk' command prepares disk images. Exactly one of --format,
--build or --clear may be given; --label, --wp and --nowp compose with any
of them or stand alone. Geometry flags require --format; a missing raw
image is created when formatting.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunInitDisk,
	}

	cmd.Flags().Bool("format", false, "blank the media and build fresh filesystem surfaces")
	cmd.Flags().Bool("build", false, "build filesystem surfaces on already formatted media")
	cmd.Flags().Bool("clear", false, "wipe the directory and allocation map, keeping geometry")
	cmd.Flags().String("label", "", "set the volume label")
	cmd.Flags().Bool("wp", false, "set the write-protect flag")
	cmd.Flags().Bool("nowp", false, "clear the write-protect flag")
	cmd.Flags().Int("heads", 1, "number of heads (with --format)")
	cmd.Flags().Int("cylinders", 77, "number of cylinders (with --format)")
	cmd.Flags().Int("sectors", 26, "sectors per track (with --format)")
	cmd.Flags().Int("dir-size", 64, "directory entries (with --format, --build or --clear)")

	return cmd
}

func RunInitDisk(cmd *cobra.Command, args []string) error {
	path := args[0]

	doFormat, _ := cmd.Flags().GetBool("format")
	doBuild, _ := cmd.Flags().GetBool("build")
	doClear, _ := cmd.Flags().GetBool("clear")
	label, _ := cmd.Flags().GetString("label")
	wp, _ := cmd.Flags().GetBool("wp")
	nowp, _ := cmd.Flags().GetBool("nowp")

	modes := 0
	for _, m := range []bool{doFormat, doBuild, doClear} {
		if m {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("at most one of --format, --build and --clear may be given")
	}
	if wp && nowp {
		return fmt.Errorf("--wp and --nowp conflict")
	}
	if modes == 0 && label == "" && !wp && !nowp {
		return fmt.Errorf("nothing to do")
	}
	if (cmd.Flags().Changed("heads") || cmd.Flags().Changed("cylinders") ||
		cmd.Flags().Changed("sectors")) && !doFormat {
		return fmt.Errorf("geometry flags require --format")
	}
	if cmd.Flags().Changed("dir-size") && modes == 0 {
		return fmt.Errorf("--dir-size requires --format, --build or --clear")
	}

	geom := disk.Geometry{}
	geom.Heads, _ = cmd.Flags().GetInt("heads")
	geom.Cylinders, _ = cmd.Flags().GetInt("cylinders")
	geom.SectorsPerTrack, _ = cmd.Flags().GetInt("sectors")
	geom.DirEntries, _ = cmd.Flags().GetInt("dir-size")

	var (
		c      disk.Container
		layout *disk.DiskLayout
		err    error
	)

	switch {
	case doFormat, doBuild:
		c, err = openOrCreateContainer(path, geom, doFormat)
		if err != nil {
			return err
		}
		defer c.Close()

		if doFormat {
			layout, err = disk.Format(c, geom, label)
		} else {
			layout, err = disk.Build(c, geom, label)
		}
		if err != nil {
			return err
		}
		fmt.Printf("initialized %s: %d block(s) free\n", path, layout.FS.FreeBlocks)

	default:
		var closeFn func()
		layout, closeFn, err = openLayout(path, true)
		if err != nil {
			return err
		}
		defer closeFn()

		if doClear {
			if err := layout.Clear(); err != nil {
				return err
			}
			fmt.Printf("cleared %s: %d block(s) free\n", path, layout.FS.FreeBlocks)
		}
		if label != "" {
			if err := layout.Label(label); err != nil {
				return err
			}
			fmt.Printf("label set to %s\n", layout.FS.LabelString())
		}
	}

	if wp || nowp {
		if err := layout.SetWriteProtect(wp); err != nil {
			return err
		}
		fmt.Printf("write protect: %v\n", wp)
	}
	return nil
}

// openOrCreateContainer opens an existing image, or, when formatting a
// raw image that does not exist yet, creates it at the geometry's size.
func openOrCreateContainer(path string, geom disk.Geometry, format bool) (disk.Container, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && format {
		return disk.CreateRaw(path, geom.TotalSectors())
	}
	return disk.Open(path, true)
}
