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
	"path/filepath"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/ostafen/oasis/pkg/ascii"
	"github.com/spf13/cobra"
)

func DefineCopyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "copy <image> <host-file> [oasis-name]",
		Short:        "Copy a host file into an OASIS disk image",
		Args:         cobra.RangeArgs(2, 3),
		SilenceUsage: true,
		RunE:         RunCopy,
	}

	cmd.Flags().BoolP("ascii", "a", false, "convert host text to OASIS line endings")
	cmd.Flags().StringP("owner", "u", "0", "owner id of the new file")
	return cmd
}

func RunCopy(cmd *cobra.Command, args []string) error {
	hostPath := args[1]

	name := filepath.Base(hostPath)
	if len(args) > 2 {
		name = args[2]
	}

	template, err := disk.ParseHostFilename(name)
	if err != nil {
		return err
	}

	owner, err := disk.ParseOwner(cmd.Flag("owner").Value.String())
	if err != nil {
		return err
	}
	if owner < 0 {
		owner = 0
	}
	template.OwnerID = byte(owner)

	data, err := os.ReadFile(hostPath)
	if err != nil {
		return err
	}

	asciiMode, _ := cmd.Flags().GetBool("ascii")
	if asciiMode && template.Format.Org() == disk.OrgSequential {
		if !ascii.IsText(data) {
			return fmt.Errorf("%s is not 7-bit text", hostPath)
		}
		data = ascii.ToOASIS(data)
	}

	if template.Format.Org() == disk.OrgSequential {
		records, longest := disk.SequentialStats(data)
		template.RecordCount = uint16(records)
		template.FFD1 = uint16(longest)
	} else if rl := int(template.FFD1); rl > 0 {
		template.RecordCount = uint16((len(data) + rl - 1) / rl)
	}

	if finfo, err := os.Stat(hostPath); err == nil {
		template.Timestamp = disk.TimestampFromTime(finfo.ModTime())
	}

	layout, closeFn, err := openLayout(args[0], true)
	if err != nil {
		return err
	}
	defer closeFn()

	deb, err := layout.CreateFile(template, data)
	if err != nil {
		return err
	}

	fmt.Printf("copied %s to %s (%d block(s)), %d block(s) free\n",
		hostPath, deb.DisplayName(), deb.BlockCount, layout.FS.FreeBlocks)
	return nil
}
