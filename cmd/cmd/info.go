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
	"text/tabwriter"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/ostafen/oasis/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "info <image>",
		Short:        "Print the filesystem block and allocation summary of an image",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunInfo,
	}
}

func RunInfo(cmd *cobra.Command, args []string) error {
	layout, closeFn, err := openLayout(args[0], false)
	if err != nil {
		return err
	}
	defer closeFn()

	fs := layout.FS

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Label:\t%s\n", fs.LabelString())
	fmt.Fprintf(w, "Created:\t%s\n", fs.Timestamp)
	fmt.Fprintf(w, "Geometry:\t%d head(s), %d cylinder(s), %d sector(s)/track\n",
		fs.NumHeads, fs.NumCyl, fs.NumSectors)
	fmt.Fprintf(w, "Total sectors:\t%d (%s)\n",
		layout.Container().TotalSectors(),
		format.FormatBytes(int64(layout.Container().TotalSectors())*disk.SectorSize))
	fmt.Fprintf(w, "Directory:\t%d entries in %d sector(s) at LBA %d\n",
		int(fs.DirEntriesMax)*8, fs.DirSectorsMax(), fs.DirStartSector())
	fmt.Fprintf(w, "Allocation map:\t%d block(s) in %d+1 sector(s)\n",
		layout.Alloc.NumBlocks(), fs.AdditionalAMSectors())
	fmt.Fprintf(w, "Free blocks:\t%d (largest run %d)\n",
		fs.FreeBlocks, layout.Alloc.LargestFreeRun())
	fmt.Fprintf(w, "Write protected:\t%v\n", fs.WriteProtected())
	return w.Flush()
}
