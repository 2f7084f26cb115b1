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

func DefineListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "list <image> [pattern]",
		Short:        "List the files of an OASIS disk image",
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE:         RunList,
	}

	cmd.Flags().StringP("owner", "u", "*", "only list files of this owner id")
	return cmd
}

func RunList(cmd *cobra.Command, args []string) error {
	pattern := "*.*"
	if len(args) > 1 {
		pattern = args[1]
	}

	owner, err := disk.ParseOwner(cmd.Flag("owner").Value.String())
	if err != nil {
		return err
	}

	layout, closeFn, err := openLayout(args[0], false)
	if err != nil {
		return err
	}
	defer closeFn()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFMT\tRECS\tBLOCKS\tSTART\tSIZE\tOWNER\tDATE")

	files, totalBlocks := 0, 0
	for _, i := range layout.FindDEB(pattern, owner) {
		deb := &layout.Dir[i]
		files++
		totalBlocks += int(deb.BlockCount)

		fmt.Fprintf(w, "%s\t%c\t%d\t%d\t%d\t%s\t%d\t%s\n",
			deb.DisplayName(),
			deb.Format.Char(),
			deb.RecordCount,
			deb.BlockCount,
			deb.StartSector,
			format.FormatBytes(int64(deb.LogicalSize())),
			deb.OwnerID,
			deb.Timestamp)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d file(s), %d block(s) used, %d block(s) free\n",
		files, totalBlocks, layout.FS.FreeBlocks)
	return nil
}
