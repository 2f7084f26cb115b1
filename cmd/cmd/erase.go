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

	"github.com/ostafen/oasis/internal/disk"
	"github.com/spf13/cobra"
)

func DefineEraseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "erase <image> <pattern>",
		Short:        "Erase a file from an OASIS disk image",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunErase,
	}

	cmd.Flags().StringP("owner", "u", "*", "only erase a file of this owner id")
	return cmd
}

func RunErase(cmd *cobra.Command, args []string) error {
	owner, err := disk.ParseOwner(cmd.Flag("owner").Value.String())
	if err != nil {
		return err
	}

	layout, closeFn, err := openLayout(args[0], true)
	if err != nil {
		return err
	}
	defer closeFn()

	erased, err := layout.Erase(args[1], owner)
	if err != nil {
		return err
	}
	if !erased {
		fmt.Printf("no file matches %q\n", args[1])
		return nil
	}

	fmt.Printf("erased %s, %d block(s) free\n", args[1], layout.FS.FreeBlocks)
	return nil
}
